package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionalID(t *testing.T) {
	t.Run("empty is no filter", func(t *testing.T) {
		id, err := ParseOptionalID("tenant_id", "")
		require.NoError(t, err)
		assert.Nil(t, id)
	})

	t.Run("valid uuid", func(t *testing.T) {
		want := uuid.New()
		id, err := ParseOptionalID("tenant_id", want.String())
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, want, *id)
	})

	t.Run("malformed value is a validation error", func(t *testing.T) {
		_, err := ParseOptionalID("tenant_id", "not-a-uuid")
		require.Error(t, err)
		var de *DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INVALID_ID", de.Code)
		assert.Contains(t, de.Message, "tenant_id")
	})
}
