package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// ParseOptionalID parses an optional UUID query value. Empty input yields nil.
func ParseOptionalID(field, s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, NewValidationError("INVALID_ID", fmt.Sprintf("%s must be a UUID, got %q", field, s))
	}
	return &id, nil
}
