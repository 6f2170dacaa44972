package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	paid := newTestHandler()
	audit := newTestHandler()

	r.Register(paid, "InvoicePaid", "InvoiceVoided")
	r.Register(audit)

	assert.Len(t, r.HandlersFor("InvoicePaid"), 2)
	assert.Equal(t, paid, r.HandlersFor("InvoiceVoided")[0])
	assert.Len(t, r.HandlersFor("PaymentRecorded"), 1)
	assert.Equal(t, 2, r.Count())

	r.Unregister(paid)
	assert.Len(t, r.HandlersFor("InvoicePaid"), 1)
	assert.Equal(t, 1, r.Count())

	r.Unregister(audit)
	assert.Empty(t, r.HandlersFor("InvoicePaid"))
	assert.Zero(t, r.Count())
}
