package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// InvoiceFixture describes an invoice to seed. Zero fields get defaults:
// fresh property and tenant IDs, rent type, issued status and a due date
// equal to the issue date.
type InvoiceFixture struct {
	PropertyID    uuid.UUID
	TenantID      uuid.UUID
	UnitID        *uuid.UUID
	LeaseID       *uuid.UUID
	Type          ledger.InvoiceType
	AmountCents   int64
	IssuedOn      time.Time
	DueOn         time.Time
	BillingPeriod string
	Draft         bool
}

// NewInvoice builds an invoice from f without storing it
func NewInvoice(t *testing.T, f InvoiceFixture, today time.Time) *ledger.Invoice {
	t.Helper()

	if f.PropertyID == uuid.Nil {
		f.PropertyID = uuid.New()
	}
	if f.TenantID == uuid.Nil {
		f.TenantID = uuid.New()
	}
	if f.Type == "" {
		f.Type = ledger.InvoiceTypeRent
	}
	if f.IssuedOn.IsZero() {
		f.IssuedOn = today
	}
	if f.DueOn.IsZero() {
		f.DueOn = f.IssuedOn
	}
	inv, err := ledger.NewInvoice(ledger.InvoiceSpec{
		PropertyID:    f.PropertyID,
		TenantID:      f.TenantID,
		UnitID:        f.UnitID,
		LeaseID:       f.LeaseID,
		Type:          f.Type,
		AmountCents:   f.AmountCents,
		IssuedOn:      f.IssuedOn,
		DueOn:         f.DueOn,
		BillingPeriod: f.BillingPeriod,
		Issue:         !f.Draft,
	}, today)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

// CreateInvoice stores the invoice described by f
func CreateInvoice(t *testing.T, db *gorm.DB, f InvoiceFixture, today time.Time) *ledger.Invoice {
	t.Helper()

	inv := NewInvoice(t, f, today)
	require.NoError(t, persistence.NewGormInvoiceRepository(db).Create(context.Background(), inv))
	return inv
}

// ReloadInvoice reads the stored state of an invoice
func ReloadInvoice(t *testing.T, db *gorm.DB, id uuid.UUID) *ledger.Invoice {
	t.Helper()

	inv, err := persistence.NewGormInvoiceRepository(db).FindByID(context.Background(), id)
	require.NoError(t, err)
	return inv
}
