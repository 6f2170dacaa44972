package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber   string     `gorm:"type:varchar(32);not null;uniqueIndex"`
	PropertyID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	TenantID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_invoices_tenant_due,priority:1"`
	UnitID          *uuid.UUID `gorm:"type:uuid;index"`
	LeaseID         *uuid.UUID `gorm:"type:uuid;index"`
	Type            string     `gorm:"type:varchar(20);not null"`
	Status          string     `gorm:"type:varchar(20);not null;index"`
	AmountCents     int64      `gorm:"not null"`
	AmountPaidCents int64      `gorm:"not null;default:0"`
	BalanceCents    int64      `gorm:"not null"`
	IssuedOn        time.Time  `gorm:"type:date;not null"`
	DueOn           time.Time  `gorm:"type:date;not null;index:idx_invoices_tenant_due,priority:2"`
	BillingPeriod   string     `gorm:"type:varchar(7)"`
	Notes           string     `gorm:"type:text"`
	VoidedAt        *time.Time
	VoidReason      string             `gorm:"type:varchar(500)"`
	Items           []InvoiceItemModel `gorm:"foreignKey:InvoiceID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *ledger.Invoice {
	inv := &ledger.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		InvoiceNumber:     m.InvoiceNumber,
		PropertyID:        m.PropertyID,
		TenantID:          m.TenantID,
		UnitID:            m.UnitID,
		LeaseID:           m.LeaseID,
		Type:              ledger.InvoiceType(m.Type),
		Status:            ledger.InvoiceStatus(m.Status),
		AmountCents:       m.AmountCents,
		AmountPaidCents:   m.AmountPaidCents,
		BalanceCents:      m.BalanceCents,
		IssuedOn:          shared.Date(m.IssuedOn),
		DueOn:             shared.Date(m.DueOn),
		BillingPeriod:     m.BillingPeriod,
		Notes:             m.Notes,
		VoidedAt:          m.VoidedAt,
		VoidReason:        m.VoidReason,
	}
	if len(m.Items) > 0 {
		inv.Items = make([]ledger.InvoiceItem, len(m.Items))
		for i := range m.Items {
			inv.Items[i] = m.Items[i].ToDomain()
		}
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *ledger.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.PropertyID = inv.PropertyID
	m.TenantID = inv.TenantID
	m.UnitID = inv.UnitID
	m.LeaseID = inv.LeaseID
	m.Type = string(inv.Type)
	m.Status = string(inv.Status)
	m.AmountCents = inv.AmountCents
	m.AmountPaidCents = inv.AmountPaidCents
	m.BalanceCents = inv.BalanceCents
	m.IssuedOn = inv.IssuedOn
	m.DueOn = inv.DueOn
	m.BillingPeriod = inv.BillingPeriod
	m.Notes = inv.Notes
	m.VoidedAt = inv.VoidedAt
	m.VoidReason = inv.VoidReason
	m.Items = make([]InvoiceItemModel, len(inv.Items))
	for i, item := range inv.Items {
		m.Items[i] = InvoiceItemModelFromDomain(inv.ID, item, i+1)
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *ledger.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceItemModel is the persistence model for an invoice line
type InvoiceItemModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo         int             `gorm:"not null"`
	Description    string          `gorm:"type:varchar(255);not null"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPriceCents int64           `gorm:"not null"`
	AmountCents    int64           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the persistence model to a domain InvoiceItem
func (m *InvoiceItemModel) ToDomain() ledger.InvoiceItem {
	return ledger.InvoiceItem{
		ID:             m.ID,
		Description:    m.Description,
		Quantity:       m.Quantity,
		UnitPriceCents: m.UnitPriceCents,
		AmountCents:    m.AmountCents,
	}
}

// InvoiceItemModelFromDomain creates an item row for the invoice
func InvoiceItemModelFromDomain(invoiceID uuid.UUID, item ledger.InvoiceItem, lineNo int) InvoiceItemModel {
	id := item.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return InvoiceItemModel{
		ID:             id,
		InvoiceID:      invoiceID,
		LineNo:         lineNo,
		Description:    item.Description,
		Quantity:       item.Quantity,
		UnitPriceCents: item.UnitPriceCents,
		AmountCents:    item.AmountCents,
	}
}

// PaymentModel is the persistence model for the Payment aggregate root.
// The business reference is unique per property.
type PaymentModel struct {
	AggregateModel
	PropertyID       uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_payments_property_reference,priority:1"`
	TenantID         uuid.UUID         `gorm:"type:uuid;not null;index"`
	Reference        string            `gorm:"type:varchar(100);not null;uniqueIndex:idx_payments_property_reference,priority:2"`
	Method           string            `gorm:"type:varchar(20);not null"`
	AmountCents      int64             `gorm:"not null"`
	UnallocatedCents int64             `gorm:"not null"`
	PaidAt           time.Time         `gorm:"not null;index"`
	Notes            string            `gorm:"type:text"`
	Allocations      []AllocationModel `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *ledger.Payment {
	p := &ledger.Payment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PropertyID:        m.PropertyID,
		TenantID:          m.TenantID,
		Reference:         m.Reference,
		Method:            ledger.PaymentMethod(m.Method),
		AmountCents:       m.AmountCents,
		UnallocatedCents:  m.UnallocatedCents,
		PaidAt:            m.PaidAt,
		Notes:             m.Notes,
		Allocations:       make([]ledger.Allocation, len(m.Allocations)),
	}
	for i := range m.Allocations {
		p.Allocations[i] = m.Allocations[i].ToDomain()
	}
	return p
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *ledger.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.PropertyID = p.PropertyID
	m.TenantID = p.TenantID
	m.Reference = p.Reference
	m.Method = string(p.Method)
	m.AmountCents = p.AmountCents
	m.UnallocatedCents = p.UnallocatedCents
	m.PaidAt = p.PaidAt
	m.Notes = p.Notes
	m.Allocations = make([]AllocationModel, len(p.Allocations))
	for i, a := range p.Allocations {
		m.Allocations[i] = AllocationModelFromDomain(a, i+1)
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *ledger.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// AllocationModel is the persistence model for an append-only payment allocation
type AllocationModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	PaymentID     uuid.UUID `gorm:"type:uuid;not null;index"`
	InvoiceID     uuid.UUID `gorm:"type:uuid;not null;index"`
	InvoiceNumber string    `gorm:"type:varchar(32);not null"`
	Position      int       `gorm:"not null"`
	AmountCents   int64     `gorm:"not null"`
	AllocatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain Allocation
func (m *AllocationModel) ToDomain() ledger.Allocation {
	return ledger.Allocation{
		ID:            m.ID,
		PaymentID:     m.PaymentID,
		InvoiceID:     m.InvoiceID,
		InvoiceNumber: m.InvoiceNumber,
		AmountCents:   m.AmountCents,
		AllocatedAt:   m.AllocatedAt,
	}
}

// AllocationModelFromDomain creates a persistence model from a domain Allocation.
// position is the 1-based order in which the payment made the allocation.
func AllocationModelFromDomain(a ledger.Allocation, position int) AllocationModel {
	return AllocationModel{
		ID:            a.ID,
		PaymentID:     a.PaymentID,
		InvoiceID:     a.InvoiceID,
		InvoiceNumber: a.InvoiceNumber,
		Position:      position,
		AmountCents:   a.AmountCents,
		AllocatedAt:   a.AllocatedAt,
	}
}
