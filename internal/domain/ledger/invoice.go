package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusIssued  InvoiceStatus = "issued"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPartial,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true for paid and void
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoid
}

// CanApplyPayment returns true if allocations may target an invoice in this status
func (s InvoiceStatus) CanApplyPayment() bool {
	return s == InvoiceStatusIssued || s == InvoiceStatusPartial || s == InvoiceStatusOverdue
}

// CanVoid returns true if the invoice can be voided
func (s InvoiceStatus) CanVoid() bool {
	return !s.IsTerminal()
}

// OpenStatuses are the statuses that make an invoice a candidate for allocation
func OpenStatuses() []InvoiceStatus {
	return []InvoiceStatus{InvoiceStatusIssued, InvoiceStatusPartial, InvoiceStatusOverdue}
}

// InvoiceType is the billing category of an invoice
type InvoiceType string

const (
	InvoiceTypeRent          InvoiceType = "rent"
	InvoiceTypeWater         InvoiceType = "water"
	InvoiceTypeElectricity   InvoiceType = "electricity"
	InvoiceTypeServiceCharge InvoiceType = "service_charge"
	InvoiceTypePenalty       InvoiceType = "penalty"
	InvoiceTypeOther         InvoiceType = "other"
)

// IsValid checks if the invoice type is valid
func (t InvoiceType) IsValid() bool {
	switch t {
	case InvoiceTypeRent, InvoiceTypeWater, InvoiceTypeElectricity,
		InvoiceTypeServiceCharge, InvoiceTypePenalty, InvoiceTypeOther:
		return true
	}
	return false
}

// String returns the string representation of the invoice type
func (t InvoiceType) String() string {
	return string(t)
}

// IsUtility returns true for metered invoice types
func (t InvoiceType) IsUtility() bool {
	return t == InvoiceTypeWater || t == InvoiceTypeElectricity
}

// InvoiceItem is a line on an invoice
type InvoiceItem struct {
	ID             uuid.UUID
	Description    string
	Quantity       decimal.Decimal
	UnitPriceCents int64
	AmountCents    int64
}

// NewInvoiceItem creates a line item; the amount is quantity x unit price rounded to the cent
func NewInvoiceItem(description string, quantity decimal.Decimal, unitPriceCents int64) (InvoiceItem, error) {
	if strings.TrimSpace(description) == "" {
		return InvoiceItem{}, shared.NewValidationError("INVALID_ITEM", "Item description cannot be empty")
	}
	if !quantity.IsPositive() {
		return InvoiceItem{}, shared.NewValidationError("INVALID_ITEM", "Item quantity must be positive")
	}
	if unitPriceCents < 0 {
		return InvoiceItem{}, shared.NewValidationError("INVALID_ITEM", "Item unit price cannot be negative")
	}
	amount := quantity.Mul(decimal.NewFromInt(unitPriceCents)).Round(0).IntPart()
	return InvoiceItem{
		ID:             uuid.New(),
		Description:    description,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
		AmountCents:    amount,
	}, nil
}

// Invoice is an amount owed by a tenant for a period and category.
// BalanceCents always equals AmountCents - AmountPaidCents.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber   string
	PropertyID      uuid.UUID
	TenantID        uuid.UUID
	UnitID          *uuid.UUID
	LeaseID         *uuid.UUID
	Type            InvoiceType
	Status          InvoiceStatus
	AmountCents     int64
	AmountPaidCents int64
	BalanceCents    int64
	IssuedOn        time.Time
	DueOn           time.Time
	BillingPeriod   string
	Notes           string
	Items           []InvoiceItem
	VoidedAt        *time.Time
	VoidReason      string
}

// InvoiceSpec holds the inputs for creating an invoice
type InvoiceSpec struct {
	PropertyID    uuid.UUID
	TenantID      uuid.UUID
	UnitID        *uuid.UUID
	LeaseID       *uuid.UUID
	Type          InvoiceType
	AmountCents   int64
	IssuedOn      time.Time
	DueOn         time.Time
	BillingPeriod string
	Notes         string
	Items         []InvoiceItem
	// Issue creates the invoice in issued status instead of draft
	Issue bool
}

// NewInvoice creates a new invoice. today drives the initial overdue evaluation.
func NewInvoice(spec InvoiceSpec, today time.Time) (*Invoice, error) {
	if spec.PropertyID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PROPERTY", "Property ID cannot be empty")
	}
	if spec.TenantID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !spec.Type.IsValid() {
		return nil, shared.NewValidationError("INVALID_TYPE", fmt.Sprintf("Invalid invoice type %q", spec.Type))
	}
	if spec.IssuedOn.IsZero() || spec.DueOn.IsZero() {
		return nil, shared.NewValidationError("INVALID_DATE", "Issue date and due date are required")
	}
	issuedOn := shared.Date(spec.IssuedOn)
	dueOn := shared.Date(spec.DueOn)
	if dueOn.Before(issuedOn) {
		return nil, shared.NewValidationError("INVALID_DATE", "Due date cannot be before issue date")
	}

	amount := spec.AmountCents
	if len(spec.Items) > 0 {
		var sum int64
		for _, item := range spec.Items {
			sum += item.AmountCents
		}
		if amount == 0 {
			amount = sum
		} else if amount != sum {
			return nil, shared.NewValidationError("ITEMS_MISMATCH",
				fmt.Sprintf("Invoice amount %d does not match item total %d", amount, sum))
		}
	}
	if amount <= 0 {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Invoice amount must be positive")
	}
	if spec.Type.IsUtility() && spec.BillingPeriod != "" && !IsBillingPeriod(spec.BillingPeriod) {
		return nil, shared.NewValidationError("INVALID_BILLING_PERIOD", "Billing period must be YYYY-MM")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PropertyID:        spec.PropertyID,
		TenantID:          spec.TenantID,
		UnitID:            spec.UnitID,
		LeaseID:           spec.LeaseID,
		Type:              spec.Type,
		Status:            InvoiceStatusDraft,
		AmountCents:       amount,
		BalanceCents:      amount,
		IssuedOn:          issuedOn,
		DueOn:             dueOn,
		BillingPeriod:     spec.BillingPeriod,
		Notes:             spec.Notes,
		Items:             spec.Items,
	}
	inv.InvoiceNumber = GenerateInvoiceNumber(issuedOn, inv.ID)
	if spec.Issue {
		inv.Status = DeriveStatus(inv.AmountCents, 0, dueOn, today, true)
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// GenerateInvoiceNumber builds INV-YYYYMM-XXXXXXXX from the issue month and the invoice ID
func GenerateInvoiceNumber(issuedOn time.Time, id uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", issuedOn.Format("200601"), suffix)
}

// IsBillingPeriod reports whether s is a YYYY-MM month
func IsBillingPeriod(s string) bool {
	_, err := time.Parse("2006-01", s)
	return err == nil && len(s) == 7
}

// DeriveStatus computes the status of a non-void invoice from its amounts and due date.
// Paid wins over overdue; an unissued invoice with nothing paid stays draft.
func DeriveStatus(amountCents, paidCents int64, dueOn, today time.Time, issued bool) InvoiceStatus {
	if paidCents >= amountCents {
		return InvoiceStatusPaid
	}
	if paidCents == 0 && !issued {
		return InvoiceStatusDraft
	}
	if today.After(dueOn) {
		return InvoiceStatusOverdue
	}
	if paidCents == 0 {
		return InvoiceStatusIssued
	}
	return InvoiceStatusPartial
}

// IsOpen returns true if the invoice can receive allocations
func (i *Invoice) IsOpen() bool {
	return i.Status.CanApplyPayment() && i.BalanceCents > 0
}

// IsOverdue returns true if the invoice has an outstanding balance past its due date
func (i *Invoice) IsOverdue(today time.Time) bool {
	return i.IsOpen() && today.After(i.DueOn)
}

// Issue moves a draft invoice into circulation
func (i *Invoice) Issue(today time.Time) error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewInvalidStateError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot issue invoice in %s status", i.Status))
	}
	i.Status = DeriveStatus(i.AmountCents, i.AmountPaidCents, i.DueOn, today, true)
	i.Touch()
	i.AddDomainEvent(NewInvoiceIssuedEvent(i))
	return nil
}

// ApplyPayment records amountCents against the invoice balance.
// The allocation engine caps amounts before calling this; the checks here are
// an independent guard on the ledger invariant.
func (i *Invoice) ApplyPayment(amountCents int64, paymentID uuid.UUID, today time.Time) error {
	if amountCents <= 0 {
		return shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !i.Status.CanApplyPayment() {
		return shared.NewInvalidStateError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot apply payment to invoice in %s status", i.Status))
	}
	if i.AmountPaidCents+amountCents > i.AmountCents {
		return shared.NewOverpaymentError(fmt.Sprintf(
			"Applying %d would exceed invoice %s amount %d (already paid %d)",
			amountCents, i.InvoiceNumber, i.AmountCents, i.AmountPaidCents))
	}

	i.AmountPaidCents += amountCents
	i.BalanceCents = i.AmountCents - i.AmountPaidCents
	i.Status = DeriveStatus(i.AmountCents, i.AmountPaidCents, i.DueOn, today, true)
	i.Touch()

	i.AddDomainEvent(NewInvoicePaymentAppliedEvent(i, paymentID, amountCents))
	if i.Status == InvoiceStatusPaid {
		i.AddDomainEvent(NewInvoicePaidEvent(i))
	}
	return nil
}

// Void cancels the remaining obligation. Prior allocations stay on record.
func (i *Invoice) Void(reason string, now time.Time) error {
	if !i.Status.CanVoid() {
		return shared.NewInvalidStateError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot void invoice in %s status", i.Status))
	}
	previous := i.Status
	i.Status = InvoiceStatusVoid
	i.VoidReason = reason
	i.VoidedAt = &now
	i.Touch()
	i.AddDomainEvent(NewInvoiceVoidedEvent(i, previous))
	return nil
}

// RefreshStatus re-evaluates overdue against today. It returns true when the status changed.
func (i *Invoice) RefreshStatus(today time.Time) bool {
	if i.Status == InvoiceStatusVoid || i.Status == InvoiceStatusDraft {
		return false
	}
	next := DeriveStatus(i.AmountCents, i.AmountPaidCents, i.DueOn, today, true)
	if next == i.Status {
		return false
	}
	i.Status = next
	return true
}

// UpdateNotes replaces the free-text notes
func (i *Invoice) UpdateNotes(notes string) error {
	if i.Status == InvoiceStatusVoid {
		return shared.NewInvalidStateError(shared.CodeInvalidState, "Cannot edit a void invoice")
	}
	i.Notes = notes
	i.Touch()
	return nil
}

// AddItem appends a line to a draft invoice. Once an invoice has lines its
// amount is their total.
func (i *Invoice) AddItem(item InvoiceItem) error {
	items := append(append([]InvoiceItem(nil), i.Items...), item)
	if err := i.replaceItems(items); err != nil {
		return err
	}
	i.AddDomainEvent(NewInvoiceItemsChangedEvent(i, item.ID, "added"))
	return nil
}

// UpdateItem replaces the description, quantity and price of a line on a draft invoice
func (i *Invoice) UpdateItem(itemID uuid.UUID, item InvoiceItem) error {
	idx := i.itemIndex(itemID)
	if idx < 0 {
		return shared.NewNotFoundError("Invoice item")
	}
	items := append([]InvoiceItem(nil), i.Items...)
	item.ID = itemID
	items[idx] = item
	if err := i.replaceItems(items); err != nil {
		return err
	}
	i.AddDomainEvent(NewInvoiceItemsChangedEvent(i, itemID, "updated"))
	return nil
}

// RemoveItem drops a line from a draft invoice. The last line cannot be removed.
func (i *Invoice) RemoveItem(itemID uuid.UUID) error {
	idx := i.itemIndex(itemID)
	if idx < 0 {
		return shared.NewNotFoundError("Invoice item")
	}
	if err := i.itemsEditable(); err != nil {
		return err
	}
	if len(i.Items) == 1 {
		return shared.NewValidationError("LAST_ITEM", "An invoice must keep at least one item")
	}
	items := make([]InvoiceItem, 0, len(i.Items)-1)
	items = append(items, i.Items[:idx]...)
	items = append(items, i.Items[idx+1:]...)
	if err := i.replaceItems(items); err != nil {
		return err
	}
	i.AddDomainEvent(NewInvoiceItemsChangedEvent(i, itemID, "removed"))
	return nil
}

// HasItem reports whether the invoice carries the line
func (i *Invoice) HasItem(itemID uuid.UUID) bool {
	return i.itemIndex(itemID) >= 0
}

func (i *Invoice) itemIndex(itemID uuid.UUID) int {
	for idx := range i.Items {
		if i.Items[idx].ID == itemID {
			return idx
		}
	}
	return -1
}

func (i *Invoice) itemsEditable() error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewInvalidStateError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot change the items of an invoice in %s status", i.Status))
	}
	return nil
}

func (i *Invoice) replaceItems(items []InvoiceItem) error {
	if err := i.itemsEditable(); err != nil {
		return err
	}
	var sum int64
	for _, item := range items {
		sum += item.AmountCents
	}
	if sum <= 0 {
		return shared.NewValidationError("INVALID_AMOUNT", "Invoice amount must be positive")
	}
	i.Items = items
	i.AmountCents = sum
	i.BalanceCents = sum - i.AmountPaidCents
	i.Touch()
	return nil
}
