package lease

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
)

// InstallmentStatus mirrors the state of the backing rent invoice
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "pending"
	InstallmentStatusPartial InstallmentStatus = "partial"
	InstallmentStatusPaid    InstallmentStatus = "paid"
	InstallmentStatusOverdue InstallmentStatus = "overdue"
)

// Installment is one scheduled rent amount of a lease, backed by one rent invoice
type Installment struct {
	shared.BaseEntity
	LeaseID      uuid.UUID
	InvoiceID    uuid.UUID
	Sequence     int
	DueDate      time.Time
	AmountCents  int64
	BalanceCents int64
	Status       InstallmentStatus
	PaidAt       *time.Time
}

// BuildInstallments lays out the rent schedule of a lease.
// A term lease has a single installment for the whole plan due on the start date;
// a monthly lease has one installment per plan month.
func BuildInstallments(l *Lease) []*Installment {
	if l.BillingMode == BillingModeTerm {
		return []*Installment{newInstallment(l.ID, 1, l.StartDate, l.TermAmountCents())}
	}
	out := make([]*Installment, 0, l.PlanMonths)
	for i := 0; i < l.PlanMonths; i++ {
		out = append(out, newInstallment(l.ID, i+1, shared.AddMonths(l.StartDate, i), l.RentCents))
	}
	return out
}

func newInstallment(leaseID uuid.UUID, seq int, due time.Time, amount int64) *Installment {
	return &Installment{
		BaseEntity:   shared.NewBaseEntity(),
		LeaseID:      leaseID,
		Sequence:     seq,
		DueDate:      due,
		AmountCents:  amount,
		BalanceCents: amount,
		Status:       InstallmentStatusPending,
	}
}

// BillingPeriod is the YYYY-MM month the installment falls due in
func (i *Installment) BillingPeriod() string {
	return i.DueDate.Format("2006-01")
}

// Description is the line text of the backing rent invoice
func (i *Installment) Description(l *Lease) string {
	if l.BillingMode == BillingModeTerm {
		return fmt.Sprintf("Rent %s to %s (%d months)",
			shared.FormatDate(l.StartDate), shared.FormatDate(l.EndDate), l.PlanMonths)
	}
	return fmt.Sprintf("Rent %s (installment %d of %d)", i.BillingPeriod(), i.Sequence, l.PlanMonths)
}

// IsPaid returns true once the installment has no balance left
func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

// StatusAsOf is the status the installment has on today. An unpaid installment
// past its due date is overdue even before its balance is synced again.
func (i *Installment) StatusAsOf(today time.Time) InstallmentStatus {
	if i.IsPaid() || !shared.Date(today).After(i.DueDate) {
		return i.Status
	}
	return InstallmentStatusOverdue
}

// SyncBalance copies the backing invoice balance onto the installment and
// re-derives its status. It returns true when the installment became paid.
func (i *Installment) SyncBalance(balanceCents int64, today, at time.Time) (bool, error) {
	if balanceCents < 0 || balanceCents > i.AmountCents {
		return false, shared.NewValidationError("INVALID_BALANCE",
			fmt.Sprintf("Installment %d balance %d outside 0..%d", i.Sequence, balanceCents, i.AmountCents))
	}
	wasPaid := i.IsPaid()
	i.BalanceCents = balanceCents

	switch {
	case balanceCents == 0:
		i.Status = InstallmentStatusPaid
		if i.PaidAt == nil {
			paidAt := at
			i.PaidAt = &paidAt
		}
	case shared.Date(today).After(i.DueDate):
		i.Status = InstallmentStatusOverdue
	case balanceCents < i.AmountCents:
		i.Status = InstallmentStatusPartial
	default:
		i.Status = InstallmentStatusPending
	}
	i.Touch()
	return !wasPaid && i.IsPaid(), nil
}
