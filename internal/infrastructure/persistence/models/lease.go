package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/lease"
	"github.com/propledger/backend/internal/domain/shared"
)

// LeaseModel is the persistence model for the Lease aggregate root.
type LeaseModel struct {
	AggregateModel
	PropertyID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	UnitID               uuid.UUID  `gorm:"type:uuid;not null;index"`
	TenantID             uuid.UUID  `gorm:"type:uuid;not null;index"`
	StartDate            time.Time  `gorm:"type:date;not null"`
	EndDate              time.Time  `gorm:"type:date;not null"`
	PlanMonths           int        `gorm:"not null"`
	BillingMode          string     `gorm:"type:varchar(10);not null"`
	Status               string     `gorm:"type:varchar(20);not null;index"`
	RentCents            int64      `gorm:"not null"`
	SecurityDepositCents int64      `gorm:"not null;default:0"`
	PaidThroughDate      *time.Time `gorm:"type:date"`
	TerminatedOn         *time.Time `gorm:"type:date"`
	Notes                string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (LeaseModel) TableName() string {
	return "leases"
}

// ToDomain converts the persistence model to a domain Lease
func (m *LeaseModel) ToDomain() *lease.Lease {
	return &lease.Lease{
		BaseAggregateRoot:    m.ToDomainAggregateRoot(),
		PropertyID:           m.PropertyID,
		UnitID:               m.UnitID,
		TenantID:             m.TenantID,
		StartDate:            shared.Date(m.StartDate),
		EndDate:              shared.Date(m.EndDate),
		PlanMonths:           m.PlanMonths,
		BillingMode:          lease.BillingMode(m.BillingMode),
		Status:               lease.LeaseStatus(m.Status),
		RentCents:            m.RentCents,
		SecurityDepositCents: m.SecurityDepositCents,
		PaidThroughDate:      datePtr(m.PaidThroughDate),
		TerminatedOn:         datePtr(m.TerminatedOn),
		Notes:                m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Lease
func (m *LeaseModel) FromDomain(l *lease.Lease) {
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	m.PropertyID = l.PropertyID
	m.UnitID = l.UnitID
	m.TenantID = l.TenantID
	m.StartDate = l.StartDate
	m.EndDate = l.EndDate
	m.PlanMonths = l.PlanMonths
	m.BillingMode = string(l.BillingMode)
	m.Status = string(l.Status)
	m.RentCents = l.RentCents
	m.SecurityDepositCents = l.SecurityDepositCents
	m.PaidThroughDate = l.PaidThroughDate
	m.TerminatedOn = l.TerminatedOn
	m.Notes = l.Notes
}

// LeaseModelFromDomain creates a new persistence model from a domain Lease
func LeaseModelFromDomain(l *lease.Lease) *LeaseModel {
	m := &LeaseModel{}
	m.FromDomain(l)
	return m
}

// InstallmentModel is the persistence model for a rent installment
type InstallmentModel struct {
	BaseModel
	LeaseID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_installments_lease_seq,priority:1"`
	InvoiceID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Sequence     int       `gorm:"not null;uniqueIndex:idx_installments_lease_seq,priority:2"`
	DueDate      time.Time `gorm:"type:date;not null"`
	AmountCents  int64     `gorm:"not null"`
	BalanceCents int64     `gorm:"not null"`
	Status       string    `gorm:"type:varchar(20);not null"`
	PaidAt       *time.Time
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "lease_installments"
}

// ToDomain converts the persistence model to a domain Installment
func (m *InstallmentModel) ToDomain() *lease.Installment {
	return &lease.Installment{
		BaseEntity:   m.BaseModel.ToDomain(),
		LeaseID:      m.LeaseID,
		InvoiceID:    m.InvoiceID,
		Sequence:     m.Sequence,
		DueDate:      shared.Date(m.DueDate),
		AmountCents:  m.AmountCents,
		BalanceCents: m.BalanceCents,
		Status:       lease.InstallmentStatus(m.Status),
		PaidAt:       m.PaidAt,
	}
}

// InstallmentModelFromDomain creates a new persistence model from a domain Installment
func InstallmentModelFromDomain(i *lease.Installment) *InstallmentModel {
	m := &InstallmentModel{
		LeaseID:      i.LeaseID,
		InvoiceID:    i.InvoiceID,
		Sequence:     i.Sequence,
		DueDate:      i.DueDate,
		AmountCents:  i.AmountCents,
		BalanceCents: i.BalanceCents,
		Status:       string(i.Status),
		PaidAt:       i.PaidAt,
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	return m
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := shared.Date(*t)
	return &d
}
