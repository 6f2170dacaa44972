package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/audit"
	"gorm.io/datatypes"
)

// AuditLogModel is the persistence model for an audit entry. The event ID is unique
// so replayed deliveries collapse into one row.
type AuditLogModel struct {
	BaseModel
	EventID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string         `gorm:"type:varchar(100);not null;index"`
	AggregateType string         `gorm:"type:varchar(50);not null;index:idx_audit_logs_aggregate,priority:1"`
	AggregateID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_audit_logs_aggregate,priority:2"`
	TenantID      *uuid.UUID     `gorm:"type:uuid;index"`
	Payload       datatypes.JSON `gorm:"not null"`
	OccurredAt    time.Time      `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain audit Entry
func (m *AuditLogModel) ToDomain() *audit.Entry {
	return &audit.Entry{
		BaseEntity:    m.BaseModel.ToDomain(),
		EventID:       m.EventID,
		EventType:     m.EventType,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		TenantID:      m.TenantID,
		Payload:       json.RawMessage(m.Payload),
		OccurredAt:    m.OccurredAt,
	}
}

// AuditLogModelFromDomain creates a new persistence model from a domain audit Entry
func AuditLogModelFromDomain(e *audit.Entry) *AuditLogModel {
	m := &AuditLogModel{
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		TenantID:      e.TenantID,
		Payload:       datatypes.JSON(e.Payload),
		OccurredAt:    e.OccurredAt,
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}
