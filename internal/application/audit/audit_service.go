package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/audit"
	"github.com/propledger/backend/internal/domain/shared"
)

// AuditListFilter represents the query parameters of the audit log
type AuditListFilter struct {
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderDir      string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	AggregateType string `form:"aggregate_type" binding:"max=50"`
	AggregateID   string `form:"aggregate_id" binding:"omitempty,uuid"`
	EventType     string `form:"event_type" binding:"max=100"`
}

// AuditEntryResponse represents an audit entry in API responses
type AuditEntryResponse struct {
	ID            uuid.UUID       `json:"id"`
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	TenantID      *uuid.UUID      `json:"tenant_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// AuditService reads the audit trail
type AuditService struct {
	repo audit.Repository
}

// NewAuditService creates a new AuditService
func NewAuditService(repo audit.Repository) *AuditService {
	return &AuditService{repo: repo}
}

// GetEntry returns one audit entry
func (s *AuditService) GetEntry(ctx context.Context, id uuid.UUID) (*AuditEntryResponse, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toAuditEntryResponse(e)
	return &resp, nil
}

// ListEntries returns a page of audit entries, newest first by default
func (s *AuditService) ListEntries(ctx context.Context, f AuditListFilter) (*shared.Paginated[AuditEntryResponse], error) {
	aggregateID, err := shared.ParseOptionalID("aggregate_id", f.AggregateID)
	if err != nil {
		return nil, err
	}
	filter := audit.Filter{
		Filter:        shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "occurred_at", OrderDir: f.OrderDir},
		AggregateType: f.AggregateType,
		AggregateID:   aggregateID,
		EventType:     f.EventType,
	}
	filter.Filter.Normalize()

	entries, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	items := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toAuditEntryResponse(e))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func toAuditEntryResponse(e *audit.Entry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		TenantID:      e.TenantID,
		Payload:       e.Payload,
		OccurredAt:    e.OccurredAt,
	}
}
