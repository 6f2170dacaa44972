package audit

import (
	"context"
	"fmt"

	"github.com/propledger/backend/internal/domain/audit"
	"github.com/propledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditTrailHandler appends every published domain event to the audit log
type AuditTrailHandler struct {
	repo   audit.Repository
	logger *zap.Logger
}

// NewAuditTrailHandler creates a new AuditTrailHandler
func NewAuditTrailHandler(repo audit.Repository, logger *zap.Logger) *AuditTrailHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditTrailHandler{repo: repo, logger: logger}
}

// EventTypes returns an empty slice: the handler receives all events
func (h *AuditTrailHandler) EventTypes() []string {
	return []string{}
}

// Handle stores the event. Entries are keyed by event ID, so a redelivery is a no-op.
func (h *AuditTrailHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	entry, err := audit.NewEntry(event)
	if err != nil {
		return err
	}
	if err := h.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry for %s: %w", event.EventType(), err)
	}
	h.logger.Debug("audit entry appended",
		zap.String("event_type", entry.EventType),
		zap.String("aggregate_type", entry.AggregateType),
		zap.String("aggregate_id", entry.AggregateID.String()),
	)
	return nil
}

var _ shared.EventHandler = (*AuditTrailHandler)(nil)
