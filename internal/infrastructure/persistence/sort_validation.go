package persistence

import (
	"strings"

	"github.com/propledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"issued_on":      true,
	"due_on":         true,
	"amount_cents":   true,
	"balance_cents":  true,
	"status":         true,
	"type":           true,
	"billing_period": true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"paid_at":           true,
	"amount_cents":      true,
	"unallocated_cents": true,
	"reference":         true,
	"method":            true,
}

// LeaseSortFields contains allowed sort fields for leases
var LeaseSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"start_date":        true,
	"end_date":          true,
	"paid_through_date": true,
	"rent_cents":        true,
	"status":            true,
}

// MeterReadingSortFields contains allowed sort fields for meter readings
var MeterReadingSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"reading_on":    true,
	"reading_value": true,
	"meter_type":    true,
}

// PumpTopupSortFields contains allowed sort fields for pump topups
var PumpTopupSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"topup_on":      true,
	"amount_cents":  true,
	"volume_liters": true,
}

// AllocationSortFields contains allowed sort fields for payment allocations
var AllocationSortFields = map[string]bool{
	"id":           true,
	"allocated_at": true,
	"amount_cents": true,
}

// InstallmentSortFields contains allowed sort fields for rent installments
var InstallmentSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"due_date":      true,
	"sequence":      true,
	"amount_cents":  true,
	"balance_cents": true,
}

// AuditLogSortFields contains allowed sort fields for the audit log
var AuditLogSortFields = map[string]bool{
	"created_at":  true,
	"occurred_at": true,
	"event_type":  true,
}

// applyPaging orders by a whitelisted column and pages the query.
// A secondary order on id keeps pages stable when the primary column ties.
func applyPaging(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	return applyPagingOn(query, "", filter, allowed, defaultField)
}

// applyPagingOn is applyPaging with the order columns qualified by table, for joined queries
func applyPagingOn(query *gorm.DB, table string, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	filter.Normalize()
	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	dir := ValidateSortOrder(filter.OrderDir)
	prefix := ""
	if table != "" {
		prefix = table + "."
	}
	query = query.Order(prefix + field + " " + dir)
	if field != "id" && allowed["id"] {
		query = query.Order(prefix + "id " + dir)
	}
	return query.Offset(filter.Offset()).Limit(filter.PageSize)
}
