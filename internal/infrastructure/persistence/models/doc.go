// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel, AggregateModel and the AllModels schema list
//   - ledger.go: invoices, invoice items, payments and allocations
//   - lease.go: leases and rent installments
//   - metering.go: meter readings and pump topups
//   - audit.go: the audit log
//
// Dates are stored in date columns and normalized back to UTC midnight on load.
package models
