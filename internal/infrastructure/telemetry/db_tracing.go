package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures query spans
type DBTracingConfig struct {
	Enabled         bool
	SlowQueryThresh time.Duration
	DBSystem        string
	// WithVariables puts bound query values into span statements; keep it off
	// outside development since invoice notes and references end up there.
	WithVariables bool
}

// DefaultDBTracingConfig returns tracing off with a 200ms slow query threshold
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// RegisterDBTracing installs otelgorm on db and annotates each query span
// with row counts, the table name and a slow query event.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh == 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.WithVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	err := registerAroundCallbacks(db, "otel_slow_query", markQueryStart(traceStartKey), func(tx *gorm.DB, _ string) {
		annotateQuerySpan(tx, cfg.SlowQueryThresh)
	})
	if err != nil {
		return err
	}

	logger.Info("database tracing enabled",
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
		zap.Bool("with_variables", cfg.WithVariables),
	)
	return nil
}

func annotateQuerySpan(tx *gorm.DB, threshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.RecordError(tx.Error)
		span.SetStatus(codes.Error, tx.Error.Error())
	}
	if elapsed, ok := queryElapsed(ctx, traceStartKey); ok && elapsed > threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", threshold.Milliseconds()),
		))
	}
}

type queryStartKey string

const (
	traceStartKey   queryStartKey = "otel_query_start"
	metricsStartKey queryStartKey = "db_metrics_query_start"
)

func markQueryStart(key queryStartKey) func(*gorm.DB, string) {
	return func(tx *gorm.DB, _ string) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tx.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
}

func queryElapsed(ctx context.Context, key queryStartKey) (time.Duration, bool) {
	start, ok := ctx.Value(key).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

// registerAroundCallbacks hooks before and after around every gorm operation.
// The operation name passed to the hooks is the SQL verb.
func registerAroundCallbacks(db *gorm.DB, prefix string, before, after func(*gorm.DB, string)) error {
	cb := db.Callback()
	ops := []struct {
		name   string
		verb   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", "INSERT", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", "SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", "UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", "", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", "", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, op := range ops {
		verb := op.verb
		if err := op.before(prefix+":before_"+op.name, func(tx *gorm.DB) { before(tx, verbOf(tx, verb)) }); err != nil {
			return err
		}
		if err := op.after(prefix+":after_"+op.name, func(tx *gorm.DB) { after(tx, verbOf(tx, verb)) }); err != nil {
			return err
		}
	}
	return nil
}

func verbOf(tx *gorm.DB, fixed string) string {
	if fixed != "" {
		return fixed
	}
	sql := strings.TrimSpace(strings.ToUpper(tx.Statement.SQL.String()))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, verb) {
			return verb
		}
	}
	return "OTHER"
}
