package logger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgreSQL error codes raised when row locks or snapshots collide
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// sqlOutcome is how one finished statement is reported
type sqlOutcome int

const (
	outcomeOK sqlOutcome = iota
	outcomeSkipped
	outcomeExpected
	outcomeContention
	outcomeFailed
)

// classifySQLError sorts statement errors. Missing rows and duplicate keys
// are normal ledger traffic; lock collisions are retried by the caller.
func classifySQLError(err error) sqlOutcome {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, gorm.ErrRecordNotFound):
		return outcomeSkipped
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return outcomeExpected
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
			return outcomeContention
		}
	}
	return outcomeFailed
}

// GormLogger routes GORM statements to zap with the request's correlation fields
type GormLogger struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow.
// Zero disables slow statement logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// NewGormLogger creates a GORM logger backed by zap
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		logLevel:      level,
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	copied := *l
	copied.logLevel = level
	return &copied
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, threshold gormlogger.LogLevel, level zapcore.Level, msg string, data []any) {
	if l.logLevel < threshold {
		return
	}
	l.logger.With(correlationFields(ctx)...).Sugar().Logf(level, msg, data...)
}

// Trace implements gormlogger.Interface and reports each executed statement
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	outcome := classifySQLError(err)
	if outcome == outcomeSkipped {
		return
	}

	sql, rows := fc()
	fields := append(correlationFields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)

	switch {
	case outcome == outcomeFailed && l.logLevel >= gormlogger.Error:
		l.logger.Error("SQL error", append(fields, zap.Error(err))...)
	case outcome == outcomeContention && l.logLevel >= gormlogger.Warn:
		l.logger.Warn("SQL lock conflict", append(fields, zap.Error(err))...)
	case outcome == outcomeExpected:
		l.logger.Debug("SQL duplicate key", fields...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.logLevel >= gormlogger.Warn:
		l.logger.Warn("SQL slow query", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	case l.logLevel >= gormlogger.Info:
		l.logger.Debug("SQL query", fields...)
	}
}

// correlationFields ties a statement to the request and property that issued it
func correlationFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if v := GetRequestID(ctx); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v := GetPropertyID(ctx); v != "" {
		fields = append(fields, zap.String("property_id", v))
	}
	return fields
}

// MapGormLogLevel maps the application log level to a GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
