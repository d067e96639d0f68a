package log

import (
	"context"
	"errors"

	"finance/internal/core"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// WithContext stores logger in ctx for code that has no logger injected.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from ctx, falling back to the slog default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return Default("unknown")
}

// StructuredLogger emits the ledger's recurring log events with a fixed
// field layout.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// Logger returns the underlying component logger.
func (sl *StructuredLogger) Logger() *Logger {
	return sl.logger
}

// LogInvoiceReconciled records the outcome of one aggregation. A nil
// invoiceID means the invoice was removed or never existed.
func (sl *StructuredLogger) LogInvoiceReconciled(ctx context.Context, key core.InvoiceKey, invoiceID *int64, total core.Money) {
	fields := NewFields().
		WithInvoiceKey(key).
		WithAmount(total).
		WithOperation(OpReconcile)
	msg := "Invoice removed"
	if invoiceID != nil {
		fields[FieldInvoiceID] = *invoiceID
		msg = "Invoice reconciled"
	}
	sl.logger.WithComponent(ComponentInvoice).InfoContext(ctx, msg, fields.ToSlice()...)
}

// LogAggregationFailure records a recompute that failed inside a cascade.
// The edit that triggered it is kept.
func (sl *StructuredLogger) LogAggregationFailure(ctx context.Context, key core.InvoiceKey, op string, err error) {
	fields := NewFields().
		WithInvoiceKey(key).
		WithOperation(op).
		WithErrorType(ErrorTypeAggregation).
		WithError(err)
	sl.logger.WithComponent(ComponentInvoice).ErrorContext(ctx, "Invoice aggregation failed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithErrorType(ErrorType(err)).
		WithOperation(operation)

	sl.logger.WithComponent(component).ErrorContext(ctx, msg, allFields.ToSlice()...)
}

// ErrorType classifies err against the ledger's error kinds.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrAggregation):
		return ErrorTypeAggregation
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorTypeTimeout
	default:
		return ErrorTypeInternal
	}
}
