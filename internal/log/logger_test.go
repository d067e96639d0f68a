package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"finance/internal/core"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: buf, JSON: true})
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log record %q: %v", buf.String(), err)
	}
	return rec
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.InfoContext(context.Background(), "hello", FieldOwnerID, int64(7))
	rec := decode(t, &buf)
	if rec[FieldComponent] != ComponentLedger {
		t.Fatalf("expected component %q, got %v", ComponentLedger, rec[FieldComponent])
	}
	if rec[FieldOwnerID] != float64(7) {
		t.Fatalf("expected owner_id 7, got %v", rec[FieldOwnerID])
	}

	buf.Reset()
	l.WithComponent(ComponentStorage).Warn("switched")
	if rec := decode(t, &buf); rec[FieldComponent] != ComponentStorage {
		t.Fatalf("expected component %q, got %v", ComponentStorage, rec[FieldComponent])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogAggregationFailure(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))
	key := core.InvoiceKey{OwnerID: 1, CardID: 2, Period: core.BillingPeriod{Month: 3, Year: 2024}}

	sl.LogAggregationFailure(context.Background(), key, OpUpdate, fmt.Errorf("%w: boom", core.ErrAggregation))

	rec := decode(t, &buf)
	if rec["level"] != "ERROR" {
		t.Fatalf("expected ERROR level, got %v", rec["level"])
	}
	for k, want := range map[string]any{
		FieldComponent:    ComponentInvoice,
		FieldCardID:       float64(2),
		FieldInvoiceMonth: float64(3),
		FieldInvoiceYear:  float64(2024),
		FieldErrorType:    ErrorTypeAggregation,
	} {
		if rec[k] != want {
			t.Errorf("field %s = %v, want %v", k, rec[k], want)
		}
	}
}

func TestErrorType(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{core.Invalid("amount", core.ErrInvalidAmount), ErrorTypeValidation},
		{fmt.Errorf("get: %w", core.ErrNotFound), ErrorTypeNotFound},
		{fmt.Errorf("%w: x", core.ErrAggregation), ErrorTypeAggregation},
		{context.Canceled, ErrorTypeTimeout},
		{errors.New("other"), ErrorTypeInternal},
	}
	for _, tc := range cases {
		if got := ErrorType(tc.err); got != tc.want {
			t.Errorf("ErrorType(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)
	ctx := WithContext(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Fatalf("expected stored logger")
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got component %q", got.Component())
	}
}

func TestLogFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentLedger).
		WithOwner(3).
		WithExpense(9).
		WithCount(2).
		WithInvoiceKey(core.InvoiceKey{OwnerID: 3, CardID: 4, Period: core.BillingPeriod{Month: 5, Year: 2024}})

	if f[FieldExpenseID] != int64(9) || f[FieldCardID] != int64(4) || f[FieldInvoiceMonth] != 5 || f[FieldCount] != 2 {
		t.Fatalf("unexpected fields %v", f)
	}

	slice := f.ToSlice()
	if len(slice) != 2*(len(f)-1) {
		t.Fatalf("ToSlice() len = %d, want %d", len(slice), 2*(len(f)-1))
	}
	for i := 0; i < len(slice); i += 2 {
		if slice[i] == FieldComponent {
			t.Error("ToSlice() should leave out the component")
		}
	}
}
