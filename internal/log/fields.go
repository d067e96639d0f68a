package log

import "finance/internal/core"

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldError        = "error"
	FieldErrorType    = "error_type"
	FieldOperation    = "operation"
	FieldOwnerID      = "owner_id"
	FieldExpenseID    = "expense_id"
	FieldIncomeID     = "income_id"
	FieldInvoiceID    = "invoice_id"
	FieldCardID       = "card_id"
	FieldInvoiceMonth = "invoice_month"
	FieldInvoiceYear  = "invoice_year"
	FieldAmountCents  = "amount_cents"
	FieldStatus       = "status"
	FieldCount        = "count"
	FieldMessageID    = "message_id"
	FieldDurationMs   = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentInvoice = "invoice"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentCache   = "cache"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpInsert      = "insert"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpInstallment = "installment"
	OpReconcile   = "reconcile"
	OpRecompute   = "recompute"
	OpSweep       = "sweep_overdue"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeAggregation   = "aggregation_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(t string) LogFields {
	f[FieldErrorType] = t
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithOwner(ownerID int64) LogFields {
	f[FieldOwnerID] = ownerID
	return f
}

func (f LogFields) WithExpense(id int64) LogFields {
	f[FieldExpenseID] = id
	return f
}

// WithInvoiceKey adds the owner, card and billing period of an invoice tuple.
func (f LogFields) WithInvoiceKey(key core.InvoiceKey) LogFields {
	f[FieldOwnerID] = key.OwnerID
	f[FieldCardID] = key.CardID
	f[FieldInvoiceMonth] = key.Period.Month
	f[FieldInvoiceYear] = key.Period.Year
	return f
}

func (f LogFields) WithAmount(m core.Money) LogFields {
	f[FieldAmountCents] = m.Cents
	return f
}

func (f LogFields) WithCount(n int) LogFields {
	f[FieldCount] = n
	return f
}

// ToSlice converts LogFields to a slice for slog. The component key is left
// out because Logger adds its own.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		if k == FieldComponent {
			continue
		}
		slice = append(slice, k, v)
	}
	return slice
}
