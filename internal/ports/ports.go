// Package ports declares the persistence contracts the ledger engine consumes.
package ports

import (
	"context"

	"finance/internal/core"
)

// Ledger is row-level access to one owner's expenses, incomes and account.
// Every method is owner-scoped. Lookups of a single missing row return
// core.ErrNotFound.
type Ledger interface {
	GetExpense(ctx context.Context, ownerID, id int64) (core.Expense, error)
	InsertExpense(ctx context.Context, e core.Expense) (int64, error)
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, ownerID, id int64) error
	ListExpenses(ctx context.Context, ownerID int64, f core.ExpenseFilter) ([]core.Expense, error)

	// SumCharges totals the paid, non-invoice charges of an invoice tuple.
	SumCharges(ctx context.Context, key core.InvoiceKey) (core.Money, error)
	// FindInvoice returns the invoice row of a tuple or core.ErrNotFound.
	FindInvoice(ctx context.Context, key core.InvoiceKey) (core.Expense, error)
	UpdateInvoice(ctx context.Context, id int64, amount core.Money, due core.Date, description string) error
	// InvoiceKeys lists every tuple that has a charge or an invoice row.
	InvoiceKeys(ctx context.Context, ownerID int64) ([]core.InvoiceKey, error)

	// MarkOverdue moves A_VENCER rows due before today to VENCIDO.
	// ownerID 0 sweeps every owner.
	MarkOverdue(ctx context.Context, ownerID int64, today core.Date) (int64, error)

	GetIncome(ctx context.Context, ownerID, id int64) (core.Income, error)
	InsertIncome(ctx context.Context, in core.Income) (int64, error)
	UpdateIncome(ctx context.Context, in core.Income) error
	DeleteIncome(ctx context.Context, ownerID, id int64) error
	ListIncomes(ctx context.Context, ownerID int64, year, month int) ([]core.Income, error)

	GetAccount(ctx context.Context, ownerID int64) (core.Account, error)
	SetInitialBalance(ctx context.Context, ownerID int64, amount core.Money) error
	SumSettledIncome(ctx context.Context, ownerID int64) (core.Money, error)
	SumCashOutflow(ctx context.Context, ownerID int64) (core.Money, error)
}

// Store is a Ledger that can run a unit of work in one transaction.
// fn receives a Ledger bound to the transaction; returning an error rolls
// it back.
type Store interface {
	Ledger
	WithinTx(ctx context.Context, fn func(Ledger) error) error
}

// CardRegistry resolves cards by owner. Inactive cards are still returned.
type CardRegistry interface {
	GetCard(ctx context.Context, ownerID, cardID int64) (core.Card, error)
}
