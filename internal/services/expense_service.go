package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/ports"
)

// InsertExpense stores a new expense. A paid card charge re-aggregates its
// invoice; an aggregation failure is logged and the insert stands.
func (l *Ledger) InsertExpense(ctx context.Context, in ExpenseInput) (int64, error) {
	e, err := l.buildExpense(in)
	if err != nil {
		return 0, err
	}
	if e.Charge != nil {
		if err := l.requireCard(ctx, e.OwnerID, e.Charge.CardID); err != nil {
			return 0, err
		}
	}
	return l.insertRow(ctx, e)
}

// insertRow stores an already validated row and re-aggregates its invoice.
func (l *Ledger) insertRow(ctx context.Context, e core.Expense) (int64, error) {
	id, err := l.store.InsertExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	l.log.Logger().DebugContext(ctx, "Expense inserted",
		log.FieldOwnerID, e.OwnerID,
		log.FieldExpenseID, id,
		log.FieldAmountCents, e.Amount.Cents,
		log.FieldStatus, e.Status)

	l.cascade(ctx, log.OpInsert, nil, e.ChargeKey())
	return id, nil
}

// UpdateExpense applies upd to the owner's expense id. A missing row is a
// no-op. When the row's invoice tuple changes, both the old and the new
// invoice are re-aggregated after the row is committed.
func (l *Ledger) UpdateExpense(ctx context.Context, id, ownerID int64, upd ExpenseUpdate) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := l.check(upd); err != nil {
		return err
	}
	if upd.CardID != nil {
		if err := l.requireCard(ctx, ownerID, *upd.CardID); err != nil {
			return err
		}
	}

	var (
		found          bool
		oldKey, newKey *core.InvoiceKey
	)
	err := l.store.WithinTx(ctx, func(tx ports.Ledger) error {
		current, err := tx.GetExpense(ctx, ownerID, id)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		next, err := planUpdate(current, upd)
		if err != nil {
			return err
		}
		oldKey, newKey = current.ChargeKey(), next.ChargeKey()
		return tx.UpdateExpense(ctx, next)
	})
	if err != nil {
		return fmt.Errorf("update expense %d: %w", id, err)
	}
	if !found {
		l.log.Logger().DebugContext(ctx, "Expense not found, update skipped",
			log.NewFields().WithOwner(ownerID).WithExpense(id).ToSlice()...)
		return nil
	}

	l.cascade(ctx, log.OpUpdate, oldKey, newKey)
	return nil
}

// DeleteExpense removes the owner's expense id. Invoice rows cannot be
// deleted directly; they disappear when their charges do.
func (l *Ledger) DeleteExpense(ctx context.Context, id, ownerID int64) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}

	var key *core.InvoiceKey
	err := l.store.WithinTx(ctx, func(tx ports.Ledger) error {
		current, err := tx.GetExpense(ctx, ownerID, id)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if current.IsInvoice() {
			return core.Invalid("id", core.ErrInvoiceManaged)
		}
		key = current.ChargeKey()
		return tx.DeleteExpense(ctx, ownerID, id)
	})
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}

	l.cascade(ctx, log.OpDelete, key, nil)
	return nil
}

// ListExpenses sweeps overdue rows first so statuses are current.
func (l *Ledger) ListExpenses(ctx context.Context, ownerID int64, f core.ExpenseFilter) ([]core.Expense, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if _, err := l.SweepOverdue(ctx, ownerID); err != nil {
		l.log.LogError(ctx, "Overdue sweep before listing failed", err, log.ComponentLedger, log.OpSweep,
			log.NewFields().WithOwner(ownerID))
	}
	return l.store.ListExpenses(ctx, ownerID, f)
}

func (l *Ledger) InsertIncome(ctx context.Context, in IncomeInput) (int64, error) {
	inc, err := l.buildIncome(in)
	if err != nil {
		return 0, err
	}
	id, err := l.store.InsertIncome(ctx, inc)
	if err != nil {
		return 0, fmt.Errorf("insert income: %w", err)
	}
	return id, nil
}

// UpdateIncome applies upd to the owner's income id. A missing row is a
// no-op.
func (l *Ledger) UpdateIncome(ctx context.Context, id, ownerID int64, upd IncomeUpdate) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := l.check(upd); err != nil {
		return err
	}

	found := false
	err := l.store.WithinTx(ctx, func(tx ports.Ledger) error {
		current, err := tx.GetIncome(ctx, ownerID, id)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		next := applyIncomeUpdate(current, upd)
		if err := next.Validate(); err != nil {
			return err
		}
		return tx.UpdateIncome(ctx, next)
	})
	if err != nil {
		return fmt.Errorf("update income %d: %w", id, err)
	}
	if !found {
		l.log.Logger().DebugContext(ctx, "Income not found, update skipped",
			log.FieldOwnerID, ownerID, log.FieldIncomeID, id)
	}
	return nil
}

func applyIncomeUpdate(in core.Income, upd IncomeUpdate) core.Income {
	if upd.Amount != nil {
		in.Amount = *upd.Amount
	}
	if upd.Settled != nil {
		in.Settled = *upd.Settled
	}
	if upd.IsRecurring != nil {
		in.IsRecurring = *upd.IsRecurring
	}
	if upd.DueDate != nil {
		in.DueDate = *upd.DueDate
	}
	if upd.Category != nil {
		in.Category = strings.TrimSpace(*upd.Category)
	}
	if upd.Description != nil {
		in.Description = strings.TrimSpace(*upd.Description)
	}
	switch {
	case upd.ClearGoal:
		in.GoalID = nil
	case upd.GoalID != nil:
		g := *upd.GoalID
		in.GoalID = &g
	}
	return in
}

// DeleteIncome is a no-op for a missing row.
func (l *Ledger) DeleteIncome(ctx context.Context, id, ownerID int64) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	err := l.store.DeleteIncome(ctx, ownerID, id)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("delete income %d: %w", id, err)
	}
	return nil
}

func (l *Ledger) ListIncomes(ctx context.Context, ownerID int64, year, month int) ([]core.Income, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return l.store.ListIncomes(ctx, ownerID, year, month)
}

// SetInitialBalance replaces the owner's opening balance. Negative values
// are allowed for accounts opened overdrawn.
func (l *Ledger) SetInitialBalance(ctx context.Context, ownerID int64, amount core.Money) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := l.store.SetInitialBalance(ctx, ownerID, amount); err != nil {
		return err
	}
	l.log.Logger().InfoContext(ctx, "Initial balance set",
		log.FieldOwnerID, ownerID, log.FieldAmountCents, amount.Cents)
	return nil
}
