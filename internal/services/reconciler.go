package services

import (
	"context"
	"fmt"

	"finance/internal/core"
)

// planUpdate applies upd to current and returns the row to persist.
// It does no I/O.
func planUpdate(current core.Expense, upd ExpenseUpdate) (core.Expense, error) {
	next := current
	if current.Charge != nil {
		c := *current.Charge
		next.Charge = &c
	}

	if current.IsInvoice() && (upd.Amount != nil || upd.CardID != nil || upd.PaymentMethod != nil || upd.Period != nil) {
		return core.Expense{}, core.Invalid("invoice", core.ErrInvoiceManaged)
	}

	if upd.Amount != nil {
		next.Amount = *upd.Amount
	}
	if upd.IsRecurring != nil {
		next.IsRecurring = *upd.IsRecurring
	}
	if upd.DueDate != nil {
		next.DueDate = *upd.DueDate
	}
	if upd.Category != nil {
		next.Category = *upd.Category
	}
	if upd.Description != nil {
		next.Description = *upd.Description
	}
	if upd.Status != nil {
		status, err := core.ParseStatus(string(*upd.Status))
		if err != nil {
			return core.Expense{}, core.Invalid("status", err)
		}
		if !current.Status.CanTransition(status) {
			return core.Expense{}, core.Invalid("status",
				fmt.Errorf("%w: %s -> %s", core.ErrInvalidStatus, current.Status, status))
		}
		next.Status = status
	}

	if !current.IsInvoice() {
		if err := planCharge(&next, upd); err != nil {
			return core.Expense{}, err
		}
	}

	if err := next.Validate(); err != nil {
		return core.Expense{}, err
	}
	return next, nil
}

// planCharge settles the card linkage of a non-invoice row after the scalar
// fields of upd have been applied to next.
func planCharge(next *core.Expense, upd ExpenseUpdate) error {
	askedCard := upd.CardID != nil
	if upd.PaymentMethod != nil {
		if err := upd.PaymentMethod.Validate(); err != nil {
			return core.Invalid("payment_method", err)
		}
		switch *upd.PaymentMethod {
		case core.PaymentCash:
			if askedCard {
				return core.Invalid("payment_method", core.ErrInvalidPayment)
			}
			next.Charge = nil
		case core.PaymentCard:
			if !askedCard && next.Charge == nil {
				return core.Invalid("card_id", core.ErrCardRequired)
			}
			askedCard = true
		}
	}

	if upd.CardID != nil {
		// next.DueDate already holds the new due date when one was supplied.
		next.Charge = &core.CardCharge{CardID: *upd.CardID, Period: core.PeriodOf(next.DueDate)}
	}
	if upd.Period != nil && next.Charge != nil {
		next.Charge.Period = *upd.Period
	}

	if !next.Status.IsPaid() {
		if askedCard {
			return core.Invalid("card_id", core.ErrChargeNotSettled)
		}
		next.Charge = nil
	}
	return nil
}

// affectedKeys lists the invoice tuples to re-aggregate after a row moved
// from old to next. Either may be nil.
func affectedKeys(old, next *core.InvoiceKey) []core.InvoiceKey {
	var keys []core.InvoiceKey
	if old != nil && (next == nil || *old != *next) {
		keys = append(keys, *old)
	}
	if next != nil {
		keys = append(keys, *next)
	}
	return keys
}

// cascade re-aggregates the tuples touched by an edit. Failures are logged
// and do not undo the edit.
func (l *Ledger) cascade(ctx context.Context, op string, old, next *core.InvoiceKey) {
	for _, key := range affectedKeys(old, next) {
		if _, err := l.reconcile(ctx, key); err != nil {
			l.log.LogAggregationFailure(ctx, key, op, err)
		}
	}
}
