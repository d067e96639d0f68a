package services

import (
	"context"
	"errors"
	"fmt"

	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/ports"
)

// RecomputeReport summarizes a bulk invoice recompute.
type RecomputeReport struct {
	Tuples   int // distinct (card, period) tuples visited
	Upserted int // tuples left with an invoice row
	Cleared  int // tuples left without one
	Failed   int
}

// ReconcileInvoice recomputes the invoice of one (owner, card, period) tuple
// from its paid charges. It returns the invoice id, or nil when the tuple
// has nothing to bill and no invoice row remains.
func (l *Ledger) ReconcileInvoice(ctx context.Context, ownerID, cardID int64, period core.BillingPeriod) (*int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if cardID <= 0 {
		return nil, core.Invalid("card_id", core.ErrCardRequired)
	}
	if err := period.Validate(); err != nil {
		return nil, core.Invalid("invoice_period", err)
	}
	return l.reconcile(ctx, core.InvoiceKey{OwnerID: ownerID, CardID: cardID, Period: period})
}

func (l *Ledger) reconcile(ctx context.Context, key core.InvoiceKey) (*int64, error) {
	// Resolved before the transaction: the store may hold a single connection.
	card, err := l.cards.GetCard(ctx, key.OwnerID, key.CardID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: lookup card: %w", core.ErrAggregation, key, err)
	}

	var (
		invoiceID *int64
		total     core.Money
	)
	err = l.store.WithinTx(ctx, func(tx ports.Ledger) error {
		var err error
		total, err = tx.SumCharges(ctx, key)
		if err != nil {
			return err
		}

		existing, err := tx.FindInvoice(ctx, key)
		found := err == nil
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return err
		}

		if total.IsZero() {
			if found {
				return tx.DeleteExpense(ctx, key.OwnerID, existing.ID)
			}
			return nil
		}

		due, err := key.Period.InvoiceDueDate(card.DueDay)
		if err != nil {
			return fmt.Errorf("invoice due date: %w", err)
		}
		description := core.InvoiceDescription(card.Name, key.Period)

		if found {
			if err := tx.UpdateInvoice(ctx, existing.ID, total, due, description); err != nil {
				return err
			}
			invoiceID = &existing.ID
			return nil
		}

		id, err := tx.InsertExpense(ctx, core.Expense{
			OwnerID:     key.OwnerID,
			Amount:      total,
			Status:      core.StatusDue,
			DueDate:     due,
			Category:    core.InvoiceCategory(card.Name),
			Description: description,
			Invoice:     &core.InvoiceRef{CardID: key.CardID, Period: key.Period},
		})
		if err != nil {
			return err
		}
		invoiceID = &id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrAggregation, key, err)
	}

	l.log.LogInvoiceReconciled(ctx, key, invoiceID, total)
	return invoiceID, nil
}

// RecomputeAllInvoices reconciles every tuple of ownerID that has a charge or
// an invoice row, so orphaned invoices are removed too. It keeps going past
// individual failures and returns them joined.
func (l *Ledger) RecomputeAllInvoices(ctx context.Context, ownerID int64) (RecomputeReport, error) {
	var report RecomputeReport
	if err := requireOwner(ownerID); err != nil {
		return report, err
	}

	keys, err := l.store.InvoiceKeys(ctx, ownerID)
	if err != nil {
		return report, fmt.Errorf("collect invoice tuples: %w", err)
	}
	report.Tuples = len(keys)

	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		id, err := l.reconcile(ctx, key)
		switch {
		case err != nil:
			report.Failed++
			errs = append(errs, err)
			l.log.LogAggregationFailure(ctx, key, log.OpRecompute, err)
		case id == nil:
			report.Cleared++
		default:
			report.Upserted++
		}
	}

	l.log.Logger().InfoContext(ctx, "Invoice recompute complete",
		log.FieldOwnerID, ownerID,
		"tuples", report.Tuples,
		"upserted", report.Upserted,
		"cleared", report.Cleared,
		"failed", report.Failed)

	return report, errors.Join(errs...)
}
