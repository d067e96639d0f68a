package services

import (
	"context"
	"fmt"

	"finance/internal/core"
	"finance/internal/log"
)

// InsertInstallmentExpense splits a purchase into count monthly rows, the
// first due on in.DueDate. Every row is validated before the first insert.
// Each row is then inserted, and its invoice re-aggregated, before the next.
// On an insert failure the ids already inserted are returned with the error
// and are not rolled back.
func (l *Ledger) InsertInstallmentExpense(ctx context.Context, in ExpenseInput, count int) ([]int64, error) {
	if count < 1 || count > MaxInstallments {
		return nil, core.Invalid("count", fmt.Errorf("%w: %d not in 1..%d", core.ErrInvalidInstallment, count, MaxInstallments))
	}

	rows := make([]core.Expense, 0, count)
	for i, item := range installments(in, count) {
		e, err := l.buildExpense(item)
		if err != nil {
			return nil, fmt.Errorf("installment %d/%d: %w", i+1, count, err)
		}
		rows = append(rows, e)
	}
	if in.CardID != nil && rows[0].Charge != nil {
		if err := l.requireCard(ctx, in.OwnerID, *in.CardID); err != nil {
			return nil, err
		}
	}

	ids := make([]int64, 0, count)
	for i, e := range rows {
		id, err := l.insertRow(ctx, e)
		if err != nil {
			l.log.LogError(ctx, "Installment insert failed", err, log.ComponentLedger, log.OpInstallment,
				log.NewFields().WithOwner(in.OwnerID).WithCount(len(ids)))
			return ids, fmt.Errorf("installment %d/%d: %w", i+1, count, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// installments expands in into count inputs. Due dates step by calendar
// month from the start date, clamped to month end. A pinned billing period
// steps along with them; otherwise each row bills in its own due month.
func installments(in ExpenseInput, count int) []ExpenseInput {
	out := make([]ExpenseInput, count)
	for i := range count {
		item := in
		item.DueDate = in.DueDate.AddMonths(i)
		if count > 1 {
			item.Description = fmt.Sprintf("%s - Parcela %d/%d", in.Description, i+1, count)
		}
		if in.Period != nil {
			p := in.Period.AddMonths(i)
			item.Period = &p
		}
		out[i] = item
	}
	return out
}
