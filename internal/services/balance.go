package services

import (
	"context"
	"fmt"

	"finance/internal/core"
	"finance/internal/ports"
)

// GetBalance is initial balance plus settled income minus cash outflow.
// Card charges count only through their invoice, and only once it is paid.
func (l *Ledger) GetBalance(ctx context.Context, ownerID int64) (core.Money, error) {
	b, err := l.BalanceBreakdown(ctx, ownerID)
	if err != nil {
		return core.Money{}, err
	}
	return b.Balance(), nil
}

// BalanceBreakdown reads the three balance terms from one snapshot.
func (l *Ledger) BalanceBreakdown(ctx context.Context, ownerID int64) (core.BalanceBreakdown, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.BalanceBreakdown{}, err
	}

	var b core.BalanceBreakdown
	err := l.store.WithinTx(ctx, func(tx ports.Ledger) error {
		acc, err := tx.GetAccount(ctx, ownerID)
		if err != nil {
			return err
		}
		b.InitialBalance = acc.InitialBalance

		if b.SettledIncome, err = tx.SumSettledIncome(ctx, ownerID); err != nil {
			return err
		}
		b.CashOutflow, err = tx.SumCashOutflow(ctx, ownerID)
		return err
	})
	if err != nil {
		return core.BalanceBreakdown{}, fmt.Errorf("balance for owner %d: %w", ownerID, err)
	}
	return b, nil
}
