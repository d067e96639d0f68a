package services

import (
	"context"
	"fmt"

	"finance/internal/core"
	"finance/internal/log"
)

// SweepOverdue moves the owner's A_VENCER expenses due before today to
// VENCIDO and returns how many changed.
func (l *Ledger) SweepOverdue(ctx context.Context, ownerID int64) (int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	return l.sweep(ctx, ownerID)
}

// SweepAllOverdue runs the sweep for every owner.
func (l *Ledger) SweepAllOverdue(ctx context.Context) (int64, error) {
	return l.sweep(ctx, 0)
}

func (l *Ledger) sweep(ctx context.Context, ownerID int64) (int64, error) {
	today := core.DateOf(l.now())
	n, err := l.store.MarkOverdue(ctx, ownerID, today)
	if err != nil {
		return 0, fmt.Errorf("sweep overdue: %w", err)
	}
	if n > 0 {
		l.log.Logger().InfoContext(ctx, "Expenses marked overdue",
			log.FieldOwnerID, ownerID,
			log.FieldCount, n,
			"today", today.String())
	}
	return n, nil
}
