package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/services"
)

// Maintainer is the slice of the ledger the worker drives.
type Maintainer interface {
	RecomputeAllInvoices(ctx context.Context, ownerID int64) (services.RecomputeReport, error)
	SweepOverdue(ctx context.Context, ownerID int64) (int64, error)
	SweepAllOverdue(ctx context.Context) (int64, error)
}

var _ Maintainer = (*services.Ledger)(nil)

// MaintenanceWorker runs queued maintenance jobs and the periodic overdue
// sweep.
type MaintenanceWorker struct {
	ledger Maintainer
	logger *log.Logger
}

func NewMaintenanceWorker(ledger Maintainer, logger *log.Logger) *MaintenanceWorker {
	return &MaintenanceWorker{
		ledger: ledger,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage is an amqp.Handler. Invalid requests and invoice aggregation
// failures are not retried: the recompute report is already logged and a
// redelivery would fail the same way.
func (w *MaintenanceWorker) HandleMessage(ctx context.Context, msg *amqp.MaintenanceMessage) error {
	w.logger.InfoContext(ctx, "Processing maintenance message",
		log.FieldMessageID, msg.ID,
		log.FieldOperation, msg.Operation,
		log.FieldOwnerID, msg.OwnerID)

	var err error
	switch msg.Operation {
	case amqp.OpRecomputeInvoices:
		var report services.RecomputeReport
		report, err = w.ledger.RecomputeAllInvoices(ctx, msg.OwnerID)
		if err == nil {
			w.logger.InfoContext(ctx, "Recompute finished",
				log.FieldOwnerID, msg.OwnerID,
				"tuples", report.Tuples,
				"upserted", report.Upserted,
				"cleared", report.Cleared)
		}
	case amqp.OpSweepOverdue:
		if msg.OwnerID == 0 {
			_, err = w.ledger.SweepAllOverdue(ctx)
		} else {
			_, err = w.ledger.SweepOverdue(ctx, msg.OwnerID)
		}
	default:
		return amqp.Permanent(fmt.Errorf("unknown operation %q", msg.Operation))
	}

	if err != nil {
		if errors.Is(err, core.ErrValidation) || errors.Is(err, core.ErrAggregation) {
			return amqp.Permanent(err)
		}
		return err
	}
	return nil
}

// RunSweeps sweeps every owner's overdue expenses once at start and then on
// each tick, until ctx is done. Sweep failures are logged.
func (w *MaintenanceWorker) RunSweeps(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w.sweepOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *MaintenanceWorker) sweepOnce(ctx context.Context) {
	start := time.Now()
	n, err := w.ledger.SweepAllOverdue(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Periodic overdue sweep failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorType(err))
		return
	}
	w.logger.DebugContext(ctx, "Periodic overdue sweep complete",
		log.FieldCount, n,
		log.FieldDurationMs, time.Since(start).Milliseconds())
}
