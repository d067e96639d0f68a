package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/services"
)

type fakeMaintainer struct {
	recomputeErr error
	sweepErr     error
	recomputed   []int64
	swept        []int64
	sweepAll     atomic.Int32
}

func (f *fakeMaintainer) RecomputeAllInvoices(_ context.Context, ownerID int64) (services.RecomputeReport, error) {
	f.recomputed = append(f.recomputed, ownerID)
	return services.RecomputeReport{Tuples: 1, Upserted: 1}, f.recomputeErr
}

func (f *fakeMaintainer) SweepOverdue(_ context.Context, ownerID int64) (int64, error) {
	f.swept = append(f.swept, ownerID)
	return 2, f.sweepErr
}

func (f *fakeMaintainer) SweepAllOverdue(context.Context) (int64, error) {
	f.sweepAll.Add(1)
	return 0, f.sweepErr
}

func newWorker(m Maintainer) *MaintenanceWorker {
	return NewMaintenanceWorker(m, log.New(log.Config{Output: io.Discard}))
}

func TestHandleMessage_Dispatch(t *testing.T) {
	ctx := context.Background()
	m := &fakeMaintainer{}
	w := newWorker(m)

	if err := w.HandleMessage(ctx, amqp.NewMaintenanceMessage(amqp.OpRecomputeInvoices, 7)); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if err := w.HandleMessage(ctx, amqp.NewMaintenanceMessage(amqp.OpSweepOverdue, 7)); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if err := w.HandleMessage(ctx, amqp.NewMaintenanceMessage(amqp.OpSweepOverdue, 0)); err != nil {
		t.Fatalf("sweep all: %v", err)
	}

	if len(m.recomputed) != 1 || m.recomputed[0] != 7 {
		t.Errorf("recomputed = %v, want [7]", m.recomputed)
	}
	if len(m.swept) != 1 || m.swept[0] != 7 {
		t.Errorf("swept = %v, want [7]", m.swept)
	}
	if m.sweepAll.Load() != 1 {
		t.Errorf("sweepAll calls = %d, want 1", m.sweepAll.Load())
	}
}

func TestHandleMessage_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantPermanent bool
	}{
		{"aggregation failure", fmt.Errorf("%w: tuple", core.ErrAggregation), true},
		{"validation failure", core.Invalid("owner_id", core.ErrInvalidOwner), true},
		{"storage failure", errors.New("database is locked"), false},
		{"cancelled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorker(&fakeMaintainer{recomputeErr: tt.err})
			err := w.HandleMessage(context.Background(), amqp.NewMaintenanceMessage(amqp.OpRecomputeInvoices, 1))
			if !errors.Is(err, tt.err) {
				t.Fatalf("HandleMessage() error = %v, want %v", err, tt.err)
			}
			if permanent := amqp.IsPermanent(err); permanent != tt.wantPermanent {
				t.Errorf("permanent = %v, want %v", permanent, tt.wantPermanent)
			}
		})
	}
}

func TestHandleMessage_UnknownOperation(t *testing.T) {
	w := newWorker(&fakeMaintainer{})
	msg := amqp.NewMaintenanceMessage("vacuum", 1)
	if err := w.HandleMessage(context.Background(), msg); err == nil {
		t.Error("HandleMessage() should reject unknown operations")
	}
}

func TestRunSweeps(t *testing.T) {
	m := &fakeMaintainer{sweepErr: errors.New("busy")}
	w := newWorker(m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.RunSweeps(ctx, 5*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for m.sweepAll.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d sweeps ran", m.sweepAll.Load())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunSweeps() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunSweeps did not stop")
	}
}
