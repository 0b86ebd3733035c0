package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReconciler struct {
	calls atomic.Int64
	err   error
}

func (c *countingReconciler) ReconcileStatuses(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 0, c.err
}

func TestScheduler_RunsImmediatelyAndOnTicks(t *testing.T) {
	rec := &countingReconciler{}
	s := New(rec, 10*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return rec.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

func TestScheduler_StopsWithoutSweepingWhenAlreadyCancelled(t *testing.T) {
	rec := &countingReconciler{}
	s := New(rec, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	assert.Equal(t, int64(0), rec.calls.Load())
}

func TestScheduler_KeepsRunningAfterSweepErrors(t *testing.T) {
	rec := &countingReconciler{err: errors.New("store unavailable")}
	s := New(rec, 10*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool {
		return rec.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}
