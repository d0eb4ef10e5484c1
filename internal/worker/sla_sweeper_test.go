package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spec-kit/crm-service/internal/service"
)

type countingEscalator struct {
	calls atomic.Int32
}

func (c *countingEscalator) EscalateOverdue(ctx context.Context) (service.SweepReport, error) {
	if ctx.Err() != nil {
		panic("sweep received a canceled context")
	}
	c.calls.Add(1)
	return service.SweepReport{}, nil
}

func TestSLASweeperRunsUntilCanceled(t *testing.T) {
	t.Parallel()

	esc := &countingEscalator{}
	sweeper := NewSLASweeper(esc, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for esc.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("sweeps = %d after 2s, want at least 3", esc.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestNewSLASweeperDefaultsInterval(t *testing.T) {
	t.Parallel()

	if got := NewSLASweeper(&countingEscalator{}, 0, nil).interval; got != time.Minute {
		t.Errorf("interval = %v, want 1m", got)
	}
}
