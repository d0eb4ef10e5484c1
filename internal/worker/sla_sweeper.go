package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/service"
)

// Escalator runs one SLA sweep.
type Escalator interface {
	EscalateOverdue(ctx context.Context) (service.SweepReport, error)
}

// SLASweeper escalates overdue tickets on a fixed interval.
type SLASweeper struct {
	escalator Escalator
	interval  time.Duration
	logger    *zap.Logger
}

// NewSLASweeper builds a sweeper; a non-positive interval defaults to one minute.
func NewSLASweeper(escalator Escalator, interval time.Duration, logger *zap.Logger) *SLASweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLASweeper{escalator: escalator, interval: interval, logger: logger}
}

// Run sweeps once per interval until ctx is done. A cycle in progress always
// completes; cancellation is only observed between cycles, and the cycle itself
// runs on a context that is never canceled.
func (w *SLASweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("sla sweeper started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sla sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(context.WithoutCancel(ctx))
		}
	}
}

func (w *SLASweeper) sweep(ctx context.Context) {
	report, err := w.escalator.EscalateOverdue(ctx)
	if err != nil {
		w.logger.Warn("sla sweep incomplete",
			zap.Int("escalated", len(report.Escalated)),
			zap.Int("failed", report.Failed),
			zap.Error(err))
		return
	}
	if len(report.Escalated) > 0 {
		w.logger.Debug("sla sweep escalated tickets", zap.Strings("ticket_ids", report.Escalated))
	}
}
