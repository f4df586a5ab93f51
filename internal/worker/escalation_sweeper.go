package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-maintenance/internal/service"
)

// EscalationSweeper runs the SLA escalation pass on a fixed interval.
// Stop waits for an in-flight pass to finish before returning, so
// shutdown never abandons a half-swept batch.
type EscalationSweeper struct {
	escalation *service.EscalationService
	interval   time.Duration
	logger     *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewEscalationSweeper creates a sweeper. A non-positive interval
// defaults to 30 minutes.
func NewEscalationSweeper(escalation *service.EscalationService, interval time.Duration, logger *zap.Logger) *EscalationSweeper {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationSweeper{
		escalation: escalation,
		interval:   interval,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the background loop. The first pass runs after one
// full interval.
func (w *EscalationSweeper) Start() {
	w.startOnce.Do(func() {
		go w.run()
	})
}

func (w *EscalationSweeper) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("escalation sweeper started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-w.stop:
			w.logger.Info("escalation sweeper stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *EscalationSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	if _, err := w.escalation.RunOnce(ctx); err != nil {
		w.logger.Error("escalation sweep failed", zap.Error(err))
	}
}

// Stop signals the loop to exit and blocks until it has.
func (w *EscalationSweeper) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	<-w.done
}
