// Package runner executes queued scans in the background with a
// bounded retry policy.
package runner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/logging"
	"github.com/presencelab/presence-scanner/internal/metrics"
	"github.com/presencelab/presence-scanner/internal/scan"
)

// Policy bounds how a scan run is retried. Only infrastructure
// failures (browser init, store writes) are retried; analyzer failures
// are absorbed upstream and never reach the runner as errors.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Backoff <= 0 {
		p.Backoff = time.Minute
	}
	return p
}

// Orchestrator runs one scan to a terminal record.
type Orchestrator interface {
	Run(ctx context.Context, scanID string) (scan.Record, error)
}

// Runner consumes queue items and drives the orchestrator.
type Runner struct {
	queue    scan.Queue
	orch     Orchestrator
	machine  *scan.Machine
	store    scan.Store
	notifier scan.Notifier
	policy   Policy
	logger   *zap.Logger
}

// New constructs a Runner.
func New(
	queue scan.Queue,
	orch Orchestrator,
	machine *scan.Machine,
	store scan.Store,
	notifier scan.Notifier,
	policy Policy,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		queue:    queue,
		orch:     orch,
		machine:  machine,
		store:    store,
		notifier: notifier,
		policy:   policy.withDefaults(),
		logger:   logger,
	}
}

// Start launches n worker loops and returns a WaitGroup the caller
// waits on during shutdown.
func (r *Runner) Start(ctx context.Context, n int) *sync.WaitGroup {
	if n <= 0 {
		n = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(ctx)
		}()
	}
	return &wg
}

// Run blocks, consuming queue items until the context finishes.
func (r *Runner) Run(ctx context.Context) {
	for {
		item, err := r.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		r.logger.Debug("dequeued scan", zap.String("scan_id", item.ScanID))
		r.process(ctx, item)
	}
}

func (r *Runner) process(ctx context.Context, item scan.QueueItem) {
	logger := logging.WithScan(r.logger, item.ScanID)

	rec, err := r.runWithRetry(ctx, logger, item.ScanID)
	if err == nil {
		r.notifyOutcome(ctx, logger, rec)
		return
	}
	if ctx.Err() != nil {
		// Shutdown mid-run; leave the record for the next process.
		logger.Warn("scan interrupted by shutdown", zap.Error(err))
		return
	}

	logger.Error("scan exhausted retries", zap.Error(err))
	r.markFailed(ctx, logger, item.ScanID, err.Error())
}

// runWithRetry retries infrastructure failures with a fixed backoff,
// up to the policy's attempt budget. Validation failures are not
// retried.
func (r *Runner) runWithRetry(ctx context.Context, logger *zap.Logger, scanID string) (scan.Record, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		rec, err := r.orch.Run(ctx, scanID)
		if err == nil {
			return rec, nil
		}
		lastErr = err
		if !scan.IsInfrastructure(err) {
			return rec, err
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		metrics.ObserveTaskRetry()
		logger.Warn("retrying scan after infrastructure failure",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", r.policy.Backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return scan.Record{}, ctx.Err()
		case <-time.After(r.policy.Backoff):
		}
	}
	return scan.Record{}, lastErr
}

// markFailed forces a scan into FAILED after the retry budget is spent
// and fires the failure notification.
func (r *Runner) markFailed(ctx context.Context, logger *zap.Logger, scanID, errText string) {
	rec, err := r.store.GetScan(ctx, scanID)
	if err != nil {
		logger.Error("could not load scan to mark failed", zap.Error(err))
		return
	}
	if !rec.Status.Terminal() {
		if err := r.machine.Complete(ctx, &rec, scan.StatusFailed, errText); err != nil {
			logger.Error("could not mark scan failed", zap.Error(err))
			return
		}
	}
	r.notifyFailure(ctx, logger, scanID, errText)
}

func (r *Runner) notifyOutcome(ctx context.Context, logger *zap.Logger, rec scan.Record) {
	if r.notifier == nil {
		return
	}
	switch rec.Status {
	case scan.StatusFailed:
		r.notifyFailure(ctx, logger, rec.ID, rec.ErrorText)
	case scan.StatusCompleted, scan.StatusPartial:
		if err := r.notifier.NotifyCompleted(ctx, rec.ID, rec.Composite, rec.Grade); err != nil {
			logger.Warn("completion notification failed", zap.Error(err))
		}
	}
}

func (r *Runner) notifyFailure(ctx context.Context, logger *zap.Logger, scanID, errText string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyFailure(ctx, scanID, errText); err != nil {
		logger.Warn("failure notification failed", zap.Error(err))
	}
}
