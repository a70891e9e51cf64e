// internal/notify/scheduler/scheduler.go
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"journal-notifier/internal/common/logger"
	"journal-notifier/internal/common/metrics"
)

// DueFinder lists dispatchable event ids.
type DueFinder interface {
	FindDue(ctx context.Context, now time.Time, staleClaim time.Duration, limit int) ([]string, error)
}

// Submitter hands an event id to the dispatch pool without waiting.
type Submitter interface {
	Submit(eventID string)
}

// ScanLock is the cross-instance try-lock guarding the periodic scan.
type ScanLock interface {
	TryAcquire(ctx context.Context) (token string, ok bool, err error)
	Release(ctx context.Context, token string)
}

// Config holds the scheduler's tunables.
type Config struct {
	Interval   time.Duration
	BatchSize  int
	StaleClaim time.Duration
}

// Scheduler periodically scans for due events and submits them for dispatch.
// Two guards keep scans from piling up: an in-process flag skips a tick while
// the previous scan still runs, and the shared lease lock keeps N horizontal
// instances from scanning the same batch. Neither guard is the correctness
// mechanism; the dispatcher's atomic claim is. They only avoid redundant
// matcher work.
type Scheduler struct {
	store      DueFinder
	dispatcher Submitter
	lock       ScanLock
	logger     logger.Logger
	cfg        Config
	scanning   atomic.Bool
	now        func() time.Time
}

func New(store DueFinder, dispatcher Submitter, lock ScanLock, log logger.Logger, cfg Config) *Scheduler {
	return &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		lock:       lock,
		logger:     log.WithFields(map[string]interface{}{"component": "scheduler"}),
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run ticks until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", map[string]interface{}{
		"interval": s.cfg.Interval.String(),
		"batch":    s.cfg.BatchSize,
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", nil)
			return
		case <-ticker.C:
			s.ScanOnce(ctx)
		}
	}
}

// ScanOnce performs a single guarded scan. Exported so the fast path and
// tests can trigger a scan outside the ticker.
func (s *Scheduler) ScanOnce(ctx context.Context) {
	if !s.scanning.CompareAndSwap(false, true) {
		// Previous tick's scan still in flight.
		metrics.SchedulerTicks.WithLabelValues("overlapping").Inc()
		return
	}
	defer s.scanning.Store(false)

	token, ok, err := s.lock.TryAcquire(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("scan lock acquisition failed", nil)
		metrics.SchedulerTicks.WithLabelValues("lock_error").Inc()
		return
	}
	if !ok {
		// Another instance scans this tick.
		metrics.SchedulerTicks.WithLabelValues("lock_busy").Inc()
		return
	}
	defer s.lock.Release(ctx, token)

	ids, err := s.store.FindDue(ctx, s.now(), s.cfg.StaleClaim, s.cfg.BatchSize)
	if err != nil {
		s.logger.WithError(err).Error("due-event scan failed", nil)
		metrics.SchedulerTicks.WithLabelValues("scan_error").Inc()
		return
	}
	metrics.SchedulerTicks.WithLabelValues("scanned").Inc()

	if len(ids) == 0 {
		return
	}

	s.logger.Debug("submitting due events", map[string]interface{}{"count": len(ids)})
	for _, id := range ids {
		s.dispatcher.Submit(id)
	}
}

// WithClock overrides the time source, for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}
