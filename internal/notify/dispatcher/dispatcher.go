// internal/notify/dispatcher/dispatcher.go
package dispatcher

import (
	"context"
	"time"

	"journal-notifier/internal/common/logger"
	"journal-notifier/internal/common/metrics"
	"journal-notifier/internal/common/observability"
	"journal-notifier/internal/models"
)

// EventStore is the slice of the event store the dispatcher needs.
type EventStore interface {
	Claim(ctx context.Context, eventID string, now time.Time, staleClaim time.Duration) (bool, error)
	Get(ctx context.Context, eventID string) (*models.NotificationEvent, error)
	MarkSent(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, eventID string, retryAt time.Time, lastError string) (bool, error)
}

// NotificationStore is the fan-out and unread-count slice of the row store.
type NotificationStore interface {
	FanOut(ctx context.Context, ev *models.NotificationEvent, now time.Time) ([]string, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// Publisher pushes best-effort events to live client connections.
type Publisher interface {
	Publish(userID, eventType string, data interface{})
}

// Config holds the dispatcher's retry and concurrency tunables.
type Config struct {
	BackoffBase    time.Duration
	BackoffCeiling time.Duration
	ErrorCap       int
	StaleClaim     time.Duration
	Concurrency    int
}

// Dispatcher owns the per-event state machine: atomic claim, fan-out, SENT or
// FAILED-with-backoff. Dispatch-path failures never propagate to callers;
// they are absorbed into the FAILED state for the scheduler to retry.
type Dispatcher struct {
	events        EventStore
	notifications NotificationStore
	stream        Publisher
	obs           *observability.Observability
	logger        logger.Logger
	cfg           Config
	sem           chan struct{}
	now           func() time.Time
}

func New(events EventStore, notifications NotificationStore, stream Publisher, obs *observability.Observability, log logger.Logger, cfg Config) *Dispatcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Dispatcher{
		events:        events,
		notifications: notifications,
		stream:        stream,
		obs:           obs,
		logger:        log.WithFields(map[string]interface{}{"component": "dispatcher"}),
		cfg:           cfg,
		sem:           make(chan struct{}, cfg.Concurrency),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Submit runs DispatchOne asynchronously, bounded by the concurrency
// semaphore. The caller never waits for completion.
func (d *Dispatcher) Submit(eventID string) {
	go func() {
		d.sem <- struct{}{}
		defer func() { <-d.sem }()
		d.DispatchOne(context.Background(), eventID)
	}()
}

// DispatchOne drives a single event through the state machine. Running it for
// the same id from N concurrent callers yields exactly one claim, one fan-out
// pass and one SENT transition; the other N-1 calls return as silent no-ops.
func (d *Dispatcher) DispatchOne(ctx context.Context, eventID string) {
	started := d.now()
	log := d.logger.WithFields(map[string]interface{}{"eventId": eventID})

	claimed, err := d.events.Claim(ctx, eventID, started, d.cfg.StaleClaim)
	if err != nil {
		log.WithError(err).Error("claim failed", nil)
		metrics.DispatchOutcomes.WithLabelValues("claim_error").Inc()
		return
	}
	if !claimed {
		// Another worker owns it, or it is not due yet.
		metrics.DispatchOutcomes.WithLabelValues("not_claimed").Inc()
		return
	}
	metrics.DispatchAttempts.Inc()

	ev, err := d.events.Get(ctx, eventID)
	if err != nil {
		// Should not happen after a successful claim; park it with a short
		// fixed backoff and alert.
		log.WithError(err).Error("claimed event missing on re-read", nil)
		d.fail(ctx, eventID, 1, err)
		d.record(ctx, started, "failed")
		return
	}

	recipients, err := d.notifications.FanOut(ctx, ev, d.now())
	if err != nil {
		log.WithError(err).Warn("fan-out failed, scheduling retry", map[string]interface{}{
			"attempts": ev.Attempts,
		})
		d.fail(ctx, eventID, ev.Attempts, err)
		d.record(ctx, started, "failed")
		return
	}
	metrics.FanOutRows.Add(float64(len(recipients)))

	ok, err := d.events.MarkSent(ctx, eventID, d.now())
	if err != nil {
		log.WithError(err).Warn("mark sent failed, scheduling retry", nil)
		d.fail(ctx, eventID, ev.Attempts, err)
		d.record(ctx, started, "failed")
		return
	}
	if !ok {
		// The row left PROCESSING under our claim: an invariant violation.
		// The fan-out already ran and is idempotent, so log loudly and stop.
		log.Error("event not in PROCESSING at mark-sent, state machine violated", map[string]interface{}{
			"attempts": ev.Attempts,
		})
	}

	log.Info("event dispatched", map[string]interface{}{
		"eventType":  string(ev.EventType),
		"contentId":  ev.ContentID,
		"recipients": len(recipients),
		"attempts":   ev.Attempts,
	})
	metrics.DispatchOutcomes.WithLabelValues("sent").Inc()
	d.record(ctx, started, "sent")

	// Best-effort live push, strictly after the dispatch writes. Push
	// problems are the stream layer's to swallow; nothing here retries.
	d.pushToRecipients(ctx, ev, recipients)
}

func (d *Dispatcher) pushToRecipients(ctx context.Context, ev *models.NotificationEvent, recipients []string) {
	for _, userID := range recipients {
		d.stream.Publish(userID, "notification.created", map[string]interface{}{
			"event_id":   ev.ID,
			"event_type": string(ev.EventType),
			"content_id": ev.ContentID,
			"payload":    ev.Payload,
		})

		count, err := d.notifications.UnreadCount(ctx, userID)
		if err != nil {
			d.logger.WithError(err).Debug("unread count push skipped", map[string]interface{}{
				"userId": userID,
			})
			continue
		}
		d.stream.Publish(userID, "unread.changed", map[string]interface{}{
			"unread": count,
		})
	}
}

// fail parks the event for retry with an exponential, capped backoff.
func (d *Dispatcher) fail(ctx context.Context, eventID string, attempts int, cause error) {
	delay := Backoff(attempts, d.cfg.BackoffBase, d.cfg.BackoffCeiling)
	retryAt := d.now().Add(delay)
	msg := Truncate(cause.Error(), d.cfg.ErrorCap)

	ok, err := d.events.MarkFailed(ctx, eventID, retryAt, msg)
	if err != nil {
		// Nothing else to do: the stale-claim rule will eventually make the
		// stuck PROCESSING row reclaimable.
		d.logger.WithError(err).Error("mark failed did not stick", map[string]interface{}{
			"eventId": eventID,
		})
		return
	}
	if !ok {
		// The row is no longer PROCESSING under our claim. A worker that
		// reclaimed it past the stale timeout has already finalized it, so
		// parking would overwrite a terminal state.
		d.logger.Warn("mark failed skipped, claim lost", map[string]interface{}{
			"eventId": eventID,
		})
		return
	}

	d.logger.Warn("event parked for retry", map[string]interface{}{
		"eventId":  eventID,
		"attempts": attempts,
		"retryAt":  retryAt.Format(time.RFC3339),
		"delay":    delay.String(),
	})
}

func (d *Dispatcher) record(ctx context.Context, started time.Time, status string) {
	metrics.DispatchDuration.Observe(d.now().Sub(started).Seconds())
	if d.obs != nil {
		d.obs.RecordDispatch(ctx, status)
		d.obs.RecordDispatchDuration(ctx, d.now().Sub(started), status)
	}
}

// WithClock overrides the time source, for tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}
