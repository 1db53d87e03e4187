package followup

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadScanner is the store surface the monitor needs: snapshot reads plus
// the atomic flag flip. The monitor never mutates conversation step or
// answer fields.
type LeadScanner interface {
	Scan(ctx context.Context, pred func(domain.LeadRecord) bool) ([]domain.LeadRecord, error)
	Upsert(ctx context.Context, leadID string, mutate func(*domain.LeadRecord) error) (domain.LeadRecord, error)
}

// errNotDue aborts the claim upsert when a record stopped qualifying
// between the snapshot and the write (e.g. the user replied).
var errNotDue = errors.New("lead no longer due for follow-up")

// Config tunes the monitor.
type Config struct {
	// SilenceThreshold is how long an unanswered agent message must stand
	// before a follow-up is queued.
	SilenceThreshold time.Duration
	// SweepInterval is how often the monitor scans the store.
	SweepInterval time.Duration
	// MessageText is the follow-up wording.
	MessageText string
}

// Monitor periodically scans the lead store for silent leads and enqueues a
// follow-up exactly once per silence window. The follow_up_sent flag is
// flipped in the same atomic store operation that gates the enqueue, so a
// sweep racing a reply or another sweep can never double-queue.
type Monitor struct {
	store LeadScanner
	queue Queue
	bus   events.Bus
	log   *logger.Logger
	cfg   Config

	now func() time.Time // overridable in tests
}

// NewMonitor creates a monitor.
func NewMonitor(store LeadScanner, queue Queue, bus events.Bus, log *logger.Logger, cfg Config) *Monitor {
	return &Monitor{
		store: store,
		queue: queue,
		bus:   bus,
		log:   log,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Run sweeps at the configured interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	m.log.Info("follow-up monitor started",
		"sweep_interval", m.cfg.SweepInterval.String(),
		"silence_threshold", m.cfg.SilenceThreshold.String(),
	)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("follow-up monitor stopped")
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.log.Error("follow-up sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one scan-and-enqueue cycle and returns how many follow-ups
// were queued. Per-record failures are logged and skipped; only a failed
// snapshot fails the sweep.
func (m *Monitor) Sweep(ctx context.Context) (int, error) {
	now := m.now().UTC()

	due, err := m.store.Scan(ctx, func(rec domain.LeadRecord) bool {
		return rec.QualifiesForFollowUp(now, m.cfg.SilenceThreshold)
	})
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, rec := range due {
		if err := m.claimAndEnqueue(ctx, rec.LeadID, now); err != nil {
			if errors.Is(err, errNotDue) {
				continue
			}
			m.log.Error("follow-up enqueue failed", "lead_id", rec.LeadID, "error", err)
			continue
		}
		enqueued++
	}

	m.log.SweepResult(len(due), enqueued)
	return enqueued, nil
}

// claimAndEnqueue re-checks the predicate inside the atomic upsert while
// setting follow_up_sent, then appends the queue item. Flipping the flag
// first means a crash between the two steps costs one follow-up rather
// than producing duplicates.
func (m *Monitor) claimAndEnqueue(ctx context.Context, leadID string, now time.Time) error {
	_, err := m.store.Upsert(ctx, leadID, func(rec *domain.LeadRecord) error {
		if !rec.QualifiesForFollowUp(now, m.cfg.SilenceThreshold) {
			return errNotDue
		}
		rec.FollowUpSent = true
		rec.UpdatedAt = now
		return nil
	})
	if err != nil {
		return err
	}

	item := PendingFollowUp{
		ID:         uuid.New(),
		LeadID:     leadID,
		Text:       m.cfg.MessageText,
		EnqueuedAt: now,
	}
	if err := m.queue.Enqueue(ctx, item); err != nil {
		return err
	}

	if m.bus != nil {
		m.bus.Publish(ctx, events.FollowUpQueued{
			BaseEvent:  events.NewBaseEvent(),
			FollowUpID: item.ID,
			LeadID:     item.LeadID,
			Text:       item.Text,
		})
	}

	return nil
}
