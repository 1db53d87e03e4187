// Package session maps lead ids to live conversation state and serializes
// turns per lead. It is the only caller of the conversation engine on the
// turn path and the only writer of lead records from inbound messages.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/engine"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
)

// LeadStore is the durable store surface the coordinator needs.
type LeadStore interface {
	Get(ctx context.Context, leadID string) (domain.LeadRecord, error)
	Upsert(ctx context.Context, leadID string, mutate func(*domain.LeadRecord) error) (domain.LeadRecord, error)
}

const (
	// writeAttempts bounds retries of a failed durable write.
	writeAttempts = 3
	// writeBackoff is the initial delay between attempts; it doubles each try.
	writeBackoff = 50 * time.Millisecond
)

// Coordinator serializes turns per lead id, runs the engine, and applies its
// output to the store. Turns for distinct leads proceed independently.
type Coordinator struct {
	store  LeadStore
	engine *engine.Engine
	bus    events.Bus
	log    *logger.Logger

	mu          sync.Mutex
	leadLocks   map[string]*sync.Mutex
	transcripts map[string][]engine.Message
}

// New creates a coordinator.
func New(store LeadStore, eng *engine.Engine, bus events.Bus, log *logger.Logger) *Coordinator {
	return &Coordinator{
		store:       store,
		engine:      eng,
		bus:         bus,
		log:         log,
		leadLocks:   make(map[string]*sync.Mutex),
		transcripts: make(map[string][]engine.Message),
	}
}

// lockFor returns the serialization lock for one lead id, creating it on
// first use. Locks are never removed; one mutex per lead ever seen.
func (c *Coordinator) lockFor(leadID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.leadLocks[leadID]
	if !ok {
		l = &sync.Mutex{}
		c.leadLocks[leadID] = l
	}
	return l
}

// Trigger creates or resets the conversation for a lead and returns the
// opening message(s). Triggering an existing lead discards prior progress:
// re-trigger means reset, not resume.
func (c *Coordinator) Trigger(ctx context.Context, leadID, name string) ([]engine.Message, error) {
	lock := c.lockFor(leadID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	result := c.engine.Greet(domain.NewLeadRecord(leadID, name, now), now)

	if err := c.persist(ctx, leadID, result.Record); err != nil {
		return nil, err
	}

	c.setTranscript(leadID, result.Messages)

	if c.bus != nil {
		c.bus.Publish(ctx, events.LeadTriggered{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			Name:      name,
		})
	}

	return result.Messages, nil
}

// HandleTurn applies one inbound user message for a lead and returns the
// agent's reply. Turns for the same lead are strictly serialized. Returns
// apperr.KindNotFound when the lead was never triggered.
func (c *Coordinator) HandleTurn(ctx context.Context, leadID, text string) ([]engine.Message, error) {
	lock := c.lockFor(leadID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := c.store.Get(ctx, leadID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("unknown lead; trigger the conversation first")
		}
		return nil, err
	}

	now := time.Now().UTC()
	result := c.engine.Transition(rec, text, now)

	if result.Changed {
		if err := c.persist(ctx, leadID, result.Record); err != nil {
			// Durable write failed: leave the in-memory session untouched so
			// memory never runs ahead of the store.
			return nil, err
		}
		c.publishTerminal(ctx, rec, result.Record)
	}

	userMsg := engine.Message{Author: engine.AuthorUser, Text: text}
	c.appendTranscript(leadID, append([]engine.Message{userMsg}, result.Messages...))

	return result.Messages, nil
}

// persist writes the updated record with bounded retry and backoff.
func (c *Coordinator) persist(ctx context.Context, leadID string, updated domain.LeadRecord) error {
	var lastErr error
	delay := writeBackoff

	for attempt := 0; attempt < writeAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return apperr.Wrap(apperr.KindUnavailable, "lead store write cancelled", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		_, err := c.store.Upsert(ctx, leadID, func(rec *domain.LeadRecord) error {
			*rec = updated
			return nil
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if c.log != nil {
			c.log.StoreError("upsert", err)
		}
	}

	return apperr.Wrap(apperr.KindUnavailable, "lead store unavailable, try again", lastErr)
}

func (c *Coordinator) publishTerminal(ctx context.Context, before, after domain.LeadRecord) {
	if c.bus == nil || domain.IsTerminalStep(before.Step) {
		return
	}
	switch {
	case after.Step == domain.StepSecured:
		c.bus.Publish(ctx, events.LeadSecured{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    after.LeadID,
			Age:       after.Age,
			Country:   after.Country,
			Interest:  after.Interest,
		})
	case after.Step == domain.StepDeclined:
		c.bus.Publish(ctx, events.LeadDeclined{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    after.LeadID,
		})
	}
}

// Transcript returns a copy of the in-memory conversation history for a
// lead. History lives for the process lifetime only; it is rebuilt empty
// after a restart while the durable record carries the progress.
func (c *Coordinator) Transcript(leadID string) []engine.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := c.transcripts[leadID]
	out := make([]engine.Message, len(history))
	copy(out, history)
	return out
}

// RecordFollowUpDelivery appends a delivered follow-up message to the
// transcript so polling clients see it in history.
func (c *Coordinator) RecordFollowUpDelivery(leadID, text string) {
	c.appendTranscript(leadID, []engine.Message{{Author: engine.AuthorAgent, Text: text}})
}

func (c *Coordinator) setTranscript(leadID string, msgs []engine.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcripts[leadID] = append([]engine.Message(nil), msgs...)
}

func (c *Coordinator) appendTranscript(leadID string, msgs []engine.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcripts[leadID] = append(c.transcripts[leadID], msgs...)
}

// ErrUnknownLead reports whether err is the unknown-lead condition.
func ErrUnknownLead(err error) bool {
	var appErr *apperr.Error
	return errors.As(err, &appErr) && appErr.Kind == apperr.KindNotFound
}
