// Package followup detects silent leads and queues re-engagement messages.
// The monitor writes the queue; the delivery boundary drains it.
package followup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PendingFollowUp is one queued re-engagement message. It is consumed at
// most once per enqueue by the delivery boundary.
type PendingFollowUp struct {
	ID         uuid.UUID `json:"id"`
	LeadID     string    `json:"leadId"`
	Text       string    `json:"text"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Queue holds at most one pending follow-up per lead id. Enqueue and Poll
// must be safe for concurrent use (monitor writer, delivery reader).
type Queue interface {
	// Enqueue stores the follow-up for its lead, replacing any unclaimed one.
	Enqueue(ctx context.Context, f PendingFollowUp) error
	// Poll removes and returns the pending follow-up for a lead, or nil.
	Poll(ctx context.Context, leadID string) (*PendingFollowUp, error)
	// Len reports the number of pending follow-ups.
	Len(ctx context.Context) (int, error)
}

// MemoryQueue is the in-process Queue used by the single-binary deployment.
type MemoryQueue struct {
	mu      sync.Mutex
	pending map[string]PendingFollowUp
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{pending: make(map[string]PendingFollowUp)}
}

// Enqueue stores the follow-up for its lead.
func (q *MemoryQueue) Enqueue(_ context.Context, f PendingFollowUp) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[f.LeadID] = f
	return nil
}

// Poll removes and returns the pending follow-up for a lead, or nil.
func (q *MemoryQueue) Poll(_ context.Context, leadID string) (*PendingFollowUp, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	f, ok := q.pending[leadID]
	if !ok {
		return nil, nil
	}
	delete(q.pending, leadID)
	return &f, nil
}

// Len reports the number of pending follow-ups.
func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), nil
}
