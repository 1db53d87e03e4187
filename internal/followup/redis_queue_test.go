package followup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestRedisQueue(t *testing.T) *RedisQueue {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisQueue(client)
}

func TestRedisQueue_EnqueuePollRoundTrip(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()

	item := PendingFollowUp{
		ID:         uuid.New(),
		LeadID:     "L1",
		Text:       "Just checking in.",
		EnqueuedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := q.Enqueue(ctx, item); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if n, err := q.Len(ctx); err != nil || n != 1 {
		t.Fatalf("expected len 1, got %d (%v)", n, err)
	}

	got, err := q.Poll(ctx, "L1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if got == nil || got.ID != item.ID || got.Text != item.Text {
		t.Fatalf("unexpected polled item: %+v", got)
	}
	if !got.EnqueuedAt.Equal(item.EnqueuedAt) {
		t.Fatalf("expected enqueuedAt %v, got %v", item.EnqueuedAt, got.EnqueuedAt)
	}

	again, err := q.Poll(ctx, "L1")
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if again != nil {
		t.Fatalf("expected item claimed exactly once, got %+v", again)
	}
}

func TestRedisQueue_PollUnknownLeadIsNil(t *testing.T) {
	q := newTestRedisQueue(t)

	got, err := q.Poll(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestRedisQueue_EnqueueReplacesUnclaimed(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()

	first := PendingFollowUp{ID: uuid.New(), LeadID: "L1", Text: "first"}
	second := PendingFollowUp{ID: uuid.New(), LeadID: "L1", Text: "second"}
	if err := q.Enqueue(ctx, first); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, second); err != nil {
		t.Fatalf("enqueue replacement: %v", err)
	}

	if n, _ := q.Len(ctx); n != 1 {
		t.Fatalf("expected one pending per lead, got %d", n)
	}
	got, err := q.Poll(ctx, "L1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if got.ID != second.ID {
		t.Fatalf("expected the replacement to win, got %+v", got)
	}
}
