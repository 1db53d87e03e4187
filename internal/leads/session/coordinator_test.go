package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/engine"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
)

// memStore is an in-memory LeadStore for coordinator tests.
type memStore struct {
	mu      sync.Mutex
	records map[string]domain.LeadRecord
	writes  int
	failing bool
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]domain.LeadRecord)}
}

func (m *memStore) Get(_ context.Context, leadID string) (domain.LeadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[leadID]
	if !ok {
		return domain.LeadRecord{}, apperr.NotFound("lead not found")
	}
	return rec, nil
}

func (m *memStore) Upsert(_ context.Context, leadID string, mutate func(*domain.LeadRecord) error) (domain.LeadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return domain.LeadRecord{}, errors.New("disk gone")
	}
	rec, ok := m.records[leadID]
	if !ok {
		rec = domain.LeadRecord{LeadID: leadID}
	}
	if err := mutate(&rec); err != nil {
		return domain.LeadRecord{}, err
	}
	rec.LeadID = leadID
	m.records[leadID] = rec
	m.writes++
	return rec, nil
}

func newTestCoordinator(store LeadStore) *Coordinator {
	log := logger.New("test")
	eng := engine.New(engine.DefaultTemplates(), engine.Options{})
	return New(store, eng, events.NewInMemoryBus(log), log)
}

func TestTrigger_CreatesLeadAndGreets(t *testing.T) {
	store := newMemStore()
	coord := newTestCoordinator(store)

	msgs, err := coord.Trigger(context.Background(), "L1", "Alice")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Author != engine.AuthorAgent {
		t.Fatalf("unexpected greeting: %+v", msgs)
	}

	rec, err := store.Get(context.Background(), "L1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Step != domain.StepAwaitingConsent || rec.Status != domain.StatusInProgress {
		t.Fatalf("unexpected persisted record: %+v", rec)
	}
}

func TestTrigger_ResetsExistingLead(t *testing.T) {
	store := newMemStore()
	coord := newTestCoordinator(store)
	ctx := context.Background()

	if _, err := coord.Trigger(ctx, "L1", "Alice"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if _, err := coord.HandleTurn(ctx, "L1", "yes"); err != nil {
		t.Fatalf("turn: %v", err)
	}
	if _, err := coord.HandleTurn(ctx, "L1", "30"); err != nil {
		t.Fatalf("turn: %v", err)
	}

	if _, err := coord.Trigger(ctx, "L1", "Alice"); err != nil {
		t.Fatalf("re-trigger: %v", err)
	}

	rec, err := store.Get(ctx, "L1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Step != domain.StepAwaitingConsent {
		t.Fatalf("expected re-trigger to reset to awaiting_consent, got %s", rec.Step)
	}
	if rec.Age != 0 {
		t.Fatalf("expected captured answers discarded, got age %d", rec.Age)
	}

	history := coord.Transcript("L1")
	if len(history) != 1 {
		t.Fatalf("expected transcript reset to the greeting, got %d messages", len(history))
	}
}

func TestHandleTurn_UnknownLeadIsNotFound(t *testing.T) {
	coord := newTestCoordinator(newMemStore())

	_, err := coord.HandleTurn(context.Background(), "ghost", "yes")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestHandleTurn_FullFlowBuildsTranscript(t *testing.T) {
	store := newMemStore()
	coord := newTestCoordinator(store)
	ctx := context.Background()

	if _, err := coord.Trigger(ctx, "L1", "Alice"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	for _, input := range []string{"yes", "30", "Netherlands", "solar panels"} {
		if _, err := coord.HandleTurn(ctx, "L1", input); err != nil {
			t.Fatalf("turn %q: %v", input, err)
		}
	}

	rec, err := store.Get(ctx, "L1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != domain.StatusSecured {
		t.Fatalf("expected secured, got %s", rec.Status)
	}

	// Greeting + 4 user/agent pairs.
	history := coord.Transcript("L1")
	if len(history) != 9 {
		t.Fatalf("expected 9 transcript messages, got %d", len(history))
	}
	if history[1].Author != engine.AuthorUser || history[1].Text != "yes" {
		t.Fatalf("unexpected second transcript entry: %+v", history[1])
	}
}

func TestHandleTurn_TerminalLeadSkipsStoreWrite(t *testing.T) {
	store := newMemStore()
	coord := newTestCoordinator(store)
	ctx := context.Background()

	if _, err := coord.Trigger(ctx, "L1", "Alice"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if _, err := coord.HandleTurn(ctx, "L1", "no"); err != nil {
		t.Fatalf("decline turn: %v", err)
	}

	writesBefore := store.writes
	msgs, err := coord.HandleTurn(ctx, "L1", "hello again")
	if err != nil {
		t.Fatalf("post-terminal turn: %v", err)
	}
	if store.writes != writesBefore {
		t.Fatalf("terminal turn wrote to the store (%d -> %d)", writesBefore, store.writes)
	}
	if msgs[0].Text != engine.DefaultTemplates().Concluded {
		t.Fatalf("expected concluded notice, got %q", msgs[0].Text)
	}
}

func TestHandleTurn_StoreFailureIsUnavailable(t *testing.T) {
	store := newMemStore()
	coord := newTestCoordinator(store)
	ctx := context.Background()

	if _, err := coord.Trigger(ctx, "L1", "Alice"); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	store.mu.Lock()
	store.failing = true
	store.mu.Unlock()

	_, err := coord.HandleTurn(ctx, "L1", "yes")
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	// The turn must not have advanced anything in memory either.
	store.mu.Lock()
	store.failing = false
	store.mu.Unlock()

	rec, err := store.Get(ctx, "L1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Step != domain.StepAwaitingConsent {
		t.Fatalf("expected step unchanged after failed write, got %s", rec.Step)
	}
}

func TestHandleTurn_SameLeadTurnsAreSerialized(t *testing.T) {
	store := newMemStore()
	coord := newTestCoordinator(store)
	ctx := context.Background()

	if _, err := coord.Trigger(ctx, "L1", "Alice"); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	inputs := []string{"yes", "30", "Netherlands", "solar panels"}
	var wg sync.WaitGroup
	for _, input := range inputs {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			_, _ = coord.HandleTurn(ctx, "L1", text)
		}(input)
	}
	wg.Wait()

	// Interleaving order is arbitrary, but the record must be internally
	// consistent: each answer only lands in its own step.
	rec, err := store.Get(ctx, "L1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !domain.IsKnownStep(rec.Step) || !domain.IsKnownStatus(rec.Status) {
		t.Fatalf("inconsistent record after concurrent turns: %+v", rec)
	}
	if rec.Age != 0 && rec.Age != 30 {
		t.Fatalf("unexpected age: %d", rec.Age)
	}
}

func TestHandleTurn_DistinctLeadsProgressIndependently(t *testing.T) {
	store := newMemStore()
	coord := newTestCoordinator(store)
	ctx := context.Background()

	const leads = 5
	for i := 0; i < leads; i++ {
		id := string(rune('A' + i))
		if _, err := coord.Trigger(ctx, id, "Lead "+id); err != nil {
			t.Fatalf("trigger %s: %v", id, err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < leads; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for _, input := range []string{"yes", "30", "Netherlands", "solar panels"} {
				if _, err := coord.HandleTurn(ctx, id, input); err != nil {
					t.Errorf("lead %s turn %q: %v", id, input, err)
					return
				}
			}
		}(string(rune('A' + i)))
	}
	wg.Wait()

	for i := 0; i < leads; i++ {
		id := string(rune('A' + i))
		rec, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if rec.Status != domain.StatusSecured {
			t.Fatalf("lead %s: expected secured, got %s", id, rec.Status)
		}
	}
}

func TestRecordFollowUpDelivery_AppendsToTranscript(t *testing.T) {
	coord := newTestCoordinator(newMemStore())
	ctx := context.Background()

	if _, err := coord.Trigger(ctx, "L1", "Alice"); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	coord.RecordFollowUpDelivery("L1", "Just checking in.")

	history := coord.Transcript("L1")
	last := history[len(history)-1]
	if last.Author != engine.AuthorAgent || last.Text != "Just checking in." {
		t.Fatalf("unexpected last transcript entry: %+v", last)
	}
}

func TestPersist_RetriesBeforeGivingUp(t *testing.T) {
	store := &flakyStore{failures: 2, records: make(map[string]domain.LeadRecord)}
	coord := newTestCoordinator(store)

	start := time.Now()
	if _, err := coord.Trigger(context.Background(), "L1", "Alice"); err != nil {
		t.Fatalf("expected trigger to succeed after retries, got %v", err)
	}
	if store.calls != 3 {
		t.Fatalf("expected 3 write attempts, got %d", store.calls)
	}
	if time.Since(start) < 100*time.Millisecond {
		t.Fatal("expected backoff between attempts")
	}
}

// flakyStore fails the first N upserts, then behaves.
type flakyStore struct {
	mu       sync.Mutex
	failures int
	calls    int
	records  map[string]domain.LeadRecord
}

func (f *flakyStore) Get(_ context.Context, leadID string) (domain.LeadRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[leadID]
	if !ok {
		return domain.LeadRecord{}, apperr.NotFound("lead not found")
	}
	return rec, nil
}

func (f *flakyStore) Upsert(_ context.Context, leadID string, mutate func(*domain.LeadRecord) error) (domain.LeadRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return domain.LeadRecord{}, errors.New("transient")
	}
	rec, ok := f.records[leadID]
	if !ok {
		rec = domain.LeadRecord{LeadID: leadID}
	}
	if err := mutate(&rec); err != nil {
		return domain.LeadRecord{}, err
	}
	f.records[leadID] = rec
	return rec, nil
}
