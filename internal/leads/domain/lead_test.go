package domain

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSilentFor(t *testing.T) {
	rec := NewLeadRecord("L1", "Alice", testNow)

	if got := rec.SilentFor(testNow.Add(time.Hour)); got != 0 {
		t.Fatalf("expected zero silence before any agent message, got %v", got)
	}

	rec.LastAgentMessageAt = testNow
	if got := rec.SilentFor(testNow.Add(2 * time.Hour)); got != 2*time.Hour {
		t.Fatalf("expected 2h silence, got %v", got)
	}

	rec.LastUserMessageAt = testNow.Add(time.Hour)
	if got := rec.SilentFor(testNow.Add(2 * time.Hour)); got != 0 {
		t.Fatalf("expected zero silence after user reply, got %v", got)
	}

	// User replied before the last agent message: silence runs from the agent message.
	rec.LastAgentMessageAt = testNow.Add(90 * time.Minute)
	if got := rec.SilentFor(testNow.Add(2 * time.Hour)); got != 30*time.Minute {
		t.Fatalf("expected 30m silence, got %v", got)
	}
}

func TestQualifiesForFollowUp(t *testing.T) {
	threshold := 24 * time.Hour
	base := NewLeadRecord("L1", "Alice", testNow)
	base.LastAgentMessageAt = testNow

	past := testNow.Add(25 * time.Hour)

	if !base.QualifiesForFollowUp(past, threshold) {
		t.Fatal("expected silent in-progress lead to qualify")
	}

	early := base
	if early.QualifiesForFollowUp(testNow.Add(23*time.Hour), threshold) {
		t.Fatal("expected lead under the threshold not to qualify")
	}

	sent := base
	sent.FollowUpSent = true
	if sent.QualifiesForFollowUp(past, threshold) {
		t.Fatal("expected lead with follow-up already sent not to qualify")
	}

	secured := base
	secured.Status = StatusSecured
	if secured.QualifiesForFollowUp(past, threshold) {
		t.Fatal("expected secured lead not to qualify")
	}

	declined := base
	declined.Status = StatusDeclinedPendingFollowup
	if !declined.QualifiesForFollowUp(past, threshold) {
		t.Fatal("expected declined lead to still qualify for one follow-up")
	}

	noResponse := base
	noResponse.Status = StatusNoResponse
	if noResponse.QualifiesForFollowUp(past, threshold) {
		t.Fatal("expected written-off lead not to qualify")
	}

	replied := base
	replied.LastUserMessageAt = past.Add(-time.Minute)
	if replied.QualifiesForFollowUp(past, threshold) {
		t.Fatal("expected recently replied lead not to qualify")
	}
}

func TestIsForwardTransition(t *testing.T) {
	cases := []struct {
		from, to Step
		want     bool
	}{
		{StepAwaitingConsent, StepAwaitingAge, true},
		{StepAwaitingConsent, StepAwaitingConsent, true},
		{StepAwaitingConsent, StepDeclined, true},
		{StepAwaitingInterest, StepSecured, true},
		{StepAwaitingAge, StepAwaitingConsent, false},
		{StepSecured, StepAwaitingInterest, false},
	}

	for _, tc := range cases {
		if got := IsForwardTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("IsForwardTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestKnownStepAndStatus(t *testing.T) {
	if !IsKnownStep(StepAwaitingConsent) || IsKnownStep(Step("garbled")) {
		t.Fatal("unexpected step recognition")
	}
	if !IsKnownStatus(StatusInProgress) || IsKnownStatus(Status("garbled")) {
		t.Fatal("unexpected status recognition")
	}
}
