// Package domain provides core business rules for the lead qualification flow.
package domain

import "time"

// Step is the conversation step a lead is currently in.
type Step string

const (
	StepAwaitingConsent  Step = "awaiting_consent"
	StepAwaitingAge      Step = "awaiting_age"
	StepAwaitingCountry  Step = "awaiting_country"
	StepAwaitingInterest Step = "awaiting_interest"
	StepSecured          Step = "secured"
	StepDeclined         Step = "declined"
)

var knownSteps = map[Step]struct{}{
	StepAwaitingConsent:  {},
	StepAwaitingAge:      {},
	StepAwaitingCountry:  {},
	StepAwaitingInterest: {},
	StepSecured:          {},
	StepDeclined:         {},
}

// IsKnownStep reports whether a persisted step value is one we understand.
func IsKnownStep(s Step) bool {
	_, ok := knownSteps[s]
	return ok
}

// stepOrder gives each step a forward position. Terminal steps share the top
// slot; a step may only move to an equal or higher position.
var stepOrder = map[Step]int{
	StepAwaitingConsent:  0,
	StepAwaitingAge:      1,
	StepAwaitingCountry:  2,
	StepAwaitingInterest: 3,
	StepSecured:          4,
	StepDeclined:         4,
}

// IsForwardTransition reports whether moving from one step to another never
// regresses the conversation. Equal steps are allowed (re-prompts).
func IsForwardTransition(from, to Step) bool {
	return stepOrder[to] >= stepOrder[from]
}

// Status is the qualification outcome of a lead.
type Status string

const (
	StatusInProgress              Status = "in_progress"
	StatusSecured                 Status = "secured"
	StatusNoResponse              Status = "no_response"
	StatusDeclinedPendingFollowup Status = "declined_pending_followup"
)

var knownStatuses = map[Status]struct{}{
	StatusInProgress:              {},
	StatusSecured:                 {},
	StatusNoResponse:              {},
	StatusDeclinedPendingFollowup: {},
}

// IsKnownStatus reports whether a persisted status value is one we understand.
func IsKnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsTerminalStep reports whether the conversation is finished. A terminal
// lead never changes step or answer fields again; it may still qualify for
// one follow-up (declined leads).
func IsTerminalStep(s Step) bool {
	return s == StepSecured || s == StepDeclined
}

// EligibleForFollowUp reports whether a lead in the given status may receive
// a silence follow-up at all. Secured and written-off leads never do.
func EligibleForFollowUp(s Status) bool {
	return s == StatusInProgress || s == StatusDeclinedPendingFollowup
}

// LeadRecord is the durable row for one lead. LeadID is immutable once
// created; Age/Country/Interest are set once each is validly answered and
// never overwritten by later input.
type LeadRecord struct {
	LeadID             string
	Name               string
	Step               Step
	Age                int    // 0 until captured
	Country            string // empty until captured
	Interest           string // empty until captured
	Status             Status
	LastAgentMessageAt time.Time
	LastUserMessageAt  time.Time // zero until the first user reply
	FollowUpSent       bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewLeadRecord returns a fresh record at the start of the flow.
func NewLeadRecord(leadID, name string, now time.Time) LeadRecord {
	return LeadRecord{
		LeadID:    leadID,
		Name:      name,
		Step:      StepAwaitingConsent,
		Status:    StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SilentFor reports how long the lead has left the last agent message
// unanswered. Zero when the agent has not spoken yet or the user has already
// replied after the last agent message.
func (r LeadRecord) SilentFor(now time.Time) time.Duration {
	if r.LastAgentMessageAt.IsZero() {
		return 0
	}
	if !r.LastUserMessageAt.IsZero() && r.LastUserMessageAt.After(r.LastAgentMessageAt) {
		return 0
	}
	d := now.Sub(r.LastAgentMessageAt)
	if d < 0 {
		return 0
	}
	return d
}

// QualifiesForFollowUp applies the sweep predicate: active status, no
// follow-up queued for the current silence window, and silence past the
// threshold.
func (r LeadRecord) QualifiesForFollowUp(now time.Time, threshold time.Duration) bool {
	if !EligibleForFollowUp(r.Status) {
		return false
	}
	if r.FollowUpSent {
		return false
	}
	silent := r.SilentFor(now)
	return silent > 0 && silent > threshold
}
