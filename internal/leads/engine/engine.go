// Package engine implements the qualification conversation as a pure
// transition function. It performs no I/O and takes the clock as an
// argument, which keeps every rule unit-testable in isolation.
package engine

import (
	"strconv"
	"strings"
	"time"

	"leadflow_backend/internal/leads/domain"
)

// Author identifies who produced a transcript message.
const (
	AuthorAgent = "Agent"
	AuthorUser  = "User"
)

// Message is one exchanged chat message.
type Message struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// DefaultMaxAge bounds plausible ages; ages must be in (0, MaxAge).
const DefaultMaxAge = 120

// Options tunes the engine's validation rules.
type Options struct {
	// MaxAge is the exclusive upper bound for a plausible age.
	MaxAge int
}

// Engine evaluates conversation turns. It is stateless and safe for
// concurrent use.
type Engine struct {
	templates Templates
	maxAge    int
}

// New creates an engine with the given templates and options.
func New(templates Templates, opts Options) *Engine {
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Engine{templates: templates, maxAge: maxAge}
}

// Templates exposes the active message templates (used by the follow-up
// monitor for the check-in text).
func (e *Engine) Templates() Templates {
	return e.templates
}

// Result describes the outcome of one turn: the updated record and the
// agent messages to send. Changed is false when the turn must not touch
// durable state (terminal leads).
type Result struct {
	Record   domain.LeadRecord
	Messages []Message
	Changed  bool
}

// Greet produces the opening turn for a freshly triggered lead.
func (e *Engine) Greet(rec domain.LeadRecord, now time.Time) Result {
	rec.Step = domain.StepAwaitingConsent
	rec.Status = domain.StatusInProgress
	rec.LastAgentMessageAt = now
	rec.FollowUpSent = false
	rec.UpdatedAt = now
	return Result{
		Record:   rec,
		Messages: []Message{{Author: AuthorAgent, Text: e.templates.greetingFor(rec.Name)}},
		Changed:  true,
	}
}

// Transition evaluates one user turn against the current record. Malformed
// input is a normal outcome (a re-prompt), never an error. Terminal leads
// get a concluded notice and no state change.
func (e *Engine) Transition(rec domain.LeadRecord, input string, now time.Time) Result {
	if domain.IsTerminalStep(rec.Step) {
		return Result{
			Record:   rec,
			Messages: []Message{{Author: AuthorAgent, Text: e.templates.Concluded}},
			Changed:  false,
		}
	}

	// Any user message opens a new silence window.
	rec.LastUserMessageAt = now
	rec.FollowUpSent = false

	trimmed := strings.TrimSpace(input)
	var reply string

	switch rec.Step {
	case domain.StepAwaitingConsent:
		switch classifyConsent(trimmed) {
		case consentYes:
			rec.Step = domain.StepAwaitingAge
			reply = e.templates.AgeQuestion
		case consentNo:
			rec.Step = domain.StepDeclined
			rec.Status = domain.StatusDeclinedPendingFollowup
			reply = e.templates.DeclineAck
		default:
			reply = e.templates.ConsentClarify
		}

	case domain.StepAwaitingAge:
		if age, ok := e.parseAge(trimmed); ok {
			rec.Age = age
			rec.Step = domain.StepAwaitingCountry
			reply = e.templates.CountryQuestion
		} else {
			reply = e.templates.AgeRetry
		}

	case domain.StepAwaitingCountry:
		if trimmed != "" {
			rec.Country = trimmed
			rec.Step = domain.StepAwaitingInterest
			reply = e.templates.InterestQuestion
		} else {
			reply = e.templates.CountryRetry
		}

	case domain.StepAwaitingInterest:
		if trimmed != "" {
			rec.Interest = trimmed
			rec.Step = domain.StepSecured
			rec.Status = domain.StatusSecured
			reply = e.templates.SecuredClose
		} else {
			reply = e.templates.InterestRetry
		}

	default:
		// Unknown persisted step; keep the record untouched and re-anchor
		// the lead at consent on the next trigger.
		return Result{
			Record:   rec,
			Messages: []Message{{Author: AuthorAgent, Text: e.templates.Concluded}},
			Changed:  false,
		}
	}

	rec.LastAgentMessageAt = now
	rec.UpdatedAt = now

	return Result{
		Record:   rec,
		Messages: []Message{{Author: AuthorAgent, Text: reply}},
		Changed:  true,
	}
}

func (e *Engine) parseAge(input string) (int, bool) {
	age, err := strconv.Atoi(input)
	if err != nil {
		return 0, false
	}
	if age <= 0 || age >= e.maxAge {
		return 0, false
	}
	return age, true
}

type consentAnswer int

const (
	consentUnclear consentAnswer = iota
	consentYes
	consentNo
)

var affirmativeWords = map[string]struct{}{
	"yes": {}, "ok": {}, "okay": {}, "sure": {}, "yeah": {}, "yep": {},
	"affirmative": {}, "fine": {}, "alright": {}, "y": {},
}

var negativeWords = map[string]struct{}{
	"no": {}, "nope": {}, "nah": {}, "never": {}, "stop": {}, "n": {},
}

// classifyConsent tokenizes the reply and looks for a clear yes or no.
// Affirmative wins over negative so that "yes, why not" consents.
func classifyConsent(input string) consentAnswer {
	lower := strings.ToLower(input)
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	})

	sawNegative := false
	for _, tok := range tokens {
		if _, ok := affirmativeWords[tok]; ok {
			return consentYes
		}
		if _, ok := negativeWords[tok]; ok {
			sawNegative = true
		}
		if tok == "not" || tok == "don't" || tok == "dont" {
			sawNegative = true
		}
	}
	if sawNegative {
		return consentNo
	}
	return consentUnclear
}
