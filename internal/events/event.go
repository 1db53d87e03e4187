// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadflow_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Conversation Events
// =============================================================================

// LeadTriggered is published when a conversation is started (or reset) for a lead.
type LeadTriggered struct {
	BaseEvent
	LeadID string `json:"leadId"`
	Name   string `json:"name"`
}

func (e LeadTriggered) EventName() string { return "leads.conversation.triggered" }

// LeadSecured is published when a lead completes the qualification flow.
type LeadSecured struct {
	BaseEvent
	LeadID   string `json:"leadId"`
	Age      int    `json:"age"`
	Country  string `json:"country"`
	Interest string `json:"interest"`
}

func (e LeadSecured) EventName() string { return "leads.conversation.secured" }

// LeadDeclined is published when a lead declines consent.
type LeadDeclined struct {
	BaseEvent
	LeadID string `json:"leadId"`
}

func (e LeadDeclined) EventName() string { return "leads.conversation.declined" }

// =============================================================================
// Follow-up Events
// =============================================================================

// FollowUpQueued is published when the monitor queues a silence follow-up.
type FollowUpQueued struct {
	BaseEvent
	FollowUpID uuid.UUID `json:"followUpId"`
	LeadID     string    `json:"leadId"`
	Text       string    `json:"text"`
}

func (e FollowUpQueued) EventName() string { return "followups.queued" }
