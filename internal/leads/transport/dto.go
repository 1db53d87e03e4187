// Package transport defines the request/response DTOs of the leads API.
package transport

import (
	"time"

	"leadflow_backend/internal/followup"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/engine"
)

// TriggerRequest starts (or resets) a conversation for a lead.
type TriggerRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}

// TurnRequest carries one inbound user message.
type TurnRequest struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}

// Message is one chat message as returned to the boundary.
type Message struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// MessagesResponse wraps the agent reply for a turn or trigger.
type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

// FollowUpResponse is the poll result; Message is omitted when nothing is
// pending.
type FollowUpResponse struct {
	Message *Message `json:"message,omitempty"`
}

// LeadResponse is the durable view of one lead record.
type LeadResponse struct {
	LeadID             string     `json:"leadId"`
	Name               string     `json:"name"`
	Step               string     `json:"step"`
	Age                *int       `json:"age,omitempty"`
	Country            string     `json:"country,omitempty"`
	Interest           string     `json:"interest,omitempty"`
	Status             string     `json:"status"`
	LastAgentMessageAt *time.Time `json:"lastAgentMessageAt,omitempty"`
	LastUserMessageAt  *time.Time `json:"lastUserMessageAt,omitempty"`
	FollowUpSent       bool       `json:"followUpSent"`
}

// FromMessages maps engine messages to the wire form.
func FromMessages(msgs []engine.Message) MessagesResponse {
	out := MessagesResponse{Messages: make([]Message, 0, len(msgs))}
	for _, m := range msgs {
		out.Messages = append(out.Messages, Message{Author: m.Author, Text: m.Text})
	}
	return out
}

// FromFollowUp maps a polled follow-up (possibly nil) to the wire form.
func FromFollowUp(f *followup.PendingFollowUp) FollowUpResponse {
	if f == nil {
		return FollowUpResponse{}
	}
	return FollowUpResponse{Message: &Message{Author: engine.AuthorAgent, Text: f.Text}}
}

// FromRecord maps a lead record to the wire form.
func FromRecord(rec domain.LeadRecord) LeadResponse {
	resp := LeadResponse{
		LeadID:       rec.LeadID,
		Name:         rec.Name,
		Step:         string(rec.Step),
		Country:      rec.Country,
		Interest:     rec.Interest,
		Status:       string(rec.Status),
		FollowUpSent: rec.FollowUpSent,
	}
	if rec.Age > 0 {
		age := rec.Age
		resp.Age = &age
	}
	if !rec.LastAgentMessageAt.IsZero() {
		t := rec.LastAgentMessageAt
		resp.LastAgentMessageAt = &t
	}
	if !rec.LastUserMessageAt.IsZero() {
		t := rec.LastUserMessageAt
		resp.LastUserMessageAt = &t
	}
	return resp
}
