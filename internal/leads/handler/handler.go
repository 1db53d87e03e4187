// Package handler exposes the lead conversation API over gin.
package handler

import (
	"context"
	"net/http"

	"leadflow_backend/internal/followup"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/engine"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

// LeadReader is the read-only store surface the handler needs.
type LeadReader interface {
	Get(ctx context.Context, leadID string) (domain.LeadRecord, error)
}

// Coordinator is the turn surface the handler needs.
type Coordinator interface {
	Trigger(ctx context.Context, leadID, name string) ([]engine.Message, error)
	HandleTurn(ctx context.Context, leadID, text string) ([]engine.Message, error)
	Transcript(leadID string) []engine.Message
	RecordFollowUpDelivery(leadID, text string)
}

// Handler wires the conversation endpoints.
type Handler struct {
	coord Coordinator
	queue followup.Queue
	store LeadReader
	val   *validator.Validator
}

// New creates a handler.
func New(coord Coordinator, queue followup.Queue, store LeadReader, val *validator.Validator) *Handler {
	return &Handler{coord: coord, queue: queue, store: store, val: val}
}

// RegisterRoutes mounts the lead conversation routes. turnLimiter is applied
// to the inbound message endpoint only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, turnLimiter gin.HandlerFunc) {
	rg.POST("/:id/trigger", h.Trigger)
	if turnLimiter != nil {
		rg.POST("/:id/messages", turnLimiter, h.HandleTurn)
	} else {
		rg.POST("/:id/messages", h.HandleTurn)
	}
	rg.GET("/:id/followups", h.PollFollowUp)
	rg.GET("/:id/transcript", h.Transcript)
	rg.GET("/:id", h.GetLead)
}

func (h *Handler) leadID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := h.val.Var(id, "leadid"); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return "", false
	}
	return id, true
}

// Trigger starts or resets a conversation and returns the opening messages.
func (h *Handler) Trigger(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	var req transport.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	msgs, err := h.coord.Trigger(c.Request.Context(), id, req.Name)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.FromMessages(msgs))
}

// HandleTurn applies one user message and returns the agent reply.
func (h *Handler) HandleTurn(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	var req transport.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	msgs, err := h.coord.HandleTurn(c.Request.Context(), id, req.Text)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.FromMessages(msgs))
}

// PollFollowUp removes and returns any queued follow-up for the lead.
// Delivered follow-ups are recorded in the transcript.
func (h *Handler) PollFollowUp(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	item, err := h.queue.Poll(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	if item != nil {
		h.coord.RecordFollowUpDelivery(id, item.Text)
	}

	httpkit.OK(c, transport.FromFollowUp(item))
}

// Transcript returns the in-memory conversation history for the lead.
func (h *Handler) Transcript(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	httpkit.OK(c, transport.FromMessages(h.coord.Transcript(id)))
}

// GetLead returns the durable record for the lead.
func (h *Handler) GetLead(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	rec, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.FromRecord(rec))
}
