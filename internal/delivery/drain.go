package delivery

import (
	"context"

	"leadflow_backend/internal/events"
	"leadflow_backend/platform/logger"
)

// Drain forwards domain events to the notification sender. Delivery failures
// are logged and never propagate back to the conversation path.
type Drain struct {
	sender Sender
	log    *logger.Logger
}

// NewDrain creates a drain.
func NewDrain(sender Sender, log *logger.Logger) *Drain {
	return &Drain{sender: sender, log: log}
}

// RegisterHandlers subscribes the drain to the events it forwards.
func (d *Drain) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.FollowUpQueued{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.FollowUpQueued)
		if !ok {
			return nil
		}
		if err := d.sender.SendFollowUpNotice(ctx, e.LeadID, e.Text); err != nil {
			d.log.Error("follow-up notice failed", "error", err, "leadId", e.LeadID)
		}
		return nil
	}))

	bus.Subscribe(events.LeadSecured{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadSecured)
		if !ok {
			return nil
		}
		if err := d.sender.SendLeadSecuredNotice(ctx, e.LeadID, e.Age, e.Country, e.Interest); err != nil {
			d.log.Error("lead secured notice failed", "error", err, "leadId", e.LeadID)
		}
		return nil
	}))
}
