package streaming

import (
	"context"

	"callguard/internal/domain/models"
)

// AlertPublisher fans alert outcomes out to the event bus and WebSocket
// clients. It satisfies services.AlertPublisher.
type AlertPublisher struct {
	eventBus *EventBus
	wsHub    *WebSocketHub
}

// NewAlertPublisher creates a new publisher adapter. Either side may be nil.
func NewAlertPublisher(eventBus *EventBus, wsHub *WebSocketHub) *AlertPublisher {
	return &AlertPublisher{
		eventBus: eventBus,
		wsHub:    wsHub,
	}
}

// PublishCallAlert publishes an alert event for the outcome
func (p *AlertPublisher) PublishCallAlert(ctx context.Context, outcome *models.AnalysisOutcome) error {
	event := NewCallAlertEvent(outcome)

	var err error
	if p.eventBus != nil {
		err = p.eventBus.Publish(ctx, event)
	}

	if p.wsHub != nil {
		p.wsHub.BroadcastEvent(event)
	}

	return err
}
