package streaming

import (
	"context"
	"strconv"
	"sync"

	"callguard/pkg/logger"
)

// EventBus distributes call alert events to subscribers
type EventBus struct {
	nats   *NATSPublisher
	logger *logger.Logger

	mu          sync.RWMutex
	subscribers map[string]chan *CallAlertEvent
	nextID      int
}

// NewEventBus creates a new event bus. nats may be nil for local-only
// delivery.
func NewEventBus(nats *NATSPublisher, log *logger.Logger) *EventBus {
	return &EventBus{
		nats:        nats,
		logger:      log.WithComponent("event-bus"),
		subscribers: make(map[string]chan *CallAlertEvent),
	}
}

// Publish forwards an alert to NATS when connected and to local
// subscribers. A NATS failure is returned after local delivery.
func (eb *EventBus) Publish(ctx context.Context, event *CallAlertEvent) error {
	var natsErr error
	if eb.nats.IsConnected() {
		if natsErr = eb.nats.PublishCallAlert(ctx, event); natsErr != nil {
			eb.logger.Warn().Err(natsErr).Msg("failed to publish to NATS, using local broadcast only")
		}
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for id, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			eb.logger.Debug().Str("subscriber", id).Msg("subscriber channel full, dropping event")
		}
	}

	return natsErr
}

// Subscribe creates a new local subscription. The returned function
// removes it and closes the channel.
func (eb *EventBus) Subscribe(ctx context.Context, sub *Subscription) (<-chan *CallAlertEvent, func()) {
	eb.mu.Lock()
	eb.nextID++
	id := strconv.Itoa(eb.nextID)
	ch := make(chan *CallAlertEvent, 100)
	eb.subscribers[id] = ch
	eb.mu.Unlock()

	eb.logger.Debug().Str("subscriber_id", id).Msg("new subscriber")

	unsubscribe := func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		if _, ok := eb.subscribers[id]; ok {
			close(ch)
			delete(eb.subscribers, id)
			eb.logger.Debug().Str("subscriber_id", id).Msg("subscriber removed")
		}
	}

	if sub == nil {
		return ch, unsubscribe
	}

	filtered := make(chan *CallAlertEvent, 100)
	go func() {
		defer close(filtered)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				if sub.Matches(event) {
					select {
					case filtered <- event:
					default:
					}
				}
			case <-ctx.Done():
				unsubscribe()
				return
			}
		}
	}()

	return filtered, unsubscribe
}

// SubscriberCount returns the number of active subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// Close closes the event bus
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for id, ch := range eb.subscribers {
		close(ch)
		delete(eb.subscribers, id)
	}

	if eb.nats != nil {
		eb.nats.Close()
	}
}
