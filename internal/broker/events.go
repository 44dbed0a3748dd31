package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"foodhub/internal/models"
	"foodhub/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Events of one cart share a partition key so consumers see them in order
const cartEventKey = "cart"

// EventPublisher handles publishing domain events
type EventPublisher struct {
	publisher Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(publisher Publisher) *EventPublisher {
	return &EventPublisher{publisher: publisher}
}

func (ep *EventPublisher) publish(ctx context.Context, eventType string, event interface{}) error {
	if err := ep.publisher.PublishEvent(ctx, cartEventKey, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(eventType).Inc()
		return err
	}
	return nil
}

// PublishCartChanged publishes CartChanged event
func (ep *EventPublisher) PublishCartChanged(ctx context.Context, event *models.CartChangedEvent) error {
	return ep.publish(ctx, event.EventType, event)
}

// PublishOrderConfirmed publishes OrderConfirmed event
func (ep *EventPublisher) PublishOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error {
	return ep.publish(ctx, event.EventType, event)
}

// PublishOrderRejected publishes OrderRejected event
func (ep *EventPublisher) PublishOrderRejected(ctx context.Context, event *models.OrderRejectedEvent) error {
	return ep.publish(ctx, event.EventType, event)
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	onCartChanged    func(context.Context, *models.CartChangedEvent) error
	onOrderConfirmed func(context.Context, *models.OrderConfirmedEvent) error
	onOrderRejected  func(context.Context, *models.OrderRejectedEvent) error
	logger           *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnCartChanged registers a handler for CartChanged events
func (eh *EventHandler) OnCartChanged(handler func(context.Context, *models.CartChangedEvent) error) {
	eh.onCartChanged = handler
}

// OnOrderConfirmed registers a handler for OrderConfirmed events
func (eh *EventHandler) OnOrderConfirmed(handler func(context.Context, *models.OrderConfirmedEvent) error) {
	eh.onOrderConfirmed = handler
}

// OnOrderRejected registers a handler for OrderRejected events
func (eh *EventHandler) OnOrderRejected(handler func(context.Context, *models.OrderRejectedEvent) error) {
	eh.onOrderRejected = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeCartChanged:
		if eh.onCartChanged != nil {
			var event models.CartChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CartChanged event: %w", err)
			}
			return eh.onCartChanged(ctx, &event)
		}

	case models.EventTypeOrderConfirmed:
		if eh.onOrderConfirmed != nil {
			var event models.OrderConfirmedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderConfirmed event: %w", err)
			}
			return eh.onOrderConfirmed(ctx, &event)
		}

	case models.EventTypeOrderRejected:
		if eh.onOrderRejected != nil {
			var event models.OrderRejectedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderRejected event: %w", err)
			}
			return eh.onOrderRejected(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
