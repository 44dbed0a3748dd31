package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"foodhub/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	keys     []string
	messages [][]byte
	err      error
}

func (c *capturePublisher) PublishEvent(_ context.Context, key string, event interface{}) error {
	if c.err != nil {
		return c.err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	c.keys = append(c.keys, key)
	c.messages = append(c.messages, data)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func base(eventType string) models.BaseEvent {
	return models.BaseEvent{EventID: "evt-1", EventType: eventType, Timestamp: time.Unix(1718000000, 0).UTC()}
}

func TestPublishedEventsRouteToHandlers(t *testing.T) {
	capture := &capturePublisher{}
	publisher := NewEventPublisher(capture)
	ctx := context.Background()

	require.NoError(t, publisher.PublishCartChanged(ctx, &models.CartChangedEvent{
		BaseEvent: base(models.EventTypeCartChanged), Operation: "add", ItemID: 1, ItemCount: 3, Subtotal: "38.97",
	}))
	require.NoError(t, publisher.PublishOrderConfirmed(ctx, &models.OrderConfirmedEvent{
		BaseEvent: base(models.EventTypeOrderConfirmed), OrderID: "FH00012345", Total: "45.08", ItemCount: 3,
	}))
	require.NoError(t, publisher.PublishOrderRejected(ctx, &models.OrderRejectedEvent{
		BaseEvent: base(models.EventTypeOrderRejected), Reason: models.RejectReasonEmptyCart, Message: "Your cart is empty!",
	}))
	assert.Equal(t, []string{"cart", "cart", "cart"}, capture.keys)

	var changed *models.CartChangedEvent
	var confirmed *models.OrderConfirmedEvent
	var rejected *models.OrderRejectedEvent

	handler := NewEventHandler()
	handler.OnCartChanged(func(_ context.Context, e *models.CartChangedEvent) error {
		changed = e
		return nil
	})
	handler.OnOrderConfirmed(func(_ context.Context, e *models.OrderConfirmedEvent) error {
		confirmed = e
		return nil
	})
	handler.OnOrderRejected(func(_ context.Context, e *models.OrderRejectedEvent) error {
		rejected = e
		return nil
	})

	for _, value := range capture.messages {
		require.NoError(t, handler.HandleMessage(ctx, kafka.Message{Value: value}))
	}

	require.NotNil(t, changed)
	assert.Equal(t, 3, changed.ItemCount)
	assert.Equal(t, "38.97", changed.Subtotal)
	require.NotNil(t, confirmed)
	assert.Equal(t, "FH00012345", confirmed.OrderID)
	require.NotNil(t, rejected)
	assert.Equal(t, models.RejectReasonEmptyCart, rejected.Reason)
}

func TestHandleMessageErrors(t *testing.T) {
	handler := NewEventHandler()
	ctx := context.Background()

	err := handler.HandleMessage(ctx, kafka.Message{Value: []byte("{")})
	assert.Error(t, err)

	err = handler.HandleMessage(ctx, kafka.Message{Value: []byte(`{"event_type":"SOMETHING_ELSE"}`)})
	assert.NoError(t, err)

	err = handler.HandleMessage(ctx, kafka.Message{Value: []byte(`{"event_type":"CART_CHANGED"}`)})
	assert.NoError(t, err, "no handler registered")

	handler.OnCartChanged(func(context.Context, *models.CartChangedEvent) error {
		return errors.New("ui gone")
	})
	err = handler.HandleMessage(ctx, kafka.Message{Value: []byte(`{"event_type":"CART_CHANGED"}`)})
	assert.EqualError(t, err, "ui gone")
}

func TestPublishFailureIsReturned(t *testing.T) {
	publisher := NewEventPublisher(&capturePublisher{err: errors.New("no brokers")})

	err := publisher.PublishOrderConfirmed(context.Background(), &models.OrderConfirmedEvent{
		BaseEvent: base(models.EventTypeOrderConfirmed),
	})
	assert.EqualError(t, err, "no brokers")
}

func TestLocalProducerDispatches(t *testing.T) {
	var got *models.OrderRejectedEvent
	handler := NewEventHandler()
	handler.OnOrderRejected(func(_ context.Context, e *models.OrderRejectedEvent) error {
		got = e
		return nil
	})

	publisher := NewEventPublisher(NewLocalProducer(handler.HandleMessage))
	err := publisher.PublishOrderRejected(context.Background(), &models.OrderRejectedEvent{
		BaseEvent: base(models.EventTypeOrderRejected), Reason: models.RejectReasonValidation, Message: "email is required",
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "email is required", got.Message)

	p := NewLocalProducer(nil)
	assert.NoError(t, p.PublishEvent(context.Background(), "cart", map[string]int{"n": 1}))
	assert.Error(t, p.PublishEvent(context.Background(), "cart", make(chan int)))
	assert.NoError(t, p.Close())
}
