package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"foodhub/internal/broker"
	"foodhub/internal/models"
	"foodhub/internal/util"
)

// DefaultFeedSize bounds how many notifications are kept
const DefaultFeedSize = 20

// Notification kinds
const (
	KindInfo    = "info"
	KindSuccess = "success"
	KindError   = "error"
)

// Notification is a short message for the storefront toast
type Notification struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	EventType string    `json:"eventType"`
	At        time.Time `json:"at"`
}

// Feed keeps the most recent notifications, newest last
type Feed struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

// NewFeed creates a feed holding at most limit notifications
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultFeedSize
	}
	return &Feed{limit: limit}
}

// Push appends n, dropping the oldest entry when full
func (f *Feed) Push(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, n)
	if over := len(f.items) - f.limit; over > 0 {
		f.items = append([]Notification(nil), f.items[over:]...)
	}
}

// Recent returns a copy of the feed
func (f *Feed) Recent() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification{}, f.items...)
}

// NewNotificationHandler turns store events into feed entries
func NewNotificationHandler(feed *Feed) *broker.EventHandler {
	handler := broker.NewEventHandler()

	handler.OnCartChanged(func(_ context.Context, e *models.CartChangedEvent) error {
		util.EventsConsumedTotal.WithLabelValues(e.EventType).Inc()
		feed.Push(Notification{
			Kind:      KindInfo,
			Message:   cartMessage(e.Operation),
			EventType: e.EventType,
			At:        e.Timestamp,
		})
		return nil
	})

	handler.OnOrderConfirmed(func(_ context.Context, e *models.OrderConfirmedEvent) error {
		util.EventsConsumedTotal.WithLabelValues(e.EventType).Inc()
		feed.Push(Notification{
			Kind:      KindSuccess,
			Message:   fmt.Sprintf("Order %s placed successfully!", e.OrderID),
			EventType: e.EventType,
			At:        e.Timestamp,
		})
		return nil
	})

	handler.OnOrderRejected(func(_ context.Context, e *models.OrderRejectedEvent) error {
		util.EventsConsumedTotal.WithLabelValues(e.EventType).Inc()
		feed.Push(Notification{
			Kind:      KindError,
			Message:   e.Message,
			EventType: e.EventType,
			At:        e.Timestamp,
		})
		return nil
	})

	return handler
}

func cartMessage(operation string) string {
	switch operation {
	case "add":
		return "Item added to cart!"
	case "remove":
		return "Item removed from cart!"
	case "set_quantity":
		return "Cart updated"
	case "clear":
		return "Cart cleared"
	}
	return "Cart changed"
}
