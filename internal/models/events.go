package models

import "time"

// Event types
const (
	EventTypeCartChanged    = "CART_CHANGED"
	EventTypeOrderConfirmed = "ORDER_CONFIRMED"
	EventTypeOrderRejected  = "ORDER_REJECTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CartChangedEvent published after every persisted cart mutation
type CartChangedEvent struct {
	BaseEvent
	Operation string `json:"operation"`
	ItemID    int64  `json:"item_id,omitempty"`
	ItemCount int    `json:"item_count"`
	Subtotal  string `json:"subtotal"`
}

// OrderConfirmedEvent published when checkout completes
type OrderConfirmedEvent struct {
	BaseEvent
	OrderID   string `json:"order_id"`
	Total     string `json:"total"`
	ItemCount int    `json:"item_count"`
}

// OrderRejectedEvent published when checkout validation fails
type OrderRejectedEvent struct {
	BaseEvent
	Reason  string `json:"reason"`
	Message string `json:"message"`
}
