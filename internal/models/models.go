package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem represents a dish in the catalog
type MenuItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	ImageRef    string          `json:"imageRef"`
	Description string          `json:"description"`
	Rating      float64         `json:"rating"`
	Featured    bool            `json:"featured"`
}

// LineItem is one catalog item plus the quantity selected in the cart
type LineItem struct {
	ItemID    int64           `json:"itemId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	ImageRef  string          `json:"imageRef"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns unitPrice * quantity without rounding
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// NewLineItem builds a line for a catalog item
func NewLineItem(item MenuItem, quantity int) LineItem {
	return LineItem{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.UnitPrice,
		ImageRef:  item.ImageRef,
		Quantity:  quantity,
	}
}

// PricingBreakdown holds derived cart totals. Never persisted.
type PricingBreakdown struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"total"`
}

// PricingDisplay is a PricingBreakdown rounded for presentation
type PricingDisplay struct {
	Subtotal    string `json:"subtotal"`
	Tax         string `json:"tax"`
	DeliveryFee string `json:"deliveryFee"`
	Total       string `json:"total"`
}

// OrderConfirmation is produced by a successful checkout
type OrderConfirmation struct {
	OrderID   string           `json:"orderId"`
	CreatedAt time.Time        `json:"createdAt"`
	Totals    PricingBreakdown `json:"totals"`
	ItemCount int              `json:"itemCount"`
}

// CustomerDetails is the delivery information collected at checkout
type CustomerDetails struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,phone"`
	Address  string `json:"address" validate:"required"`
	City     string `json:"city" validate:"required"`
	ZipCode  string `json:"zipCode" validate:"required"`
}

// Checkout lifecycle states
const (
	CheckoutStateIdle       = "IDLE"
	CheckoutStateValidating = "VALIDATING"
	CheckoutStateSubmitting = "SUBMITTING"
	CheckoutStateConfirmed  = "CONFIRMED"
	CheckoutStateRejected   = "REJECTED"
)

// Rejection reasons
const (
	RejectReasonEmptyCart  = "empty_cart"
	RejectReasonValidation = "validation_failed"
)
