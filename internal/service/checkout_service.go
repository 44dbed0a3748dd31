package service

import (
	"context"
	"time"

	"foodhub/internal/cart"
	"foodhub/internal/checkout"
	"foodhub/internal/models"
	"foodhub/internal/pricing"
	"foodhub/internal/util"
)

// CheckoutService submits the cart through the order lifecycle
type CheckoutService struct {
	lifecycle *checkout.Lifecycle
	cart      *cart.Store
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(lifecycle *checkout.Lifecycle, cart *cart.Store) *CheckoutService {
	return &CheckoutService{
		lifecycle: lifecycle,
		cart:      cart,
	}
}

// CheckoutResponse represents a confirmed order
type CheckoutResponse struct {
	OrderID   string                `json:"orderId"`
	CreatedAt time.Time             `json:"createdAt"`
	ItemCount int                   `json:"itemCount"`
	Totals    models.PricingDisplay `json:"totals"`
	State     string                `json:"state"`
}

// Submit checks out the cart for the given customer
func (s *CheckoutService) Submit(ctx context.Context, details *models.CustomerDetails) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Submit")
	defer span.End()

	confirmation, err := s.lifecycle.Submit(ctx, s.cart, details)
	if err != nil {
		return nil, err
	}

	return &CheckoutResponse{
		OrderID:   confirmation.OrderID,
		CreatedAt: confirmation.CreatedAt,
		ItemCount: confirmation.ItemCount,
		Totals:    pricing.Display(confirmation.Totals),
		State:     s.lifecycle.State(),
	}, nil
}

// State returns the lifecycle state
func (s *CheckoutService) State() string {
	return s.lifecycle.State()
}

// Acknowledge returns a finished checkout to idle
func (s *CheckoutService) Acknowledge() string {
	return s.lifecycle.Acknowledge()
}
