package service

import (
	"context"
	"fmt"

	"foodhub/internal/cart"
	"foodhub/internal/catalog"
	"foodhub/internal/models"
	"foodhub/internal/pricing"
	"foodhub/internal/util"

	"go.uber.org/zap"
)

// CartGuard serializes cart writes against checkout. Guard runs fn or fails
// without running it while an order is being submitted.
type CartGuard interface {
	Guard(fn func() error) error
}

// CartService resolves catalog items and drives the cart store
type CartService struct {
	catalog *catalog.Catalog
	cart    *cart.Store
	guard   CartGuard
	logger  *zap.Logger
}

// NewCartService creates a new cart service. guard is usually the checkout
// lifecycle; nil leaves writes unguarded.
func NewCartService(catalog *catalog.Catalog, cart *cart.Store, guard CartGuard) *CartService {
	return &CartService{
		catalog: catalog,
		cart:    cart,
		guard:   guard,
		logger:  util.GetLogger(),
	}
}

// MaxRequestQuantity caps the quantity a single request may carry
const MaxRequestQuantity = 999

// AddItemRequest represents a request to put a menu item in the cart
type AddItemRequest struct {
	ItemID   int64 `json:"itemId" binding:"required"`
	Quantity int   `json:"quantity" binding:"omitempty,min=1,max=999"`
}

// SetQuantityRequest sets the quantity of a cart line; zero or less removes it
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,max=999"`
}

// LineView is a cart line with its rounded line total
type LineView struct {
	models.LineItem
	LineTotal string `json:"lineTotal"`
}

// CartView is the cart as shown to the customer
type CartView struct {
	Items  []LineView            `json:"items"`
	Count  int                   `json:"count"`
	Totals models.PricingDisplay `json:"totals"`
}

// AddItem adds quantity (default 1) of a menu item to the cart
func (s *CartService) AddItem(ctx context.Context, req *AddItemRequest) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	item, err := s.catalog.Lookup(req.ItemID)
	if err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity > MaxRequestQuantity {
		return nil, fmt.Errorf("%w: at most %d per request", cart.ErrInvalidQuantity, MaxRequestQuantity)
	}

	if err := s.write(func() error { return s.cart.AddItem(ctx, item, quantity) }); err != nil {
		return nil, fmt.Errorf("failed to add item %d: %w", item.ID, err)
	}

	s.logger.Debug("Item added to cart",
		zap.Int64("item_id", item.ID),
		zap.Int("quantity", quantity))
	return s.View(), nil
}

// RemoveItem removes a line; unknown ids are ignored
func (s *CartService) RemoveItem(ctx context.Context, itemID int64) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	if err := s.write(func() error { return s.cart.RemoveItem(ctx, itemID) }); err != nil {
		return nil, fmt.Errorf("failed to remove item %d: %w", itemID, err)
	}
	return s.View(), nil
}

// SetQuantity changes the quantity of a line; unknown ids are ignored
func (s *CartService) SetQuantity(ctx context.Context, itemID int64, req *SetQuantityRequest) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.SetQuantity")
	defer span.End()

	if req.Quantity == nil {
		return nil, fmt.Errorf("%w: missing", cart.ErrInvalidQuantity)
	}
	if *req.Quantity > MaxRequestQuantity {
		return nil, fmt.Errorf("%w: at most %d per request", cart.ErrInvalidQuantity, MaxRequestQuantity)
	}
	if err := s.write(func() error { return s.cart.SetQuantity(ctx, itemID, *req.Quantity) }); err != nil {
		return nil, fmt.Errorf("failed to update item %d: %w", itemID, err)
	}
	return s.View(), nil
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Clear")
	defer span.End()

	if err := s.write(func() error { return s.cart.Clear(ctx) }); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}
	return s.View(), nil
}

func (s *CartService) write(fn func() error) error {
	if s.guard == nil {
		return fn()
	}
	return s.guard.Guard(fn)
}

// View renders the current cart
func (s *CartService) View() *CartView {
	items := s.cart.Items()
	lines := make([]LineView, 0, len(items))
	for _, item := range items {
		lines = append(lines, LineView{
			LineItem:  item,
			LineTotal: pricing.Format(item.LineTotal()),
		})
	}

	return &CartView{
		Items:  lines,
		Count:  s.cart.Count(),
		Totals: pricing.Display(s.cart.Totals()),
	}
}
