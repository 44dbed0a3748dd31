// Package cart owns the shopping cart: its line items, their invariants and
// the write-through snapshot kept in the key-value store.
package cart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"foodhub/internal/models"
	"foodhub/internal/pricing"
	"foodhub/internal/store"
	"foodhub/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultStorageKey is the key the cart snapshot is stored under
const DefaultStorageKey = "foodhub_cart"

// Cart operations, used in events and metrics
const (
	OpAdd         = "add"
	OpRemove      = "remove"
	OpSetQuantity = "set_quantity"
	OpClear       = "clear"
)

var (
	// ErrInvalidQuantity is returned when AddItem gets a quantity below one or
	// a change would push the item count past math.MaxInt
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	// ErrInvalidPrice is returned when AddItem gets a negative unit price
	ErrInvalidPrice = errors.New("unit price must not be negative")
)

// ChangeNotifier receives a signal after every persisted mutation
type ChangeNotifier interface {
	PublishCartChanged(ctx context.Context, event *models.CartChangedEvent) error
}

// Store holds the single cart of this process
type Store struct {
	mu       sync.RWMutex
	items    []models.LineItem
	kv       store.KeyValueStore
	key      string
	policy   pricing.Policy
	notifier ChangeNotifier
	logger   *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithStorageKey overrides DefaultStorageKey
func WithStorageKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// WithNotifier sets the receiver of cart changed signals
func WithNotifier(n ChangeNotifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// NewStore creates the cart store and restores the persisted snapshot. A
// snapshot that cannot be decoded is logged and replaced by an empty cart; a
// store that cannot be read at all is an error.
func NewStore(ctx context.Context, kv store.KeyValueStore, policy pricing.Policy, opts ...Option) (*Store, error) {
	s := &Store{
		kv:     kv,
		key:    DefaultStorageKey,
		policy: policy,
		logger: util.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := kv.Get(ctx, s.key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	items, err := DecodeSnapshot(data)
	if err != nil {
		s.logger.Warn("Discarding unreadable cart snapshot",
			zap.String("key", s.key),
			zap.Error(err))
		return s, nil
	}

	s.items = items
	util.CartItemsInCart.Set(float64(countOf(items)))
	s.logger.Info("Cart restored",
		zap.String("key", s.key),
		zap.Int("lines", len(items)))
	return s, nil
}

// AddItem merges quantity into the line for item, appending a new line when
// the cart has none.
func (s *Store) AddItem(ctx context.Context, item models.MenuItem, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	if item.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: item %d", ErrInvalidPrice, item.ID)
	}

	return s.mutate(ctx, OpAdd, item.ID, func(items []models.LineItem) ([]models.LineItem, bool, error) {
		if countOf(items) > math.MaxInt-quantity {
			return nil, false, fmt.Errorf("%w: adding %d overflows the cart", ErrInvalidQuantity, quantity)
		}
		if i := indexOf(items, item.ID); i >= 0 {
			items[i].Quantity += quantity
			return items, true, nil
		}
		return append(items, models.NewLineItem(item, quantity)), true, nil
	})
}

// RemoveItem drops the line for itemID. Unknown ids are ignored.
func (s *Store) RemoveItem(ctx context.Context, itemID int64) error {
	return s.mutate(ctx, OpRemove, itemID, func(items []models.LineItem) ([]models.LineItem, bool, error) {
		i := indexOf(items, itemID)
		if i < 0 {
			return items, false, nil
		}
		return append(items[:i], items[i+1:]...), true, nil
	})
}

// SetQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line; unknown ids are ignored.
func (s *Store) SetQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, itemID)
	}

	return s.mutate(ctx, OpSetQuantity, itemID, func(items []models.LineItem) ([]models.LineItem, bool, error) {
		i := indexOf(items, itemID)
		if i < 0 {
			return items, false, nil
		}
		if countOf(items)-items[i].Quantity > math.MaxInt-quantity {
			return nil, false, fmt.Errorf("%w: %d overflows the cart", ErrInvalidQuantity, quantity)
		}
		items[i].Quantity = quantity
		return items, true, nil
	})
}

// Clear empties the cart
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, OpClear, 0, func([]models.LineItem) ([]models.LineItem, bool, error) {
		return nil, true, nil
	})
}

// Items returns a copy of the lines in insertion order
func (s *Store) Items() []models.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.LineItem(nil), s.items...)
}

// Get returns the line for itemID
func (s *Store) Get(itemID int64) (models.LineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.items, itemID); i >= 0 {
		return s.items[i], true
	}
	return models.LineItem{}, false
}

// Len returns the number of lines
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Count returns the sum of quantities
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countOf(s.items)
}

// Subtotal returns the exact sum of unitPrice*quantity
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pricing.Subtotal(s.items)
}

// Totals applies the pricing policy to the current subtotal
func (s *Store) Totals() models.PricingBreakdown {
	return s.policy.Apply(s.Subtotal())
}

// mutate applies fn to a copy of the lines and persists the result. The new
// lines only become visible once the snapshot is written; when fn fails or
// reports no change nothing is written and nobody is notified.
func (s *Store) mutate(ctx context.Context, op string, itemID int64, fn func([]models.LineItem) ([]models.LineItem, bool, error)) error {
	ctx, span := util.StartSpan(ctx, "CartStore."+op)
	defer span.End()

	s.mu.Lock()
	next, changed, err := fn(append([]models.LineItem(nil), s.items...))
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}

	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}

	s.items = next
	count := countOf(next)
	subtotal := pricing.Subtotal(next)
	s.mu.Unlock()

	util.CartMutationsTotal.WithLabelValues(op).Inc()
	util.CartItemsInCart.Set(float64(count))

	s.notify(ctx, &models.CartChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCartChanged,
			Timestamp: time.Now(),
		},
		Operation: op,
		ItemID:    itemID,
		ItemCount: count,
		Subtotal:  subtotal.String(),
	})
	return nil
}

func (s *Store) persist(ctx context.Context, items []models.LineItem) error {
	start := time.Now()
	defer func() {
		util.CartPersistLatency.Observe(time.Since(start).Seconds())
	}()

	data, err := EncodeSnapshot(items)
	if err != nil {
		util.CartPersistFailuresTotal.Inc()
		return err
	}

	if err := s.kv.Set(ctx, s.key, data); err != nil {
		util.CartPersistFailuresTotal.Inc()
		s.logger.Error("Failed to persist cart",
			zap.String("key", s.key),
			zap.Error(err))
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	return nil
}

func (s *Store) notify(ctx context.Context, event *models.CartChangedEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishCartChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish CartChanged event", zap.Error(err))
	}
}

func indexOf(items []models.LineItem, itemID int64) int {
	for i := range items {
		if items[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

func countOf(items []models.LineItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}
