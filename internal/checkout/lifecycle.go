// Package checkout runs the order lifecycle: a cart is validated, submitted,
// and either confirmed (the cart is then cleared) or rejected.
//
//	Idle -> Validating -> Submitting -> Confirmed
//	Idle -> Validating -> Rejected
//
// Confirmed and Rejected return to Idle on Acknowledge or on the next Submit.
// Cart writes made through Guard are refused while a checkout is in progress,
// so the confirmed order is exactly what gets cleared.
package checkout

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"foodhub/internal/models"
	"foodhub/internal/pricing"
	"foodhub/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSubmitDelay stands in for the latency of a real order backend
const DefaultSubmitDelay = 2 * time.Second

// OrderIDPrefix starts every order number
const OrderIDPrefix = "FH"

// Cart is the part of the cart store checkout needs
type Cart interface {
	Len() int
	Count() int
	Totals() models.PricingBreakdown
	Clear(ctx context.Context) error
}

// EventPublisher receives checkout outcomes
type EventPublisher interface {
	PublishOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error
	PublishOrderRejected(ctx context.Context, event *models.OrderRejectedEvent) error
}

// Lifecycle drives checkout for one cart
type Lifecycle struct {
	mu         sync.Mutex
	writes     sync.RWMutex
	state      string
	delay      time.Duration
	validate   *validator.Validate
	publisher  EventPublisher
	now        func() time.Time
	newOrderID func(time.Time) string
	logger     *zap.Logger
}

// Option configures a Lifecycle
type Option func(*Lifecycle)

// WithSubmitDelay sets the simulated submission latency; zero disables it
func WithSubmitDelay(d time.Duration) Option {
	return func(l *Lifecycle) {
		l.delay = d
	}
}

// WithPublisher sets the receiver of confirmed/rejected events
func WithPublisher(p EventPublisher) Option {
	return func(l *Lifecycle) {
		l.publisher = p
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) {
		l.now = now
	}
}

// WithOrderIDGenerator overrides OrderIDFromTime
func WithOrderIDGenerator(gen func(time.Time) string) Option {
	return func(l *Lifecycle) {
		l.newOrderID = gen
	}
}

// NewLifecycle creates a lifecycle in the Idle state
func NewLifecycle(opts ...Option) *Lifecycle {
	l := &Lifecycle{
		state:      models.CheckoutStateIdle,
		delay:      DefaultSubmitDelay,
		validate:   newValidator(),
		now:        time.Now,
		newOrderID: OrderIDFromTime,
		logger:     util.GetLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OrderIDFromTime returns "FH" followed by the last eight digits of the Unix
// millisecond timestamp. Short and likely unique, not guaranteed unique.
func OrderIDFromTime(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return OrderIDPrefix + ms
}

// State returns the current lifecycle state
func (l *Lifecycle) State() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Acknowledge returns a finished checkout (Confirmed or Rejected) to Idle
func (l *Lifecycle) Acknowledge() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == models.CheckoutStateConfirmed || l.state == models.CheckoutStateRejected {
		l.state = models.CheckoutStateIdle
	}
	return l.state
}

// Guard runs fn unless a checkout is validating or submitting, in which case
// it returns ErrCheckoutInProgress without running fn. A checkout that starts
// while fn runs waits for fn before reading the cart.
func (l *Lifecycle) Guard(fn func() error) error {
	l.mu.Lock()
	if l.inProgress() {
		l.mu.Unlock()
		return ErrCheckoutInProgress
	}
	l.writes.RLock()
	l.mu.Unlock()

	defer l.writes.RUnlock()
	return fn()
}

// Submit checks out cart. A nil details skips customer validation.
//
// An empty cart fails with ErrEmptyCart and invalid details with a
// *ValidationError; both leave the cart untouched. Cancelling ctx while the
// order is submitting returns ctx's error, leaves the cart untouched and puts
// the lifecycle back to Idle. On success the cart is cleared and the
// confirmation carries the totals as they were before clearing.
func (l *Lifecycle) Submit(ctx context.Context, cart Cart, details *models.CustomerDetails) (*models.OrderConfirmation, error) {
	ctx, span := util.StartSpan(ctx, "Checkout.Submit")
	defer span.End()

	if err := l.begin(); err != nil {
		return nil, err
	}
	util.CheckoutSubmittedTotal.Inc()
	start := l.now()

	if cart.Len() == 0 {
		l.reject(ctx, models.RejectReasonEmptyCart, "Your cart is empty!")
		return nil, ErrEmptyCart
	}

	if details != nil {
		if _, err := ValidateCustomer(l.validate, *details); err != nil {
			l.reject(ctx, models.RejectReasonValidation, err.Error())
			return nil, err
		}
	}

	totals := cart.Totals()
	itemCount := cart.Count()
	l.setState(models.CheckoutStateSubmitting)

	if err := l.wait(ctx); err != nil {
		l.setState(models.CheckoutStateIdle)
		l.logger.Warn("Checkout cancelled while submitting", zap.Error(err))
		return nil, err
	}

	createdAt := l.now()
	confirmation := &models.OrderConfirmation{
		OrderID:   l.newOrderID(createdAt),
		CreatedAt: createdAt,
		Totals:    totals,
		ItemCount: itemCount,
	}

	if err := cart.Clear(ctx); err != nil {
		l.setState(models.CheckoutStateIdle)
		return nil, fmt.Errorf("failed to clear cart after checkout: %w", err)
	}

	l.setState(models.CheckoutStateConfirmed)
	util.OrdersConfirmedTotal.Inc()
	util.CheckoutLatency.Observe(createdAt.Sub(start).Seconds())

	l.logger.Info("Order confirmed",
		zap.String("order_id", confirmation.OrderID),
		zap.String("total", pricing.Format(totals.Total)),
		zap.Int("item_count", itemCount))

	if l.publisher != nil {
		event := &models.OrderConfirmedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderConfirmed,
				Timestamp: createdAt,
			},
			OrderID:   confirmation.OrderID,
			Total:     pricing.Format(totals.Total),
			ItemCount: itemCount,
		}
		if err := l.publisher.PublishOrderConfirmed(ctx, event); err != nil {
			l.logger.Error("Failed to publish OrderConfirmed event", zap.Error(err))
		}
	}

	return confirmation, nil
}

func (l *Lifecycle) begin() error {
	l.mu.Lock()
	if l.inProgress() {
		l.mu.Unlock()
		return ErrCheckoutInProgress
	}
	l.state = models.CheckoutStateValidating
	l.mu.Unlock()

	// wait for guarded writes that started before Validating
	l.writes.Lock()
	l.writes.Unlock()
	return nil
}

func (l *Lifecycle) inProgress() bool {
	return l.state == models.CheckoutStateValidating || l.state == models.CheckoutStateSubmitting
}

func (l *Lifecycle) setState(state string) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}

func (l *Lifecycle) wait(ctx context.Context) error {
	if l.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(l.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Lifecycle) reject(ctx context.Context, reason, message string) {
	l.setState(models.CheckoutStateRejected)
	util.OrdersRejectedTotal.WithLabelValues(reason).Inc()

	l.logger.Info("Checkout rejected",
		zap.String("reason", reason),
		zap.String("message", message))

	if l.publisher == nil {
		return
	}
	event := &models.OrderRejectedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderRejected,
			Timestamp: l.now(),
		},
		Reason:  reason,
		Message: message,
	}
	if err := l.publisher.PublishOrderRejected(ctx, event); err != nil {
		l.logger.Error("Failed to publish OrderRejected event", zap.Error(err))
	}
}
