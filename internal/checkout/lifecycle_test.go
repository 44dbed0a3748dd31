package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"foodhub/internal/cart"
	"foodhub/internal/models"
	"foodhub/internal/pricing"
	"foodhub/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []*models.OrderConfirmedEvent
	rejected  []*models.OrderRejectedEvent
}

func (r *recordingPublisher) PublishOrderConfirmed(_ context.Context, event *models.OrderConfirmedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, event)
	return nil
}

func (r *recordingPublisher) PublishOrderRejected(_ context.Context, event *models.OrderRejectedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, event)
	return errors.New("broker unavailable")
}

type clearFailingCart struct {
	*cart.Store
}

func (c clearFailingCart) Clear(context.Context) error {
	return errors.New("disk full")
}

func newCart(t *testing.T) *cart.Store {
	t.Helper()
	s, err := cart.NewStore(context.Background(), store.NewMemoryStore(), pricing.NewPolicy(dec("2.99"), dec("0.08")))
	require.NoError(t, err)
	return s
}

func validCustomer() *models.CustomerDetails {
	return &models.CustomerDetails{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Phone:    "+1 (555) 123-4567",
		Address:  "12 Analytical Way",
		City:     "London",
		ZipCode:  "N1 9GU",
	}
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.UnixMilli(1718000012345)
	}
}

func TestSubmitEmptyCart(t *testing.T) {
	c := newCart(t)
	publisher := &recordingPublisher{}
	l := NewLifecycle(WithSubmitDelay(0), WithPublisher(publisher))

	confirmation, err := l.Submit(context.Background(), c, nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, confirmation)
	assert.Equal(t, models.CheckoutStateRejected, l.State())
	assert.Equal(t, 0, c.Len())

	require.Len(t, publisher.rejected, 1)
	assert.Equal(t, models.RejectReasonEmptyCart, publisher.rejected[0].Reason)

	assert.Equal(t, models.CheckoutStateIdle, l.Acknowledge())
}

func TestSubmitConfirmsAndClearsCart(t *testing.T) {
	c := newCart(t)
	ctx := context.Background()
	require.NoError(t, c.AddItem(ctx, models.MenuItem{ID: 1, Name: "Margherita Pizza", UnitPrice: dec("12.99")}, 3))

	publisher := &recordingPublisher{}
	l := NewLifecycle(WithSubmitDelay(0), WithPublisher(publisher), WithClock(fixedClock()))

	confirmation, err := l.Submit(ctx, c, validCustomer())
	require.NoError(t, err)
	require.NotNil(t, confirmation)

	assert.Equal(t, "FH00012345", confirmation.OrderID)
	assert.Equal(t, 3, confirmation.ItemCount)
	assert.True(t, confirmation.Totals.Subtotal.Equal(dec("38.97")))
	assert.Equal(t, models.CheckoutStateConfirmed, l.State())
	assert.Equal(t, 0, c.Len())

	require.Len(t, publisher.confirmed, 1)
	assert.Equal(t, "FH00012345", publisher.confirmed[0].OrderID)
	assert.Equal(t, "45.08", publisher.confirmed[0].Total)

	_, err = l.Submit(ctx, c, validCustomer())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, models.CheckoutStateRejected, l.State())
}

func TestSubmitRejectsInvalidCustomer(t *testing.T) {
	c := newCart(t)
	ctx := context.Background()
	require.NoError(t, c.AddItem(ctx, models.MenuItem{ID: 6, Name: "Cheese Burger", UnitPrice: dec("11.99")}, 1))

	l := NewLifecycle(WithSubmitDelay(0))
	details := validCustomer()
	details.Email = "not-an-email"
	details.City = "   "

	_, err := l.Submit(ctx, c, details)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{
		"email": "must be a valid email address",
		"city":  "is required",
	}, vErr.Fields)
	assert.Equal(t, models.CheckoutStateRejected, l.State())
	assert.Equal(t, 1, c.Count())
}

func TestSubmitWaitsForDelay(t *testing.T) {
	c := newCart(t)
	ctx := context.Background()
	require.NoError(t, c.AddItem(ctx, models.MenuItem{ID: 9, Name: "Fresh Orange Juice", UnitPrice: dec("3.99")}, 2))

	l := NewLifecycle(WithSubmitDelay(50 * time.Millisecond))

	started := time.Now()
	confirmation, err := l.Submit(ctx, c, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(started), 50*time.Millisecond)
	assert.NotEmpty(t, confirmation.OrderID)
	assert.Equal(t, 0, c.Len())
}

func TestSubmitCancelledWhileSubmitting(t *testing.T) {
	c := newCart(t)
	require.NoError(t, c.AddItem(context.Background(), models.MenuItem{ID: 13, Name: "Chocolate Cake", UnitPrice: dec("6.99")}, 1))

	l := NewLifecycle(WithSubmitDelay(time.Minute))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.Submit(ctx, c, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, models.CheckoutStateIdle, l.State())
	assert.Equal(t, 1, c.Count())
}

func TestSubmitWhileInProgress(t *testing.T) {
	c := newCart(t)
	require.NoError(t, c.AddItem(context.Background(), models.MenuItem{ID: 20, Name: "Caesar Salad", UnitPrice: dec("8.99")}, 1))

	l := NewLifecycle(WithSubmitDelay(200 * time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := l.Submit(context.Background(), c, nil)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return l.State() == models.CheckoutStateSubmitting
	}, time.Second, 5*time.Millisecond)

	_, err := l.Submit(context.Background(), c, nil)
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	assert.NoError(t, <-done)
	assert.Equal(t, models.CheckoutStateConfirmed, l.State())
}

func TestGuardRefusesWritesWhileSubmitting(t *testing.T) {
	c := newCart(t)
	ctx := context.Background()
	require.NoError(t, c.AddItem(ctx, models.MenuItem{ID: 1, Name: "Margherita Pizza", UnitPrice: dec("12.99")}, 1))

	l := NewLifecycle(WithSubmitDelay(200 * time.Millisecond))

	type result struct {
		confirmation *models.OrderConfirmation
		err          error
	}
	done := make(chan result, 1)
	go func() {
		confirmation, err := l.Submit(ctx, c, nil)
		done <- result{confirmation, err}
	}()

	require.Eventually(t, func() bool {
		return l.State() == models.CheckoutStateSubmitting
	}, time.Second, 5*time.Millisecond)

	ran := false
	err := l.Guard(func() error {
		ran = true
		return c.AddItem(ctx, models.MenuItem{ID: 6, Name: "Cheese Burger", UnitPrice: dec("11.99")}, 2)
	})
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	assert.False(t, ran)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.confirmation.ItemCount)
	assert.True(t, res.confirmation.Totals.Subtotal.Equal(dec("12.99")))
	assert.Equal(t, 0, c.Len())

	require.NoError(t, l.Guard(func() error {
		return c.AddItem(ctx, models.MenuItem{ID: 6, Name: "Cheese Burger", UnitPrice: dec("11.99")}, 2)
	}))
	assert.Equal(t, 2, c.Count())
}

func TestSubmitWaitsForGuardedWrite(t *testing.T) {
	c := newCart(t)
	ctx := context.Background()
	l := NewLifecycle(WithSubmitDelay(0))

	entered := make(chan struct{})
	release := make(chan struct{})
	writeDone := make(chan error, 1)
	go func() {
		writeDone <- l.Guard(func() error {
			close(entered)
			<-release
			return c.AddItem(ctx, models.MenuItem{ID: 9, Name: "Fresh Orange Juice", UnitPrice: dec("3.99")}, 3)
		})
	}()
	<-entered

	type result struct {
		confirmation *models.OrderConfirmation
		err          error
	}
	done := make(chan result, 1)
	go func() {
		confirmation, err := l.Submit(ctx, c, nil)
		done <- result{confirmation, err}
	}()

	require.Eventually(t, func() bool {
		return l.State() == models.CheckoutStateValidating
	}, time.Second, 5*time.Millisecond)
	close(release)

	require.NoError(t, <-writeDone)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 3, res.confirmation.ItemCount)
	assert.Equal(t, 0, c.Len())
}

func TestSubmitClearFailure(t *testing.T) {
	c := newCart(t)
	require.NoError(t, c.AddItem(context.Background(), models.MenuItem{ID: 17, Name: "Spaghetti Carbonara", UnitPrice: dec("11.99")}, 1))

	l := NewLifecycle(WithSubmitDelay(0))
	_, err := l.Submit(context.Background(), clearFailingCart{c}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, models.CheckoutStateIdle, l.State())
	assert.Equal(t, 1, c.Count())
}

func TestAcknowledgeFromIdle(t *testing.T) {
	l := NewLifecycle()
	assert.Equal(t, models.CheckoutStateIdle, l.Acknowledge())
}

func TestOrderIDFromTime(t *testing.T) {
	assert.Equal(t, "FH00012345", OrderIDFromTime(time.UnixMilli(1718000012345)))
	assert.Equal(t, "FH42", OrderIDFromTime(time.UnixMilli(42)))
	assert.Len(t, OrderIDFromTime(time.Now()), 10)
}
