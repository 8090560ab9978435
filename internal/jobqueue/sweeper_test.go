package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartloop/internal/observability"
	"github.com/cartloop/internal/store"
)

type fakeTenantStore struct {
	tenants map[int64]*store.Tenant
}

func (f *fakeTenantStore) GetByID(ctx context.Context, id int64) (*store.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

type fakeSweepStore struct {
	carts      []store.AbandonedCart
	findErr    error
	claimErr   error
	claimCalls []int64
}

func (f *fakeSweepStore) FindDue(ctx context.Context, cutoff time.Time) ([]store.AbandonedCart, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var due []store.AbandonedCart
	for _, c := range f.carts {
		if !c.Recovered && c.MessageState == store.MessageStatePending && !c.CreatedAt.After(cutoff) {
			due = append(due, c)
		}
	}
	return due, nil
}

func (f *fakeSweepStore) ClaimReminder(ctx context.Context, id int64) (bool, error) {
	if f.claimErr != nil {
		return false, f.claimErr
	}
	f.claimCalls = append(f.claimCalls, id)
	for i := range f.carts {
		if f.carts[i].ID == id && f.carts[i].MessageState == store.MessageStatePending {
			f.carts[i].MessageState = store.MessageStateReminderSent
			return true, nil
		}
	}
	return false, nil
}

type sentReminder struct {
	From string
	To   string
	Body string
}

type fakeReminderGateway struct {
	sends  []sentReminder
	errFor map[string]error
}

func (f *fakeReminderGateway) Send(ctx context.Context, from, to, body string) error {
	if err := f.errFor[to]; err != nil {
		return err
	}
	f.sends = append(f.sends, sentReminder{From: from, To: to, Body: body})
	return nil
}

func sweepMetrics() *observability.Metrics {
	return observability.NewMetrics("cartloop_test", prometheus.NewRegistry())
}

func newTestSweeper(tenants *fakeTenantStore, carts *fakeSweepStore, gateway *fakeReminderGateway, metrics *observability.Metrics, now time.Time) *Sweeper {
	s := NewSweeper(tenants, carts, gateway, metrics, time.Hour)
	s.now = func() time.Time { return now }
	return s
}

func sweepTenant() *store.Tenant {
	return &store.Tenant{ID: 7, Name: "Zapatos Online", WhatsAppNumber: "whatsapp:+34911111111"}
}

func pendingCart(id int64, createdAt time.Time) store.AbandonedCart {
	return store.AbandonedCart{
		ID:           id,
		TenantID:     7,
		CustomerAddr: "whatsapp:+34600111222",
		Items:        []store.CartItem{{Name: "Zapatillas Runner", UnitPrice: 59.90, Quantity: 1}},
		RecoveryURL:  "https://shop.test/cart/abc",
		MessageState: store.MessageStatePending,
		CreatedAt:    createdAt,
	}
}

func TestSweeperSendsReminderOnce(t *testing.T) {
	t0 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	tenants := &fakeTenantStore{tenants: map[int64]*store.Tenant{7: sweepTenant()}}
	carts := &fakeSweepStore{carts: []store.AbandonedCart{pendingCart(1, t0)}}
	gateway := &fakeReminderGateway{}
	metrics := sweepMetrics()

	// First sweep before the threshold: nothing is due yet.
	early := newTestSweeper(tenants, carts, gateway, metrics, t0.Add(30*time.Minute))
	require.NoError(t, early.Run(context.Background()))
	assert.Empty(t, gateway.sends)

	// Past the threshold the reminder goes out and the cart transitions.
	due := newTestSweeper(tenants, carts, gateway, metrics, t0.Add(61*time.Minute))
	require.NoError(t, due.Run(context.Background()))
	require.Len(t, gateway.sends, 1)
	assert.Equal(t, "whatsapp:+34600111222", gateway.sends[0].To)
	assert.Contains(t, gateway.sends[0].Body, "Zapatillas Runner")
	assert.Contains(t, gateway.sends[0].Body, "https://shop.test/cart/abc")
	assert.Equal(t, store.MessageStateReminderSent, carts.carts[0].MessageState)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RemindersSent))

	// A later sweep finds nothing: reminder_sent carts are never re-notified.
	again := newTestSweeper(tenants, carts, gateway, metrics, t0.Add(3*time.Hour))
	require.NoError(t, again.Run(context.Background()))
	assert.Len(t, gateway.sends, 1)
}

func TestSweeperSkipsMissingTenant(t *testing.T) {
	t0 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	orphan := pendingCart(1, t0)
	orphan.TenantID = 99
	healthy := pendingCart(2, t0)

	tenants := &fakeTenantStore{tenants: map[int64]*store.Tenant{7: sweepTenant()}}
	carts := &fakeSweepStore{carts: []store.AbandonedCart{orphan, healthy}}
	gateway := &fakeReminderGateway{}

	s := newTestSweeper(tenants, carts, gateway, sweepMetrics(), t0.Add(2*time.Hour))
	require.NoError(t, s.Run(context.Background()))

	// The orphaned cart is skipped without blocking the rest of the sweep.
	require.Len(t, gateway.sends, 1)
	assert.Equal(t, store.MessageStatePending, carts.carts[0].MessageState)
	assert.Equal(t, store.MessageStateReminderSent, carts.carts[1].MessageState)
}

func TestSweeperSendFailureLeavesCartPending(t *testing.T) {
	t0 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	tenants := &fakeTenantStore{tenants: map[int64]*store.Tenant{7: sweepTenant()}}
	carts := &fakeSweepStore{carts: []store.AbandonedCart{pendingCart(1, t0)}}
	gateway := &fakeReminderGateway{errFor: map[string]error{"whatsapp:+34600111222": errors.New("twilio: 503")}}
	metrics := sweepMetrics()

	s := newTestSweeper(tenants, carts, gateway, metrics, t0.Add(2*time.Hour))
	require.NoError(t, s.Run(context.Background()))

	assert.Empty(t, carts.claimCalls, "a failed send must not claim the cart")
	assert.Equal(t, store.MessageStatePending, carts.carts[0].MessageState)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DeliveryFailures.WithLabelValues("reminder")))

	// The next sweep retries once delivery recovers.
	gateway.errFor = nil
	require.NoError(t, s.Run(context.Background()))
	require.Len(t, gateway.sends, 1)
	assert.Equal(t, store.MessageStateReminderSent, carts.carts[0].MessageState)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RemindersSent))
}

func TestSweeperLostClaimDoesNotCount(t *testing.T) {
	t0 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	cart := pendingCart(1, t0)
	tenants := &fakeTenantStore{tenants: map[int64]*store.Tenant{7: sweepTenant()}}
	carts := &fakeSweepStore{carts: []store.AbandonedCart{cart}}
	gateway := &fakeReminderGateway{}
	metrics := sweepMetrics()

	// Simulate an overlapping sweep claiming the cart between FindDue and
	// ClaimReminder by transitioning the stored copy up front while the due
	// snapshot still lists it as pending.
	s := newTestSweeper(tenants, carts, gateway, metrics, t0.Add(2*time.Hour))
	due, err := carts.FindDue(context.Background(), t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	carts.carts[0].MessageState = store.MessageStateReminderSent

	s.remind(context.Background(), &due[0])

	assert.Len(t, gateway.sends, 1, "the duplicate send is tolerated")
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RemindersSent))
}

func TestSweeperFindDueFailureFailsRun(t *testing.T) {
	carts := &fakeSweepStore{findErr: errors.New("db down")}
	s := newTestSweeper(&fakeTenantStore{}, carts, &fakeReminderGateway{}, sweepMetrics(), time.Now())
	assert.Error(t, s.Run(context.Background()))
}

func TestReminderBodyFallsBackWithoutItemName(t *testing.T) {
	cart := pendingCart(1, time.Now())
	cart.Items = nil
	body := reminderBody(&cart)
	assert.Contains(t, body, "your items")
	assert.Contains(t, body, cart.RecoveryURL)
}
