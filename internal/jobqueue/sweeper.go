package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cartloop/internal/messaging"
	"github.com/cartloop/internal/observability"
	"github.com/cartloop/internal/store"
)

type tenantStore interface {
	GetByID(ctx context.Context, id int64) (*store.Tenant, error)
}

type sweepCartStore interface {
	FindDue(ctx context.Context, cutoff time.Time) ([]store.AbandonedCart, error)
	ClaimReminder(ctx context.Context, id int64) (bool, error)
}

// Sweeper performs one reminder sweep: find overdue pending carts and nudge
// their owners. Sweeps may overlap with each other and with order webhooks;
// the conditional ClaimReminder update keeps the state transition race-free,
// while a duplicate send across overlapping sweeps remains a tolerated
// best-effort degradation.
type Sweeper struct {
	tenants   tenantStore
	carts     sweepCartStore
	gateway   messaging.Gateway
	metrics   *observability.Metrics
	threshold time.Duration
	now       func() time.Time
}

// NewSweeper creates a sweeper with the given reminder threshold.
func NewSweeper(tenants tenantStore, carts sweepCartStore, gateway messaging.Gateway, metrics *observability.Metrics, threshold time.Duration) *Sweeper {
	return &Sweeper{
		tenants:   tenants,
		carts:     carts,
		gateway:   gateway,
		metrics:   metrics,
		threshold: threshold,
		now:       time.Now,
	}
}

// Run executes one sweep. A failure on one cart never blocks the rest; only
// a failure to query the due set fails the run itself.
func (s *Sweeper) Run(ctx context.Context) error {
	cutoff := s.now().Add(-s.threshold)
	due, err := s.carts.FindDue(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find due carts: %w", err)
	}
	if len(due) == 0 {
		log.Debug().Time("cutoff", cutoff).Msg("Reminder sweep found no due carts")
		return nil
	}

	log.Info().Int("due", len(due)).Time("cutoff", cutoff).Msg("Reminder sweep started")
	for i := range due {
		s.remind(ctx, &due[i])
	}
	return nil
}

func (s *Sweeper) remind(ctx context.Context, cart *store.AbandonedCart) {
	tenant, err := s.tenants.GetByID(ctx, cart.TenantID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn().
			Int64("cart_id", cart.ID).
			Int64("tenant_id", cart.TenantID).
			Msg("Cart references missing tenant, skipping")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("cart_id", cart.ID).Msg("Failed to load tenant for cart, skipping")
		return
	}

	body := reminderBody(cart)
	if err := s.gateway.Send(ctx, tenant.WhatsAppNumber, cart.CustomerAddr, body); err != nil {
		// Cart stays pending and the next sweep retries.
		s.metrics.DeliveryFailures.WithLabelValues("reminder").Inc()
		log.Error().Err(err).
			Int64("cart_id", cart.ID).
			Str("customer", cart.CustomerAddr).
			Msg("Reminder send failed, will retry next sweep")
		return
	}

	claimed, err := s.carts.ClaimReminder(ctx, cart.ID)
	if err != nil {
		log.Error().Err(err).Int64("cart_id", cart.ID).Msg("Failed to record reminder state")
		return
	}
	if !claimed {
		log.Debug().Int64("cart_id", cart.ID).Msg("Cart already transitioned by an overlapping sweep")
		return
	}

	s.metrics.RemindersSent.Inc()
	log.Info().
		Int64("cart_id", cart.ID).
		Int64("tenant_id", tenant.ID).
		Str("customer", cart.CustomerAddr).
		Msg("Cart reminder sent")
}

func reminderBody(cart *store.AbandonedCart) string {
	item := "your items"
	if len(cart.Items) > 0 && cart.Items[0].Name != "" {
		item = cart.Items[0].Name
	}
	return fmt.Sprintf("You left %s in your cart! Complete your purchase here: %s", item, cart.RecoveryURL)
}
