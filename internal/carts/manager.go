package carts

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/cartloop/internal/messaging"
	"github.com/cartloop/internal/store"
)

// ErrValidation marks a request rejected before any state was written.
var ErrValidation = errors.New("validation failed")

// cartStore is the slice of the cart repository the manager needs.
type cartStore interface {
	Insert(ctx context.Context, cart *store.AbandonedCart) error
	OldestPending(ctx context.Context, tenantID int64, customerAddr string) (*store.AbandonedCart, error)
	MarkRecovered(ctx context.Context, id int64) error
}

// Manager drives the abandoned-cart recovery lifecycle.
type Manager struct {
	carts cartStore
}

// NewManager creates a cart lifecycle manager.
func NewManager(carts cartStore) *Manager {
	return &Manager{carts: carts}
}

// IngestCart records a cart-abandoned event. All three of phone, recovery URL
// and items must be present; otherwise the event is rejected with
// ErrValidation and nothing is written. No dedup is attempted against other
// pending carts for the same customer.
func (m *Manager) IngestCart(ctx context.Context, tenantID int64, rawPhone, recoveryURL string, items []store.CartItem) (*store.AbandonedCart, error) {
	if rawPhone == "" {
		return nil, fmt.Errorf("%w: customer phone is required", ErrValidation)
	}
	if recoveryURL == "" {
		return nil, fmt.Errorf("%w: recovery URL is required", ErrValidation)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one line item is required", ErrValidation)
	}

	cart := &store.AbandonedCart{
		TenantID:     tenantID,
		CustomerAddr: messaging.NormalizeAddress(rawPhone),
		Items:        items,
		RecoveryURL:  recoveryURL,
		Recovered:    false,
		MessageState: store.MessageStatePending,
	}
	if err := m.carts.Insert(ctx, cart); err != nil {
		return nil, fmt.Errorf("ingest cart: %w", err)
	}

	log.Info().
		Int64("tenant_id", tenantID).
		Int64("cart_id", cart.ID).
		Str("customer", cart.CustomerAddr).
		Int("items", len(items)).
		Msg("Abandoned cart recorded")
	return cart, nil
}

// MarkOrderRecovered reacts to an order-created event: the customer's oldest
// unrecovered cart, if any, is marked recovered. A customer with no pending
// cart is a silent no-op, which also makes redelivered webhooks harmless.
func (m *Manager) MarkOrderRecovered(ctx context.Context, tenantID int64, rawPhone string) error {
	if rawPhone == "" {
		return fmt.Errorf("%w: customer phone is required", ErrValidation)
	}

	customerAddr := messaging.NormalizeAddress(rawPhone)
	cart, err := m.carts.OldestPending(ctx, tenantID, customerAddr)
	if errors.Is(err, store.ErrNotFound) {
		log.Debug().
			Int64("tenant_id", tenantID).
			Str("customer", customerAddr).
			Msg("Order created with no pending cart, nothing to recover")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find pending cart: %w", err)
	}

	if err := m.carts.MarkRecovered(ctx, cart.ID); err != nil {
		return fmt.Errorf("recover cart %d: %w", cart.ID, err)
	}

	log.Info().
		Int64("tenant_id", tenantID).
		Int64("cart_id", cart.ID).
		Str("customer", customerAddr).
		Msg("Cart recovered by order webhook")
	return nil
}
