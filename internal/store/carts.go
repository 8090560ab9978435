package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CartRepo handles database operations for abandoned carts.
type CartRepo struct {
	db *sql.DB
}

// NewCartRepo creates a new cart repository.
func NewCartRepo(db *sql.DB) *CartRepo {
	return &CartRepo{db: db}
}

// Insert stores a new abandoned cart and fills in its ID and creation time.
func (r *CartRepo) Insert(ctx context.Context, cart *AbandonedCart) error {
	itemsJSON, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("marshal cart items: %w", err)
	}

	query := `
		INSERT INTO abandoned_carts (tenant_id, customer_addr, items, recovery_url, recovered, message_state)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		cart.TenantID, cart.CustomerAddr, itemsJSON, cart.RecoveryURL, cart.Recovered, cart.MessageState,
	).Scan(&cart.ID, &cart.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert abandoned cart: %w", err)
	}
	return nil
}

// FindDue returns carts still awaiting a reminder that were created at or
// before the cutoff, oldest first.
func (r *CartRepo) FindDue(ctx context.Context, cutoff time.Time) ([]AbandonedCart, error) {
	query := `
		SELECT id, tenant_id, customer_addr, items, recovery_url, recovered, message_state, created_at
		FROM abandoned_carts
		WHERE message_state = $1 AND created_at <= $2
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, MessageStatePending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query due carts: %w", err)
	}
	defer rows.Close()

	var carts []AbandonedCart
	for rows.Next() {
		cart, err := scanCart(rows)
		if err != nil {
			return nil, err
		}
		carts = append(carts, *cart)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due carts: %w", err)
	}
	return carts, nil
}

// OldestPending returns the oldest unrecovered cart for a (tenant, customer)
// pair. The oldest-first order is the deterministic tie-break when a customer
// has several concurrently-pending carts.
func (r *CartRepo) OldestPending(ctx context.Context, tenantID int64, customerAddr string) (*AbandonedCart, error) {
	query := `
		SELECT id, tenant_id, customer_addr, items, recovery_url, recovered, message_state, created_at
		FROM abandoned_carts
		WHERE tenant_id = $1 AND customer_addr = $2 AND recovered = FALSE
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, customerAddr)
	if err != nil {
		return nil, fmt.Errorf("query pending cart: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query pending cart: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanCart(rows)
}

// MarkRecovered flips a cart to recovered. The transition is one-way.
func (r *CartRepo) MarkRecovered(ctx context.Context, id int64) error {
	query := `UPDATE abandoned_carts SET recovered = TRUE WHERE id = $1 AND recovered = FALSE`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark cart recovered: %w", err)
	}
	return nil
}

// ClaimReminder transitions a cart from pending to reminder_sent. The update
// is gated on the current state so overlapping sweeps cannot transition the
// same cart twice; it reports whether this caller won the transition.
func (r *CartRepo) ClaimReminder(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE abandoned_carts SET message_state = $1 WHERE id = $2 AND message_state = $3`
	res, err := r.db.ExecContext(ctx, query, MessageStateReminderSent, id, MessageStatePending)
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim reminder rows: %w", err)
	}
	return n == 1, nil
}

func scanCart(rows *sql.Rows) (*AbandonedCart, error) {
	var cart AbandonedCart
	var itemsJSON []byte
	err := rows.Scan(&cart.ID, &cart.TenantID, &cart.CustomerAddr, &itemsJSON,
		&cart.RecoveryURL, &cart.Recovered, &cart.MessageState, &cart.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan cart: %w", err)
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &cart.Items); err != nil {
			return nil, fmt.Errorf("unmarshal cart items: %w", err)
		}
	}
	return &cart, nil
}
