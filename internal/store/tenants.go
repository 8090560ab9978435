package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TenantRepo handles database operations for tenants.
type TenantRepo struct {
	db *sql.DB
}

// NewTenantRepo creates a new tenant repository.
func NewTenantRepo(db *sql.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

const tenantColumns = `id, name, whatsapp_number, alert_number, faq_corpus, plan, created_at`

func scanTenant(row *sql.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.WhatsAppNumber, &t.AlertNumber, &t.FAQCorpus, &t.Plan, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	return &t, nil
}

// GetByID loads a tenant by primary key.
func (r *TenantRepo) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.db.QueryRowContext(ctx, query, id))
}

// GetByAPIKeyHash resolves a tenant from the SHA-256 hash of its API key.
func (r *TenantRepo) GetByAPIKeyHash(ctx context.Context, keyHash string) (*Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE api_key_hash = $1`
	return scanTenant(r.db.QueryRowContext(ctx, query, keyHash))
}

// GetByWhatsAppNumber resolves a tenant from its outbound channel identity,
// the To address of inbound carrier webhooks.
func (r *TenantRepo) GetByWhatsAppNumber(ctx context.Context, number string) (*Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE whatsapp_number = $1`
	return scanTenant(r.db.QueryRowContext(ctx, query, number))
}
