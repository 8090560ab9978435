package api

import (
	"context"

	"github.com/cartloop/internal/store"
)

// TenantDirectory resolves tenants for auth and inbound-message routing.
type TenantDirectory interface {
	GetByAPIKeyHash(ctx context.Context, keyHash string) (*store.Tenant, error)
	GetByWhatsAppNumber(ctx context.Context, number string) (*store.Tenant, error)
}

// ConversationReader serves the conversation history endpoint.
type ConversationReader interface {
	Get(ctx context.Context, tenantID int64, customerAddr string) (*store.Conversation, error)
	ListMessages(ctx context.Context, conversationID int64) ([]store.Message, error)
}

// CartService is the cart lifecycle manager as the webhooks see it.
type CartService interface {
	IngestCart(ctx context.Context, tenantID int64, rawPhone, recoveryURL string, items []store.CartItem) (*store.AbandonedCart, error)
	MarkOrderRecovered(ctx context.Context, tenantID int64, rawPhone string) error
}

// InboundHandler is the conversation engine as the webhooks see it.
type InboundHandler interface {
	HandleInbound(ctx context.Context, tenant *store.Tenant, customerAddr, text string) error
}
