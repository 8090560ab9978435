package store

import (
	"database/sql"
	"time"
)

// MessageState is the reminder lifecycle state of an abandoned cart.
type MessageState string

const (
	MessageStatePending      MessageState = "pending"
	MessageStateReminderSent MessageState = "reminder_sent"
)

// Author identifies who wrote a conversation message.
type Author string

const (
	AuthorCustomer Author = "customer"
	AuthorBot      Author = "bot"
)

// Tenant represents a merchant account. Tenants are provisioned out-of-band
// and are read-only to this service.
type Tenant struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	WhatsAppNumber string         `json:"whatsapp_number"`
	AlertNumber    sql.NullString `json:"alert_number"`
	FAQCorpus      sql.NullString `json:"-"`
	Plan           string         `json:"plan"`
	CreatedAt      time.Time      `json:"created_at"`
}

// CartItem is one line item in an abandoned cart. Stored as JSONB.
type CartItem struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// AbandonedCart is a cart a customer walked away from. CustomerAddr is the
// canonical channel address (see messaging.NormalizeAddress).
type AbandonedCart struct {
	ID           int64        `json:"id"`
	TenantID     int64        `json:"tenant_id"`
	CustomerAddr string       `json:"customer_addr"`
	Items        []CartItem   `json:"items"`
	RecoveryURL  string       `json:"recovery_url"`
	Recovered    bool         `json:"recovered"`
	MessageState MessageState `json:"message_state"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Conversation is the durable chat thread for one (tenant, customer) pair.
type Conversation struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"tenant_id"`
	CustomerAddr string    `json:"customer_addr"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message is one entry in a conversation's append-only history.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Author         Author    `json:"author"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}
