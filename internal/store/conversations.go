package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ConversationRepo handles database operations for conversations and their
// append-only message history.
type ConversationRepo struct {
	db *sql.DB
}

// NewConversationRepo creates a new conversation repository.
func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Ensure returns the conversation for a (tenant, customer) pair, creating it
// lazily on first contact. The last-update timestamp is touched either way.
func (r *ConversationRepo) Ensure(ctx context.Context, tenantID int64, customerAddr string) (*Conversation, error) {
	query := `
		INSERT INTO conversations (tenant_id, customer_addr, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tenant_id, customer_addr)
		DO UPDATE SET updated_at = NOW()
		RETURNING id, tenant_id, customer_addr, updated_at
	`
	var conv Conversation
	err := r.db.QueryRowContext(ctx, query, tenantID, customerAddr).Scan(
		&conv.ID, &conv.TenantID, &conv.CustomerAddr, &conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}
	return &conv, nil
}

// Get loads an existing conversation without creating one.
func (r *ConversationRepo) Get(ctx context.Context, tenantID int64, customerAddr string) (*Conversation, error) {
	query := `
		SELECT id, tenant_id, customer_addr, updated_at
		FROM conversations
		WHERE tenant_id = $1 AND customer_addr = $2
	`
	var conv Conversation
	err := r.db.QueryRowContext(ctx, query, tenantID, customerAddr).Scan(
		&conv.ID, &conv.TenantID, &conv.CustomerAddr, &conv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

// AppendMessage appends one message to a conversation's history.
func (r *ConversationRepo) AppendMessage(ctx context.Context, conversationID int64, author Author, body string) (*Message, error) {
	query := `
		INSERT INTO messages (conversation_id, author, body)
		VALUES ($1, $2, $3)
		RETURNING id, conversation_id, author, body, created_at
	`
	var msg Message
	err := r.db.QueryRowContext(ctx, query, conversationID, author, body).Scan(
		&msg.ID, &msg.ConversationID, &msg.Author, &msg.Body, &msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns a conversation's messages in append order.
func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	query := `
		SELECT id, conversation_id, author, body, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Author, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
