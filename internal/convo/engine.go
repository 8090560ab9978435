package convo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cartloop/internal/ai"
	"github.com/cartloop/internal/messaging"
	"github.com/cartloop/internal/observability"
	"github.com/cartloop/internal/store"
)

// Fixed customer-facing replies for the two escalation paths.
const (
	noFAQReply   = "Thanks for your message! One of our agents will review it and get back to you shortly."
	handoffReply = "Sorry, I don't have an answer for that right away. One of our agents will follow up with you shortly."
)

// conversationStore is the slice of the conversation repository the engine needs.
type conversationStore interface {
	Ensure(ctx context.Context, tenantID int64, customerAddr string) (*store.Conversation, error)
	AppendMessage(ctx context.Context, conversationID int64, author store.Author, body string) (*store.Message, error)
}

// Engine decides answer-vs-escalate for inbound customer messages and owns
// the durable conversation history.
type Engine struct {
	convs        conversationStore
	provider     ai.Provider
	gateway      messaging.Gateway
	metrics      *observability.Metrics
	dashboardURL string
}

// NewEngine creates a conversation engine.
func NewEngine(convs conversationStore, provider ai.Provider, gateway messaging.Gateway, metrics *observability.Metrics, dashboardURL string) *Engine {
	return &Engine{
		convs:        convs,
		provider:     provider,
		gateway:      gateway,
		metrics:      metrics,
		dashboardURL: strings.TrimSuffix(dashboardURL, "/"),
	}
}

// HandleInbound processes one customer message end to end. The customer
// message is persisted before any decision logic so the audit trail is
// complete even if everything downstream fails. A failed reply send is logged
// and does not retract the already-persisted history.
func (e *Engine) HandleInbound(ctx context.Context, tenant *store.Tenant, customerAddr, text string) error {
	e.metrics.InboundMessages.Inc()

	conv, err := e.convs.Ensure(ctx, tenant.ID, customerAddr)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if _, err := e.convs.AppendMessage(ctx, conv.ID, store.AuthorCustomer, text); err != nil {
		return fmt.Errorf("persist customer message: %w", err)
	}

	var outgoing string
	faq := strings.TrimSpace(tenant.FAQCorpus.String)
	switch {
	case faq == "":
		// Nothing to answer from; every message goes to a human.
		outgoing = noFAQReply
		e.metrics.Escalations.WithLabelValues("no_faq").Inc()
		e.alertHuman(ctx, tenant, customerAddr)
	default:
		outcome := e.provider.Answer(ctx, text, faq)
		if outcome.Escalate {
			outgoing = handoffReply
			e.metrics.Escalations.WithLabelValues("model").Inc()
			e.alertHuman(ctx, tenant, customerAddr)
		} else {
			outgoing = outcome.Answer
			e.metrics.AnswersServed.Inc()
		}
	}

	if _, err := e.convs.AppendMessage(ctx, conv.ID, store.AuthorBot, outgoing); err != nil {
		return fmt.Errorf("persist bot message: %w", err)
	}

	if err := e.gateway.Send(ctx, tenant.WhatsAppNumber, customerAddr, outgoing); err != nil {
		e.metrics.DeliveryFailures.WithLabelValues("reply").Inc()
		log.Error().Err(err).
			Int64("tenant_id", tenant.ID).
			Str("customer", customerAddr).
			Msg("Failed to deliver reply, history already persisted")
	}
	return nil
}

// alertHuman notifies the tenant's alert contact that a conversation needs
// attention. Best-effort: a tenant without an alert contact is a logged
// no-op, and a failed send never affects the customer-facing reply.
func (e *Engine) alertHuman(ctx context.Context, tenant *store.Tenant, customerAddr string) {
	if !tenant.AlertNumber.Valid || tenant.AlertNumber.String == "" {
		log.Info().
			Int64("tenant_id", tenant.ID).
			Str("customer", customerAddr).
			Msg("Escalation needed but tenant has no alert contact")
		return
	}

	display := messaging.DisplayNumber(customerAddr)
	body := fmt.Sprintf("Customer %s needs a human reply. Review the conversation: %s/conversations/%s",
		display, e.dashboardURL, url.PathEscape(display))

	if err := e.gateway.Send(ctx, tenant.WhatsAppNumber, tenant.AlertNumber.String, body); err != nil {
		e.metrics.DeliveryFailures.WithLabelValues("alert").Inc()
		log.Error().Err(err).
			Int64("tenant_id", tenant.ID).
			Str("customer", customerAddr).
			Msg("Failed to deliver escalation alert")
	}
}
