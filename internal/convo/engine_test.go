package convo

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartloop/internal/ai"
	"github.com/cartloop/internal/observability"
	"github.com/cartloop/internal/store"
)

type fakeConvStore struct {
	ensureErr error
	appendErr error
	messages  []store.Message
}

func (f *fakeConvStore) Ensure(ctx context.Context, tenantID int64, customerAddr string) (*store.Conversation, error) {
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	return &store.Conversation{ID: 1, TenantID: tenantID, CustomerAddr: customerAddr}, nil
}

func (f *fakeConvStore) AppendMessage(ctx context.Context, conversationID int64, author store.Author, body string) (*store.Message, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	msg := store.Message{
		ID:             int64(len(f.messages) + 1),
		ConversationID: conversationID,
		Author:         author,
		Body:           body,
	}
	f.messages = append(f.messages, msg)
	return &msg, nil
}

type fakeProvider struct {
	outcome   ai.Outcome
	called    bool
	gotQuery  string
	gotCorpus string
}

func (f *fakeProvider) Answer(ctx context.Context, query, faqCorpus string) ai.Outcome {
	f.called = true
	f.gotQuery = query
	f.gotCorpus = faqCorpus
	return f.outcome
}

type sentMessage struct {
	From string
	To   string
	Body string
}

type fakeGateway struct {
	sends []sentMessage
	err   error
}

func (f *fakeGateway) Send(ctx context.Context, from, to, body string) error {
	f.sends = append(f.sends, sentMessage{From: from, To: to, Body: body})
	return f.err
}

func testMetrics() *observability.Metrics {
	return observability.NewMetrics("cartloop_test", prometheus.NewRegistry())
}

func testTenant(faq, alert string) *store.Tenant {
	t := &store.Tenant{
		ID:             7,
		Name:           "Zapatos Online",
		WhatsAppNumber: "whatsapp:+34911111111",
	}
	if faq != "" {
		t.FAQCorpus = sql.NullString{String: faq, Valid: true}
	}
	if alert != "" {
		t.AlertNumber = sql.NullString{String: alert, Valid: true}
	}
	return t
}

const customer = "whatsapp:+34600111222"

func TestHandleInboundAnswered(t *testing.T) {
	convs := &fakeConvStore{}
	provider := &fakeProvider{outcome: ai.Answered("Orders ship within 3 days.")}
	gateway := &fakeGateway{}
	metrics := testMetrics()
	engine := NewEngine(convs, provider, gateway, metrics, "https://app.cartloop.test")

	tenant := testTenant("Q: How long does shipping take?\nA: 3 days.", "whatsapp:+34911111112")
	err := engine.HandleInbound(context.Background(), tenant, customer, "How long does shipping take?")
	require.NoError(t, err)

	require.True(t, provider.called)
	assert.Equal(t, "How long does shipping take?", provider.gotQuery)

	require.Len(t, convs.messages, 2)
	assert.Equal(t, store.AuthorCustomer, convs.messages[0].Author)
	assert.Equal(t, store.AuthorBot, convs.messages[1].Author)
	assert.Equal(t, "Orders ship within 3 days.", convs.messages[1].Body)

	want := []sentMessage{{From: tenant.WhatsAppNumber, To: customer, Body: "Orders ship within 3 days."}}
	if diff := cmp.Diff(want, gateway.sends); diff != "" {
		t.Errorf("sends mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AnswersServed))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InboundMessages))
}

func TestHandleInboundNoFAQ(t *testing.T) {
	convs := &fakeConvStore{}
	provider := &fakeProvider{}
	gateway := &fakeGateway{}
	metrics := testMetrics()
	engine := NewEngine(convs, provider, gateway, metrics, "https://app.cartloop.test/")

	tenant := testTenant("", "whatsapp:+34911111112")
	err := engine.HandleInbound(context.Background(), tenant, customer, "Do you ship to Portugal?")
	require.NoError(t, err)

	assert.False(t, provider.called, "provider must not run without an FAQ corpus")

	require.Len(t, convs.messages, 2)
	assert.Equal(t, noFAQReply, convs.messages[1].Body)

	require.Len(t, gateway.sends, 2)
	alert := gateway.sends[0]
	assert.Equal(t, "whatsapp:+34911111112", alert.To)
	assert.Contains(t, alert.Body, "+34600111222")
	assert.Contains(t, alert.Body, "https://app.cartloop.test/conversations/")
	reply := gateway.sends[1]
	assert.Equal(t, customer, reply.To)
	assert.Equal(t, noFAQReply, reply.Body)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Escalations.WithLabelValues("no_faq")))
}

func TestHandleInboundModelEscalates(t *testing.T) {
	convs := &fakeConvStore{}
	provider := &fakeProvider{outcome: ai.Escalated()}
	gateway := &fakeGateway{}
	metrics := testMetrics()
	engine := NewEngine(convs, provider, gateway, metrics, "https://app.cartloop.test")

	tenant := testTenant("Q: Shipping?\nA: 3 days.", "whatsapp:+34911111112")
	err := engine.HandleInbound(context.Background(), tenant, customer, "Can I get a bulk discount?")
	require.NoError(t, err)

	require.Len(t, convs.messages, 2)
	assert.Equal(t, handoffReply, convs.messages[1].Body)
	require.Len(t, gateway.sends, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Escalations.WithLabelValues("model")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.AnswersServed))
}

func TestHandleInboundEscalationWithoutAlertContact(t *testing.T) {
	convs := &fakeConvStore{}
	provider := &fakeProvider{outcome: ai.Escalated()}
	gateway := &fakeGateway{}
	engine := NewEngine(convs, provider, gateway, testMetrics(), "https://app.cartloop.test")

	tenant := testTenant("Q: Shipping?\nA: 3 days.", "")
	err := engine.HandleInbound(context.Background(), tenant, customer, "Can I pay on delivery?")
	require.NoError(t, err)

	// Only the customer-facing handoff reply goes out.
	require.Len(t, gateway.sends, 1)
	assert.Equal(t, customer, gateway.sends[0].To)
}

func TestHandleInboundSendFailureKeepsHistory(t *testing.T) {
	convs := &fakeConvStore{}
	provider := &fakeProvider{outcome: ai.Answered("Yes, we do.")}
	gateway := &fakeGateway{err: errors.New("twilio: 503")}
	metrics := testMetrics()
	engine := NewEngine(convs, provider, gateway, metrics, "https://app.cartloop.test")

	tenant := testTenant("Q: Gift wrap?\nA: Yes.", "")
	err := engine.HandleInbound(context.Background(), tenant, customer, "Do you gift wrap?")
	require.NoError(t, err, "delivery failure must not surface as a handler error")

	require.Len(t, convs.messages, 2)
	assert.Equal(t, "Yes, we do.", convs.messages[1].Body)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DeliveryFailures.WithLabelValues("reply")))
}

func TestHandleInboundPersistFailures(t *testing.T) {
	t.Run("conversation load failure aborts", func(t *testing.T) {
		convs := &fakeConvStore{ensureErr: errors.New("db down")}
		engine := NewEngine(convs, &fakeProvider{}, &fakeGateway{}, testMetrics(), "")
		err := engine.HandleInbound(context.Background(), testTenant("", ""), customer, "hello")
		assert.Error(t, err)
	})

	t.Run("customer message persist failure aborts before any send", func(t *testing.T) {
		convs := &fakeConvStore{appendErr: errors.New("db down")}
		gateway := &fakeGateway{}
		engine := NewEngine(convs, &fakeProvider{}, gateway, testMetrics(), "")
		err := engine.HandleInbound(context.Background(), testTenant("", ""), customer, "hello")
		assert.Error(t, err)
		assert.Empty(t, gateway.sends)
	})
}
