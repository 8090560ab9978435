package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	CartsIngested    prometheus.Counter
	CartsRecovered   prometheus.Counter
	RemindersSent    prometheus.Counter
	InboundMessages  prometheus.Counter
	AnswersServed    prometheus.Counter
	Escalations      *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec
}

// NewMetrics registers all instruments on the given registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CartsIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "carts_ingested_total",
			Help:      "Abandoned carts recorded from the cart-abandoned webhook.",
		}),
		CartsRecovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "carts_recovered_total",
			Help:      "Carts marked recovered by the order-created webhook.",
		}),
		RemindersSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Cart reminders delivered by the sweep.",
		}),
		InboundMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Customer messages received from the carrier webhook.",
		}),
		AnswersServed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_served_total",
			Help:      "Customer questions answered from the FAQ corpus.",
		}),
		Escalations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Conversations handed to a human, by reason.",
		}, []string{"reason"}),
		DeliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Outbound sends the carrier rejected, by kind.",
		}, []string{"kind"}),
	}
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
