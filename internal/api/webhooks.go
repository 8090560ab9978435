package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/cartloop/internal/carts"
	"github.com/cartloop/internal/messaging"
	"github.com/cartloop/internal/store"
)

// CartAbandonedPayload is the body of the cart-abandoned webhook.
type CartAbandonedPayload struct {
	CustomerPhone string           `json:"customer_phone"`
	RecoveryURL   string           `json:"recovery_url"`
	Items         []store.CartItem `json:"items"`
}

// OrderCreatedPayload is the body of the order-created webhook.
type OrderCreatedPayload struct {
	CustomerPhone string `json:"customer_phone"`
}

// inboundMessageHandler receives carrier webhooks for customer messages. The
// carrier gets its 200 immediately; the conversation engine runs detached.
func (s *Server) inboundMessageHandler(c echo.Context) error {
	from := c.FormValue("From")
	body := c.FormValue("Body")
	to := c.FormValue("To")
	if from == "" || body == "" || to == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "From, Body and To are required",
		})
	}

	tenant, err := s.tenants.GetByWhatsAppNumber(c.Request().Context(), messaging.NormalizeAddress(to))
	if errors.Is(err, store.ErrNotFound) {
		// A number we no longer own, or a carrier misconfiguration. Ack it so
		// the carrier stops redelivering.
		log.Warn().Str("to", to).Msg("Inbound message for unknown tenant number")
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}
	if err != nil {
		log.Error().Err(err).Str("to", to).Msg("Tenant lookup failed for inbound message")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	customerAddr := messaging.NormalizeAddress(from)
	detach("inbound-message", func(ctx context.Context) error {
		return s.engine.HandleInbound(ctx, tenant, customerAddr, body)
	})

	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}

// cartAbandonedHandler records an abandoned cart for the authenticated
// tenant. Missing fields reject the request before the ack; after the ack
// the ingest runs detached.
func (s *Server) cartAbandonedHandler(c echo.Context) error {
	tenant := tenantFrom(c)

	var payload CartAbandonedPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid webhook payload",
		})
	}
	if payload.CustomerPhone == "" || payload.RecoveryURL == "" || len(payload.Items) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "customer_phone, recovery_url and items are required",
		})
	}

	detach("cart-abandoned", func(ctx context.Context) error {
		_, err := s.carts.IngestCart(ctx, tenant.ID, payload.CustomerPhone, payload.RecoveryURL, payload.Items)
		if err == nil {
			s.metrics.CartsIngested.Inc()
		}
		return err
	})

	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}

// orderCreatedHandler marks the customer's oldest pending cart recovered.
func (s *Server) orderCreatedHandler(c echo.Context) error {
	tenant := tenantFrom(c)

	var payload OrderCreatedPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid webhook payload",
		})
	}
	if payload.CustomerPhone == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "customer_phone is required",
		})
	}

	detach("order-created", func(ctx context.Context) error {
		if err := s.carts.MarkOrderRecovered(ctx, tenant.ID, payload.CustomerPhone); err != nil {
			if errors.Is(err, carts.ErrValidation) {
				// Already validated above; only reachable via a race on the
				// payload, not worth more than a log line.
				log.Warn().Err(err).Msg("Order webhook failed validation after ack")
				return nil
			}
			return err
		}
		s.metrics.CartsRecovered.Inc()
		return nil
	})

	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}
