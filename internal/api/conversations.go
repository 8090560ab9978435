package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/cartloop/internal/messaging"
	"github.com/cartloop/internal/store"
)

// ConversationResponse is the history payload served to merchant dashboards.
// It is the target of the deep link in escalation alerts.
type ConversationResponse struct {
	Conversation *store.Conversation `json:"conversation"`
	Messages     []store.Message     `json:"messages"`
}

// getConversationHandler returns the message history for one customer of the
// authenticated tenant. The :customer segment accepts a raw phone number or a
// canonical channel address.
func (s *Server) getConversationHandler(c echo.Context) error {
	tenant := tenantFrom(c)

	customerAddr := messaging.NormalizeAddress(c.Param("customer"))
	if customerAddr == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid customer address",
		})
	}

	conv, err := s.convs.Get(c.Request().Context(), tenant.ID, customerAddr)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "no conversation with this customer",
		})
	}
	if err != nil {
		log.Error().Err(err).Str("customer", customerAddr).Msg("Conversation lookup failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	messages, err := s.convs.ListMessages(c.Request().Context(), conv.ID)
	if err != nil {
		log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("Message listing failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, ConversationResponse{
		Conversation: conv,
		Messages:     messages,
	})
}
