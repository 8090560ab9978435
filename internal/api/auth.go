package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/cartloop/internal/store"
)

// APIKeyHeader carries the tenant API key on platform webhooks.
const APIKeyHeader = "X-Api-Key"

const tenantContextKey = "tenant"

// HashAPIKey creates a SHA-256 hash of the API key. Keys are stored and
// looked up by hash only.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// tenantAuth resolves the API key header to a tenant before core logic runs:
// 401 when the header is absent, 403 when no tenant matches. Nothing is
// mutated on rejection.
func (s *Server) tenantAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get(APIKeyHeader)
		if key == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "missing API key",
			})
		}

		tenant, err := s.tenants.GetByAPIKeyHash(c.Request().Context(), HashAPIKey(key))
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "unknown API key",
			})
		}
		if err != nil {
			log.Error().Err(err).Msg("Tenant lookup failed during auth")
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "internal error",
			})
		}

		c.Set(tenantContextKey, tenant)
		return next(c)
	}
}

// tenantFrom returns the tenant the auth middleware attached.
func tenantFrom(c echo.Context) *store.Tenant {
	tenant, _ := c.Get(tenantContextKey).(*store.Tenant)
	return tenant
}
