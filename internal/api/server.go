package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cartloop/internal/observability"
)

// Server represents the API server.
type Server struct {
	echo    *echo.Echo
	port    int
	tenants TenantDirectory
	convs   ConversationReader
	carts   CartService
	engine  InboundHandler
	metrics *observability.Metrics
}

// NewServer creates a new API server.
func NewServer(port int, tenants TenantDirectory, convs ConversationReader, carts CartService, engine InboundHandler, metrics *observability.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:    e,
		port:    port,
		tenants: tenants,
		convs:   convs,
		carts:   carts,
		engine:  engine,
		metrics: metrics,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	s.echo.GET("/metrics", echo.WrapHandler(observability.MetricsHandler()))

	// Carrier webhook: sender identity is implied by the destination number.
	s.echo.POST("/webhooks/inbound-message", s.inboundMessageHandler)

	// Platform webhooks: authenticated by tenant API key.
	s.echo.POST("/webhooks/cart-abandoned", s.cartAbandonedHandler, s.tenantAuth)
	s.echo.POST("/webhooks/order-created", s.orderCreatedHandler, s.tenantAuth)

	v1 := s.echo.Group("/api/v1", s.tenantAuth)
	v1.GET("/conversations/:customer", s.getConversationHandler)
}

// Start begins the API server and blocks until interrupted.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
