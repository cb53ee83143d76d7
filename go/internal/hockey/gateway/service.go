// Package gateway accepts player WebSocket connections, pairs them through
// the matchmaker and routes their input to the owning session.
package gateway

import (
	"context"
	"net/http"

	"github.com/mcdev12/airhockey/go/internal/hockey/events"
	"github.com/mcdev12/airhockey/go/internal/hockey/matchmaker"
	"github.com/mcdev12/airhockey/go/internal/hockey/session"
	"github.com/rs/zerolog/log"
)

// Service is the game gateway: connection handling plus its HTTP routes.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	registry          *session.Registry
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new gateway service
func NewService(config Config, mm *matchmaker.Matchmaker, registry *session.Registry, metrics events.MetricsCollector) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, mm, registry, metrics)
	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		registry:          registry,
	}
}

// Start blocks until ctx is cancelled, then stops the service.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting game gateway service")

	<-ctx.Done()

	log.Info().Msg("game gateway service shutting down")
	return s.Stop()
}

// Stop ends every session without notices, then closes all connections.
func (s *Service) Stop() error {
	s.registry.Close()
	s.connectionManager.CloseAll()
	log.Info().Msg("game gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("game gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "game_gateway"
	stats["status"] = "running"
	return stats
}
