// Package events publishes match lifecycle events and collects game metrics.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher delivers match events to an external bus
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoOpPublisher drops every event; used when no bus is configured
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NoOpPublisher) Close() error                                   { return nil }

// NATSConfig holds configuration for the NATS publisher
type NATSConfig struct {
	URL           string
	SubjectPrefix string // e.g., "airhockey.events"
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS publisher configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "airhockey.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes events as JSON to <prefix>.<event type>
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	once   sync.Once
}

// NewNATSPublisher connects to NATS and returns a publisher
func NewNATSPublisher(config NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("airhockey-gateway"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return NewNATSPublisherFromConn(nc, config.SubjectPrefix), nil
}

// NewNATSPublisherFromConn wraps an existing connection
func NewNATSPublisherFromConn(nc *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// Subject returns the subject an event type is published on
func (p *NATSPublisher) Subject(t EventType) string {
	return fmt.Sprintf("%s.%s", p.prefix, t)
}

// Publish hands the event to the NATS client's outbound buffer. It does not
// wait for the server.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.Subject(event.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("session_id", event.SessionID).
		Int("size", len(data)).
		Msg("event published")
	return nil
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	var err error
	p.once.Do(func() {
		err = p.nc.Drain()
	})
	return err
}
