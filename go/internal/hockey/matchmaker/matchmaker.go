// Package matchmaker pairs arriving connections into sessions, first come
// first served, two at a time.
package matchmaker

import (
	"sync"

	"github.com/mcdev12/airhockey/go/internal/hockey/events"
	"github.com/mcdev12/airhockey/go/internal/hockey/physics"
	"github.com/mcdev12/airhockey/go/internal/hockey/protocol"
	"github.com/mcdev12/airhockey/go/internal/hockey/session"
	"github.com/rs/zerolog/log"
)

// Contender is a connection that can be paired. Join is called exactly once,
// inside the pairing critical section, before Arrive returns.
type Contender interface {
	session.Conn
	Join(id session.ID, side physics.Side)
}

// Matchmaker holds at most one waiting contender.
type Matchmaker struct {
	factory *session.Factory
	metrics events.MetricsCollector

	mu      sync.Mutex
	waiting Contender
}

// New creates a matchmaker that builds sessions with factory
func New(factory *session.Factory, metrics events.MetricsCollector) *Matchmaker {
	if metrics == nil {
		metrics = events.NoOpMetricsCollector{}
	}
	return &Matchmaker{factory: factory, metrics: metrics}
}

// Arrive parks c, or pairs it with the waiting contender. It returns the new
// session, not yet started, or nil when c is now waiting. The waiting
// contender plays side one.
//
// The waiting or start frames are queued before the lock is released, so a
// client never sees them out of order. The caller starts the session.
func (m *Matchmaker) Arrive(c Contender) *session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.waiting == nil || m.waiting == c {
		m.waiting = c
		m.metrics.WaitingPlayers(1)
		notify(c, protocol.EncodeWaiting)
		log.Debug().Str("connection_id", c.ID()).Msg("player waiting for opponent")
		return nil
	}

	first := m.waiting
	m.waiting = nil
	m.metrics.WaitingPlayers(0)

	s := m.factory.Create(first, c)
	first.Join(s.ID(), physics.SideOne)
	c.Join(s.ID(), physics.SideTwo)
	notify(first, func() ([]byte, error) { return protocol.EncodeStart(physics.SideOne) })
	notify(c, func() ([]byte, error) { return protocol.EncodeStart(physics.SideTwo) })

	log.Info().
		Str("session_id", s.ID().String()).
		Str("player1", first.ID()).
		Str("player2", c.ID()).
		Msg("players paired")
	return s
}

// Depart clears the waiting slot if c holds it and reports whether it did.
func (m *Matchmaker) Depart(c Contender) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.waiting == nil || m.waiting != c {
		return false
	}
	m.waiting = nil
	m.metrics.WaitingPlayers(0)
	log.Debug().Str("connection_id", c.ID()).Msg("waiting player left")
	return true
}

func notify(c Contender, encode func() ([]byte, error)) {
	frame, err := encode()
	if err != nil {
		log.Error().Err(err).Msg("failed to encode matchmaking frame")
		return
	}
	if err := c.Send(frame); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID()).Msg("matchmaking frame not delivered")
	}
}

// Waiting reports whether a contender is parked
func (m *Matchmaker) Waiting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiting != nil
}
