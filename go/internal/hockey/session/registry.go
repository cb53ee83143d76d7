package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/airhockey/go/internal/hockey/physics"
	"github.com/rs/zerolog/log"
)

// Registry maps session ids to live sessions so inbound messages can be
// routed to the right simulation.
type Registry struct {
	mu       sync.RWMutex
	sessions map[ID]*Session
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[ID]*Session)}
}

// Register adds a session under its id
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s

	log.Debug().
		Str("session_id", s.ID().String()).
		Int("total_sessions", len(r.sessions)).
		Msg("session registered")
}

// Lookup returns the session for id
func (r *Registry) Lookup(id ID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove deletes the session for id, if present
func (r *Registry) Remove(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		delete(r.sessions, id)
		log.Debug().
			Str("session_id", id.String()).
			Int("total_sessions", len(r.sessions)).
			Msg("session removed")
	}
}

// Len returns the number of registered sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns a snapshot of the registered sessions
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Close terminates every registered session without notifying players
func (r *Registry) Close() {
	sessions := r.Sessions()
	for _, s := range sessions {
		s.Terminate(physics.NoSide)
	}
	log.Info().Int("sessions", len(sessions)).Msg("session registry closed")
}

// Factory builds sessions that share one configuration and registry.
type Factory struct {
	cfg      Config
	registry *Registry
}

// NewFactory validates cfg and returns a factory registering into registry
func NewFactory(cfg Config, registry *Registry) (*Factory, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("failed to create session factory: %w", err)
	}
	return &Factory{cfg: cfg, registry: registry}, nil
}

// Create builds a registered, not yet started session. p1 plays side one.
func (f *Factory) Create(p1, p2 Conn) *Session {
	s := newSession(uuid.New(), p1, p2, f.cfg, f.registry)
	f.registry.Register(s)
	f.cfg.Metrics.SessionStarted()
	return s
}

// Registry returns the registry sessions are added to
func (f *Factory) Registry() *Registry { return f.registry }

// Config returns the effective configuration
func (f *Factory) Config() Config { return f.cfg }
