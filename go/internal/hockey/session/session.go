// Package session runs one air hockey match per Session.
//
// A Session owns the authoritative puck, paddles and score. All of that state
// is touched only by the session's own goroutine; inbound player messages and
// snapshot requests reach it through a mailbox. The goroutine also owns the
// tick ticker and stops it exactly once, when the session terminates.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/airhockey/go/internal/hockey/events"
	"github.com/mcdev12/airhockey/go/internal/hockey/physics"
	"github.com/mcdev12/airhockey/go/internal/hockey/protocol"
	"github.com/rs/zerolog/log"
)

// ID identifies a session for the lifetime of the registry.
type ID = uuid.UUID

// Conn is the outbound half of a player's connection. Send must not block.
type Conn interface {
	ID() string
	Send(frame []byte) error
}

// State is the session lifecycle state.
type State int32

const (
	Active State = iota
	Terminated
)

func (s State) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrTerminated  = errors.New("session terminated")
	ErrInvalidSide = errors.New("invalid side")
)

type moveCmd struct {
	side   physics.Side
	paddle physics.Paddle
}

type hitCmd struct {
	vx, vy float64
}

type snapshotCmd struct {
	reply chan protocol.Snapshot
}

// Session is one match between two connections.
type Session struct {
	id        ID
	players   [2]Conn
	registry  *Registry
	table     physics.Table
	strict    bool
	clock     clockwork.Clock
	interval  time.Duration
	coin      physics.Coin
	publisher events.Publisher
	metrics   events.MetricsCollector
	createdAt time.Time

	// owned by the run goroutine
	score   physics.Score
	puck    physics.Puck
	paddles [2]physics.Paddle
	ticks   uint64

	inbox   chan any
	quit    chan struct{}
	stopped chan struct{}

	mu      sync.Mutex
	state   State
	started bool

	terminateOnce sync.Once
	final         protocol.Snapshot
}

func newSession(id ID, p1, p2 Conn, cfg Config, registry *Registry) *Session {
	cx, cy := cfg.Table.Center()
	return &Session{
		id:        id,
		players:   [2]Conn{p1, p2},
		registry:  registry,
		table:     cfg.Table,
		strict:    cfg.StrictInput,
		clock:     cfg.Clock,
		interval:  cfg.TickInterval(),
		coin:      cfg.NewCoin(),
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		createdAt: cfg.Clock.Now(),
		puck:      physics.Puck{X: cx, Y: cy},
		paddles: [2]physics.Paddle{
			cfg.Table.StartingPaddle(physics.SideOne),
			cfg.Table.StartingPaddle(physics.SideTwo),
		},
		inbox:   make(chan any, inboxSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		state:   Active,
	}
}

// ID returns the session identifier.
func (s *Session) ID() ID { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Player returns the connection playing side.
func (s *Session) Player(side physics.Side) Conn {
	if !side.Valid() {
		return nil
	}
	return s.players[side-1]
}

// Start launches the tick loop. It is a no-op when the session is already
// running or has terminated.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.state != Active {
		return
	}
	s.started = true
	go s.run()

	s.publish(events.EventTypeMatchStarted, events.MatchStartedPayload{
		Player1ConnID: s.players[0].ID(),
		Player2ConnID: s.players[1].ID(),
		StartedAt:     s.createdAt,
	})
	log.Info().
		Str("session_id", s.id.String()).
		Str("player1", s.players[0].ID()).
		Str("player2", s.players[1].ID()).
		Dur("tick_interval", s.interval).
		Msg("session started")
}

// HandlePlayerMove overwrites side's paddle position on the next loop turn.
func (s *Session) HandlePlayerMove(side physics.Side, paddle physics.Paddle) error {
	if !side.Valid() {
		return ErrInvalidSide
	}
	return s.enqueue(moveCmd{side: side, paddle: paddle})
}

// HandlePuckHit overwrites the puck velocity on the next loop turn. The
// server does not check that the sender was close enough to hit it.
func (s *Session) HandlePuckHit(vx, vy float64) error {
	return s.enqueue(hitCmd{vx: vx, vy: vy})
}

// Snapshot returns the current authoritative state. While the session is
// active the request is served by the run goroutine, so it waits for Start.
func (s *Session) Snapshot(ctx context.Context) (protocol.Snapshot, error) {
	reply := make(chan protocol.Snapshot, 1)
	if err := s.enqueue(snapshotCmd{reply: reply}); err != nil {
		if errors.Is(err, ErrTerminated) {
			<-s.stopped
			return s.final, nil
		}
		return protocol.Snapshot{}, err
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-s.stopped:
		return s.final, nil
	case <-ctx.Done():
		return protocol.Snapshot{}, ctx.Err()
	}
}

func (s *Session) enqueue(cmd any) error {
	select {
	case <-s.quit:
		return ErrTerminated
	default:
	}
	select {
	case s.inbox <- cmd:
		return nil
	case <-s.quit:
		return ErrTerminated
	}
}

// Terminate ends the session. leaver is the side whose connection went away;
// the other side gets a playerDisconnected notice. NoSide terminates without
// notifying anyone. Only the first call has any effect.
func (s *Session) Terminate(leaver physics.Side) {
	s.terminateOnce.Do(func() {
		s.mu.Lock()
		s.state = Terminated
		running := s.started
		s.mu.Unlock()

		close(s.quit)
		if running {
			<-s.stopped
		} else {
			s.final = s.snapshot()
			close(s.stopped)
		}

		if leaver.Valid() {
			s.notifyDisconnected(leaver.Opponent())
		}

		s.registry.Remove(s.id)
		s.metrics.SessionEnded()

		reason := "player_disconnected"
		if !leaver.Valid() {
			reason = "shutdown"
		}
		now := s.clock.Now()
		s.publish(events.EventTypeMatchEnded, events.MatchEndedPayload{
			Reason:   reason,
			LeftSide: int(leaver),
			Player1:  s.final.Score.Player1,
			Player2:  s.final.Score.Player2,
			Ticks:    s.ticks,
			EndedAt:  now,
			Duration: now.Sub(s.createdAt).String(),
		})

		log.Info().
			Str("session_id", s.id.String()).
			Str("reason", reason).
			Int("left_side", int(leaver)).
			Int("player1", s.final.Score.Player1).
			Int("player2", s.final.Score.Player2).
			Uint64("ticks", s.ticks).
			Msg("session terminated")
	})
}

func (s *Session) notifyDisconnected(side physics.Side) {
	frame, err := protocol.EncodePlayerDisconnected()
	if err != nil {
		log.Error().Err(err).Msg("failed to encode playerDisconnected")
		return
	}
	if err := s.Player(side).Send(frame); err != nil {
		log.Debug().
			Err(err).
			Str("session_id", s.id.String()).
			Int("side", int(side)).
			Msg("could not notify remaining player")
	}
}

func (s *Session) run() {
	ticker := s.clock.NewTicker(s.interval)
	defer close(s.stopped)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			s.final = s.snapshot()
			return
		case cmd := <-s.inbox:
			s.handle(cmd)
		case <-ticker.Chan():
			if s.quitting() {
				continue
			}
			s.tick()
		}
	}
}

func (s *Session) quitting() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

func (s *Session) handle(cmd any) {
	switch c := cmd.(type) {
	case moveCmd:
		paddle := c.paddle
		if s.strict {
			paddle = physics.ClampPaddle(paddle, s.table)
		}
		s.paddles[c.side-1] = paddle
	case hitCmd:
		vx, vy := c.vx, c.vy
		if s.strict {
			vx, vy = physics.CapSpeed(vx, vy, s.table.MaxHitSpeed)
		}
		s.puck.VX, s.puck.VY = vx, vy
	case snapshotCmd:
		c.reply <- s.snapshot()
	}
}

// tick advances the simulation and broadcasts the result.
func (s *Session) tick() {
	s.ticks++
	if scorer := physics.Step(&s.puck, s.table, s.coin); scorer != physics.NoSide {
		s.score.Award(scorer)
		s.metrics.GoalScored(int(scorer))
		s.publish(events.EventTypeGoalScored, events.GoalScoredPayload{
			Scorer:  int(scorer),
			Player1: s.score.Player1,
			Player2: s.score.Player2,
			Tick:    s.ticks,
			AtTime:  s.clock.Now(),
		})
		log.Info().
			Str("session_id", s.id.String()).
			Int("scorer", int(scorer)).
			Int("player1", s.score.Player1).
			Int("player2", s.score.Player2).
			Msg("goal scored")
	}

	frame, err := protocol.EncodeGameState(s.snapshot())
	if err != nil {
		log.Error().Err(err).Str("session_id", s.id.String()).Msg("failed to encode game state")
		return
	}
	s.broadcast(frame)
	s.metrics.Tick()
}

func (s *Session) broadcast(frame []byte) {
	for _, p := range s.players {
		if err := p.Send(frame); err != nil {
			log.Trace().
				Err(err).
				Str("session_id", s.id.String()).
				Str("connection_id", p.ID()).
				Msg("game state not delivered")
		}
	}
}

func (s *Session) snapshot() protocol.Snapshot {
	return protocol.Snapshot{
		Score:   s.score,
		Puck:    s.puck,
		Player1: s.paddles[0],
		Player2: s.paddles[1],
	}
}

func (s *Session) publish(t events.EventType, payload any) {
	ev, err := events.NewEvent(t, s.id.String(), s.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(t)).Msg("failed to build event")
		return
	}
	if err := s.publisher.Publish(context.Background(), ev); err != nil {
		log.Warn().
			Err(err).
			Str("event_type", string(t)).
			Str("session_id", s.id.String()).
			Msg("failed to publish event")
	}
}
