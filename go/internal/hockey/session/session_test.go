package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/airhockey/go/internal/hockey/physics"
	"github.com/mcdev12/airhockey/go/internal/hockey/protocol"
)

var errClosed = errors.New("closed")

type fakeConn struct {
	id     string
	sendCh chan []byte

	mu     sync.Mutex
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, sendCh: make(chan []byte, 1024)}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errClosed
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case f.sendCh <- cp:
		return nil
	default:
		return errors.New("full")
	}
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

type frame struct {
	Type  protocol.MessageType `json:"type"`
	State protocol.Snapshot    `json:"state"`
}

func nextFrame(t *testing.T, c *fakeConn) frame {
	t.Helper()
	select {
	case b := <-c.sendCh:
		var f frame
		if err := json.Unmarshal(b, &f); err != nil {
			t.Fatalf("decode frame %s: %v", b, err)
		}
		return f
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for frame on %s", c.id)
		return frame{}
	}
}

func assertSilent(t *testing.T, c *fakeConn, wait time.Duration) {
	t.Helper()
	select {
	case b := <-c.sendCh:
		t.Fatalf("unexpected frame on %s: %s", c.id, b)
	case <-time.After(wait):
	}
}

type harness struct {
	clock    *clockwork.FakeClock
	registry *Registry
	factory  *Factory
	a, b     *fakeConn
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	clock := clockwork.NewFakeClock()
	cfg := DefaultConfig()
	cfg.Clock = clock
	cfg.NewCoin = func() physics.Coin { return physics.CoinFunc(func() bool { return true }) }
	if mutate != nil {
		mutate(&cfg)
	}
	registry := NewRegistry()
	factory, err := NewFactory(cfg, registry)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	return &harness{
		clock:    clock,
		registry: registry,
		factory:  factory,
		a:        newFakeConn("a"),
		b:        newFakeConn("b"),
	}
}

// startAndTick starts s and waits until its ticker exists.
func (h *harness) start(t *testing.T, s *Session) {
	t.Helper()
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("ticker never registered: %v", err)
	}
}

func (h *harness) tick() {
	h.clock.Advance(h.factory.Config().TickInterval())
}

func TestCreateRegistersActiveSession(t *testing.T) {
	h := newHarness(t, nil)
	s := h.factory.Create(h.a, h.b)
	defer s.Terminate(physics.NoSide)

	if s.State() != Active {
		t.Fatalf("state = %v, want ACTIVE", s.State())
	}
	got, ok := h.registry.Lookup(s.ID())
	if !ok || got != s {
		t.Fatal("session not registered")
	}
	if s.Player(physics.SideOne) != h.a || s.Player(physics.SideTwo) != h.b {
		t.Error("sides not assigned in argument order")
	}
}

func TestTickBroadcastsToBothPlayers(t *testing.T) {
	h := newHarness(t, nil)
	s := h.factory.Create(h.a, h.b)
	defer s.Terminate(physics.NoSide)
	h.start(t, s)

	h.tick()

	for _, c := range []*fakeConn{h.a, h.b} {
		f := nextFrame(t, c)
		if f.Type != protocol.TypeGameState {
			t.Fatalf("%s: type = %q", c.id, f.Type)
		}
		if f.State.Puck.X != 400 || f.State.Puck.Y != 300 {
			t.Errorf("%s: puck = %+v, want centre", c.id, f.State.Puck)
		}
		if f.State.Player1 != (physics.Paddle{X: 100, Y: 300}) || f.State.Player2 != (physics.Paddle{X: 700, Y: 300}) {
			t.Errorf("%s: paddles = %+v %+v", c.id, f.State.Player1, f.State.Player2)
		}
	}
}

func TestTickScoresRightGoalForSideOne(t *testing.T) {
	h := newHarness(t, nil)
	s := h.factory.Create(h.a, h.b)
	defer s.Terminate(physics.NoSide)

	table := h.factory.Config().Table
	s.puck = physics.Puck{X: table.Width - 9, Y: table.Height / 2, VX: 2}
	h.start(t, s)
	h.tick()

	f := nextFrame(t, h.a)
	if f.State.Score.Player1 != 1 || f.State.Score.Player2 != 0 {
		t.Fatalf("score = %+v, want 1-0", f.State.Score)
	}
	if f.State.Puck.X != table.Width/2 || f.State.Puck.Y != table.Height/2 {
		t.Errorf("puck = %+v, want centre", f.State.Puck)
	}
	if f.State.Puck.VX != table.ResetSpeed || f.State.Puck.VY != table.ResetSpeed {
		t.Errorf("reset velocity = (%v, %v)", f.State.Puck.VX, f.State.Puck.VY)
	}
}

func TestTickReflectsOutsideGoalMouth(t *testing.T) {
	h := newHarness(t, nil)
	s := h.factory.Create(h.a, h.b)
	defer s.Terminate(physics.NoSide)

	table := h.factory.Config().Table
	s.puck = physics.Puck{X: table.Width - 9, Y: 40, VX: 2}
	h.start(t, s)
	h.tick()

	f := nextFrame(t, h.b)
	if f.State.Score != (physics.Score{}) {
		t.Fatalf("score = %+v, want 0-0", f.State.Score)
	}
	if f.State.Puck.VX >= 0 || f.State.Puck.X > table.Width-table.PuckRadius {
		t.Errorf("puck = %+v, want reflected and clamped", f.State.Puck)
	}
}

func TestPlayerMoveIsTrustedVerbatim(t *testing.T) {
	h := newHarness(t, nil)
	s := h.factory.Create(h.a, h.b)
	defer s.Terminate(physics.NoSide)
	h.start(t, s)

	far := physics.Paddle{X: -500, Y: 12345}
	if err := s.HandlePlayerMove(physics.SideTwo, far); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := s.HandlePuckHit(99, -42); err != nil {
		t.Fatalf("hit: %v", err)
	}

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Player2 != far {
		t.Errorf("player2 = %+v, want %+v", snap.Player2, far)
	}
	if snap.Player1 != (physics.Paddle{X: 100, Y: 300}) {
		t.Errorf("player1 moved: %+v", snap.Player1)
	}
	if snap.Puck.VX != 99 || snap.Puck.VY != -42 {
		t.Errorf("puck velocity = (%v, %v)", snap.Puck.VX, snap.Puck.VY)
	}
}

func TestStrictInputClampsAndCaps(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.StrictInput = true })
	s := h.factory.Create(h.a, h.b)
	defer s.Terminate(physics.NoSide)
	h.start(t, s)

	_ = s.HandlePlayerMove(physics.SideOne, physics.Paddle{X: -500, Y: 12345})
	_ = s.HandlePuckHit(300, 400)

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	table := h.factory.Config().Table
	want := physics.Paddle{X: table.PaddleRadius, Y: table.Height - table.PaddleRadius}
	if snap.Player1 != want {
		t.Errorf("player1 = %+v, want %+v", snap.Player1, want)
	}
	if speed := snap.Puck.Speed(); speed > table.MaxHitSpeed+1e-9 {
		t.Errorf("speed = %v, want <= %v", speed, table.MaxHitSpeed)
	}
}

func TestHandlePlayerMoveRejectsInvalidSide(t *testing.T) {
	h := newHarness(t, nil)
	s := h.factory.Create(h.a, h.b)
	defer s.Terminate(physics.NoSide)

	if err := s.HandlePlayerMove(physics.Side(3), physics.Paddle{}); !errors.Is(err, ErrInvalidSide) {
		t.Errorf("err = %v, want ErrInvalidSide", err)
	}
}

func TestTerminateStopsTicksAndNotifiesSurvivorOnce(t *testing.T) {
	h := newHarness(t, nil)
	s := h.factory.Create(h.a, h.b)
	h.start(t, s)

	h.tick()
	nextFrame(t, h.a)
	nextFrame(t, h.b)

	h.a.Close()
	s.Terminate(physics.SideOne)
	s.Terminate(physics.SideOne)
	s.Terminate(physics.SideTwo)

	if s.State() != Terminated {
		t.Fatalf("state = %v, want TERMINATED", s.State())
	}
	if _, ok := h.registry.Lookup(s.ID()); ok {
		t.Fatal("session still registered")
	}

	f := nextFrame(t, h.b)
	if f.Type != protocol.TypePlayerDisconnected {
		t.Fatalf("type = %q, want playerDisconnected", f.Type)
	}

	for i := 0; i < 5; i++ {
		h.tick()
	}
	assertSilent(t, h.b, 50*time.Millisecond)

	if err := s.HandlePuckHit(1, 1); !errors.Is(err, ErrTerminated) {
		t.Errorf("hit after terminate: err = %v", err)
	}
	if _, err := s.Snapshot(context.Background()); err != nil {
		t.Errorf("snapshot after terminate: %v", err)
	}
}

func TestTerminateBeforeStart(t *testing.T) {
	h := newHarness(t, nil)
	s := h.factory.Create(h.a, h.b)

	s.Terminate(physics.SideTwo)
	s.Start()

	if h.clock.BlockUntilContext(shortContext(t), 1) == nil {
		t.Fatal("ticker started after termination")
	}
	f := nextFrame(t, h.a)
	if f.Type != protocol.TypePlayerDisconnected {
		t.Fatalf("type = %q", f.Type)
	}
	assertSilent(t, h.b, 20*time.Millisecond)
}

func TestConcurrentInputAndTicks(t *testing.T) {
	h := newHarness(t, nil)
	s := h.factory.Create(h.a, h.b)
	defer s.Terminate(physics.NoSide)
	h.start(t, s)

	var wg sync.WaitGroup
	for side := physics.SideOne; side <= physics.SideTwo; side++ {
		wg.Add(1)
		go func(side physics.Side) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = s.HandlePlayerMove(side, physics.Paddle{X: float64(i), Y: float64(i)})
				_ = s.HandlePuckHit(float64(i%7), float64(i%5))
			}
		}(side)
	}
	for i := 0; i < 50; i++ {
		h.tick()
	}
	wg.Wait()

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Player1 != (physics.Paddle{X: 199, Y: 199}) || snap.Player2 != (physics.Paddle{X: 199, Y: 199}) {
		t.Errorf("last moves lost: %+v %+v", snap.Player1, snap.Player2)
	}
}

func TestRegistryCloseTerminatesAll(t *testing.T) {
	h := newHarness(t, nil)
	s1 := h.factory.Create(h.a, h.b)
	s2 := h.factory.Create(newFakeConn("c"), newFakeConn("d"))
	h.start(t, s1)

	h.registry.Close()

	if h.registry.Len() != 0 {
		t.Fatalf("registry len = %d", h.registry.Len())
	}
	if s1.State() != Terminated || s2.State() != Terminated {
		t.Error("sessions not terminated")
	}
	assertSilent(t, h.a, 20*time.Millisecond)
}

func TestNewFactoryRejectsBadTable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Table.Friction = 1.5
	if _, err := NewFactory(cfg, NewRegistry()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	h := newHarness(t, nil)
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		s := h.factory.Create(h.a, h.b)
		if seen[s.ID()] {
			t.Fatalf("duplicate id %s", s.ID())
		}
		seen[s.ID()] = true
	}
	if h.registry.Len() != 100 {
		t.Errorf("registry len = %d", h.registry.Len())
	}
	h.registry.Close()
}

func shortContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}
