package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/airhockey/go/internal/hockey/events"
	"github.com/mcdev12/airhockey/go/internal/hockey/physics"
)

// DefaultTickRate is the simulation rate in ticks per second.
const DefaultTickRate = 60

// inboxSize bounds the number of queued player messages per session.
const inboxSize = 128

var ErrInvalidConfig = errors.New("invalid session config")

// Config holds what every session built by a Factory shares.
type Config struct {
	Table    physics.Table
	TickRate int

	// StrictInput clamps paddle moves onto the table and caps puck hit speed.
	// Off by default: clients are trusted verbatim.
	StrictInput bool

	// Clock drives the tick loop. In production, use clockwork.NewRealClock().
	// In tests, a FakeClock.
	Clock clockwork.Clock

	// NewCoin returns the coin a session uses for goal resets.
	NewCoin func() physics.Coin

	Publisher events.Publisher
	Metrics   events.MetricsCollector
}

// DefaultConfig returns the production session configuration
func DefaultConfig() Config {
	return Config{
		Table:     physics.DefaultTable(),
		TickRate:  DefaultTickRate,
		Clock:     clockwork.NewRealClock(),
		NewCoin:   randomCoin,
		Publisher: events.NoOpPublisher{},
		Metrics:   events.NoOpMetricsCollector{},
	}
}

// withDefaults fills unset fields and validates the result.
func (c Config) withDefaults() (Config, error) {
	def := DefaultConfig()
	if c.Table == (physics.Table{}) {
		c.Table = def.Table
	}
	if c.TickRate == 0 {
		c.TickRate = def.TickRate
	}
	if c.Clock == nil {
		c.Clock = def.Clock
	}
	if c.NewCoin == nil {
		c.NewCoin = def.NewCoin
	}
	if c.Publisher == nil {
		c.Publisher = def.Publisher
	}
	if c.Metrics == nil {
		c.Metrics = def.Metrics
	}

	if c.TickRate < 0 || c.TickRate > 1000 {
		return c, fmt.Errorf("%w: tick rate %d out of range", ErrInvalidConfig, c.TickRate)
	}
	if err := c.Table.Validate(); err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return c, nil
}

// TickInterval is the time between two ticks.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

func randomCoin() physics.Coin {
	return physics.CoinFunc(func() bool { return rand.IntN(2) == 0 })
}
