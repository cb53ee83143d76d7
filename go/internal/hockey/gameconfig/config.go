package gameconfig

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mcdev12/airhockey/go/internal/hockey/physics"
	"github.com/mcdev12/airhockey/go/internal/hockey/session"
	"gopkg.in/yaml.v3"
)

// Config holds the gateway process settings.
type Config struct {
	Port              string
	NATSURL           string
	NATSSubjectPrefix string
	LogLevel          string
	LogFormat         string
	StrictInput       bool
	TuningFile        string
	AllowedOrigins    []string
}

// Tuning overrides rink geometry and simulation rate.
type Tuning struct {
	TickRate int           `yaml:"tick_rate"`
	Table    physics.Table `yaml:"table"`
}

// NewConfigFromEnv reads the gateway environment variables (with defaults).
func NewConfigFromEnv() Config {
	return Config{
		Port:              getEnv("PORT", "3001"),
		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "airhockey.events"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		StrictInput:       getEnvAsBool("STRICT_INPUT", false),
		TuningFile:        os.Getenv("TUNING_FILE"),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// AllowsAnyOrigin reports whether origin checks are disabled.
func (c Config) AllowsAnyOrigin() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return len(c.AllowedOrigins) == 0
}

// DefaultTuning returns the built-in rink and tick rate
func DefaultTuning() Tuning {
	return Tuning{
		TickRate: session.DefaultTickRate,
		Table:    physics.DefaultTable(),
	}
}

// LoadTuning reads a YAML tuning file on top of the defaults. An empty path
// returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	tuning := DefaultTuning()
	if path == "" {
		return tuning, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tuning, fmt.Errorf("failed to read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return tuning, fmt.Errorf("failed to parse tuning file: %w", err)
	}
	if tuning.TickRate <= 0 {
		return tuning, errors.New("tick_rate must be positive")
	}
	if err := tuning.Table.Validate(); err != nil {
		return tuning, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return tuning, nil
}

// SessionConfig turns the process settings into a session configuration.
func (c Config) SessionConfig(t Tuning) session.Config {
	cfg := session.DefaultConfig()
	cfg.Table = t.Table
	cfg.TickRate = t.TickRate
	cfg.StrictInput = c.StrictInput
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
