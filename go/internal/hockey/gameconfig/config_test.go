package gameconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mcdev12/airhockey/go/internal/hockey/physics"
)

func TestNewConfigFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "NATS_URL", "STRICT_INPUT", "TUNING_FILE", "ALLOWED_ORIGINS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg := NewConfigFromEnv()
	if cfg.Port != "3001" || cfg.Addr() != ":3001" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.NATSURL != "" || cfg.StrictInput {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.AllowsAnyOrigin() {
		t.Error("default should allow any origin")
	}
}

func TestNewConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STRICT_INPUT", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("NATS_URL", "nats://bus:4222")

	cfg := NewConfigFromEnv()
	if cfg.Addr() != ":9000" || !cfg.StrictInput || cfg.NATSURL != "nats://bus:4222" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" || cfg.AllowsAnyOrigin() {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestStrictInputIgnoresGarbage(t *testing.T) {
	t.Setenv("STRICT_INPUT", "sometimes")
	if NewConfigFromEnv().StrictInput {
		t.Error("unparseable bool should fall back to false")
	}
}

func TestLoadTuning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	body := "tick_rate: 30\ntable:\n  width: 1000\n  friction: 0.98\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}
	if tuning.TickRate != 30 || tuning.Table.Width != 1000 || tuning.Table.Friction != 0.98 {
		t.Errorf("tuning = %+v", tuning)
	}
	if tuning.Table.Height != physics.DefaultHeight {
		t.Errorf("unset height should keep default, got %v", tuning.Table.Height)
	}

	cfg := Config{StrictInput: true}.SessionConfig(tuning)
	if cfg.TickRate != 30 || !cfg.StrictInput || cfg.Table.Width != 1000 {
		t.Errorf("session config = %+v", cfg)
	}
}

func TestLoadTuningEmptyPath(t *testing.T) {
	tuning, err := LoadTuning("")
	if err != nil {
		t.Fatal(err)
	}
	if tuning != DefaultTuning() {
		t.Errorf("tuning = %+v", tuning)
	}
}

func TestLoadTuningRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"friction": "table:\n  friction: 1.2\n",
		"tick":     "tick_rate: -5\n",
		"yaml":     "table: [oops\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTuning(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	if _, err := LoadTuning(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file: expected error")
	}
}
