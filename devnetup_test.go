package devnetup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nodeward/devnetup/internal/store"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Readiness.MaxAttempts <= 0 || cfg.Readiness.StartRetries <= 0 {
		t.Fatalf("attempt budgets must be positive: %+v", cfg.Readiness)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devnet.toml")
	data := `
[chain]
id = "local-9000"

[readiness]
max_attempts = 5
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chain.ID != "local-9000" {
		t.Fatalf("override lost: %q", cfg.Chain.ID)
	}
	if cfg.Readiness.MaxAttempts != 5 {
		t.Fatalf("override lost: %d", cfg.Readiness.MaxAttempts)
	}
	if cfg.Bridge.Binary == "" {
		t.Fatalf("defaults lost: %+v", cfg.Bridge)
	}
}

func TestFacadeStatusAndEventStore(t *testing.T) {
	cfg := DefaultConfig()
	o := New(cfg, NewLogger("error"))
	snap := o.Status()
	if snap.Phase != store.PhaseGenesis {
		t.Fatalf("fresh run phase = %q", snap.Phase)
	}

	st, err := NewEventStore(&StoreConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "ev.db")})
	if err != nil {
		t.Fatalf("event store: %v", err)
	}
	defer func() { _ = st.Close() }()
	o.SetEventStore(st)
}

func TestRegisterMetricsTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := RegisterMetrics(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterMetrics(reg); err != nil {
		t.Fatalf("second register should tolerate duplicates: %v", err)
	}
}
