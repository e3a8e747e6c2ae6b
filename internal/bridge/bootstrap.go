// Package bridge bootstraps and probes the dependent bridge node. The
// bridge cannot sync without a trusted hash taken from the validator, so
// its persisted config is initialized, injected, and verified before the
// process is ever launched.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nodeward/devnetup/internal/chain"
	"github.com/nodeward/devnetup/internal/config"
	"github.com/nodeward/devnetup/internal/process"
	"github.com/nodeward/devnetup/internal/tomlfile"
)

// ErrConfigWrite is returned when the trusted-state substitution does not
// survive a verification re-read of the persisted config.
var ErrConfigWrite = errors.New("bridge: config substitution did not take effect")

// Bootstrapper prepares the bridge node's persistent store.
type Bootstrapper struct {
	cfg    config.BridgeConfig
	logger *slog.Logger
}

func NewBootstrapper(cfg config.BridgeConfig, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{cfg: cfg, logger: logger}
}

// configPath is where the bridge's init CLI writes its config file.
func (b *Bootstrapper) configPath() string {
	return filepath.Join(b.cfg.Store, "config.toml")
}

// Bootstrap wipes any prior store, runs the bridge's init CLI, injects the
// trusted state into the persisted config, and verifies by re-reading that
// the substitution actually took effect. The wipe makes re-runs
// idempotent. An empty TrustedState is rejected before any effect.
func (b *Bootstrapper) Bootstrap(ctx context.Context, ts chain.TrustedState) error {
	if ts.IsZero() {
		return fmt.Errorf("bootstrap requires a non-empty trusted state, got %+v", ts)
	}

	if err := os.RemoveAll(b.cfg.Store); err != nil {
		return fmt.Errorf("wipe bridge store %s: %w", b.cfg.Store, err)
	}
	if _, err := process.Run(ctx, b.cfg.InitCommand()); err != nil {
		return fmt.Errorf("bridge init: %w", err)
	}

	path := b.configPath()
	if err := tomlfile.Patch(path, func(doc map[string]any) error {
		tomlfile.Set(doc, ts.Hash, "Header", "TrustedHash")
		tomlfile.Set(doc, ts.Height, "DASer", "SampleFrom")
		return nil
	}); err != nil {
		return fmt.Errorf("inject trusted state: %w", err)
	}

	if err := b.Verify(ts); err != nil {
		return err
	}
	b.logger.Info("bridge store bootstrapped", "store", b.cfg.Store, "trusted_hash", ts.Hash, "height", ts.Height)
	return nil
}

// Verify re-reads the persisted config and confirms the substitution took
// effect; a write call returning success is not proof. Returns
// ErrConfigWrite when the placeholder survived.
func (b *Bootstrapper) Verify(ts chain.TrustedState) error {
	doc, err := tomlfile.Read(b.configPath())
	if err != nil {
		return fmt.Errorf("verify bridge config: %w", err)
	}
	got, ok := tomlfile.GetString(doc, "Header", "TrustedHash")
	if !ok || got != ts.Hash {
		return fmt.Errorf("%w: TrustedHash is %q, want %q", ErrConfigWrite, got, ts.Hash)
	}
	return nil
}

// AuthToken asks the bridge CLI for an admin bearer token for the RPC
// probe. It requires an initialized store.
func (b *Bootstrapper) AuthToken(ctx context.Context) (string, error) {
	out, err := process.Run(ctx, b.cfg.AuthTokenCommand())
	if err != nil {
		return "", fmt.Errorf("bridge auth token: %w", err)
	}
	if out == "" {
		return "", fmt.Errorf("bridge auth token: empty output")
	}
	return out, nil
}
