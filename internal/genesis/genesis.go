// Package genesis seeds a fresh validator home: chain init, a funded
// genesis account, a collected genesis transaction, and the config file
// tuning a local devnet needs. Every chain operation is delegated to the
// external chain binary; this package only sequences the invocations and
// patches the resulting config files structurally.
package genesis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nodeward/devnetup/internal/config"
	"github.com/nodeward/devnetup/internal/process"
	"github.com/nodeward/devnetup/internal/tomlfile"
)

// Runner performs first-boot initialization of the validator home.
type Runner struct {
	chain  config.ChainConfig
	logger *slog.Logger
}

func NewRunner(chain config.ChainConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{chain: chain, logger: logger}
}

// genesisPath is where the chain binary writes the genesis document.
func (r *Runner) genesisPath() string {
	return filepath.Join(r.chain.Home, "config", "genesis.json")
}

// Initialized reports whether the home already holds a genesis document;
// re-runs against an initialized home are no-ops.
func (r *Runner) Initialized() bool {
	_, err := os.Stat(r.genesisPath())
	return err == nil
}

// Ensure initializes the validator home if it has no genesis yet: init,
// key creation, genesis account funding, gentx, collect-gentxs, then the
// devnet config patches. Each step must succeed before the next runs.
func (r *Runner) Ensure(ctx context.Context) error {
	if r.Initialized() {
		r.logger.Info("chain home already initialized", "home", r.chain.Home)
		return nil
	}
	c := r.chain
	r.logger.Info("initializing chain home", "home", c.Home, "chain_id", c.ID)

	steps := []string{
		fmt.Sprintf("%s init %s --chain-id %s --home %s", c.Binary, c.Moniker, c.ID, c.Home),
		fmt.Sprintf("%s keys add %s --keyring-backend %s --home %s", c.Binary, c.KeyName, c.KeyringBackend, c.Home),
	}
	for _, step := range steps {
		if _, err := process.Run(ctx, step); err != nil {
			return fmt.Errorf("genesis init: %w", err)
		}
	}

	addr, err := process.Run(ctx, fmt.Sprintf("%s keys show %s -a --keyring-backend %s --home %s",
		c.Binary, c.KeyName, c.KeyringBackend, c.Home))
	if err != nil {
		return fmt.Errorf("resolve validator address: %w", err)
	}
	if addr == "" {
		return fmt.Errorf("resolve validator address: empty output")
	}

	steps = []string{
		fmt.Sprintf("%s genesis add-genesis-account %s %s --home %s", c.Binary, addr, c.GenesisCoins, c.Home),
		fmt.Sprintf("%s genesis gentx %s %s --chain-id %s --keyring-backend %s --home %s",
			c.Binary, c.KeyName, c.StakeAmount, c.ID, c.KeyringBackend, c.Home),
		fmt.Sprintf("%s genesis collect-gentxs --home %s", c.Binary, c.Home),
	}
	for _, step := range steps {
		if _, err := process.Run(ctx, step); err != nil {
			return fmt.Errorf("genesis construction: %w", err)
		}
	}

	if err := r.patchConfigs(); err != nil {
		return err
	}
	r.logger.Info("chain home initialized", "validator", addr)
	return nil
}

// patchConfigs applies the devnet constants to config.toml and app.toml.
func (r *Runner) patchConfigs() error {
	cfgPath := filepath.Join(r.chain.Home, "config", "config.toml")
	appPath := filepath.Join(r.chain.Home, "config", "app.toml")

	if err := tomlfile.Patch(cfgPath, func(doc map[string]any) error {
		tomlfile.Set(doc, "1s", "consensus", "timeout_commit")
		tomlfile.Set(doc, fmt.Sprintf("tcp://0.0.0.0:%d", r.chain.RPCPort), "rpc", "laddr")
		tomlfile.Set(doc, []string{"*"}, "rpc", "cors_allowed_origins")
		return nil
	}); err != nil {
		return fmt.Errorf("patch config.toml: %w", err)
	}
	if err := tomlfile.Patch(appPath, func(doc map[string]any) error {
		tomlfile.Set(doc, r.chain.MinGasPrices, "minimum-gas-prices")
		tomlfile.Set(doc, true, "api", "enable")
		tomlfile.Set(doc, fmt.Sprintf("tcp://0.0.0.0:%d", r.chain.APIPort), "api", "address")
		tomlfile.Set(doc, true, "api", "enabled-unsafe-cors")
		tomlfile.Set(doc, fmt.Sprintf("0.0.0.0:%d", r.chain.GRPCPort), "grpc", "address")
		return nil
	}); err != nil {
		return fmt.Errorf("patch app.toml: %w", err)
	}
	return nil
}
