package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nodeward/devnetup/internal/logger"
)

// Config is the single immutable configuration for one devnet run. It is
// constructed once at startup and passed by value into each component;
// nothing mutates it afterwards.
type Config struct {
	Chain     ChainConfig     `toml:"chain" mapstructure:"chain"`
	Bridge    BridgeConfig    `toml:"bridge" mapstructure:"bridge"`
	Readiness ReadinessConfig `toml:"readiness" mapstructure:"readiness"`
	Server    *ServerConfig   `toml:"server" mapstructure:"server"`
	Metrics   *MetricsConfig  `toml:"metrics" mapstructure:"metrics"`
	Store     *StoreConfig    `toml:"store" mapstructure:"store"`
	Log       LogSettings     `toml:"log" mapstructure:"log"`
	// Env holds devnet-wide environment overrides applied to every child.
	Env map[string]string `toml:"env" mapstructure:"env"`
}

// ChainConfig describes the validator node and the genesis it is seeded
// with. All chain operations are delegated to the external chain binary.
type ChainConfig struct {
	ID             string `toml:"id" mapstructure:"id"`
	Binary         string `toml:"binary" mapstructure:"binary"`
	Home           string `toml:"home" mapstructure:"home"`
	Moniker        string `toml:"moniker" mapstructure:"moniker"`
	KeyName        string `toml:"key_name" mapstructure:"key_name"`
	KeyringBackend string `toml:"keyring_backend" mapstructure:"keyring_backend"`
	GenesisCoins   string `toml:"genesis_coins" mapstructure:"genesis_coins"`
	StakeAmount    string `toml:"stake_amount" mapstructure:"stake_amount"`
	MinGasPrices   string `toml:"min_gas_prices" mapstructure:"min_gas_prices"`
	RPCHost        string `toml:"rpc_host" mapstructure:"rpc_host"`
	RPCPort        int    `toml:"rpc_port" mapstructure:"rpc_port"`
	GRPCPort       int    `toml:"grpc_port" mapstructure:"grpc_port"`
	APIPort        int    `toml:"api_port" mapstructure:"api_port"`
	ExtraStartArgs string `toml:"extra_start_args" mapstructure:"extra_start_args"`
	// Env holds per-child "K=V" overrides for the validator process.
	Env []string `toml:"env" mapstructure:"env"`
}

// RPCURL is the local HTTP address of the validator RPC.
func (c ChainConfig) RPCURL() string {
	return fmt.Sprintf("http://%s:%d", c.RPCHost, c.RPCPort)
}

// StartCommand is the validator launch command line.
func (c ChainConfig) StartCommand() string {
	parts := []string{
		c.Binary, "start",
		"--home", c.Home,
		"--rpc.laddr", fmt.Sprintf("tcp://0.0.0.0:%d", c.RPCPort),
		"--grpc.enable",
		"--grpc.address", fmt.Sprintf("0.0.0.0:%d", c.GRPCPort),
		"--api.enable",
	}
	if c.MinGasPrices != "" {
		parts = append(parts, "--minimum-gas-prices", c.MinGasPrices)
	}
	cmd := strings.Join(parts, " ")
	if c.ExtraStartArgs != "" {
		cmd += " " + c.ExtraStartArgs
	}
	return cmd
}

// BridgeConfig describes the dependent bridge node bootstrapped against the
// validator's trusted state.
type BridgeConfig struct {
	Enabled     bool   `toml:"enabled" mapstructure:"enabled"`
	Binary      string `toml:"binary" mapstructure:"binary"`
	Store       string `toml:"store" mapstructure:"store"`
	Network     string `toml:"network" mapstructure:"network"`
	CoreIP      string `toml:"core_ip" mapstructure:"core_ip"`
	CoreRPCPort int    `toml:"core_rpc_port" mapstructure:"core_rpc_port"`
	RPCHost     string `toml:"rpc_host" mapstructure:"rpc_host"`
	RPCPort     int    `toml:"rpc_port" mapstructure:"rpc_port"`
	// Env holds per-child "K=V" overrides for the bridge process.
	Env []string `toml:"env" mapstructure:"env"`
}

func (b BridgeConfig) RPCURL() string {
	return fmt.Sprintf("http://%s:%d", b.RPCHost, b.RPCPort)
}

// InitCommand initializes the bridge node's persistent store.
func (b BridgeConfig) InitCommand() string {
	return strings.Join([]string{
		b.Binary, "bridge", "init",
		"--node.store", b.Store,
		"--p2p.network", b.Network,
	}, " ")
}

// StartCommand launches the bridge node pointed at the validator.
func (b BridgeConfig) StartCommand() string {
	return strings.Join([]string{
		b.Binary, "bridge", "start",
		"--node.store", b.Store,
		"--core.ip", b.CoreIP,
		"--core.rpc.port", fmt.Sprintf("%d", b.CoreRPCPort),
		"--rpc.addr", b.RPCHost,
		"--rpc.port", fmt.Sprintf("%d", b.RPCPort),
		"--p2p.network", b.Network,
	}, " ")
}

// AuthTokenCommand prints an admin bearer token for the bridge RPC.
func (b BridgeConfig) AuthTokenCommand() string {
	return strings.Join([]string{
		b.Binary, "bridge", "auth", "admin",
		"--node.store", b.Store,
		"--p2p.network", b.Network,
	}, " ")
}

// ReadinessConfig holds the polling and retry policy. Attempt counts are
// policy values, never computed.
type ReadinessConfig struct {
	Interval       time.Duration `toml:"interval" mapstructure:"interval"`
	MaxAttempts    int           `toml:"max_attempts" mapstructure:"max_attempts"`
	RequestTimeout time.Duration `toml:"request_timeout" mapstructure:"request_timeout"`
	GraceDelay     time.Duration `toml:"grace_delay" mapstructure:"grace_delay"`
	ExtendedGrace  time.Duration `toml:"extended_grace" mapstructure:"extended_grace"`
	StartRetries   int           `toml:"start_retries" mapstructure:"start_retries"`
	RetryBackoff   time.Duration `toml:"retry_backoff" mapstructure:"retry_backoff"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type StoreConfig struct {
	Type string `toml:"type" mapstructure:"type"` // "sqlite" or "postgres"
	Path string `toml:"path" mapstructure:"path"` // sqlite file path
	DSN  string `toml:"dsn" mapstructure:"dsn"`   // postgres DSN
}

type LogSettings struct {
	Level string        `toml:"level" mapstructure:"level"`
	Dir   string        `toml:"dir" mapstructure:"dir"` // child process output capture
	File  logger.Config `toml:"file" mapstructure:"file"`
}

// ProcessLog resolves the capture config for launched children.
func (l LogSettings) ProcessLog() logger.Config {
	c := l.File
	if c.Dir == "" {
		c.Dir = l.Dir
	}
	return c
}

// Default returns the configuration used when a field is absent from the
// config file. Values mirror a local single-node devnet.
func Default() Config {
	return Config{
		Chain: ChainConfig{
			ID:             "devnet-1",
			Binary:         "chaind",
			Home:           ".devnet/chain",
			Moniker:        "validator-0",
			KeyName:        "validator",
			KeyringBackend: "test",
			GenesisCoins:   "1000000000000stake",
			StakeAmount:    "5000000000stake",
			MinGasPrices:   "0stake",
			RPCHost:        "127.0.0.1",
			RPCPort:        26657,
			GRPCPort:       9090,
			APIPort:        1317,
		},
		Bridge: BridgeConfig{
			Enabled:     true,
			Binary:      "brid",
			Store:       ".devnet/bridge",
			Network:     "private",
			CoreIP:      "127.0.0.1",
			CoreRPCPort: 26657,
			RPCHost:     "127.0.0.1",
			RPCPort:     26658,
		},
		Readiness: ReadinessConfig{
			Interval:       time.Second,
			MaxAttempts:    30,
			RequestTimeout: 2 * time.Second,
			GraceDelay:     2 * time.Second,
			ExtendedGrace:  5 * time.Second,
			StartRetries:   3,
			RetryBackoff:   3 * time.Second,
		},
		Log: LogSettings{Level: "info", Dir: ".devnet/log"},
	}
}

// Load reads a TOML config file and overlays it on Default. Relative paths
// in the file resolve against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	base := filepath.Dir(path)
	cfg.Chain.Home = resolve(base, cfg.Chain.Home)
	cfg.Bridge.Store = resolve(base, cfg.Bridge.Store)
	cfg.Log.Dir = resolve(base, cfg.Log.Dir)
	if cfg.Store != nil && cfg.Store.Path != "" {
		cfg.Store.Path = resolve(base, cfg.Store.Path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate rejects configurations that cannot produce a working devnet.
func (c Config) Validate() error {
	if c.Chain.ID == "" {
		return fmt.Errorf("chain.id required")
	}
	if c.Chain.Binary == "" {
		return fmt.Errorf("chain.binary required")
	}
	if c.Chain.Home == "" {
		return fmt.Errorf("chain.home required")
	}
	if c.Readiness.MaxAttempts <= 0 {
		return fmt.Errorf("readiness.max_attempts must be positive")
	}
	if c.Readiness.StartRetries <= 0 {
		return fmt.Errorf("readiness.start_retries must be positive")
	}
	if c.Bridge.Enabled {
		if c.Bridge.Binary == "" {
			return fmt.Errorf("bridge.binary required when bridge.enabled")
		}
		if c.Bridge.Store == "" {
			return fmt.Errorf("bridge.store required when bridge.enabled")
		}
	}
	if c.Store != nil {
		switch c.Store.Type {
		case "sqlite":
			if c.Store.Path == "" {
				return fmt.Errorf("store.path required for sqlite store")
			}
		case "postgres":
			if c.Store.DSN == "" {
				return fmt.Errorf("store.dsn required for postgres store")
			}
		case "":
		default:
			return fmt.Errorf("unknown store.type %q", c.Store.Type)
		}
	}
	return nil
}
