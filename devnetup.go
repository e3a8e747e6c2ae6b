package devnetup

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nodeward/devnetup/internal/chain"
	cfg "github.com/nodeward/devnetup/internal/config"
	"github.com/nodeward/devnetup/internal/logger"
	"github.com/nodeward/devnetup/internal/metrics"
	"github.com/nodeward/devnetup/internal/orchestrator"
	iapi "github.com/nodeward/devnetup/internal/server"
	"github.com/nodeward/devnetup/internal/store"
	"github.com/nodeward/devnetup/internal/store/factory"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cfg.Config

type StoreConfig = cfg.StoreConfig

type Snapshot = orchestrator.Snapshot

type Attempt = orchestrator.Attempt

type TrustedState = chain.TrustedState

type EventStore = store.Store

// ErrExhausted reports that every bridge start attempt failed.
var ErrExhausted = orchestrator.ErrExhausted

// Orchestrator is a thin facade over internal/orchestrator.Orchestrator.
// It provides a stable public API for embedding.
type Orchestrator struct{ inner *orchestrator.Orchestrator }

func New(c Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{inner: orchestrator.New(c, logger)}
}

func (o *Orchestrator) Run(ctx context.Context) error { return o.inner.Run(ctx) }
func (o *Orchestrator) Wait() error                   { return o.inner.Wait() }
func (o *Orchestrator) Shutdown()                     { o.inner.Shutdown() }
func (o *Orchestrator) Status() Snapshot              { return o.inner.Status() }
func (o *Orchestrator) SetEventStore(s EventStore)    { o.inner.SetEventStore(s) }

func DefaultConfig() Config { return cfg.Default() }

func LoadConfig(path string) (Config, error) { return cfg.Load(path) }

// NewEventStore opens the audit store selected by the config.
func NewEventStore(sc *StoreConfig) (EventStore, error) { return factory.New(sc) }

// NewHTTPServer starts an HTTP server exposing the run snapshot using the
// given orchestrator.
func NewHTTPServer(addr, basePath string, o *Orchestrator) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, o.inner)
}

// NewLogger builds the structured logger the CLI and embedders share.
func NewLogger(level string) *slog.Logger {
	return logger.New(nil, level)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }

func ServeMetrics(addr string) error { return metrics.Serve(addr) }
