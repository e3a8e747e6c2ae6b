// Package server exposes the read-only HTTP surface of a running devnet.
// Endpoints:
//
//	GET {basePath}/status     full run snapshot
//	GET {basePath}/healthz    200 when ready, 503 otherwise (degraded is 200)
//	GET {basePath}/endpoints  child service addresses for sibling containers
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nodeward/devnetup/internal/orchestrator"
	"github.com/nodeward/devnetup/internal/store"
)

// StatusSource is the orchestrator's view the router serves. It is an
// interface so handler tests run without a real run behind them.
type StatusSource interface {
	Status() orchestrator.Snapshot
}

type Router struct {
	src      StatusSource
	basePath string
}

// NewRouter constructs a Router with a configurable basePath.
// Example basePath: "/devnet" results in /devnet/status, /devnet/healthz.
func NewRouter(src StatusSource, basePath string) *Router {
	return &Router{src: src, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in
// any server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/healthz", r.handleHealthz)
	group.GET("/endpoints", r.handleEndpoints)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, src StatusSource) (*http.Server, error) {
	r := NewRouter(src, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

type errorResp struct {
	Error string `json:"error"`
}

type healthResp struct {
	Phase    string `json:"phase"`
	Degraded bool   `json:"degraded"`
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.src.Status())
}

// handleHealthz maps the phase machine onto a probe-friendly status code.
// A degraded run still answers 200: the validator is serving and that is
// the primary workload.
func (r *Router) handleHealthz(c *gin.Context) {
	s := r.src.Status()
	code := http.StatusServiceUnavailable
	if s.Phase == store.PhaseReady || s.Phase == store.PhaseDegraded {
		code = http.StatusOK
	}
	writeJSON(c, code, healthResp{Phase: s.Phase, Degraded: s.Degraded})
}

func (r *Router) handleEndpoints(c *gin.Context) {
	s := r.src.Status()
	if len(s.Endpoints) == 0 {
		writeJSON(c, http.StatusServiceUnavailable, errorResp{Error: "no endpoints yet"})
		return
	}
	writeJSON(c, http.StatusOK, s.Endpoints)
}
