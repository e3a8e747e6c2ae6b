package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nodeward/devnetup/internal/orchestrator"
	"github.com/nodeward/devnetup/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(orchestrator.Snapshot{
			Phase:     store.PhaseDegraded,
			Degraded:  true,
			Endpoints: map[string]string{"validator_rpc": "http://127.0.0.1:26657"},
		})
	})
	mux.HandleFunc("/endpoints", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"validator_rpc": "http://127.0.0.1:26657"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStatusRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{BaseURL: srv.URL})

	if !c.IsReachable(context.Background()) {
		t.Fatalf("expected reachable")
	}
	snap, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if snap.Phase != store.PhaseDegraded || !snap.Degraded {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	eps, err := c.Endpoints(context.Background())
	if err != nil {
		t.Fatalf("endpoints: %v", err)
	}
	if eps["validator_rpc"] == "" {
		t.Fatalf("missing validator endpoint: %v", eps)
	}
}

func TestStatusErrorSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL})
	if _, err := c.Status(context.Background()); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestUnreachable(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})
	if c.IsReachable(context.Background()) {
		t.Fatalf("expected unreachable")
	}
}
