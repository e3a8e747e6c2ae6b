package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nodeward/devnetup/internal/orchestrator"
	"github.com/nodeward/devnetup/internal/store"
)

type fakeSource struct {
	snap orchestrator.Snapshot
}

func (f *fakeSource) Status() orchestrator.Snapshot { return f.snap }

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{
		"":         "",
		"/":        "",
		"devnet":   "/devnet",
		"/devnet":  "/devnet",
		"/devnet/": "/devnet",
	}
	for in, want := range cases {
		if got := sanitizeBase(in); got != want {
			t.Fatalf("sanitizeBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	src := &fakeSource{snap: orchestrator.Snapshot{
		Phase:     store.PhaseReady,
		Endpoints: map[string]string{"validator_rpc": "http://127.0.0.1:26657"},
	}}
	h := NewRouter(src, "").Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: code %d", rec.Code)
	}
	var snap orchestrator.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Phase != store.PhaseReady {
		t.Fatalf("phase = %q", snap.Phase)
	}
}

func TestHealthzPhaseMapping(t *testing.T) {
	cases := []struct {
		phase string
		want  int
	}{
		{store.PhaseGenesis, http.StatusServiceUnavailable},
		{store.PhaseReadiness, http.StatusServiceUnavailable},
		{store.PhaseBridge, http.StatusServiceUnavailable},
		{store.PhaseReady, http.StatusOK},
		{store.PhaseDegraded, http.StatusOK},
	}
	for _, c := range cases {
		src := &fakeSource{snap: orchestrator.Snapshot{Phase: c.phase}}
		h := NewRouter(src, "").Handler()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != c.want {
			t.Fatalf("healthz in phase %s: code %d, want %d", c.phase, rec.Code, c.want)
		}
	}
}

func TestEndpointsWithBasePath(t *testing.T) {
	src := &fakeSource{snap: orchestrator.Snapshot{
		Phase: store.PhaseReady,
		Endpoints: map[string]string{
			"validator_rpc": "http://127.0.0.1:26657",
			"bridge_rpc":    "http://127.0.0.1:26658",
		},
	}}
	h := NewRouter(src, "/devnet").Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/devnet/endpoints", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("endpoints: code %d", rec.Code)
	}
	var eps map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &eps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if eps["bridge_rpc"] != "http://127.0.0.1:26658" {
		t.Fatalf("unexpected endpoints: %v", eps)
	}
}

func TestEndpointsEmpty(t *testing.T) {
	h := NewRouter(&fakeSource{}, "").Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/endpoints", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before any endpoint exists, got %d", rec.Code)
	}
}
