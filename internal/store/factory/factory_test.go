package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nodeward/devnetup/internal/config"
	"github.com/nodeward/devnetup/internal/store"
)

func TestNewSelectsSQLiteByType(t *testing.T) {
	s, err := New(&config.StoreConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "ev.db")})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if err := s.RecordEvent(ctx, store.Event{Phase: store.PhaseReady, Name: "up", OK: true}); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestNewFromDSNDefaultsToSQLite(t *testing.T) {
	s, err := NewFromDSN(filepath.Join(t.TempDir(), "bare.db"))
	if err != nil {
		t.Fatalf("new from dsn: %v", err)
	}
	_ = s.Close()

	s2, err := NewFromDSN("sqlite://" + filepath.Join(t.TempDir(), "prefixed.db"))
	if err != nil {
		t.Fatalf("new from sqlite dsn: %v", err)
	}
	_ = s2.Close()
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []*config.StoreConfig{
		nil,
		{Type: "sqlite"},
		{Type: "postgres"},
		{Type: "etcd", Path: "x"},
		{},
	}
	for i, sc := range cases {
		if _, err := New(sc); err == nil {
			t.Fatalf("case %d: expected error for %+v", i, sc)
		}
	}
}
