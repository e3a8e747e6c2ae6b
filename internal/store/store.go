// Package store persists the diagnostic history of a devnet bootstrap:
// phase transitions and per-attempt outcomes. The history is advisory;
// orchestration never blocks on a failed write.
package store

import (
	"context"
	"time"
)

// Event phases recorded during one bootstrap run.
const (
	PhaseGenesis     = "genesis"
	PhaseValidator   = "validator_start"
	PhaseReadiness   = "readiness_poll"
	PhaseTrustedHash = "trusted_state"
	PhaseBootstrap   = "bridge_bootstrap"
	PhaseBridge      = "bridge_start"
	PhaseDegraded    = "degraded"
	PhaseReady       = "ready"
)

// Event is one recorded bootstrap occurrence.
type Event struct {
	ID         int64     `json:"id"`
	Phase      string    `json:"phase"`
	Name       string    `json:"name"`   // process or target the event concerns
	Detail     string    `json:"detail"` // free-form diagnostic text
	Attempt    int       `json:"attempt"`
	OK         bool      `json:"ok"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Store records and lists bootstrap events.
type Store interface {
	EnsureSchema(ctx context.Context) error
	RecordEvent(ctx context.Context, e Event) error
	Events(ctx context.Context, phase string) ([]Event, error)
	Close() error
}
