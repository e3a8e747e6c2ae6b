package factory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nodeward/devnetup/internal/config"
	"github.com/nodeward/devnetup/internal/store"
	pg "github.com/nodeward/devnetup/internal/store/postgres"
	sq "github.com/nodeward/devnetup/internal/store/sqlite"
)

// New selects a store implementation from config. The type field wins;
// when it is empty the DSN/path shape decides.
func New(sc *config.StoreConfig) (store.Store, error) {
	if sc == nil {
		return nil, errors.New("store config is nil")
	}
	switch strings.ToLower(strings.TrimSpace(sc.Type)) {
	case "postgres", "postgresql":
		if sc.DSN == "" {
			return nil, errors.New("postgres store requires a dsn")
		}
		return pg.New(sc.DSN)
	case "sqlite":
		if sc.Path == "" {
			return nil, errors.New("sqlite store requires a path")
		}
		return sq.New(sc.Path)
	case "":
		return NewFromDSN(firstNonEmpty(sc.DSN, sc.Path))
	default:
		return nil, fmt.Errorf("unknown store type %q", sc.Type)
	}
}

// NewFromDSN selects a store implementation based on DSN.
// Supported:
//   - sqlite:  "sqlite://<path>" or bare filepath (treated as sqlite)
//   - postgres: DSN starting with "postgres://" or "postgresql://"
func NewFromDSN(dsn string) (store.Store, error) {
	d := strings.TrimSpace(dsn)
	ld := strings.ToLower(d)
	if ld == "" {
		return nil, errors.New("empty DSN")
	}
	if strings.HasPrefix(ld, "postgres://") || strings.HasPrefix(ld, "postgresql://") {
		return pg.New(d)
	}
	if strings.HasPrefix(ld, "sqlite://") {
		return sq.New(strings.TrimPrefix(d, "sqlite://"))
	}
	return sq.New(d)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
