// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/AkhileshRajan/zentra-pro/internal/config"
	"github.com/AkhileshRajan/zentra-pro/internal/storage"
	"github.com/AkhileshRajan/zentra-pro/internal/storage/postgres"
	"github.com/AkhileshRajan/zentra-pro/internal/storage/sqlite"
)

// Open connects to the configured driver and applies migrations.
func Open(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return postgres.NewStore(ctx, cfg.DatabaseURL, cfg.StoreTimeout)
	case config.DriverSQLite:
		return sqlite.New(ctx, cfg.SQLitePath, cfg.StoreTimeout)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
