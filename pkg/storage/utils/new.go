// Package storageutils provides helpers for constructing storage drivers
// from configuration.
package storageutils

import (
	"context"
	"fmt"

	"github.com/mediguideco/mediguide/pkg/storage"
	"github.com/mediguideco/mediguide/pkg/storage/inmemory"
	"github.com/mediguideco/mediguide/pkg/storage/postgres"
	"github.com/mediguideco/mediguide/pkg/storage/sqlite"
)

// NewStorageDriverOpts are the options for constructing a storage driver.
type NewStorageDriverOpts struct {
	// ProviderType selects the backend: "sqlite", "postgres", or "inmemory".
	ProviderType string

	// SQLitePath is the database file path for the sqlite provider.
	SQLitePath string

	// PostgresDSN is the connection string for the postgres provider.
	PostgresDSN string
}

// NewStorageDriver constructs a storage driver for the given provider.
func NewStorageDriver(ctx context.Context, o NewStorageDriverOpts) (storage.Driver, error) {
	switch o.ProviderType {
	case "sqlite":
		return sqlite.NewDriver(o.SQLitePath)
	case "postgres":
		return postgres.NewDriver(ctx, o.PostgresDSN)
	case "inmemory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
