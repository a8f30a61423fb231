// Package factory opens the plant repository selected by configuration.
package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sakif/plantkeeper/internal/config"
	"github.com/sakif/plantkeeper/internal/repository"
	"github.com/sakif/plantkeeper/internal/repository/postgres"
	"github.com/sakif/plantkeeper/internal/repository/sqlite"
)

// NewRepository opens and migrates the configured store.
func NewRepository(ctx context.Context, cfg *config.Config) (repository.PlantRepository, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			// mkdir -p for the database directory
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %q", cfg.DBDriver)
	}
}
