package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	repo "github.com/joseph-ayodele/mxdocs-extractor/internal/repository"
)

// ConnectDB opens the configured database, pings it and ensures the schema.
// inMemory forces a private SQLite database.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, inMemory bool, logger *slog.Logger) (*repo.DB, error) {
	rc := repo.FromConfig(cfg)
	if inMemory {
		rc.Driver, rc.DSN = repo.DriverSQLite, ":memory:"
	}
	db, err := repo.Open(ctx, rc, logger)
	if err != nil {
		return nil, err
	}
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
