package repository

import (
	"context"
	"fmt"
)

var schemaPostgres = []string{
	`CREATE TABLE IF NOT EXISTS extraction_job (
		id            UUID PRIMARY KEY,
		filename      TEXT NOT NULL,
		doc_type      TEXT NOT NULL,
		status        TEXT NOT NULL,
		strategy      TEXT,
		num_pages     INTEGER NOT NULL DEFAULT 0,
		result_json   JSONB,
		error_message TEXT,
		started_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS extraction_job_doc_type_started_at ON extraction_job (doc_type, started_at)`,
	`CREATE INDEX IF NOT EXISTS extraction_job_status ON extraction_job (status)`,
}

var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS extraction_job (
		id            TEXT PRIMARY KEY,
		filename      TEXT NOT NULL,
		doc_type      TEXT NOT NULL,
		status        TEXT NOT NULL,
		strategy      TEXT,
		num_pages     INTEGER NOT NULL DEFAULT 0,
		result_json   TEXT,
		error_message TEXT,
		started_at    DATETIME NOT NULL,
		finished_at   DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS extraction_job_doc_type_started_at ON extraction_job (doc_type, started_at)`,
	`CREATE INDEX IF NOT EXISTS extraction_job_status ON extraction_job (status)`,
}

// Migrate creates the tables the service needs. It is safe to run repeatedly.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := schemaPostgres
	if d.Driver == DriverSQLite {
		stmts = schemaSQLite
	}
	for _, s := range stmts {
		if _, err := d.SQL.ExecContext(ctx, s); err != nil {
			d.logger.Error("migration failed", "error", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	d.logger.Info("database schema ready", "driver", d.Driver)
	return nil
}
