package migration

import (
	"context"

	"mrforecast/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Tables created by Run, in dependency order
var Tables = []string{"hyper_datasets", "hyper_draws"}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createDatasetsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create hyper_datasets table", err)
	}

	if err := r.createDrawsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create hyper_draws table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

func (r *MigrationRunner) createDatasetsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS hyper_datasets (
			name VARCHAR(255) PRIMARY KEY,
			n_pop INTEGER NOT NULL CHECK (n_pop > 0),
			row_count INTEGER NOT NULL,
			fingerprint CHAR(16) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createDrawsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS hyper_draws (
			dataset VARCHAR(255) NOT NULL REFERENCES hyper_datasets(name) ON DELETE CASCADE,
			draw_index INTEGER NOT NULL,
			params DOUBLE PRECISION[] NOT NULL,
			PRIMARY KEY (dataset, draw_index)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_hyper_datasets_fingerprint ON hyper_datasets(fingerprint)
	`)
	return err
}
