package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
	"mrforecast/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// hyperRepository implements the HyperparameterRepository interface.
// Each draw is one row of a DOUBLE PRECISION[] column.
type hyperRepository struct {
	db *sqlx.DB
}

// NewHyperRepository creates a new hyperparameter repository
func NewHyperRepository(db *sqlx.DB) ports.HyperparameterRepository {
	return &hyperRepository{db: db}
}

// Save replaces the dataset with the given table in one transaction
func (r *hyperRepository) Save(ctx context.Context, name core.DatasetName, table *hyper.Table) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO hyper_datasets (name, n_pop, row_count, fingerprint, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			n_pop = EXCLUDED.n_pop,
			row_count = EXCLUDED.row_count,
			fingerprint = EXCLUDED.fingerprint,
			updated_at = NOW()`,
		name, table.NPop(), table.Len(), table.Fingerprint().String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM hyper_draws WHERE dataset = $1`, name); err != nil {
		return fmt.Errorf("failed to clear draws: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO hyper_draws (dataset, draw_index, params) VALUES ($1, $2, $3)`)
	if err != nil {
		return fmt.Errorf("failed to prepare draw insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < table.Len(); i++ {
		if _, err := stmt.ExecContext(ctx, name, i, pq.Float64Array(table.Raw(i))); err != nil {
			return fmt.Errorf("failed to insert draw %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}
	log.Printf("[HyperRepository] Saved dataset %s (%d draws, n_pop=%d)", name, table.Len(), table.NPop())
	return nil
}

// LoadDataset reads a stored table and checks it against its fingerprint
func (r *hyperRepository) LoadDataset(ctx context.Context, name core.DatasetName) (*hyper.Table, error) {
	var info ports.DatasetInfo
	err := r.db.GetContext(ctx, &info,
		`SELECT name, n_pop, row_count, fingerprint FROM hyper_datasets WHERE name = $1`, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewConfigurationError("dataset not found: %s", name)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx,
		`SELECT params FROM hyper_draws WHERE dataset = $1 ORDER BY draw_index`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %w", err)
	}
	defer rows.Close()

	raw := make([][]float64, 0, info.Rows)
	for rows.Next() {
		var params pq.Float64Array
		if err := rows.Scan(&params); err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		raw = append(raw, params)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read draws: %w", err)
	}

	layout, err := hyper.NewLayout(info.NPop)
	if err != nil {
		return nil, err
	}
	table, err := hyper.NewTable(layout, raw)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	stored, err := core.ParseFingerprint(strings.TrimSpace(info.Fingerprint))
	if err != nil {
		return nil, core.NewConfigurationError("dataset %s: %v", name, err)
	}
	if got := table.Fingerprint(); got != stored {
		return nil, core.NewConfigurationError("dataset %s fingerprint %s does not match stored %s", name, got, stored)
	}
	return table, nil
}

// ListDatasets returns every stored dataset ordered by name
func (r *hyperRepository) ListDatasets(ctx context.Context) ([]ports.DatasetInfo, error) {
	var datasets []ports.DatasetInfo
	err := r.db.SelectContext(ctx, &datasets,
		`SELECT name, n_pop, row_count, fingerprint FROM hyper_datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}

// Delete removes a dataset and its draws
func (r *hyperRepository) Delete(ctx context.Context, name core.DatasetName) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM hyper_datasets WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return core.NewConfigurationError("dataset not found: %s", name)
	}
	return nil
}

// DatasetSource adapts a stored dataset to ports.HyperparameterSource
type DatasetSource struct {
	repo ports.HyperparameterRepository
	name core.DatasetName
}

// NewDatasetSource creates a source reading one named dataset
func NewDatasetSource(repo ports.HyperparameterRepository, name core.DatasetName) *DatasetSource {
	return &DatasetSource{repo: repo, name: name}
}

// Load reads the dataset; a zero layout accepts whatever population count
// was stored.
func (s *DatasetSource) Load(ctx context.Context, layout hyper.Layout) (*hyper.Table, error) {
	table, err := s.repo.LoadDataset(ctx, s.name)
	if err != nil {
		return nil, err
	}
	if layout.NPop != 0 && table.NPop() != layout.NPop {
		return nil, core.NewConfigurationError("dataset %s has %d populations, want %d", s.name, table.NPop(), layout.NPop)
	}
	log.Printf("[HyperRepository] Loaded dataset %s (%d draws, fingerprint %s)", s.name, table.Len(), table.Fingerprint())
	return table, nil
}
