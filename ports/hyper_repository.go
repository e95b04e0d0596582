package ports

import (
	"context"

	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
)

// HyperparameterSource loads the posterior table once at startup
type HyperparameterSource interface {
	Load(ctx context.Context, layout hyper.Layout) (*hyper.Table, error)
}

// HyperparameterRepository persists posterior tables under a dataset name
type HyperparameterRepository interface {
	Save(ctx context.Context, name core.DatasetName, table *hyper.Table) error
	LoadDataset(ctx context.Context, name core.DatasetName) (*hyper.Table, error)
	ListDatasets(ctx context.Context) ([]DatasetInfo, error)
	Delete(ctx context.Context, name core.DatasetName) error
}

// DatasetInfo summarises a stored posterior table
type DatasetInfo struct {
	Name        core.DatasetName `db:"name" json:"name"`
	NPop        int              `db:"n_pop" json:"n_pop"`
	Rows        int              `db:"row_count" json:"rows"`
	Fingerprint string           `db:"fingerprint" json:"fingerprint"`
}
