package container

import (
	"context"
	"fmt"
	"log"

	"mrforecast/adapters/hyperfile"
	"mrforecast/adapters/postgres"
	"mrforecast/adapters/rng"
	"mrforecast/app"
	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
	"mrforecast/internal/api"
	"mrforecast/internal/config"
	"mrforecast/internal/errors"
	"mrforecast/internal/migration"
	"mrforecast/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	HyperRepo ports.HyperparameterRepository

	// Model
	Source ports.HyperparameterSource
	Table  *hyper.Table
	RNG    ports.RNGPort

	// Services
	Forecasts *app.ForecastService
	Handler   *api.ForecastHandler
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		RNG:    rng.NewSeededAdapter(),
	}

	return c, nil
}

// Connect opens the database when one is configured and runs migrations.
// Without DATABASE_URL it is a no-op.
func (c *Container) Connect(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		return nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError("failed to connect to database", err)
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		db.Close()
		return errors.Wrap(err, "database migration failed")
	}

	return c.InitWithDatabase(db)
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db
	c.HyperRepo = postgres.NewHyperRepository(db)
	log.Printf("[Container] Database repositories initialized")
	return nil
}

// LoadTable resolves the configured source and loads the posterior table
func (c *Container) LoadTable(ctx context.Context) error {
	source, err := c.newSource()
	if err != nil {
		return err
	}
	c.Source = source

	layout, err := hyper.NewLayout(c.Config.Hyper.NPop)
	if err != nil {
		return errors.Wrap(err, "invalid population count")
	}
	table, err := source.Load(ctx, layout)
	if err != nil {
		return errors.Wrap(err, "failed to load hyperparameter table")
	}
	c.Table = table
	return nil
}

func (c *Container) newSource() (ports.HyperparameterSource, error) {
	switch c.Config.Hyper.Source {
	case config.SourcePostgres:
		if c.HyperRepo == nil {
			return nil, errors.ConfigInvalid("postgres source requires a database connection")
		}
		name, err := core.ParseDatasetName(c.Config.Hyper.Dataset)
		if err != nil {
			return nil, errors.ConfigInvalid(err.Error())
		}
		return postgres.NewDatasetSource(c.HyperRepo, name), nil
	default:
		return hyperfile.NewReader(c.Config.Hyper.File), nil
	}
}

// Init loads the table and builds the services on top of it
func (c *Container) Init(ctx context.Context) error {
	if c.Table == nil {
		if err := c.LoadTable(ctx); err != nil {
			return err
		}
	}

	c.Forecasts = app.NewForecastService(c.Table, c.RNG, ServiceConfig(c.Config))
	c.Handler = api.NewForecastHandler(c.Forecasts, c.HyperRepo)
	log.Printf("[Container] Forecast service ready (%d draws, n_pop=%d)", c.Table.Len(), c.Table.NPop())
	return nil
}

// ServiceConfig maps application configuration onto the forecast service
func ServiceConfig(cfg *config.Config) app.ServiceConfig {
	return app.ServiceConfig{
		MassMin:       cfg.Model.MassMin,
		MassMax:       cfg.Model.MassMax,
		RadiusMax:     cfg.Model.RadiusMax,
		GridSize:      cfg.Sampling.GridSize,
		MinGridSize:   cfg.Sampling.MinGridSize,
		MaxGridSize:   cfg.Sampling.MaxGridSize,
		GridPolicy:    cfg.Sampling.GridPolicy,
		GridLogMin:    cfg.Sampling.GridLogMin,
		GridLogMax:    cfg.Sampling.GridLogMax,
		SampleSize:    cfg.Sampling.SampleSize,
		MaxSampleSize: cfg.Sampling.MaxSampleSize,
		Workers:       cfg.Sampling.Workers,
		ChunkSize:     cfg.Sampling.ChunkSize,
		Seed:          cfg.Sampling.Seed,
	}
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
