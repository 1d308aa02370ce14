// Package application wires the storage, services and use cases together.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cartracker/cartracker/internal/config"
	"github.com/cartracker/cartracker/internal/database"
	"github.com/cartracker/cartracker/internal/services"
	"github.com/cartracker/cartracker/internal/settings"
	"github.com/cartracker/cartracker/internal/usecase"
)

// App holds the components built by Open. Close releases the database.
type App struct {
	DB       *database.Context
	Records  *database.RecordStore
	Vehicles *services.VehicleService
	Settings *settings.Store
	Garage   *usecase.Garage

	log zerolog.Logger
}

// Option customises Open.
type Option func(*options)

type options struct {
	path  string
	clock func() time.Time
}

// WithPath opens the database at path instead of the data directory.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithClock replaces the wall clock used by the store and services.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// Open opens the configured database, loads the garage (seeding an empty
// one) and returns the wired application.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	dbCtx, err := database.OpenDatabase(ctx, database.Options{
		Path:          o.path,
		Name:          cfg.DBName,
		SchemaVersion: cfg.SchemaVersion,
		OpenTimeout:   cfg.OpenTimeout,
		Logger:        log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	records := database.NewRecordStore(dbCtx, database.WithClock(o.clock))
	vehicles := services.NewVehicleService(records,
		services.WithMaxActive(cfg.MaxVehicles),
		services.WithClock(o.clock),
		services.WithLogger(log.With().Str("component", "vehicles").Logger()),
	)
	if _, err := vehicles.Initialize(ctx); err != nil {
		_ = database.CloseDatabase(dbCtx)
		return nil, fmt.Errorf("failed to load vehicles: %w", err)
	}

	store := settings.NewStore(database.NewAppStorage(dbCtx))
	garage := usecase.NewGarage(vehicles, store, log.With().Str("component", "garage").Logger())

	return &App{
		DB:       dbCtx,
		Records:  records,
		Vehicles: vehicles,
		Settings: store,
		Garage:   garage,
		log:      log,
	}, nil
}

// Close closes the database handle.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	return database.CloseDatabase(a.DB)
}
