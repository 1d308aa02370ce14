// Package database provides the versioned record store behind cartracker.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cartracker/cartracker/db/migrations"
	"github.com/cartracker/cartracker/internal/config"
	sqldb "github.com/cartracker/cartracker/internal/database/sqlc"

	// Import SQLite driver for database/sql
	_ "modernc.org/sqlite"
)

// LatestSchemaVersion is the highest version shipped in db/migrations.
const LatestSchemaVersion uint = 4

const defaultOpenTimeout = 5 * time.Second

// Context holds the database connection and query interface.
type Context struct {
	DB      *sql.DB
	Queries *sqldb.Queries
	Name    string
	Path    string
	// Version is the schema version the handle was opened at.
	Version uint

	log zerolog.Logger
}

// Options configures OpenDatabase.
type Options struct {
	// Path of the database file. Empty resolves Name inside the data dir.
	// ":memory:" opens a private in-memory database.
	Path string
	Name string
	// SchemaVersion is the target version. Zero means LatestSchemaVersion.
	SchemaVersion uint
	// OpenTimeout bounds how long a locked database is waited for.
	OpenTimeout time.Duration
	Logger      zerolog.Logger
}

// CreateDatabase opens the default database at path with default options.
func CreateDatabase(dbPath string) (*Context, error) {
	return OpenDatabase(context.Background(), Options{Path: dbPath, Logger: zerolog.Nop()})
}

// OpenDatabase opens (creating if absent) the database and migrates it to the
// requested schema version. A database held by another writer is retried until
// OpenTimeout and then reported as ErrBusy.
func OpenDatabase(ctx context.Context, opts Options) (*Context, error) {
	if opts.Name == "" {
		opts.Name = config.DefaultDBName
	}
	if opts.SchemaVersion == 0 {
		opts.SchemaVersion = LatestSchemaVersion
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}

	path := opts.Path
	if path == "" {
		path = config.GetDBPath(opts.Name)
	}

	busyTimeout := opts.OpenTimeout / 10
	if busyTimeout < 50*time.Millisecond {
		busyTimeout = 50 * time.Millisecond
	}
	pragmas := fmt.Sprintf("_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)", busyTimeout.Milliseconds())

	var dsn string
	if path == ":memory:" {
		// A unique shared-cache name keeps separate handles isolated.
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", uuid.NewString(), pragmas)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("%w: failed to create database directory: %w", ErrIO, err)
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		path = absPath
		dsn = fmt.Sprintf("file:%s?%s", filepath.ToSlash(absPath), pragmas)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrIO, err)
	}
	db.SetMaxOpenConns(1)

	log := opts.Logger.With().Str("db", opts.Name).Logger()

	if err := waitForWriteLock(ctx, db, opts.OpenTimeout, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	version, err := runMigrations(db, opts.SchemaVersion, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debug().Str("path", path).Uint("version", version).Msg("database opened")

	return &Context{
		DB:      db,
		Queries: sqldb.New(db),
		Name:    opts.Name,
		Path:    path,
		Version: version,
		log:     log,
	}, nil
}

// waitForWriteLock takes and releases the write lock so a database held by
// another process is detected at open time instead of on the first write.
func waitForWriteLock(ctx context.Context, db *sql.DB, timeout time.Duration, log zerolog.Logger) error {
	probe := func() error {
		conn, err := db.Conn(ctx)
		if err != nil {
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(fmt.Errorf("%w: failed to connect: %w", ErrIO, err))
		}
		defer conn.Close()

		if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(classifyError(err))
		}
		if _, err := conn.ExecContext(ctx, "ROLLBACK"); err != nil {
			return backoff.Permanent(classifyError(err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 25 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = timeout

	err := backoff.RetryNotify(probe, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("database busy")
	})
	if err == nil {
		return nil
	}
	if isBusy(err) {
		return fmt.Errorf("%w: gave up after %s: %w", ErrBusy, timeout, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrBusy, ctxErr)
	}
	return err
}

// CloseDatabase closes the database connection.
func CloseDatabase(ctx *Context) error {
	if ctx == nil || ctx.DB == nil {
		return nil
	}
	return ctx.DB.Close()
}

// ClearDatabase removes all rows from every collection and the app storage.
func ClearDatabase(ctx *Context) error {
	if ctx == nil || ctx.DB == nil {
		return nil
	}

	bg := context.Background()
	return withTx(bg, ctx, func(queries *sqldb.Queries) error {
		for _, c := range Collections() {
			if err := queries.DeleteAllRecords(bg, string(c)); err != nil {
				return fmt.Errorf("failed to delete %s: %w", c, classifyError(err))
			}
		}
		if err := queries.DeleteAllStorageValues(bg); err != nil {
			return fmt.Errorf("failed to delete app storage: %w", classifyError(err))
		}
		return nil
	})
}

// runMigrations moves the schema from its installed version to target and
// returns the version the database is left at.
func runMigrations(db *sql.DB, target uint, log zerolog.Logger) (uint, error) {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to initialise migrate driver: %w", ErrMigration, classifyError(err))
	}

	sourceDriver, err := iofs.New(migrations.Files, ".")
	if err != nil {
		return 0, fmt.Errorf("%w: failed to load embedded migrations: %w", ErrMigration, err)
	}
	defer func() {
		_ = sourceDriver.Close()
	}()

	// The migrator is not closed: closing it would close db as well.
	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create migrator: %w", ErrMigration, err)
	}

	installed, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		installed = 0
	case err != nil:
		return 0, fmt.Errorf("%w: failed to read schema version: %w", ErrMigration, classifyError(err))
	}

	if dirty {
		// Steps are re-runnable, so an interrupted one is rolled back and applied again.
		previous := migratedb.NilVersion
		if installed > 1 {
			previous = int(installed) - 1
		}
		log.Warn().Uint("version", installed).Msg("schema left dirty by an interrupted migration, re-applying")
		if err := migrator.Force(previous); err != nil {
			return 0, fmt.Errorf("%w: failed to reset dirty version %d: %w", ErrMigration, installed, err)
		}
		if previous == migratedb.NilVersion {
			installed = 0
		} else {
			installed = uint(previous)
		}
	}

	if installed > target {
		// A newer build wrote this file. Schema steps are additive, so the
		// installed version is opened as-is instead of failing.
		log.Warn().Uint("installed", installed).Uint("requested", target).
			Msg("schema version conflict, opening at installed version")
		return installed, nil
	}

	if installed == target {
		return installed, nil
	}

	if err := migrator.Migrate(target); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("%w: failed to migrate from %d to %d: %w", ErrMigration, installed, target, classifyError(err))
	}

	log.Info().Uint("from", installed).Uint("to", target).Msg("schema migrated")
	return target, nil
}

func withTx(ctx context.Context, dbCtx *Context, fn func(*sqldb.Queries) error) error {
	tx, err := dbCtx.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classifyError(err))
	}

	queries := queriesFromContext(dbCtx).WithTx(tx)
	if err := fn(queries); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback error: %w)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classifyError(err))
	}
	return nil
}
