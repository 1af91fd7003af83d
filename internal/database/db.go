// Package database provides database setup, migrations and the analysis
// repository (Store) over sqlite or mysql.
package database

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"text/template"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/afero"

	"github.com/edgard/foodlens/internal/config"
	"github.com/edgard/foodlens/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// NewDB connects to the configured database, applies migrations for the
// analysis table and returns the connection pool.
func NewDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if !config.ValidIdentifier(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}

	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverSQLite:
	case DriverMySQL:
		mcfg, err := mysqldriver.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
		}
		mcfg.ParseTime = true
		mcfg.Loc = time.UTC
		dsn = mcfg.FormatDSN()
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == DriverSQLite || maxOpen <= 0 {
		// SQLite doesn't support concurrent writes.
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := ApplyMigrations(db.DB, cfg.Driver, cfg.Table); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Error closing database after migration failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database connected and migrations applied successfully", "driver", cfg.Driver, "table", cfg.Table)
	return db, nil
}

// CloseDB closes the database connection pool.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing database connection", "error", err)
	} else {
		slog.Info("Database connection closed successfully.")
	}
}

// ApplyMigrations renders the embedded migrations for driver with the given
// table name and runs them up to the latest version. Each table keeps its own
// version table so several deployments can share one database.
func ApplyMigrations(db *sql.DB, driver, table string) error {
	if db == nil {
		return errors.New("database connection is nil, cannot apply migrations")
	}

	slog.Info("Applying database migrations...", "driver", driver, "table", table)

	rendered, err := renderMigrations(driver, table)
	if err != nil {
		return err
	}

	sourceDriver, err := iofs.New(rendered, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source driver: %w", err)
	}

	versionTable := table + "_migrations"
	var dbDriver migratedb.Driver
	switch driver {
	case DriverSQLite:
		dbDriver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{MigrationsTable: versionTable})
	case DriverMySQL:
		dbDriver, err = migratemysql.WithInstance(db, &migratemysql.Config{MigrationsTable: versionTable})
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migration driver: %w", driver, err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, driver, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No database migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database migrations applied successfully.")
	return nil
}

// renderMigrations executes every migration template for driver into an
// in-memory filesystem.
func renderMigrations(driver, table string) (fs.FS, error) {
	src, err := fs.Sub(migrations.FS, driver)
	if err != nil {
		return nil, fmt.Errorf("no migrations for driver %q: %w", driver, err)
	}

	entries, err := fs.ReadDir(src, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	mem := afero.NewMemMapFs()
	data := struct{ Table string }{Table: table}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		raw, err := fs.ReadFile(src, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		tmpl, err := template.New(entry.Name()).Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse migration %s: %w", entry.Name(), err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render migration %s: %w", entry.Name(), err)
		}

		if err := afero.WriteFile(mem, entry.Name(), buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("failed to stage migration %s: %w", entry.Name(), err)
		}
	}

	return afero.NewIOFS(mem), nil
}
