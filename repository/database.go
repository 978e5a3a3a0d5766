// Package repository opens the accounts database and applies its schema.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	accounts "github.com/goliatone/go-accounts"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// goose keeps its base FS and dialect in package globals
var migrateMu sync.Mutex

// Store bundles the database handle with the repositories built on it
type Store struct {
	DB      *bun.DB
	Driver  string
	Manager accounts.RepositoryManager
}

// Open connects to the database for driver, "postgres" or "sqlite"
func Open(driver, dsn string) (*Store, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))

	var db *bun.DB
	switch driver {
	case DriverPostgres, "pg", "pgx":
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
		driver = DriverPostgres
	case DriverSQLite, "sqlite3":
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
		// sqlite allows a single writer
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
		driver = DriverSQLite
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	manager := accounts.NewRepositoryManager(db)
	if err := manager.Validate(); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		DB:      db,
		Driver:  driver,
		Manager: manager,
	}, nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.DB.Close()
}

// Migrate applies the embedded migrations for the store's driver
func (s *Store) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.DB.DB, s.Driver)
}

// Migrate applies the embedded migrations for driver to db
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	fsys, err := accounts.MigrationsFor(driver)
	if err != nil {
		return fmt.Errorf("migrations for %s: %w", driver, err)
	}

	dialect := "postgres"
	if driver == DriverSQLite {
		dialect = "sqlite3"
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
