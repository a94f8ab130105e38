// Package store opens the local sqlite database of the CLI, applies its
// migrations and exposes the repositories built on it.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/invisibledrop/internal/client/migrations"
	"github.com/dmitrijs2005/invisibledrop/internal/client/repositories/journal"
	"github.com/dmitrijs2005/invisibledrop/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/invisibledrop/internal/client/repositories/snapshots"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Store bundles the database handle with its repositories.
type Store struct {
	DB        *sql.DB
	Metadata  metadata.Repository
	Snapshots snapshots.Repository
	Journal   *journal.SQLiteRepository
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the sqlite file at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", dsn, err)
	}

	return &Store{
		DB:        db,
		Metadata:  metadata.NewSQLiteRepository(db),
		Snapshots: snapshots.NewSQLiteRepository(db),
		Journal:   journal.NewSQLiteRepository(db),
	}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
