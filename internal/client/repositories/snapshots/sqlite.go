// Package snapshots persists the last refreshed campaign snapshot so that the
// CLI can list campaigns while offline.
package snapshots

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/dbx"
	"github.com/dmitrijs2005/invisibledrop/internal/registry"
)

// Repository stores one snapshot per scope. The scope names the network and
// registry contract the snapshot was read from.
type Repository interface {
	Save(ctx context.Context, scope string, s *registry.Snapshot) error
	Load(ctx context.Context, scope string) (*registry.Snapshot, error)
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save replaces the snapshot stored under scope.
func (r *SQLiteRepository) Save(ctx context.Context, scope string, s *registry.Snapshot) error {
	if s == nil {
		return errors.New("nil snapshot")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO campaign_snapshots (id, payload, refreshed_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, refreshed_at = excluded.refreshed_at
	`, scope, payload, s.RefreshedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot[%s]: %w", scope, err)
	}
	return nil
}

// Load returns the snapshot stored under scope or common.ErrorNotFound.
func (r *SQLiteRepository) Load(ctx context.Context, scope string) (*registry.Snapshot, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM campaign_snapshots WHERE id = ?`, scope).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot[%s]: %w", scope, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot[%s]: %w", scope, err)
	}

	var s registry.Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot[%s]: %w", scope, err)
	}
	return &s, nil
}
