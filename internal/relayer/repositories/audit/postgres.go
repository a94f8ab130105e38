// Package audit keeps the append-only log of user-decrypt requests.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/dbx"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Record assigns ID and CreatedAt when they are empty.
func (r *PostgresRepository) Record(ctx context.Context, e *models.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query :=
		`INSERT INTO decrypt_audit (id, client, user_address, handles, outcome, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Client, e.User.Hex(), strings.Join(e.Handles, ","), e.Outcome, e.Reason, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// ListByUser returns the newest entries for user first.
func (r *PostgresRepository) ListByUser(ctx context.Context, user common.Address, limit int) ([]models.AuditEntry, error) {
	query :=
		`SELECT id, client, user_address, handles, outcome, reason, created_at FROM decrypt_audit
		 WHERE user_address = $1
		 ORDER BY created_at DESC
		 LIMIT $2
		 `
	rows, err := r.db.QueryContext(ctx, query, user.Hex(), limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.AuditEntry
	for rows.Next() {
		var (
			e       models.AuditEntry
			addr    string
			handles string
		)
		if err := rows.Scan(&e.ID, &e.Client, &addr, &handles, &e.Outcome, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.User = common.HexToAddress(addr)
		if handles != "" {
			e.Handles = strings.Split(handles, ",")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
