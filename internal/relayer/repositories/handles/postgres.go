// Package handles stores registered ciphertext plaintexts and their ACLs.
package handles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/dbx"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/models"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Register expects to run inside a transaction; see dbx.WithTx.
func (r *PostgresRepository) Register(ctx context.Context, c *models.Ciphertext) error {
	handle := normalize(c.Handle)

	query :=
		`INSERT INTO ciphertexts (handle, contract, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (handle) DO UPDATE SET contract = EXCLUDED.contract, value = EXCLUDED.value
		 RETURNING created_at
		 `
	err := r.db.QueryRowContext(ctx, query, handle, c.Contract.Hex(), c.Value.String()).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM ciphertext_acl WHERE handle = $1`, handle); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for _, a := range c.Allowed {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO ciphertext_acl (handle, account) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			handle, a.Hex())
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	c.Handle = handle
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, handle string) (*models.Ciphertext, error) {
	handle = normalize(handle)

	query :=
		`SELECT handle, contract, value, created_at FROM ciphertexts
		 WHERE handle = $1
		 `

	var (
		c        models.Ciphertext
		contract string
	)
	err := r.db.QueryRowContext(ctx, query, handle).Scan(&c.Handle, &contract, &c.Value, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Contract = ethcommon.HexToAddress(contract)

	rows, err := r.db.QueryContext(ctx, `SELECT account FROM ciphertext_acl WHERE handle = $1 ORDER BY account`, handle)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var account string
		if err := rows.Scan(&account); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		c.Allowed = append(c.Allowed, ethcommon.HexToAddress(account))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &c, nil
}

func normalize(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}
