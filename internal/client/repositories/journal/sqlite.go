// Package journal keeps a local append-only log of claim state transitions.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/claim"
	"github.com/dmitrijs2005/invisibledrop/internal/dbx"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Entry is one stored transition.
type Entry struct {
	ID         string
	CampaignID uint64
	User       ethcommon.Address
	From       claim.State
	To         claim.State
	TxHash     string
	Error      string
	CreatedAt  time.Time
}

// Repository appends transitions and lists them per claim key.
type Repository interface {
	Record(ctx context.Context, t claim.Transition) error
	List(ctx context.Context, key claim.Key) ([]Entry, error)
}

// SQLiteRepository implements Repository and claim.Journal.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record appends t under a fresh uuid.
func (r *SQLiteRepository) Record(ctx context.Context, t claim.Transition) error {
	var txHash, errText string
	if t.TxHash != (ethcommon.Hash{}) {
		txHash = t.TxHash.Hex()
	}
	if t.Err != nil {
		errText = t.Err.Error()
	}
	at := t.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO claim_journal (id, campaign_id, user, from_state, to_state, tx_hash, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), t.Key.CampaignID, t.Key.User.Hex(), t.From.String(), t.To.String(), txHash, errText, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to record transition %s: %w", t.Key, err)
	}
	return nil
}

// List returns the transitions of key, oldest first.
func (r *SQLiteRepository) List(ctx context.Context, key claim.Key) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, user, from_state, to_state, tx_hash, error, created_at
		FROM claim_journal WHERE campaign_id = ? AND user = ?
		ORDER BY created_at, rowid
	`, key.CampaignID, key.User.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to list journal %s: %w", key, err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var (
			e        Entry
			user     string
			from, to string
		)
		if err := rows.Scan(&e.ID, &e.CampaignID, &user, &from, &to, &e.TxHash, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.User = ethcommon.HexToAddress(user)
		if e.From, err = claim.ParseState(from); err != nil {
			return nil, err
		}
		if e.To, err = claim.ParseState(to); err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal rows: %w", err)
	}
	return result, nil
}
