package audit

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	qInsert = `(?s)^INSERT\s+INTO\s+decrypt_audit\s*\(id,\s*client,\s*user_address,\s*handles,\s*outcome,\s*reason,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)\s*$`
	qList   = `(?s)^SELECT\s+id,\s*client,\s*user_address,\s*handles,\s*outcome,\s*reason,\s*created_at\s+FROM\s+decrypt_audit\s+WHERE\s+user_address\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+\$2\s*$`
)

var user = common.HexToAddress("0xa1")

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestRecord_AssignsIDAndTime(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qInsert).
		WithArgs(sqlmock.AnyArg(), "wallet-ui", user.Hex(), "0x01,0x02", models.OutcomeGranted, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := &models.AuditEntry{Client: "wallet-ui", User: user, Handles: []string{"0x01", "0x02"}, Outcome: models.OutcomeGranted}
	require.NoError(t, repo.Record(context.Background(), e))

	_, err := uuid.Parse(e.ID)
	assert.NoError(t, err)
	assert.False(t, e.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_KeepsGivenID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(qInsert).
		WithArgs("fixed-id", "c", user.Hex(), "", models.OutcomeDenied, "grant_expired", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := &models.AuditEntry{ID: "fixed-id", Client: "c", User: user, Outcome: models.OutcomeDenied, Reason: "grant_expired", CreatedAt: at}
	require.NoError(t, repo.Record(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qInsert).WillReturnError(errors.New("disk full"))

	err := repo.Record(context.Background(), &models.AuditEntry{User: user})
	assert.ErrorContains(t, err, "failed to record audit entry: disk full")
}

func TestListByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t1 := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(qList).
		WithArgs(user.Hex(), 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "client", "user_address", "handles", "outcome", "reason", "created_at"}).
			AddRow("b", "c", user.Hex(), "0x01,0x02", models.OutcomeGranted, "", t1).
			AddRow("a", "c", user.Hex(), "", models.OutcomeDenied, "bad_signature", t0))

	got, err := repo.ListByUser(context.Background(), user, 10)
	require.NoError(t, err)

	want := []models.AuditEntry{
		{ID: "b", Client: "c", User: user, Handles: []string{"0x01", "0x02"}, Outcome: models.OutcomeGranted, CreatedAt: t1},
		{ID: "a", Client: "c", User: user, Outcome: models.OutcomeDenied, Reason: "bad_signature", CreatedAt: t0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestListByUser_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qList).WillReturnError(errors.New("db err"))

	_, err := repo.ListByUser(context.Background(), user, 1)
	assert.ErrorContains(t, err, "db error: db err")
}
