package handles

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/models"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handleHex = "0x00000000000000000000000000000000000000000000000000000000000000ab"

var (
	contract = ethcommon.HexToAddress("0xc0")
	alice    = ethcommon.HexToAddress("0xa1")
	bob      = ethcommon.HexToAddress("0xb0")
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	qInsert    = `(?s)^INSERT\s+INTO\s+ciphertexts\s*\(handle,\s*contract,\s*value\).*ON\s+CONFLICT.*RETURNING\s+created_at\s*$`
	qDeleteACL = `^DELETE\s+FROM\s+ciphertext_acl\s+WHERE\s+handle\s*=\s*\$1$`
	qInsertACL = `^INSERT\s+INTO\s+ciphertext_acl\s*\(handle,\s*account\)`
	qSelect    = `(?s)^SELECT\s+handle,\s*contract,\s*value,\s*created_at\s+FROM\s+ciphertexts\s+WHERE\s+handle\s*=\s*\$1\s*$`
	qSelectACL = `^SELECT\s+account\s+FROM\s+ciphertext_acl\s+WHERE\s+handle\s*=\s*\$1\s+ORDER\s+BY\s+account$`
)

func TestRegister_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(qInsert).
		WithArgs(handleHex, contract.Hex(), "1000000").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectExec(qDeleteACL).WithArgs(handleHex).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(qInsertACL).WithArgs(handleHex, alice.Hex()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qInsertACL).WithArgs(handleHex, bob.Hex()).WillReturnResult(sqlmock.NewResult(0, 1))

	c := &models.Ciphertext{
		Handle:   "  0x00000000000000000000000000000000000000000000000000000000000000AB ",
		Contract: contract,
		Value:    decimal.NewFromInt(1_000_000),
		Allowed:  []ethcommon.Address{alice, bob},
	}
	require.NoError(t, repo.Register(context.Background(), c))

	assert.Equal(t, handleHex, c.Handle)
	assert.Equal(t, created, c.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qInsert).WillReturnError(errors.New("db down"))

	err := repo.Register(context.Background(), &models.Ciphertext{Handle: handleHex, Value: decimal.Zero})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestRegister_ACLError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qInsert).WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(qDeleteACL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(qInsertACL).WillReturnError(errors.New("acl broken"))

	err := repo.Register(context.Background(), &models.Ciphertext{Handle: handleHex, Value: decimal.Zero, Allowed: []ethcommon.Address{alice}})
	assert.ErrorContains(t, err, "acl broken")
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(qSelect).
		WithArgs(handleHex).
		WillReturnRows(sqlmock.NewRows([]string{"handle", "contract", "value", "created_at"}).
			AddRow(handleHex, contract.Hex(), "123456789012345678901234567890", created))
	mock.ExpectQuery(qSelectACL).
		WithArgs(handleHex).
		WillReturnRows(sqlmock.NewRows([]string{"account"}).AddRow(alice.Hex()))

	got, err := repo.Get(context.Background(), handleHex)
	require.NoError(t, err)

	assert.Equal(t, handleHex, got.Handle)
	assert.Equal(t, contract, got.Contract)
	assert.Equal(t, "123456789012345678901234567890", got.Value.String())
	assert.Equal(t, []ethcommon.Address{alice}, got.Allowed)
	assert.Equal(t, created, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qSelect).WithArgs(handleHex).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), handleHex)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGet_ACLQueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qSelect).
		WillReturnRows(sqlmock.NewRows([]string{"handle", "contract", "value", "created_at"}).
			AddRow(handleHex, contract.Hex(), "1", time.Now()))
	mock.ExpectQuery(qSelectACL).WillReturnError(errors.New("boom"))

	_, err := repo.Get(context.Background(), handleHex)
	assert.ErrorContains(t, err, "db error: boom")
}
