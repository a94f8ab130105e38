package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/invisibledrop/internal/chain"
	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/dbx"
	"github.com/dmitrijs2005/invisibledrop/internal/fhe"
	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	"github.com/dmitrijs2005/invisibledrop/internal/models"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/config"
	rmodels "github.com/dmitrijs2005/invisibledrop/internal/relayer/models"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/repositories/audit"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/repositories/handles"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/services"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// memStore is an in-memory repository manager.
type memStore struct {
	mu      sync.Mutex
	handles map[string]rmodels.Ciphertext
	audit   []rmodels.AuditEntry
}

func (m *memStore) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memStore) Handles(dbx.DBTX) handles.Repository { return memHandles{m} }
func (m *memStore) Audit(dbx.DBTX) audit.Repository { return memAudit{m} }

type memHandles struct{ m *memStore }

func (r memHandles) Register(ctx context.Context, c *rmodels.Ciphertext) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.handles[c.Handle] = *c
	return nil
}

func (r memHandles) Get(ctx context.Context, handle string) (*rmodels.Ciphertext, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.handles[handle]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

type memAudit struct{ m *memStore }

func (r memAudit) Record(ctx context.Context, e *rmodels.AuditEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.audit = append(r.m.audit, *e)
	return nil
}

func (r memAudit) ListByUser(ctx context.Context, user ethcommon.Address, limit int) ([]rmodels.AuditEntry, error) {
	return nil, nil
}

func TestRoundTrip_ClientDecryptsThroughRelayer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	store := &memStore{handles: map[string]rmodels.Ciphertext{}}
	cfg := &config.Config{ChainID: 31337, VerifyingContract: "0x00000000000000000000000000000000000000aa", MaxGrantDays: 365}
	svc, err := services.NewDecryptService(db, store, cfg, logging.Discard())
	require.NoError(t, err)
	ts := newTestServer(t, svc)

	wallet, err := chain.WalletSignerFromHex("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	stranger, err := chain.WalletSignerFromHex("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	require.NoError(t, err)

	coin := ethcommon.HexToAddress("0xc0")
	handle, err := models.ParseHandle("0x00000000000000000000000000000000000000000000000000000000000000ab")
	require.NoError(t, err)

	resp, _ := do(t, http.MethodPost, ts.URL+"/v1/handles", token(t, "ops"), fhe.RegisterHandleBody{
		Handle:   handle.String(),
		Contract: coin,
		Value:    "2500000",
		Allowed:  []ethcommon.Address{wallet.Address()},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	client := fhe.NewClient(fhe.NewHTTPService(ts.URL, token(t, "wallet-ui")), logging.Discard())

	v, err := client.Decrypt(context.Background(), coin, wallet.Address(), handle, wallet)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2_500_000), v)

	_, err = client.Decrypt(context.Background(), coin, stranger.Address(), handle, stranger)
	assert.True(t, errors.Is(err, fhe.ErrAccessDenied), "got %v", err)

	anonymous := fhe.NewClient(fhe.NewHTTPService(ts.URL, ""), logging.Discard())
	_, err = anonymous.Decrypt(context.Background(), coin, wallet.Address(), handle, wallet)
	assert.True(t, errors.Is(err, common.ErrorUnauthorized), "got %v", err)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.audit, 2)
	assert.Equal(t, rmodels.OutcomeGranted, store.audit[0].Outcome)
	assert.Equal(t, rmodels.OutcomeDenied, store.audit[1].Outcome)
	assert.Equal(t, fhe.CodeACLDenied, store.audit[1].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServe_StopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer("", logging.Discard(), &fakeService{}, secret, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, l) }()

	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", l.Addr().String())
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServe_ListenerFailureStopsShutdownWatcher(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	s := NewServer("", logging.Discard(), &fakeService{}, secret, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, l) }()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, net.ErrClosed)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestRun_BadAddress(t *testing.T) {
	s := NewServer("256.0.0.1:-1", logging.Discard(), &fakeService{}, secret, time.Second)
	assert.Error(t, s.Run(context.Background()))
}
