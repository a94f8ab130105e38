package wallet

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/invisibledrop/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/invisibledrop/internal/client/store"
	"github.com/dmitrijs2005/invisibledrop/internal/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Hardhat account #0.
const (
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func newKeystore(t *testing.T) (*Keystore, *sql.DB) {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "drop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewKeystore(s.DB), s.DB
}

func TestImportUnlock(t *testing.T) {
	ks, _ := newKeystore(t)
	ctx := context.Background()

	addr, err := ks.Import(ctx, testKey, []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, ethcommon.HexToAddress(testAddress), addr)

	ok, err := ks.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := ks.Address(ctx)
	require.NoError(t, err)
	assert.Equal(t, addr, stored)

	signer, err := ks.Unlock(ctx, []byte("correct horse"))
	require.NoError(t, err)
	assert.True(t, signer.CanSign())
	assert.Equal(t, addr, signer.Address())
	signer.Lock()
}

func TestUnlock_WrongPassphrase(t *testing.T) {
	ks, _ := newKeystore(t)
	ctx := context.Background()

	_, err := ks.Import(ctx, testKey, []byte("right"))
	require.NoError(t, err)

	_, err = ks.Unlock(ctx, []byte("wrong"))
	require.ErrorIs(t, err, ErrWrongPassphrase)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestUnlock_NoKeystore(t *testing.T) {
	ks, _ := newKeystore(t)
	ctx := context.Background()

	_, err := ks.Unlock(ctx, []byte("x"))
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = ks.Address(ctx)
	require.ErrorIs(t, err, ErrNoKeystore)

	ok, err := ks.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestImport_DoesNotStorePlaintext(t *testing.T) {
	ks, db := newKeystore(t)
	ctx := context.Background()

	_, err := ks.Import(ctx, testKey, []byte("pw"))
	require.NoError(t, err)

	all, err := metadata.NewSQLiteRepository(db).List(ctx)
	require.NoError(t, err)
	for k, v := range all {
		assert.NotContains(t, string(v), testKey[2:], k)
		assert.NotContains(t, string(v), "pw\x00", k)
	}
}

func TestImport_Rejects(t *testing.T) {
	ks, _ := newKeystore(t)
	ctx := context.Background()

	_, err := ks.Import(ctx, testKey, nil)
	require.ErrorIs(t, err, ErrEmptyPassphrase)

	_, err = ks.Import(ctx, "0xnothex", []byte("pw"))
	require.ErrorContains(t, err, "parse private key")

	ok, err := ks.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestImport_ReplacesAndForget(t *testing.T) {
	ks, _ := newKeystore(t)
	ctx := context.Background()

	_, err := ks.Import(ctx, testKey, []byte("one"))
	require.NoError(t, err)
	// Hardhat account #1.
	second, err := ks.Import(ctx, "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d", []byte("two"))
	require.NoError(t, err)

	_, err = ks.Unlock(ctx, []byte("one"))
	require.ErrorIs(t, err, ErrWrongPassphrase)

	signer, err := ks.Unlock(ctx, []byte("two"))
	require.NoError(t, err)
	assert.Equal(t, second, signer.Address())
	assert.Equal(t, ethcommon.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), second)

	require.NoError(t, ks.Forget(ctx))
	ok, err := ks.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnlock_TamperedAddress(t *testing.T) {
	ks, db := newKeystore(t)
	ctx := context.Background()

	_, err := ks.Import(ctx, testKey, []byte("pw"))
	require.NoError(t, err)
	require.NoError(t, metadata.NewSQLiteRepository(db).Set(ctx, metadata.KeyAddress, []byte("0x00000000000000000000000000000000000000aa")))

	_, err = ks.Unlock(ctx, []byte("pw"))
	require.ErrorContains(t, err, "does not match stored address")
}
