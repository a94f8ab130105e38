package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/dmitrijs2005/invisibledrop/internal/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// SignerProvider is the account the client acts as. Callers choose the
// variant explicitly: a WalletSigner for an unlocked key, ReadOnly to watch
// an address.
type SignerProvider interface {
	Address() ethcommon.Address
	CanSign() bool
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
}

// WalletSigner signs with an in-memory ECDSA key.
type WalletSigner struct {
	mu      sync.RWMutex
	key     *ecdsa.PrivateKey
	address ethcommon.Address
}

func NewWalletSigner(key *ecdsa.PrivateKey) *WalletSigner {
	return &WalletSigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// WalletSignerFromHex parses a hex private key with or without 0x.
func WalletSignerFromHex(hexKey string) (*WalletSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return NewWalletSigner(key), nil
}

func (w *WalletSigner) Address() ethcommon.Address { return w.address }

func (w *WalletSigner) CanSign() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.key != nil
}

func (w *WalletSigner) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.key == nil {
		return nil, common.ErrReadOnly
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
}

// SignTypedData returns a 65-byte EIP-712 signature with V in {27, 28}, the
// form wallets produce.
func (w *WalletSigner) SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.key == nil {
		return nil, common.ErrReadOnly
	}
	sig, err := crypto.Sign(hash, w.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// PrivateKeyBytes returns a copy of the raw 32-byte key, or nil once locked.
// Callers must wipe it.
func (w *WalletSigner) PrivateKeyBytes() []byte {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.key == nil {
		return nil
	}
	return crypto.FromECDSA(w.key)
}

// Lock drops the key. The signer keeps its address but can no longer sign.
func (w *WalletSigner) Lock() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.key != nil {
		w.key.D.SetInt64(0)
		w.key = nil
	}
}

// ReadOnly is a SignerProvider for an address the client cannot sign for.
type ReadOnly struct {
	address ethcommon.Address
}

func NewReadOnly(address ethcommon.Address) *ReadOnly {
	return &ReadOnly{address: address}
}

func (r *ReadOnly) Address() ethcommon.Address { return r.address }

func (r *ReadOnly) CanSign() bool { return false }

func (r *ReadOnly) SignTx(context.Context, *types.Transaction, *big.Int) (*types.Transaction, error) {
	return nil, common.ErrReadOnly
}

func (r *ReadOnly) SignTypedData(context.Context, apitypes.TypedData) ([]byte, error) {
	return nil, common.ErrReadOnly
}
