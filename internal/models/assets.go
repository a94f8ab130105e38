package models

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NFT is one token held by a user.
type NFT struct {
	TokenID *big.Int
	URI     string
}

// TokenInfo describes a token contract.
type TokenInfo struct {
	Name        string
	Symbol      string
	TotalSupply *big.Int
}

// Handle is an opaque 32-byte ciphertext reference produced by the FHE
// coprocessor.
type Handle [32]byte

// IsZero reports whether h is the all-zero handle, which stands for an
// uninitialised (zero) balance.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// String is the 0x-prefixed lowercase hex form used as the key in decrypt
// responses.
func (h Handle) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// ParseHandle accepts a 0x-prefixed or bare 64-char hex string.
func ParseHandle(s string) (Handle, error) {
	var h Handle
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x"))
	if err != nil {
		return h, fmt.Errorf("parse handle: %w", err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("parse handle: want 32 bytes, got %d", len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// EncryptedBalance is a handle together with the contract that owns it.
type EncryptedBalance struct {
	Handle          Handle
	ContractAddress common.Address
}
