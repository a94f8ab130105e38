package fhe

import (
	"context"
	"math/big"

	"github.com/dmitrijs2005/invisibledrop/internal/models"
	"github.com/ethereum/go-ethereum/common"
)

// HandlePair names a ciphertext and the contract that owns it.
type HandlePair struct {
	Handle          models.Handle
	ContractAddress common.Address
}

// UserDecryptRequest carries one authorised decryption. PrivateKey never
// leaves the process; it opens the sealed results.
type UserDecryptRequest struct {
	Pairs      []HandlePair
	PrivateKey []byte
	PublicKey  []byte
	// Signature is hex without the 0x prefix.
	Signature      string
	Contracts      []common.Address
	User           common.Address
	StartTimestamp int64
	DurationDays   int64
}

// Service is the decryption network. Failures should be *DecryptionError.
type Service interface {
	Domain(ctx context.Context) (Domain, error)
	UserDecrypt(ctx context.Context, req UserDecryptRequest) (map[string]*big.Int, error)
}
