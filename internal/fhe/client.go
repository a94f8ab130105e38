// Package fhe reveals confidential token balances to their owner.
//
// A decrypt runs a fresh handshake each time: generate an ephemeral keypair,
// have the wallet sign an EIP-712 grant over the public key, and ask the
// decryption service for the plaintext sealed to that key. The keypair and
// signature are wiped when the call returns.
package fhe

import (
	"context"
	"encoding/hex"
	"math/big"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/chain"
	"github.com/dmitrijs2005/invisibledrop/internal/cryptox"
	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	"github.com/dmitrijs2005/invisibledrop/internal/models"
	"github.com/ethereum/go-ethereum/common"
)

// GrantDays is the validity of the grant signed for each decrypt.
const GrantDays = 1

type Client struct {
	service  Service
	logger   logging.Logger
	now      func() time.Time
	generate func() (*Keypair, error)
}

func NewClient(service Service, logger logging.Logger) *Client {
	return &Client{
		service:  service,
		logger:   logger.With("module", "fhe"),
		now:      time.Now,
		generate: GenerateKeypair,
	}
}

// Decrypt returns the plaintext behind handle, owned by user on
// tokenContract. The zero handle is 0 and needs neither signer nor network.
func (c *Client) Decrypt(ctx context.Context, tokenContract, user common.Address, handle models.Handle, signer chain.SignerProvider) (*big.Int, error) {
	if handle.IsZero() {
		return new(big.Int), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, &DecryptionError{Reason: ErrServiceUnavailable, Err: err}
	}

	kp, err := c.generate()
	if err != nil {
		return nil, &DecryptionError{Reason: ErrServiceUnavailable, Err: err}
	}
	defer kp.Wipe()

	domain, err := c.service.Domain(ctx)
	if err != nil {
		return nil, decryptionError(ErrServiceUnavailable, err)
	}

	contracts := []common.Address{tokenContract}
	start := c.now().Unix()
	typed := CreateEIP712(domain, kp.PublicKey, contracts, start, GrantDays)

	sig, err := signer.SignTypedData(ctx, typed)
	if err != nil {
		return nil, &DecryptionError{Reason: ErrSignatureRejected, Err: err}
	}
	defer cryptox.Wipe(sig)

	results, err := c.service.UserDecrypt(ctx, UserDecryptRequest{
		Pairs:          []HandlePair{{Handle: handle, ContractAddress: tokenContract}},
		PrivateKey:     kp.PrivateKey,
		PublicKey:      kp.PublicKey,
		Signature:      hex.EncodeToString(sig),
		Contracts:      contracts,
		User:           user,
		StartTimestamp: start,
		DurationDays:   GrantDays,
	})
	if err != nil {
		c.logger.Warn(ctx, "user decrypt failed", "contract", tokenContract.Hex(), "user", user.Hex(), "error", err)
		return nil, decryptionError(ErrServiceUnavailable, err)
	}

	v, ok := results[handle.String()]
	if !ok || v == nil {
		return nil, &DecryptionError{Reason: ErrNoResult}
	}
	c.logger.Debug(ctx, "handle decrypted", "contract", tokenContract.Hex(), "user", user.Hex())
	return v, nil
}
