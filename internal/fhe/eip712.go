package fhe

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// PrimaryType is the EIP-712 type a user signs to authorise decryption.
const PrimaryType = "UserDecryptRequestVerification"

const secondsPerDay = 24 * 60 * 60

// ClockSkew is how far a grant's start may lie ahead of the verifier's clock.
const ClockSkew = 5 * time.Minute

// Domain is the EIP-712 domain of the decryption service.
type Domain struct {
	Name              string         `json:"name"`
	Version           string         `json:"version"`
	ChainID           uint64         `json:"chainId"`
	VerifyingContract common.Address `json:"verifyingContract"`
}

// Grant is a signed, time-bounded permission to decrypt handles of
// Contracts.
type Grant struct {
	Signature      []byte
	StartTimestamp int64
	DurationDays   int64
	Contracts      []common.Address
}

// ExpiresAt is StartTimestamp plus DurationDays.
func (g Grant) ExpiresAt() time.Time {
	return time.Unix(g.StartTimestamp+g.DurationDays*secondsPerDay, 0)
}

// StartsAfter reports whether the grant starts later than now, allowing
// ClockSkew between the signer's clock and the caller's.
func (g Grant) StartsAfter(now time.Time) bool {
	return now.Add(ClockSkew).Before(time.Unix(g.StartTimestamp, 0))
}

// ValidAt reports whether now falls inside [start-ClockSkew, start+days).
func (g Grant) ValidAt(now time.Time) bool {
	return !g.StartsAfter(now) && now.Before(g.ExpiresAt())
}

// CreateEIP712 builds the typed data binding publicKey to contracts for
// durationDays starting at startTimestamp.
func CreateEIP712(domain Domain, publicKey []byte, contracts []common.Address, startTimestamp, durationDays int64) apitypes.TypedData {
	addrs := make([]interface{}, len(contracts))
	for i, c := range contracts {
		addrs[i] = c.Hex()
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			PrimaryType: {
				{Name: "publicKey", Type: "bytes"},
				{Name: "contractAddresses", Type: "address[]"},
				{Name: "startTimestamp", Type: "uint256"},
				{Name: "durationDays", Type: "uint256"},
			},
		},
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).SetUint64(domain.ChainID)),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"publicKey":         hexutil.Encode(publicKey),
			"contractAddresses": addrs,
			"startTimestamp":    strconv.FormatInt(startTimestamp, 10),
			"durationDays":      strconv.FormatInt(durationDays, 10),
		},
	}
}

// RecoverSigner returns the address that produced sig over data. V may be
// 0/1 or 27/28.
func RecoverSigner(data apitypes.TypedData, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature length %d", len(sig))
	}
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return common.Address{}, fmt.Errorf("hash typed data: %w", err)
	}

	s := append([]byte(nil), sig...)
	if s[crypto.RecoveryIDOffset] >= 27 {
		s[crypto.RecoveryIDOffset] -= 27
	}
	if s[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, errors.New("invalid recovery id")
	}

	pub, err := crypto.SigToPub(hash, s)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
