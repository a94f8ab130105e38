// Package amounts converts between human-entered amounts and on-chain
// integers.
//
// Two scaling rules coexist and are deliberately kept apart:
//
//   - ERC-20 amounts (TestToken balances, minTokenAmount) use 18 decimals.
//   - Confidential funding amounts are whole units multiplied by 1,000,000
//     before minting to the airdrop contract.
//
// The second rule does not match the 18-decimal convention. It mirrors what
// the deployed dApp does and awaits confirmation from the contract owners.
package amounts

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// EtherDecimals is the fixed-point precision of the plain ERC-20 path.
	EtherDecimals = 18

	// ConfidentialFundingScale multiplies whole confidential units when
	// funding the registry contract.
	// TODO: confirm with the contract owners whether this should follow the
	// confidential token's decimals instead of a fixed factor.
	ConfidentialFundingScale = 1_000_000
)

var (
	ErrNegative      = errors.New("amount must not be negative")
	ErrTooPrecise    = errors.New("amount has more than 18 decimal places")
	ErrOutOfRange    = errors.New("amount out of range")
	maxUint64Decimal = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)
)

// ParseEther parses a decimal string such as "1.5" into its 18-decimal
// integer representation.
func ParseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, ErrNegative
	}
	scaled := d.Shift(EtherDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, ErrTooPrecise
	}
	return scaled.BigInt(), nil
}

// FormatEther renders an 18-decimal integer as a decimal string without
// trailing zeros. Nil formats as "0".
func FormatEther(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -EtherDecimals).String()
}

// ConfidentialFundingUnits converts a user-entered amount into the integer
// minted to the airdrop contract. The fractional part is dropped before
// scaling, matching integer parsing of the input.
func ConfidentialFundingUnits(s string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, ErrNegative
	}
	scaled := d.Truncate(0).Mul(decimal.NewFromInt(ConfidentialFundingScale))
	if scaled.GreaterThan(maxUint64Decimal) {
		return 0, ErrOutOfRange
	}
	return scaled.BigInt().Uint64(), nil
}

// ParseUint64 parses a whole confidential amount (e.g. a per-user reward).
func ParseUint64(s string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, ErrNegative
	}
	if !d.Equal(d.Truncate(0)) || d.GreaterThan(maxUint64Decimal) {
		return 0, ErrOutOfRange
	}
	return d.BigInt().Uint64(), nil
}
