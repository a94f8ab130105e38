// Package chain is the thin layer between the airdrop components and an
// Ethereum JSON-RPC node: contract interfaces, the per-network address book,
// typed call helpers and the signer abstraction.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Caller executes read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Backend is the slice of an RPC client the application needs.
// *ethclient.Client satisfies it.
type Backend interface {
	Caller
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Dial connects to a JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return c, nil
}

// ErrNoCode is returned when a call hits an address without contract code.
var ErrNoCode = errors.New("no contract code at address")

// Contract binds an ABI to a deployed address.
type Contract struct {
	Address common.Address
	ABI     *abi.ABI
	caller  Caller
}

func NewContract(address common.Address, contractABI *abi.ABI, caller Caller) *Contract {
	return &Contract{Address: address, ABI: contractABI, caller: caller}
}

// Call performs an eth_call of method and returns the unpacked outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.Address, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 && len(c.ABI.Methods[method].Outputs) > 0 {
		return nil, fmt.Errorf("%s at %s: %w", method, c.Address.Hex(), ErrNoCode)
	}

	values, err := c.ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// Pack encodes calldata for a state-changing call.
func (c *Contract) Pack(method string, args ...any) ([]byte, error) {
	data, err := c.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

// BigInt asserts a single uint256 output.
func BigInt(values []any) (*big.Int, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("want 1 output, got %d", len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", values[0])
	}
	return v, nil
}

// String asserts a single string output.
func String(values []any) (string, error) {
	if len(values) != 1 {
		return "", fmt.Errorf("want 1 output, got %d", len(values))
	}
	v, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected output type %T", values[0])
	}
	return v, nil
}
