// Package chaintest provides an in-memory chain.Backend for tests. Contract
// calls are answered by handlers registered per (address, method); sent
// transactions are mined immediately unless a hook says otherwise.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Handler answers a contract call with the method's unpacked arguments.
type Handler func(args []any) ([]any, error)

type handlerKey struct {
	address  common.Address
	selector [4]byte
}

type entry struct {
	method  abi.Method
	handler Handler
}

// Backend is a fake chain.Backend. Exported fields may be set before use;
// after that use the methods, which lock.
type Backend struct {
	mu       sync.Mutex
	handlers map[handlerKey]entry
	receipts map[common.Hash]*types.Receipt

	ChainIDValue *big.Int
	Head         uint64
	Nonce        uint64
	// AutoMine advances Head on every BlockNumber call.
	AutoMine bool

	// CallErr fails every CallContract, simulating an unreachable node.
	CallErr     error
	EstimateErr error
	SendErr     error
	// OnSend decides the receipt of a sent transaction. Returning nil keeps
	// the transaction pending forever.
	OnSend func(tx *types.Transaction) *types.Receipt

	calls int
	sent  []*types.Transaction
}

func New() *Backend {
	return &Backend{
		handlers:     make(map[handlerKey]entry),
		receipts:     make(map[common.Hash]*types.Receipt),
		ChainIDValue: big.NewInt(31337),
		Head:         1,
	}
}

// Handle registers h for method of contractABI at address.
func (b *Backend) Handle(address common.Address, contractABI *abi.ABI, method string, h Handler) {
	m, ok := contractABI.Methods[method]
	if !ok {
		panic(fmt.Sprintf("chaintest: unknown method %q", method))
	}
	var sel [4]byte
	copy(sel[:], m.ID)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[handlerKey{address: address, selector: sel}] = entry{method: m, handler: h}
}

// Return registers a handler that always yields values.
func (b *Backend) Return(address common.Address, contractABI *abi.ABI, method string, values ...any) {
	b.Handle(address, contractABI, method, func([]any) ([]any, error) { return values, nil })
}

// Calls reports how many eth_calls were made.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Sent returns the transactions broadcast so far.
func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.calls++
	callErr := b.CallErr
	var e entry
	var ok bool
	if msg.To != nil && len(msg.Data) >= 4 {
		var sel [4]byte
		copy(sel[:], msg.Data[:4])
		e, ok = b.handlers[handlerKey{address: *msg.To, selector: sel}]
	}
	b.mu.Unlock()

	if callErr != nil {
		return nil, callErr
	}
	if !ok {
		return nil, nil
	}

	args, err := e.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	out, err := e.handler(args)
	if err != nil {
		return nil, err
	}
	return e.method.Outputs.Pack(out...)
}

func (b *Backend) PendingNonceAt(ctx context.Context, _ common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Nonce, nil
}

func (b *Backend) HeaderByNumber(ctx context.Context, _ *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(b.Head), BaseFee: big.NewInt(1_000_000_000)}, nil
}

func (b *Backend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *Backend) EstimateGas(ctx context.Context, _ ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.EstimateErr != nil {
		return 0, b.EstimateErr
	}
	return 100_000, nil
}

func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SendErr != nil {
		return b.SendErr
	}
	b.sent = append(b.sent, tx)
	b.Nonce++
	b.Head++

	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	if b.OnSend != nil {
		receipt = b.OnSend(tx)
	}
	if receipt == nil {
		return nil
	}
	receipt.TxHash = tx.Hash()
	if receipt.BlockNumber == nil {
		receipt.BlockNumber = new(big.Int).SetUint64(b.Head)
	}
	b.receipts[tx.Hash()] = receipt
	return nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (b *Backend) BlockNumber(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.AutoMine {
		b.Head++
	}
	return b.Head, nil
}

func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	return b.ChainIDValue, nil
}

// EventLog builds a log for event of contractABI emitted by address.
// indexed are the topic values after the event id; data are the
// non-indexed arguments in order.
func EventLog(address common.Address, contractABI *abi.ABI, event string, indexed []common.Hash, data ...any) *types.Log {
	ev, ok := contractABI.Events[event]
	if !ok {
		panic(fmt.Sprintf("chaintest: unknown event %q", event))
	}
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		panic(err)
	}
	return &types.Log{
		Address: address,
		Topics:  append([]common.Hash{ev.ID}, indexed...),
		Data:    packed,
	}
}

// ErrReverted is a revert error shaped like the one geth returns, carrying
// ABI-encoded Error(string) data.
type ErrReverted struct {
	Reason string
}

func (e ErrReverted) Error() string { return "execution reverted: " + e.Reason }

func (e ErrReverted) ErrorData() interface{} {
	return "0x" + common.Bytes2Hex(revertData(e.Reason))
}

func revertData(reason string) []byte {
	str, _ := abi.NewType("string", "", nil)
	packed, err := abi.Arguments{{Type: str}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	// Error(string) selector.
	return append(common.FromHex("0x08c379a0"), packed...)
}

// ErrUnreachable is a convenient CallErr value.
var ErrUnreachable = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")
