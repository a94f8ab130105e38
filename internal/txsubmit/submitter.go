// Package txsubmit sends state-changing contract calls and waits for them to
// be mined.
package txsubmit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/chain"
	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Call is one contract invocation. Label names it in logs.
type Call struct {
	Label string
	To    ethcommon.Address
	Data  []byte
	Value *big.Int
}

// Result is a mined transaction.
type Result struct {
	TxHash  ethcommon.Hash
	Receipt *types.Receipt
}

type Options struct {
	// Confirmations is how many blocks, counting the inclusion block, must
	// exist before a receipt is accepted. Zero means one.
	Confirmations uint64
	PollInterval  time.Duration
}

// Submitter signs and sends transactions from one account.
type Submitter struct {
	backend       chain.Backend
	signer        chain.SignerProvider
	chainID       *big.Int
	confirmations uint64
	pollInterval  time.Duration
	logger        logging.Logger
}

func New(backend chain.Backend, signer chain.SignerProvider, chainID *big.Int, opts Options, logger logging.Logger) *Submitter {
	if opts.Confirmations == 0 {
		opts.Confirmations = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Submitter{
		backend:       backend,
		signer:        signer,
		chainID:       chainID,
		confirmations: opts.Confirmations,
		pollInterval:  opts.PollInterval,
		logger:        logger.With("module", "txsubmit"),
	}
}

// From is the sending account.
func (s *Submitter) From() ethcommon.Address { return s.signer.Address() }

// Submit sends call and blocks until its receipt has the configured number
// of confirmations. Failures before broadcast are *SubmitError; a rejected
// call is *RevertError. Once broadcast, the returned Result carries the hash
// even when waiting fails.
func (s *Submitter) Submit(ctx context.Context, call Call) (Result, error) {
	if !s.signer.CanSign() {
		return Result{}, &SubmitError{Op: "sign", Err: common.ErrReadOnly}
	}
	from := s.signer.Address()

	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return Result{}, &SubmitError{Op: "nonce", Err: err}
	}

	head, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return Result{}, &SubmitError{Op: "header", Err: err}
	}
	tipCap, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return Result{}, &SubmitError{Op: "tip", Err: err}
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(baseFee, big.NewInt(2)))

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	to := call.To
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  call.Data,
	})
	if err != nil {
		if reason, ok := chain.RevertReason(err); ok {
			return Result{}, &RevertError{Reason: reason}
		}
		return Result{}, &SubmitError{Op: "estimate", Err: err}
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      call.Data,
	})

	signed, err := s.signer.SignTx(ctx, tx, s.chainID)
	if err != nil {
		return Result{}, &SubmitError{Op: "sign", Err: err}
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return Result{}, &SubmitError{Op: "send", Err: err}
	}

	res := Result{TxHash: signed.Hash()}
	s.logger.Info(ctx, "transaction sent", "call", call.Label, "tx", res.TxHash.Hex(), "nonce", nonce, "gas", gas)

	receipt, err := s.Wait(ctx, res.TxHash)
	if err != nil {
		return res, err
	}
	res.Receipt = receipt

	if receipt.Status != types.ReceiptStatusSuccessful {
		reason := s.replayReason(ctx, from, call, value, receipt.BlockNumber)
		s.logger.Warn(ctx, "transaction reverted", "call", call.Label, "tx", res.TxHash.Hex(), "reason", reason)
		return res, &RevertError{TxHash: res.TxHash, Reason: reason}
	}

	s.logger.Info(ctx, "transaction confirmed", "call", call.Label, "tx", res.TxHash.Hex(), "block", receipt.BlockNumber)
	return res, nil
}

// Wait polls for the receipt of hash until it has enough confirmations or
// ctx ends.
func (s *Submitter) Wait(ctx context.Context, hash ethcommon.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			head, err := s.backend.BlockNumber(ctx)
			if err != nil {
				return nil, fmt.Errorf("wait for %s: %w", hash.Hex(), err)
			}
			if receipt.BlockNumber != nil && head+1 >= receipt.BlockNumber.Uint64()+s.confirmations {
				return receipt, nil
			}
		case errors.Is(err, ethereum.NotFound):
		default:
			return nil, fmt.Errorf("wait for %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// replayReason re-executes a failed call at its block to recover the revert
// reason the receipt does not carry.
func (s *Submitter) replayReason(ctx context.Context, from ethcommon.Address, call Call, value, block *big.Int) string {
	to := call.To
	_, err := s.backend.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: call.Data}, block)
	reason, _ := chain.RevertReason(err)
	return reason
}

// FormatError renders err for a user: a revert shows its reason, anything
// else its message.
func FormatError(err error) string {
	var re *RevertError
	if errors.As(err, &re) && re.Reason != "" {
		return re.Reason
	}
	if err == nil || err.Error() == "" {
		return "transaction failed"
	}
	return err.Error()
}
