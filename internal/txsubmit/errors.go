package txsubmit

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// SubmitError is a failure before the transaction reached the network:
// the signer refused, or the node could not be asked for a nonce, fees or
// gas, or rejected the raw transaction. Retrying is safe.
type SubmitError struct {
	Op  string
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit failed at %s: %v", e.Op, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// RevertError is an on-chain rejection. TxHash is zero when the node
// rejected the call while estimating gas, before anything was broadcast.
type RevertError struct {
	TxHash common.Hash
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "transaction reverted"
	}
	return "transaction reverted: " + e.Reason
}
