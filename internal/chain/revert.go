package chain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type dataError interface {
	ErrorData() interface{}
}

const revertPrefix = "execution reverted"

// RevertReason extracts the contract-provided reason from an RPC error.
// It prefers ABI-encoded revert data and falls back to the node's
// "execution reverted: ..." message. ok is false when err is not a revert.
func RevertReason(err error) (reason string, ok bool) {
	if err == nil {
		return "", false
	}

	var de dataError
	if errors.As(err, &de) {
		if hexData, isStr := de.ErrorData().(string); isStr {
			if r, unpackErr := abi.UnpackRevert(common.FromHex(hexData)); unpackErr == nil {
				return r, true
			}
		}
	}

	msg := err.Error()
	idx := strings.Index(msg, revertPrefix)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimPrefix(msg[idx+len(revertPrefix):], ":")
	return strings.TrimSpace(rest), true
}
