package cli

import (
	"context"
	"math/big"
	"sync"

	"github.com/dmitrijs2005/invisibledrop/internal/chain"
	"github.com/dmitrijs2005/invisibledrop/internal/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// session is the SignerProvider handed to every component. It forwards to
// whichever signer the user currently has: an unlocked wallet, a watched
// address, or nothing.
type session struct {
	mu     sync.RWMutex
	signer chain.SignerProvider
}

var _ chain.SignerProvider = (*session)(nil)

// set replaces the current signer. A replaced wallet is locked.
func (s *session) set(sp chain.SignerProvider) {
	s.mu.Lock()
	prev := s.signer
	s.signer = sp
	s.mu.Unlock()

	if w, ok := prev.(*chain.WalletSigner); ok && w != sp {
		w.Lock()
	}
}

func (s *session) current() chain.SignerProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signer
}

func (s *session) Address() ethcommon.Address {
	if sp := s.current(); sp != nil {
		return sp.Address()
	}
	return ethcommon.Address{}
}

func (s *session) CanSign() bool {
	sp := s.current()
	return sp != nil && sp.CanSign()
}

func (s *session) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	sp := s.current()
	if sp == nil {
		return nil, common.ErrReadOnly
	}
	return sp.SignTx(ctx, tx, chainID)
}

func (s *session) SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error) {
	sp := s.current()
	if sp == nil {
		return nil, common.ErrReadOnly
	}
	return sp.SignTypedData(ctx, data)
}
