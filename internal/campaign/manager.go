// Package campaign holds the write side of the InvisibleDrop registry:
// creating campaigns, claiming and depositing encrypted rewards.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/amounts"
	"github.com/dmitrijs2005/invisibledrop/internal/chain"
	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	"github.com/dmitrijs2005/invisibledrop/internal/models"
	"github.com/dmitrijs2005/invisibledrop/internal/txsubmit"
	"github.com/ethereum/go-ethereum/common"
)

// Submitter sends a transaction and waits for it.
type Submitter interface {
	Submit(ctx context.Context, call txsubmit.Call) (txsubmit.Result, error)
}

// Params describe a new campaign. Contracts left zero are sent as the zero
// address; MinTokenAmount is a decimal in whole tokens ("" means 0).
type Params struct {
	RewardToken    common.Address
	RewardPerUser  uint64
	EndTime        time.Time
	RequireNFT     bool
	NFTContract    common.Address
	RequireToken   bool
	TokenContract  common.Address
	MinTokenAmount string
}

// DefaultParams are the form defaults: 100 per user, ending in seven days.
func DefaultParams(now time.Time) Params {
	return Params{RewardPerUser: 100, EndTime: now.Add(7 * 24 * time.Hour)}
}

var (
	ErrNoRewardToken = errors.New("reward token is required")
	ErrNoReward      = errors.New("reward per user must be positive")
	ErrEndInPast     = errors.New("end time must be in the future")
	ErrNoCondAddress = errors.New("condition contract is required")
)

// Validate checks p at now.
func (p Params) Validate(now time.Time) error {
	switch {
	case p.RewardToken == (common.Address{}):
		return ErrNoRewardToken
	case p.RewardPerUser == 0:
		return ErrNoReward
	case !p.EndTime.After(now):
		return ErrEndInPast
	case p.RequireNFT && p.NFTContract == (common.Address{}):
		return fmt.Errorf("nft: %w", ErrNoCondAddress)
	case p.RequireToken && p.TokenContract == (common.Address{}):
		return fmt.Errorf("token: %w", ErrNoCondAddress)
	}
	return nil
}

// Created is the outcome of Create. ID is common.UnknownID when the receipt
// carried no AirdropCreated event.
type Created struct {
	ID     string
	Result txsubmit.Result
}

type Manager struct {
	drop      *chain.Contract
	submitter Submitter
	created   *txsubmit.EventDecoder
	logger    logging.Logger
	now       func() time.Time
}

func NewManager(address common.Address, caller chain.Caller, submitter Submitter, logger logging.Logger) *Manager {
	return &Manager{
		drop:      chain.NewContract(address, chain.InvisibleDropABI, caller),
		submitter: submitter,
		created:   txsubmit.MustEventDecoder(chain.InvisibleDropABI, "AirdropCreated"),
		logger:    logger.With("module", "campaign"),
		now:       time.Now,
	}
}

// Create sends createAirdrop and returns the new campaign id.
func (m *Manager) Create(ctx context.Context, p Params) (Created, error) {
	if err := p.Validate(m.now()); err != nil {
		return Created{}, err
	}

	minAmount := new(big.Int)
	if p.MinTokenAmount != "" {
		v, err := amounts.ParseEther(p.MinTokenAmount)
		if err != nil {
			return Created{}, fmt.Errorf("min token amount: %w", err)
		}
		minAmount = v
	}

	data, err := m.drop.Pack("createAirdrop",
		p.RewardToken,
		p.RewardPerUser,
		big.NewInt(p.EndTime.Unix()),
		p.RequireNFT,
		p.NFTContract,
		p.RequireToken,
		p.TokenContract,
		minAmount,
	)
	if err != nil {
		return Created{}, err
	}

	res, err := m.submitter.Submit(ctx, txsubmit.Call{Label: "createAirdrop", To: m.drop.Address, Data: data})
	if err != nil {
		return Created{Result: res}, err
	}

	id := m.created.ID(res.Receipt, m.drop.Address, "airdropId")
	m.logger.Info(ctx, "campaign created", "id", id, "tx", res.TxHash.Hex())
	return Created{ID: id, Result: res}, nil
}

// ClaimCall encodes claimReward(id) for the claim state machine.
func (m *Manager) ClaimCall(id uint64) (txsubmit.Call, error) {
	data, err := m.drop.Pack("claimReward", new(big.Int).SetUint64(id))
	if err != nil {
		return txsubmit.Call{}, err
	}
	return txsubmit.Call{Label: "claimReward", To: m.drop.Address, Data: data}, nil
}

// DepositRewards forwards an encrypted amount and its input proof, both
// produced outside this client, to depositRewards.
func (m *Manager) DepositRewards(ctx context.Context, id uint64, handle models.Handle, proof []byte) (txsubmit.Result, error) {
	if len(proof) == 0 {
		return txsubmit.Result{}, errors.New("input proof is required")
	}
	data, err := m.drop.Pack("depositRewards", new(big.Int).SetUint64(id), [32]byte(handle), proof)
	if err != nil {
		return txsubmit.Result{}, err
	}
	res, err := m.submitter.Submit(ctx, txsubmit.Call{Label: "depositRewards", To: m.drop.Address, Data: data})
	if err != nil {
		return res, err
	}
	m.logger.Info(ctx, "rewards deposited", "id", id, "tx", res.TxHash.Hex())
	return res, nil
}
