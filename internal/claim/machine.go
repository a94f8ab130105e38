// Package claim gates reward claims.
//
// A Machine tracks each (campaign, user) pair through
// Unclaimed -> Eligible -> Submitting -> Confirmed, with Ineligible and Failed
// on the side. At most one submission per pair is in flight; a second attempt
// is rejected before it reaches the network. After every submission the
// machine reads the claim record back from the chain and settles on what the
// chain says.
package claim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/eligibility"
	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	"github.com/dmitrijs2005/invisibledrop/internal/models"
	"github.com/dmitrijs2005/invisibledrop/internal/txsubmit"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ErrClaimNotRecorded means the claim transaction succeeded but the chain
// still reports the pair as unclaimed.
var ErrClaimNotRecorded = errors.New("claim mined but not recorded on chain")

const reconcileTimeout = 15 * time.Second

// Checker evaluates eligibility against fresh chain state.
type Checker interface {
	Check(ctx context.Context, id uint64, user ethcommon.Address) (eligibility.Result, error)
}

// RecordReader reads the on-chain claim record.
type RecordReader interface {
	GetClaimRecord(ctx context.Context, id uint64, user ethcommon.Address) (models.ClaimRecord, error)
}

// Submitter sends a transaction and waits for it.
type Submitter interface {
	Submit(ctx context.Context, call txsubmit.Call) (txsubmit.Result, error)
}

// CallBuilder encodes claimReward.
type CallBuilder interface {
	ClaimCall(id uint64) (txsubmit.Call, error)
}

// Journal persists transitions.
type Journal interface {
	Record(ctx context.Context, t Transition) error
}

type Option func(*Machine)

// WithJournal records every transition in j. Journal failures are logged and
// do not affect the claim.
func WithJournal(j Journal) Option {
	return func(m *Machine) { m.journal = j }
}

type Machine struct {
	checker   Checker
	records   RecordReader
	submitter Submitter
	calls     CallBuilder
	journal   Journal
	logger    logging.Logger
	now       func() time.Time

	mu       sync.Mutex
	states   map[Key]State
	inflight map[Key]struct{}
	subs     map[int]chan Transition
	nextSub  int
}

func NewMachine(checker Checker, records RecordReader, submitter Submitter, calls CallBuilder, logger logging.Logger, opts ...Option) *Machine {
	m := &Machine{
		checker:   checker,
		records:   records,
		submitter: submitter,
		calls:     calls,
		logger:    logger.With("module", "claim"),
		now:       time.Now,
		states:    make(map[Key]State),
		inflight:  make(map[Key]struct{}),
		subs:      make(map[int]chan Transition),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state of key. Unknown keys are Unclaimed.
func (m *Machine) State(key Key) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[key]
}

// Subscribe returns a channel receiving every transition. Sends never block:
// a full channel drops the transition. cancel closes the channel.
func (m *Machine) Subscribe(buffer int) (<-chan Transition, func()) {
	ch := make(chan Transition, buffer)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}

// Refresh re-evaluates key against the chain. It is how a pair leaves
// Ineligible once conditions change. A read failure leaves the state as it
// was. Refresh does nothing while a submission is in flight.
func (m *Machine) Refresh(ctx context.Context, key Key) (State, error) {
	if !m.acquire(key) {
		return m.State(key), nil
	}
	defer m.release(key)

	st, _, err := m.evaluate(ctx, key)
	return st, err
}

func (m *Machine) evaluate(ctx context.Context, key Key) (State, models.Verdict, error) {
	res, err := m.checker.Check(ctx, key.CampaignID, key.User)
	if err != nil {
		return m.State(key), models.Verdict{}, err
	}

	switch {
	case res.Record.HasClaimed:
		m.transition(ctx, key, Confirmed, ethcommon.Hash{}, nil)
		return Confirmed, res.Verdict, nil
	case res.Verdict.Eligible:
		m.transition(ctx, key, Eligible, ethcommon.Hash{}, nil)
		return Eligible, res.Verdict, nil
	default:
		m.transition(ctx, key, Ineligible, ethcommon.Hash{}, nil)
		return Ineligible, res.Verdict, nil
	}
}

// Claim submits claimReward for key.
//
// Confirmed and Ineligible fail with common.ErrAlreadyClaimed and
// common.ErrNotEligible without any network access; a pair with a
// submission in flight fails with common.ErrClaimInFlight. Otherwise
// eligibility is checked fresh, the call is submitted, and the state is
// settled from the chain's claim record.
func (m *Machine) Claim(ctx context.Context, key Key) (txsubmit.Result, error) {
	m.mu.Lock()
	switch m.states[key] {
	case Confirmed:
		m.mu.Unlock()
		return txsubmit.Result{}, common.ErrAlreadyClaimed
	case Ineligible:
		m.mu.Unlock()
		return txsubmit.Result{}, common.ErrNotEligible
	}
	if _, busy := m.inflight[key]; busy {
		m.mu.Unlock()
		return txsubmit.Result{}, common.ErrClaimInFlight
	}
	m.inflight[key] = struct{}{}
	m.mu.Unlock()
	defer m.release(key)

	st, _, err := m.evaluate(ctx, key)
	if err != nil {
		return txsubmit.Result{}, err
	}
	switch st {
	case Confirmed:
		return txsubmit.Result{}, common.ErrAlreadyClaimed
	case Ineligible:
		return txsubmit.Result{}, common.ErrNotEligible
	}

	call, err := m.calls.ClaimCall(key.CampaignID)
	if err != nil {
		return txsubmit.Result{}, err
	}

	m.transition(ctx, key, Submitting, ethcommon.Hash{}, nil)
	res, submitErr := m.submitter.Submit(ctx, call)

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reconcileTimeout)
	defer cancel()

	if submitErr != nil {
		m.transition(ctx, key, Failed, res.TxHash, submitErr)
		m.settleAfterFailure(rctx, key, res.TxHash)
		return res, submitErr
	}

	rec, err := m.records.GetClaimRecord(rctx, key.CampaignID, key.User)
	if err != nil {
		m.transition(ctx, key, Failed, res.TxHash, err)
		return res, fmt.Errorf("read claim record after %s: %w", res.TxHash.Hex(), err)
	}
	if !rec.HasClaimed {
		m.transition(ctx, key, Eligible, res.TxHash, ErrClaimNotRecorded)
		return res, ErrClaimNotRecorded
	}

	m.transition(ctx, key, Confirmed, res.TxHash, nil)
	return res, nil
}

// settleAfterFailure moves a Failed pair back to Eligible while the chain
// still reports it unclaimed, and to Ineligible otherwise. If the record
// cannot be read the pair stays Failed and may be retried.
func (m *Machine) settleAfterFailure(ctx context.Context, key Key, tx ethcommon.Hash) {
	rec, err := m.records.GetClaimRecord(ctx, key.CampaignID, key.User)
	if err != nil {
		m.logger.Warn(ctx, "claim record unreadable after failure", "campaign", key.CampaignID, "user", key.User.Hex(), "error", err)
		return
	}
	if rec.HasClaimed {
		m.transition(ctx, key, Ineligible, tx, nil)
		return
	}
	m.transition(ctx, key, Eligible, tx, nil)
}

func (m *Machine) acquire(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[key]; busy {
		return false
	}
	m.inflight[key] = struct{}{}
	return true
}

func (m *Machine) release(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, key)
}

func (m *Machine) transition(ctx context.Context, key Key, to State, tx ethcommon.Hash, cause error) {
	m.mu.Lock()
	from := m.states[key]
	if from == to && tx == (ethcommon.Hash{}) && cause == nil {
		m.mu.Unlock()
		return
	}
	m.states[key] = to
	t := Transition{Key: key, From: from, To: to, TxHash: tx, Err: cause, At: m.now()}
	for _, ch := range m.subs {
		select {
		case ch <- t:
		default:
		}
	}
	m.mu.Unlock()

	args := []any{"campaign", key.CampaignID, "user", key.User.Hex(), "from", from.String(), "to", to.String()}
	if tx != (ethcommon.Hash{}) {
		args = append(args, "tx", tx.Hex())
	}
	if cause != nil {
		args = append(args, "error", cause)
		m.logger.Warn(ctx, "claim transition", args...)
	} else {
		m.logger.Info(ctx, "claim transition", args...)
	}

	if m.journal != nil {
		if err := m.journal.Record(ctx, t); err != nil {
			m.logger.Error(ctx, "journal claim transition", "campaign", key.CampaignID, "error", err)
		}
	}
}
