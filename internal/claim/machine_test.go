package claim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/eligibility"
	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	"github.com/dmitrijs2005/invisibledrop/internal/models"
	"github.com/dmitrijs2005/invisibledrop/internal/registry"
	"github.com/dmitrijs2005/invisibledrop/internal/txsubmit"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var key = Key{CampaignID: 3, User: ethcommon.HexToAddress("0x00000000000000000000000000000000000000aa")}

// fakeChain is the on-chain view shared by the fakes: a claim flag and an
// eligibility verdict.
type fakeChain struct {
	mu        sync.Mutex
	claimed   bool
	eligible  bool
	checkErr  error
	recordErr error

	checks  int
	records int
}

func (f *fakeChain) Check(ctx context.Context, id uint64, user ethcommon.Address) (eligibility.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.checkErr != nil {
		return eligibility.Result{}, f.checkErr
	}
	res := eligibility.Result{Record: models.ClaimRecord{HasClaimed: f.claimed}}
	if f.eligible && !f.claimed {
		res.Verdict = models.Verdict{Eligible: true, ClaimableAmount: 100}
	}
	return res, nil
}

func (f *fakeChain) GetClaimRecord(ctx context.Context, id uint64, user ethcommon.Address) (models.ClaimRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records++
	if f.recordErr != nil {
		return models.ClaimRecord{}, f.recordErr
	}
	return models.ClaimRecord{HasClaimed: f.claimed}, nil
}

func (f *fakeChain) set(fn func(*fakeChain)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeChain) counts() (checks, records int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks, f.records
}

type fakeSubmitter struct {
	chain    *fakeChain
	mu       sync.Mutex
	calls    int
	err      error
	record   bool
	started  chan struct{}
	release  chan struct{}
	lastCall txsubmit.Call
}

var txHash = ethcommon.HexToHash("0x01")

func (s *fakeSubmitter) Submit(ctx context.Context, call txsubmit.Call) (txsubmit.Result, error) {
	s.mu.Lock()
	s.calls++
	s.lastCall = call
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return txsubmit.Result{TxHash: txHash}, s.err
	}
	if s.record {
		s.chain.set(func(f *fakeChain) { f.claimed = true })
	}
	return txsubmit.Result{TxHash: txHash}, nil
}

func (s *fakeSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeCalls struct{}

func (fakeCalls) ClaimCall(id uint64) (txsubmit.Call, error) {
	return txsubmit.Call{Label: "claimReward"}, nil
}

type memJournal struct {
	mu  sync.Mutex
	log []Transition
	err error
}

func (j *memJournal) Record(_ context.Context, t Transition) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.log = append(j.log, t)
	return j.err
}

func newMachine(fc *fakeChain, sub *fakeSubmitter, opts ...Option) *Machine {
	return NewMachine(fc, fc, sub, fakeCalls{}, logging.Discard(), opts...)
}

func drain(ch <-chan Transition) []Transition {
	var out []Transition
	for {
		select {
		case t := <-ch:
			out = append(out, t)
		default:
			return out
		}
	}
}

func path(ts []Transition) []State {
	out := make([]State, 0, len(ts)+1)
	if len(ts) > 0 {
		out = append(out, ts[0].From)
	}
	for _, t := range ts {
		out = append(out, t.To)
	}
	return out
}

func TestClaim_HappyPathThenAlreadyClaimed(t *testing.T) {
	fc := &fakeChain{eligible: true}
	sub := &fakeSubmitter{chain: fc, record: true}
	m := newMachine(fc, sub)
	ch, cancel := m.Subscribe(16)
	defer cancel()

	res, err := m.Claim(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, txHash, res.TxHash)
	assert.Equal(t, Confirmed, m.State(key))
	assert.Equal(t, []State{Unclaimed, Eligible, Submitting, Confirmed}, path(drain(ch)))

	checks, records := fc.counts()
	_, err = m.Claim(context.Background(), key)
	require.ErrorIs(t, err, common.ErrAlreadyClaimed)

	c2, r2 := fc.counts()
	assert.Equal(t, checks, c2)
	assert.Equal(t, records, r2)
	assert.Equal(t, 1, sub.count())
	assert.Empty(t, drain(ch))
}

func TestClaim_NotEligibleFailsFastAfterwards(t *testing.T) {
	fc := &fakeChain{eligible: false}
	sub := &fakeSubmitter{chain: fc}
	m := newMachine(fc, sub)

	_, err := m.Claim(context.Background(), key)
	require.ErrorIs(t, err, common.ErrNotEligible)
	assert.Equal(t, Ineligible, m.State(key))

	_, err = m.Claim(context.Background(), key)
	require.ErrorIs(t, err, common.ErrNotEligible)
	checks, _ := fc.counts()
	assert.Equal(t, 1, checks)
	assert.Zero(t, sub.count())
}

func TestClaim_ClaimedElsewhereIsAlreadyClaimed(t *testing.T) {
	fc := &fakeChain{eligible: true, claimed: true}
	m := newMachine(fc, &fakeSubmitter{chain: fc})

	_, err := m.Claim(context.Background(), key)
	require.ErrorIs(t, err, common.ErrAlreadyClaimed)
	assert.Equal(t, Confirmed, m.State(key))
}

func TestClaim_InFlightGuard(t *testing.T) {
	fc := &fakeChain{eligible: true}
	sub := &fakeSubmitter{chain: fc, record: true, started: make(chan struct{}), release: make(chan struct{})}
	m := newMachine(fc, sub)

	done := make(chan error, 1)
	go func() {
		_, err := m.Claim(context.Background(), key)
		done <- err
	}()

	<-sub.started
	assert.Equal(t, Submitting, m.State(key))

	checks, _ := fc.counts()
	_, err := m.Claim(context.Background(), key)
	require.ErrorIs(t, err, common.ErrClaimInFlight)
	c2, _ := fc.counts()
	assert.Equal(t, checks, c2)

	// refresh must not disturb an in-flight submission
	st, err := m.Refresh(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, Submitting, st)

	close(sub.release)
	require.NoError(t, <-done)
	assert.Equal(t, Confirmed, m.State(key))

	_, err = m.Claim(context.Background(), key)
	require.ErrorIs(t, err, common.ErrAlreadyClaimed)
	assert.Equal(t, 1, sub.count())
}

func TestClaim_ConcurrentSameKeyOneConfirmation(t *testing.T) {
	fc := &fakeChain{eligible: true}
	sub := &fakeSubmitter{chain: fc, record: true}
	m := newMachine(fc, sub)
	ch, cancel := m.Subscribe(64)
	defer cancel()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = m.Claim(context.Background(), key)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, common.ErrAlreadyClaimed), errors.Is(err, common.ErrClaimInFlight):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, sub.count())

	confirmations := 0
	for _, tr := range drain(ch) {
		if tr.From == Submitting && tr.To == Confirmed {
			confirmations++
		}
	}
	assert.Equal(t, 1, confirmations)
}

func TestClaim_FailureReturnsToEligibleAndRetries(t *testing.T) {
	fc := &fakeChain{eligible: true}
	revert := &txsubmit.RevertError{TxHash: txHash, Reason: "out of gas"}
	sub := &fakeSubmitter{chain: fc, err: revert}
	m := newMachine(fc, sub)
	ch, cancel := m.Subscribe(16)
	defer cancel()

	_, err := m.Claim(context.Background(), key)
	var re *txsubmit.RevertError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, Eligible, m.State(key))

	ts := drain(ch)
	assert.Equal(t, []State{Unclaimed, Eligible, Submitting, Failed, Eligible}, path(ts))
	assert.Equal(t, revert, ts[2].Err)

	sub.err = nil
	sub.record = true
	_, err = m.Claim(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, m.State(key))
}

func TestClaim_FailureButClaimedOnChainIsIneligible(t *testing.T) {
	fc := &fakeChain{eligible: true}
	// the transaction lands even though waiting for it timed out
	sub := &landingSubmitter{chain: fc, err: context.DeadlineExceeded}
	m := NewMachine(fc, fc, sub, fakeCalls{}, logging.Discard())

	_, err := m.Claim(context.Background(), key)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Ineligible, m.State(key))
}

// landingSubmitter records the claim on chain and still reports failure.
type landingSubmitter struct {
	chain *fakeChain
	err   error
}

func (s *landingSubmitter) Submit(context.Context, txsubmit.Call) (txsubmit.Result, error) {
	s.chain.set(func(f *fakeChain) { f.claimed = true })
	return txsubmit.Result{TxHash: txHash}, s.err
}

func TestClaim_FailureWithUnreadableRecordStaysFailed(t *testing.T) {
	fc := &fakeChain{eligible: true}
	sub := &fakeSubmitter{chain: fc, err: &txsubmit.SubmitError{Op: "send", Err: errors.New("nonce too low")}}
	m := newMachine(fc, sub)

	fc.set(func(f *fakeChain) { f.recordErr = &registry.ReadFailure{Op: "getClaimRecord", Err: errors.New("down")} })
	_, err := m.Claim(context.Background(), key)
	var se *txsubmit.SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, Failed, m.State(key))

	// Failed does not block a retry
	fc.set(func(f *fakeChain) { f.recordErr = nil })
	sub.err = nil
	sub.record = true
	_, err = m.Claim(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, m.State(key))
}

func TestClaim_ReadFailureLeavesStateUnknown(t *testing.T) {
	fc := &fakeChain{checkErr: &registry.ReadFailure{Op: "getCampaign", Err: errors.New("down")}}
	sub := &fakeSubmitter{chain: fc}
	m := newMachine(fc, sub)

	_, err := m.Claim(context.Background(), key)
	require.True(t, registry.IsReadFailure(err))
	assert.Equal(t, Unclaimed, m.State(key))
	assert.Zero(t, sub.count())
}

func TestClaim_MinedButNotRecorded(t *testing.T) {
	fc := &fakeChain{eligible: true}
	sub := &fakeSubmitter{chain: fc, record: false}
	m := newMachine(fc, sub)

	_, err := m.Claim(context.Background(), key)
	require.ErrorIs(t, err, ErrClaimNotRecorded)
	assert.Equal(t, Eligible, m.State(key))
}

func TestClaim_ReconcileReadFailureAfterSuccess(t *testing.T) {
	fc := &fakeChain{eligible: true}
	sub := &landingSubmitter{chain: fc}
	m := NewMachine(fc, &failingRecords{err: errors.New("timeout")}, sub, fakeCalls{}, logging.Discard())

	_, err := m.Claim(context.Background(), key)
	require.ErrorContains(t, err, "timeout")
	assert.Equal(t, Failed, m.State(key))
}

type failingRecords struct{ err error }

func (f *failingRecords) GetClaimRecord(context.Context, uint64, ethcommon.Address) (models.ClaimRecord, error) {
	return models.ClaimRecord{}, f.err
}

func TestRefresh_LeavesIneligibleWhenConditionsChange(t *testing.T) {
	fc := &fakeChain{eligible: false}
	m := newMachine(fc, &fakeSubmitter{chain: fc})

	st, err := m.Refresh(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, Ineligible, st)

	fc.set(func(f *fakeChain) { f.eligible = true })
	st, err = m.Refresh(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, Eligible, st)
}

func TestRefresh_ReadFailureKeepsState(t *testing.T) {
	fc := &fakeChain{eligible: true}
	m := newMachine(fc, &fakeSubmitter{chain: fc})
	_, err := m.Refresh(context.Background(), key)
	require.NoError(t, err)

	fc.set(func(f *fakeChain) { f.checkErr = errors.New("down") })
	st, err := m.Refresh(context.Background(), key)
	require.Error(t, err)
	assert.Equal(t, Eligible, st)
}

func TestJournal_RecordsTransitions(t *testing.T) {
	fc := &fakeChain{eligible: true}
	j := &memJournal{err: errors.New("disk full")}
	m := newMachine(fc, &fakeSubmitter{chain: fc, record: true}, WithJournal(j))
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	_, err := m.Claim(context.Background(), key)
	require.NoError(t, err)

	require.Len(t, j.log, 3)
	last := j.log[2]
	assert.Equal(t, key, last.Key)
	assert.Equal(t, Submitting, last.From)
	assert.Equal(t, Confirmed, last.To)
	assert.Equal(t, txHash, last.TxHash)
	assert.Equal(t, fixed, last.At)
}

func TestSubscribe_NonBlockingAndCancel(t *testing.T) {
	fc := &fakeChain{eligible: true}
	m := newMachine(fc, &fakeSubmitter{chain: fc, record: true})

	full, cancelFull := m.Subscribe(0)
	ch, cancel := m.Subscribe(1)

	_, err := m.Claim(context.Background(), key)
	require.NoError(t, err)

	// unbuffered subscriber with no reader lost everything, claim still done
	assert.Empty(t, drain(full))
	// buffered subscriber kept the first transition only
	assert.Len(t, drain(ch), 1)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	cancelFull()
}

func TestState_StringRoundTrip(t *testing.T) {
	for st := Unclaimed; st <= Failed; st++ {
		got, err := ParseState(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}
	_, err := ParseState("bogus")
	require.Error(t, err)
	assert.Equal(t, "state(42)", State(42).String())
	assert.Equal(t, "3/"+key.User.Hex(), key.String())
}
