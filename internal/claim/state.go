package claim

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// State is the claim status of one (campaign, user) pair.
type State int

const (
	Unclaimed State = iota
	Eligible
	Submitting
	Confirmed
	Ineligible
	Failed
)

func (s State) String() string {
	switch s {
	case Unclaimed:
		return "unclaimed"
	case Eligible:
		return "eligible"
	case Submitting:
		return "submitting"
	case Confirmed:
		return "confirmed"
	case Ineligible:
		return "ineligible"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	for st := Unclaimed; st <= Failed; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown claim state %q", s)
}

// Key identifies a claim.
type Key struct {
	CampaignID uint64
	User       common.Address
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.CampaignID, k.User.Hex())
}

// Transition is one state change, as delivered to subscribers and the
// journal.
type Transition struct {
	Key    Key
	From   State
	To     State
	TxHash common.Hash
	Err    error
	At     time.Time
}
