// Package eligibility decides whether a user may claim from a campaign.
package eligibility

import (
	"math/big"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/models"
)

// Evaluate applies the campaign rules at now. All of the following must hold:
// the campaign is active and not past its end time, the user has not claimed,
// the user owns at least one NFT when one is required, and the token balance
// reaches the minimum when a token is required. Holdings for a condition that
// is not required are ignored. Evaluate has no side effects.
func Evaluate(now time.Time, c models.Campaign, cond models.Conditions, rec models.ClaimRecord, h models.Holdings) models.Verdict {
	if !c.Open(now) || rec.HasClaimed {
		return models.Verdict{}
	}
	if cond.RequireNFT && orZero(h.NFTCount).Sign() <= 0 {
		return models.Verdict{}
	}
	if cond.RequireToken && orZero(h.TokenBalance).Cmp(orZero(cond.MinTokenAmount)) < 0 {
		return models.Verdict{}
	}
	return models.Verdict{Eligible: true, ClaimableAmount: c.RewardPerUser}
}

// CanClaim combines the contract's own answers into the single flag shown
// next to a campaign.
func CanClaim(onchainEligible bool, rec models.ClaimRecord, claimable uint64, active bool) bool {
	return onchainEligible && !rec.HasClaimed && claimable > 0 && active
}

var zero = new(big.Int)

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return zero
	}
	return v
}
