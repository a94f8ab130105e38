// Package models holds the airdrop domain records shared by the client
// components. Records mirror what the registry contract returns; the client
// only ever holds read snapshots of them.
package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Campaign is one airdrop as reported by getAirdropInfo.
type Campaign struct {
	ID            uint64         `json:"id"`
	Creator       common.Address `json:"creator"`
	RewardToken   common.Address `json:"reward_token"`
	RewardPerUser uint64         `json:"reward_per_user"`
	EndTime       time.Time      `json:"end_time"`
	Active        bool           `json:"active"`
}

// Open reports whether the campaign accepts claims at now.
func (c Campaign) Open(now time.Time) bool {
	return c.Active && now.Before(c.EndTime)
}

// Conditions are the optional gates set when a campaign is created.
// MinTokenAmount is an 18-decimal integer.
type Conditions struct {
	RequireNFT     bool           `json:"require_nft"`
	NFTContract    common.Address `json:"nft_contract"`
	RequireToken   bool           `json:"require_token"`
	TokenContract  common.Address `json:"token_contract"`
	MinTokenAmount *big.Int       `json:"min_token_amount"`
}

// ClaimRecord is the per (campaign, user) claim flag. A zero ClaimTime
// means the user has not claimed.
type ClaimRecord struct {
	HasClaimed bool      `json:"has_claimed"`
	ClaimTime  time.Time `json:"claim_time"`
}

// ClaimTimeString renders the claim time for display.
func (r ClaimRecord) ClaimTimeString() string {
	if r.ClaimTime.IsZero() {
		return "Not claimed yet"
	}
	return r.ClaimTime.UTC().Format(time.RFC3339)
}

// Holdings are the user balances relevant to a campaign's conditions.
type Holdings struct {
	NFTCount     *big.Int
	TokenBalance *big.Int
}

// CampaignView pairs a campaign with its conditions; it is the unit stored in
// snapshots.
type CampaignView struct {
	Campaign   Campaign   `json:"campaign"`
	Conditions Conditions `json:"conditions"`
}

// Verdict is the result of evaluating eligibility.
type Verdict struct {
	Eligible        bool   `json:"eligible"`
	ClaimableAmount uint64 `json:"claimable_amount"`
}
