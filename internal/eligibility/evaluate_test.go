package eligibility

import (
	"math/big"
	"testing"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var (
	now      = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tokenT   = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	nftN     = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	openDrop = models.Campaign{ID: 1, RewardPerUser: 250, Active: true, EndTime: now.Add(7 * 24 * time.Hour)}
)

func TestEvaluate_TokenThresholdScenario(t *testing.T) {
	cond := models.Conditions{RequireToken: true, TokenContract: tokenT, MinTokenAmount: big.NewInt(1000)}

	got := Evaluate(now, openDrop, cond, models.ClaimRecord{}, models.Holdings{TokenBalance: big.NewInt(999)})
	assert.Equal(t, models.Verdict{Eligible: false, ClaimableAmount: 0}, got)

	got = Evaluate(now, openDrop, cond, models.ClaimRecord{}, models.Holdings{TokenBalance: big.NewInt(1000)})
	assert.Equal(t, models.Verdict{Eligible: true, ClaimableAmount: 250}, got)
}

func TestEvaluate_Table(t *testing.T) {
	nftCond := models.Conditions{RequireNFT: true, NFTContract: nftN}
	both := models.Conditions{RequireNFT: true, NFTContract: nftN, RequireToken: true, TokenContract: tokenT, MinTokenAmount: big.NewInt(5)}

	tests := []struct {
		name     string
		campaign models.Campaign
		cond     models.Conditions
		record   models.ClaimRecord
		holdings models.Holdings
		want     bool
	}{
		{"no conditions", openDrop, models.Conditions{}, models.ClaimRecord{}, models.Holdings{}, true},
		{"already claimed", openDrop, models.Conditions{}, models.ClaimRecord{HasClaimed: true, ClaimTime: now}, models.Holdings{}, false},
		{"nft required, none held", openDrop, nftCond, models.ClaimRecord{}, models.Holdings{NFTCount: big.NewInt(0)}, false},
		{"nft required, nil count", openDrop, nftCond, models.ClaimRecord{}, models.Holdings{}, false},
		{"nft required, one held", openDrop, nftCond, models.ClaimRecord{}, models.Holdings{NFTCount: big.NewInt(1)}, true},
		{"nft held but not required", openDrop, models.Conditions{NFTContract: nftN}, models.ClaimRecord{}, models.Holdings{}, true},
		{"both met", openDrop, both, models.ClaimRecord{}, models.Holdings{NFTCount: big.NewInt(2), TokenBalance: big.NewInt(5)}, true},
		{"both, token short", openDrop, both, models.ClaimRecord{}, models.Holdings{NFTCount: big.NewInt(2), TokenBalance: big.NewInt(4)}, false},
		{"token required, nil minimum", openDrop, models.Conditions{RequireToken: true}, models.ClaimRecord{}, models.Holdings{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(now, tt.campaign, tt.cond, tt.record, tt.holdings)
			assert.Equal(t, tt.want, got.Eligible)
			if tt.want {
				assert.Equal(t, tt.campaign.RewardPerUser, got.ClaimableAmount)
			} else {
				assert.Zero(t, got.ClaimableAmount)
			}
		})
	}
}

// Closed campaigns are never eligible, whatever the user holds.
func TestEvaluate_ClosedCampaignNeverEligible(t *testing.T) {
	rich := models.Holdings{NFTCount: big.NewInt(100), TokenBalance: new(big.Int).Lsh(big.NewInt(1), 200)}
	conds := []models.Conditions{
		{},
		{RequireNFT: true, NFTContract: nftN},
		{RequireToken: true, TokenContract: tokenT, MinTokenAmount: big.NewInt(1)},
	}
	closed := []models.Campaign{
		{RewardPerUser: 1, Active: false, EndTime: now.Add(time.Hour)},
		{RewardPerUser: 1, Active: true, EndTime: now},
		{RewardPerUser: 1, Active: true, EndTime: now.Add(-time.Second)},
		{RewardPerUser: 1, Active: false, EndTime: now.Add(-time.Hour)},
	}
	for _, c := range closed {
		for _, cond := range conds {
			got := Evaluate(now, c, cond, models.ClaimRecord{}, rich)
			assert.Equal(t, models.Verdict{}, got)
		}
	}
}

func TestCanClaim(t *testing.T) {
	assert.True(t, CanClaim(true, models.ClaimRecord{}, 10, true))
	assert.False(t, CanClaim(false, models.ClaimRecord{}, 10, true))
	assert.False(t, CanClaim(true, models.ClaimRecord{HasClaimed: true}, 10, true))
	assert.False(t, CanClaim(true, models.ClaimRecord{}, 0, true))
	assert.False(t, CanClaim(true, models.ClaimRecord{}, 10, false))
}
