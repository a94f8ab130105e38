package eligibility

import (
	"context"
	"math/big"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/models"
	"github.com/dmitrijs2005/invisibledrop/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// CampaignReader is the registry surface the checker reads.
type CampaignReader interface {
	GetCampaign(ctx context.Context, id uint64) (models.Campaign, error)
	GetConditions(ctx context.Context, id uint64) (models.Conditions, error)
	GetClaimRecord(ctx context.Context, id uint64, user common.Address) (models.ClaimRecord, error)
}

// HoldingsReader reads the balances conditions are checked against.
type HoldingsReader interface {
	NFTBalance(ctx context.Context, contract, owner common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, contract, owner common.Address) (*big.Int, error)
}

// Result is everything a check looked at, plus the verdict.
type Result struct {
	Campaign   models.Campaign
	Conditions models.Conditions
	Record     models.ClaimRecord
	Holdings   models.Holdings
	Verdict    models.Verdict
}

// Checker evaluates eligibility against fresh chain state on every call.
type Checker struct {
	registry CampaignReader
	holdings HoldingsReader
	now      func() time.Time
}

func NewChecker(r CampaignReader, h HoldingsReader) *Checker {
	return &Checker{registry: r, holdings: h, now: time.Now}
}

// Check reads the campaign, its conditions, the claim record and the needed
// holdings, then evaluates them. Any failed read returns an error; a failed
// read never becomes an ineligible verdict. Holdings failures are reported as
// *registry.ReadFailure like registry failures.
func (c *Checker) Check(ctx context.Context, id uint64, user common.Address) (Result, error) {
	var res Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res.Campaign, err = c.registry.GetCampaign(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		res.Conditions, err = c.registry.GetConditions(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		res.Record, err = c.registry.GetClaimRecord(gctx, id, user)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	g, gctx = errgroup.WithContext(ctx)
	if res.Conditions.RequireNFT {
		g.Go(func() error {
			n, err := c.holdings.NFTBalance(gctx, res.Conditions.NFTContract, user)
			if err != nil {
				return &registry.ReadFailure{Op: "nftBalance", Err: err}
			}
			res.Holdings.NFTCount = n
			return nil
		})
	}
	if res.Conditions.RequireToken {
		g.Go(func() error {
			b, err := c.holdings.TokenBalance(gctx, res.Conditions.TokenContract, user)
			if err != nil {
				return &registry.ReadFailure{Op: "tokenBalance", Err: err}
			}
			res.Holdings.TokenBalance = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res.Verdict = Evaluate(c.now(), res.Campaign, res.Conditions, res.Record, res.Holdings)
	return res, nil
}
