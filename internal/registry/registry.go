// Package registry reads campaigns from the InvisibleDrop contract.
//
// Every read goes to the chain. A transport or decoding failure surfaces as a
// *ReadFailure so callers can render "unknown" instead of guessing; an id past
// airdropCount surfaces as common.ErrorNotFound. Refresh builds a complete
// snapshot of every campaign and swaps it in atomically.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/chain"
	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/logging"
	"github.com/dmitrijs2005/invisibledrop/internal/models"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// MaxCampaigns bounds the airdropCount the client accepts. A larger value
// means the address is not an InvisibleDrop registry or the read is corrupt.
const MaxCampaigns = 100_000

// farFuture stands in for end times too large to represent.
var farFuture = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// ReadFailure reports that the registry could not be read.
type ReadFailure struct {
	Op  string
	Err error
}

func (e *ReadFailure) Error() string {
	return fmt.Sprintf("registry %s: %v", e.Op, e.Err)
}

func (e *ReadFailure) Unwrap() error { return e.Err }

// IsReadFailure reports whether err carries a *ReadFailure.
func IsReadFailure(err error) bool {
	var rf *ReadFailure
	return errors.As(err, &rf)
}

// Snapshot is an immutable copy of every campaign at RefreshedAt.
type Snapshot struct {
	Views       []models.CampaignView `json:"views"`
	RefreshedAt time.Time             `json:"refreshed_at"`
}

// Get returns the campaign with id from the snapshot.
func (s *Snapshot) Get(id uint64) (models.CampaignView, bool) {
	if s == nil || id >= uint64(len(s.Views)) {
		return models.CampaignView{}, false
	}
	return s.Views[id], true
}

type Client struct {
	drop        *chain.Contract
	logger      logging.Logger
	concurrency int
	snapshot    atomic.Pointer[Snapshot]
	now         func() time.Time
}

// New returns a registry client for the InvisibleDrop contract at address.
// concurrency bounds the parallel reads issued by Refresh.
func New(address ethcommon.Address, caller chain.Caller, logger logging.Logger, concurrency int) *Client {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Client{
		drop:        chain.NewContract(address, chain.InvisibleDropABI, caller),
		logger:      logger.With("module", "registry"),
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Address is the InvisibleDrop contract address.
func (c *Client) Address() ethcommon.Address { return c.drop.Address }

func (c *Client) call(ctx context.Context, op, method string, args ...any) ([]any, error) {
	out, err := c.drop.Call(ctx, method, args...)
	if err != nil {
		c.logger.Warn(ctx, "registry read failed", "op", op, "error", err)
		return nil, &ReadFailure{Op: op, Err: err}
	}
	return out, nil
}

// Count returns airdropCount.
func (c *Client) Count(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, "count", "airdropCount")
	if err != nil {
		return 0, err
	}
	n, err := chain.BigInt(out)
	if err != nil {
		return 0, &ReadFailure{Op: "count", Err: err}
	}
	if !n.IsUint64() || n.Uint64() > MaxCampaigns {
		return 0, &ReadFailure{Op: "count", Err: fmt.Errorf("count %s out of range", n)}
	}
	return n.Uint64(), nil
}

func (c *Client) checkID(ctx context.Context, id uint64) error {
	n, err := c.Count(ctx)
	if err != nil {
		return err
	}
	if id >= n {
		return fmt.Errorf("campaign %d: %w", id, common.ErrorNotFound)
	}
	return nil
}

// GetCampaign returns campaign id or common.ErrorNotFound.
func (c *Client) GetCampaign(ctx context.Context, id uint64) (models.Campaign, error) {
	if err := c.checkID(ctx, id); err != nil {
		return models.Campaign{}, err
	}
	return c.campaign(ctx, id)
}

func (c *Client) campaign(ctx context.Context, id uint64) (models.Campaign, error) {
	out, err := c.call(ctx, "getCampaign", "getAirdropInfo", new(big.Int).SetUint64(id))
	if err != nil {
		return models.Campaign{}, err
	}
	if len(out) != 5 {
		return models.Campaign{}, &ReadFailure{Op: "getCampaign", Err: fmt.Errorf("want 5 outputs, got %d", len(out))}
	}

	creator, ok1 := out[0].(ethcommon.Address)
	token, ok2 := out[1].(ethcommon.Address)
	reward, ok3 := out[2].(uint64)
	active, ok4 := out[3].(bool)
	end, ok5 := out[4].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return models.Campaign{}, &ReadFailure{Op: "getCampaign", Err: errors.New("unexpected output types")}
	}

	return models.Campaign{
		ID:            id,
		Creator:       creator,
		RewardToken:   token,
		RewardPerUser: reward,
		EndTime:       unixTime(end),
		Active:        active,
	}, nil
}

// GetConditions returns the eligibility conditions of campaign id or
// common.ErrorNotFound.
func (c *Client) GetConditions(ctx context.Context, id uint64) (models.Conditions, error) {
	if err := c.checkID(ctx, id); err != nil {
		return models.Conditions{}, err
	}
	return c.conditions(ctx, id)
}

func (c *Client) conditions(ctx context.Context, id uint64) (models.Conditions, error) {
	out, err := c.call(ctx, "getConditions", "getAirdropConditions", new(big.Int).SetUint64(id))
	if err != nil {
		return models.Conditions{}, err
	}
	if len(out) != 5 {
		return models.Conditions{}, &ReadFailure{Op: "getConditions", Err: fmt.Errorf("want 5 outputs, got %d", len(out))}
	}

	requireNFT, ok1 := out[0].(bool)
	nft, ok2 := out[1].(ethcommon.Address)
	requireToken, ok3 := out[2].(bool)
	token, ok4 := out[3].(ethcommon.Address)
	minAmount, ok5 := out[4].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return models.Conditions{}, &ReadFailure{Op: "getConditions", Err: errors.New("unexpected output types")}
	}

	return models.Conditions{
		RequireNFT:     requireNFT,
		NFTContract:    nft,
		RequireToken:   requireToken,
		TokenContract:  token,
		MinTokenAmount: minAmount,
	}, nil
}

// GetClaimRecord returns the claim flag for (id, user). Unknown pairs read as
// unclaimed, as the contract reports them.
func (c *Client) GetClaimRecord(ctx context.Context, id uint64, user ethcommon.Address) (models.ClaimRecord, error) {
	out, err := c.call(ctx, "getClaimRecord", "getUserClaimInfo", new(big.Int).SetUint64(id), user)
	if err != nil {
		return models.ClaimRecord{}, err
	}
	if len(out) != 2 {
		return models.ClaimRecord{}, &ReadFailure{Op: "getClaimRecord", Err: fmt.Errorf("want 2 outputs, got %d", len(out))}
	}
	claimed, ok1 := out[0].(bool)
	at, ok2 := out[1].(*big.Int)
	if !ok1 || !ok2 {
		return models.ClaimRecord{}, &ReadFailure{Op: "getClaimRecord", Err: errors.New("unexpected output types")}
	}
	return models.ClaimRecord{HasClaimed: claimed, ClaimTime: unixTime(at)}, nil
}

// CheckEligibility asks the contract itself whether user may claim.
func (c *Client) CheckEligibility(ctx context.Context, id uint64, user ethcommon.Address) (bool, error) {
	out, err := c.call(ctx, "checkEligibility", "checkEligibility", new(big.Int).SetUint64(id), user)
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, &ReadFailure{Op: "checkEligibility", Err: fmt.Errorf("want 1 output, got %d", len(out))}
	}
	ok, isBool := out[0].(bool)
	if !isBool {
		return false, &ReadFailure{Op: "checkEligibility", Err: fmt.Errorf("unexpected output type %T", out[0])}
	}
	return ok, nil
}

// CheckClaimableAmount asks the contract how much user could claim.
func (c *Client) CheckClaimableAmount(ctx context.Context, id uint64, user ethcommon.Address) (uint64, error) {
	out, err := c.call(ctx, "checkClaimableAmount", "checkClaimableAmount", new(big.Int).SetUint64(id), user)
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, &ReadFailure{Op: "checkClaimableAmount", Err: fmt.Errorf("want 1 output, got %d", len(out))}
	}
	amount, ok := out[0].(uint64)
	if !ok {
		return 0, &ReadFailure{Op: "checkClaimableAmount", Err: fmt.Errorf("unexpected output type %T", out[0])}
	}
	return amount, nil
}

// Snapshot returns the last refreshed snapshot, or nil before the first
// Refresh or Restore.
func (c *Client) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// Restore installs a snapshot loaded from elsewhere, e.g. the offline cache.
func (c *Client) Restore(s *Snapshot) {
	c.snapshot.Store(s)
}

// Refresh reads every campaign with its conditions and replaces the cached
// snapshot. On error the previous snapshot is kept.
func (c *Client) Refresh(ctx context.Context) (*Snapshot, error) {
	n, err := c.Count(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]models.CampaignView, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for id := uint64(0); id < n; id++ {
		g.Go(func() error {
			campaign, err := c.campaign(gctx, id)
			if err != nil {
				return err
			}
			conditions, err := c.conditions(gctx, id)
			if err != nil {
				return err
			}
			views[id] = models.CampaignView{Campaign: campaign, Conditions: conditions}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &Snapshot{Views: views, RefreshedAt: c.now()}
	c.snapshot.Store(s)
	c.logger.Debug(ctx, "snapshot refreshed", "campaigns", n)
	return s, nil
}

func unixTime(v *big.Int) time.Time {
	if v == nil || v.Sign() <= 0 {
		return time.Time{}
	}
	if !v.IsInt64() || v.Int64() > farFuture.Unix() {
		return farFuture
	}
	return time.Unix(v.Int64(), 0)
}
