package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/invisibledrop/internal/amounts"
	"github.com/dmitrijs2005/invisibledrop/internal/campaign"
	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/eligibility"
	"github.com/dmitrijs2005/invisibledrop/internal/models"
	"github.com/dmitrijs2005/invisibledrop/internal/registry"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const timeLayout = "2006-01-02 15:04"

func (a *App) snapshotScope() string {
	return fmt.Sprintf("%d/%s", a.network.ChainID, a.network.Contracts.InvisibleDrop.Hex())
}

// restoreSnapshot seeds the registry cache from the store.
func (a *App) restoreSnapshot(ctx context.Context) {
	s, err := a.store.Snapshots.Load(ctx, a.snapshotScope())
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			a.logger.Warn(ctx, "snapshot load failed", "error", err)
		}
		return
	}
	a.registry.Restore(s)
}

func (a *App) refresh(ctx context.Context, _ []string) error {
	s, err := a.refreshSnapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Loaded %d campaigns\n", len(s.Views))
	return nil
}

func (a *App) refreshSnapshot(ctx context.Context) (*registry.Snapshot, error) {
	if a.Mode() != ModeOnline {
		return nil, errOffline
	}
	s, err := a.registry.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.store.Snapshots.Save(ctx, a.snapshotScope(), s); err != nil {
		a.logger.Warn(ctx, "snapshot save failed", "error", err)
	}
	return s, nil
}

// list prints the cached snapshot, refreshing first when online and nothing
// is cached yet.
func (a *App) list(ctx context.Context, _ []string) error {
	s := a.registry.Snapshot()
	if s == nil && a.Mode() == ModeOnline {
		var err error
		if s, err = a.refreshSnapshot(ctx); err != nil {
			return err
		}
	}
	if s == nil {
		fmt.Fprintln(a.out, "No campaigns cached yet; run 'refresh' when online")
		return nil
	}

	if a.Mode() == ModeOffline {
		fmt.Fprintf(a.out, "Offline: showing snapshot from %s\n", s.RefreshedAt.Local().Format(timeLayout))
	}
	if len(s.Views) == 0 {
		fmt.Fprintln(a.out, "No campaigns")
		return nil
	}
	now := a.now()
	for _, v := range s.Views {
		fmt.Fprintln(a.out, formatView(v, now))
	}
	return nil
}

func formatView(v models.CampaignView, now time.Time) string {
	c := v.Campaign
	status := "open"
	switch {
	case !c.Active:
		status = "inactive"
	case !now.Before(c.EndTime):
		status = "ended"
	}
	line := fmt.Sprintf("#%d  %d per user  ends %s  %s", c.ID, c.RewardPerUser, c.EndTime.Local().Format(timeLayout), status)
	if v.Conditions.RequireNFT {
		line += fmt.Sprintf("  [NFT %s]", v.Conditions.NFTContract.Hex())
	}
	if v.Conditions.RequireToken {
		line += fmt.Sprintf("  [>= %s of %s]", amounts.FormatEther(v.Conditions.MinTokenAmount), v.Conditions.TokenContract.Hex())
	}
	return line
}

func (a *App) show(ctx context.Context, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if a.Mode() != ModeOnline {
		v, ok := a.registry.Snapshot().Get(id)
		if !ok {
			return fmt.Errorf("campaign %d: %w", id, common.ErrorNotFound)
		}
		fmt.Fprintln(a.out, formatView(v, a.now()))
		return nil
	}

	c, err := a.registry.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	cond, err := a.registry.GetConditions(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, formatView(models.CampaignView{Campaign: c, Conditions: cond}, a.now()))
	fmt.Fprintf(a.out, "Creator:      %s\n", c.Creator.Hex())
	fmt.Fprintf(a.out, "Reward token: %s\n", c.RewardToken.Hex())

	if user, err := a.user(); err == nil {
		rec, err := a.registry.GetClaimRecord(ctx, id, user)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Claim time:   %s\n", rec.ClaimTimeString())
	}
	return nil
}

func (a *App) eligible(ctx context.Context, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if a.Mode() != ModeOnline {
		return errOffline
	}
	key, err := a.claimKey(id)
	if err != nil {
		return err
	}

	res, err := a.checker.Check(ctx, id, key.User)
	if err != nil {
		return err
	}
	onchain, err := a.registry.CheckEligibility(ctx, id, key.User)
	if err != nil {
		return err
	}
	claimable, err := a.registry.CheckClaimableAmount(ctx, id, key.User)
	if err != nil {
		return err
	}
	st, err := a.machine.Refresh(ctx, key)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Eligible:   %t (contract says %t)\n", res.Verdict.Eligible, onchain)
	fmt.Fprintf(a.out, "Claimable:  %d (contract says %d)\n", res.Verdict.ClaimableAmount, claimable)
	fmt.Fprintf(a.out, "Claimed:    %s\n", res.Record.ClaimTimeString())
	fmt.Fprintf(a.out, "Can claim:  %t\n", eligibility.CanClaim(onchain, res.Record, claimable, res.Campaign.Open(a.now())))
	fmt.Fprintf(a.out, "State:      %s\n", st)
	return nil
}

func (a *App) claim(ctx context.Context, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := a.ensureWritable(ctx); err != nil {
		return err
	}
	key, err := a.claimKey(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Claiming campaign %d...\n", id)
	res, err := a.machine.Claim(ctx, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Claimed in %s\n", res.TxHash.Hex())
	return nil
}

func (a *App) status(ctx context.Context, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	key, err := a.claimKey(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "State: %s\n", a.machine.State(key))
	entries, err := a.store.Journal.List(ctx, key)
	if err != nil {
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("  %s  %s -> %s", e.CreatedAt.Local().Format(time.DateTime), e.From, e.To)
		if e.TxHash != "" {
			line += "  tx " + e.TxHash
		}
		if e.Error != "" {
			line += "  (" + e.Error + ")"
		}
		fmt.Fprintln(a.out, line)
	}
	return nil
}

// create walks the user through the campaign form. Empty answers take the
// shown defaults.
func (a *App) create(ctx context.Context, _ []string) error {
	if err := a.ensureWritable(ctx); err != nil {
		return err
	}

	now := a.now()
	p := campaign.DefaultParams(now)
	contracts := a.network.Contracts

	token, err := GetDefault(a.reader, "Reward token", contracts.ConfidentialCoin1.Hex(), a.out)
	if err != nil {
		return err
	}
	if p.RewardToken, err = parseAddress(token); err != nil {
		return err
	}

	reward, err := GetDefault(a.reader, "Reward per user", strconv.FormatUint(p.RewardPerUser, 10), a.out)
	if err != nil {
		return err
	}
	if p.RewardPerUser, err = amounts.ParseUint64(reward); err != nil {
		return err
	}

	end, err := GetDefault(a.reader, "End time", p.EndTime.Local().Format(timeLayout), a.out)
	if err != nil {
		return err
	}
	if p.EndTime, err = time.ParseInLocation(timeLayout, end, time.Local); err != nil {
		return fmt.Errorf("invalid end time %q, use %s", end, timeLayout)
	}

	if p.RequireNFT, err = GetYesNo(a.reader, "Require NFT?", false, a.out); err != nil {
		return err
	}
	if p.RequireNFT {
		nft, err := GetDefault(a.reader, "NFT contract", contracts.TestNFT.Hex(), a.out)
		if err != nil {
			return err
		}
		if p.NFTContract, err = parseAddress(nft); err != nil {
			return err
		}
	}

	if p.RequireToken, err = GetYesNo(a.reader, "Require token balance?", false, a.out); err != nil {
		return err
	}
	if p.RequireToken {
		tok, err := GetDefault(a.reader, "Token contract", contracts.TestToken.Hex(), a.out)
		if err != nil {
			return err
		}
		if p.TokenContract, err = parseAddress(tok); err != nil {
			return err
		}
		if p.MinTokenAmount, err = GetDefault(a.reader, "Minimum balance (tokens)", "0", a.out); err != nil {
			return err
		}
	}

	out, err := a.campaigns.Create(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created campaign %s in %s\n", out.ID, out.Result.TxHash.Hex())
	return nil
}

func (a *App) deposit(ctx context.Context, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	handle, err := models.ParseHandle(args[1])
	if err != nil {
		return err
	}
	proof, err := hexutil.Decode(args[2])
	if err != nil {
		return fmt.Errorf("invalid proof: %w", err)
	}
	if err := a.ensureWritable(ctx); err != nil {
		return err
	}

	res, err := a.campaigns.DepositRewards(ctx, id, handle, proof)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deposited in %s\n", res.TxHash.Hex())
	return nil
}

func parseAddress(s string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(s) {
		return ethcommon.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return ethcommon.HexToAddress(s), nil
}
