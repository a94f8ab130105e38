package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/dmitrijs2005/invisibledrop/internal/claim"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

func (a *App) output() io.Writer { return a.out }

func (a *App) commands() []command {
	return []command{
		{name: "networks", usage: "networks", help: "list known networks", run: a.networks},
		{name: "import", usage: "import", help: "import a private key into the keystore", run: a.importKey},
		{name: "unlock", usage: "unlock", help: "unlock the stored wallet", run: a.unlock},
		{name: "lock", usage: "lock", help: "lock the wallet (watch only)", run: a.lock},
		{name: "forget", usage: "forget", help: "delete the stored wallet", run: a.forget},
		{name: "list", usage: "list", help: "list campaigns (snapshot when offline)", run: a.list},
		{name: "refresh", usage: "refresh", help: "re-read every campaign from the chain", run: a.refresh},
		{name: "show", usage: "show <id>", help: "show one campaign and your claim", minArgs: 1, run: a.show},
		{name: "eligible", usage: "eligible <id>", help: "check eligibility", minArgs: 1, run: a.eligible},
		{name: "claim", usage: "claim <id>", help: "claim the reward", minArgs: 1, run: a.claim},
		{name: "status", usage: "status <id>", help: "claim state and history", minArgs: 1, run: a.status},
		{name: "create", usage: "create", help: "create a campaign", run: a.create},
		{name: "deposit", usage: "deposit <id> <handle> <proof>", help: "deposit encrypted rewards", minArgs: 3, run: a.deposit},
		{name: "mint-token", usage: "mint-token <amount>", help: "mint test tokens to yourself", minArgs: 1, run: a.mintToken},
		{name: "mint-nft", usage: "mint-nft <uri>", help: "mint a test NFT to yourself", minArgs: 1, run: a.mintNFT},
		{name: "mint-coin", usage: "mint-coin <1|2> <amount>", help: "mint confidential coins to yourself", minArgs: 2, run: a.mintCoin},
		{name: "fund", usage: "fund <1|2> <amount>", help: "fund the airdrop contract", minArgs: 2, run: a.fund},
		{name: "balances", usage: "balances", help: "show your balances", run: a.balances},
		{name: "nfts", usage: "nfts", help: "list your test NFTs", run: a.nfts},
		{name: "decrypt", usage: "decrypt <1|2>", help: "decrypt your confidential balance", minArgs: 1, run: a.decrypt},
	}
}

func (a *App) networks(_ context.Context, _ []string) error {
	ids := make([]uint64, 0, len(a.book))
	for id := range a.book {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		n := a.book[id]
		mark := " "
		if id == a.network.ChainID {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%s %-10s %-10d drop %s\n", mark, n.Name, n.ChainID, n.Contracts.InvisibleDrop.Hex())
	}
	return nil
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid campaign id %q", s)
	}
	return id, nil
}

func parseCoin(s string) (int, error) {
	switch s {
	case "1":
		return 1, nil
	case "2":
		return 2, nil
	default:
		return 0, fmt.Errorf("coin must be 1 or 2, got %q", s)
	}
}

// user is the current address or an error when there is none.
func (a *App) user() (ethcommon.Address, error) {
	addr := a.session.Address()
	if addr == (ethcommon.Address{}) {
		return addr, fmt.Errorf("no wallet: import one or start with -w <address>")
	}
	return addr, nil
}

func (a *App) claimKey(id uint64) (claim.Key, error) {
	user, err := a.user()
	if err != nil {
		return claim.Key{}, err
	}
	return claim.Key{CampaignID: id, User: user}, nil
}
