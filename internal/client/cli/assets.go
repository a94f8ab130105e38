package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/invisibledrop/internal/amounts"
)

func (a *App) mintToken(ctx context.Context, args []string) error {
	if err := a.ensureWritable(ctx); err != nil {
		return err
	}
	res, err := a.tokens.MintTestToken(ctx, a.session.Address(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Minted %s test tokens in %s\n", args[0], res.TxHash.Hex())
	return nil
}

func (a *App) mintNFT(ctx context.Context, args []string) error {
	if err := a.ensureWritable(ctx); err != nil {
		return err
	}
	id, res, err := a.tokens.MintTestNFT(ctx, a.session.Address(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Minted NFT #%s in %s\n", id, res.TxHash.Hex())
	return nil
}

func (a *App) mintCoin(ctx context.Context, args []string) error {
	coin, err := parseCoin(args[0])
	if err != nil {
		return err
	}
	amount, err := amounts.ParseUint64(args[1])
	if err != nil {
		return err
	}
	if err := a.ensureWritable(ctx); err != nil {
		return err
	}
	res, err := a.tokens.MintConfidential(ctx, coin, a.session.Address(), amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Minted %d confidential coin %d in %s\n", amount, coin, res.TxHash.Hex())
	return nil
}

func (a *App) fund(ctx context.Context, args []string) error {
	coin, err := parseCoin(args[0])
	if err != nil {
		return err
	}
	if err := a.ensureWritable(ctx); err != nil {
		return err
	}
	res, err := a.tokens.FundAirdrop(ctx, coin, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Funded the airdrop with %s coin %d in %s\n", args[1], coin, res.TxHash.Hex())
	return nil
}

func (a *App) balances(ctx context.Context, _ []string) error {
	if a.Mode() != ModeOnline {
		return errOffline
	}
	user, err := a.user()
	if err != nil {
		return err
	}

	tok, err := a.tokens.TestTokenBalance(ctx, user)
	if err != nil {
		return err
	}
	nfts, err := a.tokens.TestNFTBalance(ctx, user)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Test token:  %s\n", tok)
	fmt.Fprintf(a.out, "Test NFTs:   %s\n", nfts)

	for _, coin := range []int{1, 2} {
		info, err := a.tokens.ConfidentialInfo(ctx, coin)
		if err != nil {
			return err
		}
		bal, err := a.tokens.ConfidentialBalanceHandle(ctx, coin, user)
		if err != nil {
			return err
		}
		shown := "0"
		if !bal.Handle.IsZero() {
			shown = "encrypted, run 'decrypt " + fmt.Sprint(coin) + "'"
		}
		fmt.Fprintf(a.out, "%-12s %s\n", info.Symbol+":", shown)
	}
	return nil
}

func (a *App) nfts(ctx context.Context, _ []string) error {
	if a.Mode() != ModeOnline {
		return errOffline
	}
	user, err := a.user()
	if err != nil {
		return err
	}
	list, err := a.tokens.UserNFTs(ctx, user)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No NFTs")
		return nil
	}
	for _, n := range list {
		fmt.Fprintf(a.out, "#%s  %s\n", n.TokenID, n.URI)
	}
	return nil
}

// decrypt reveals the user's confidential balance through the relayer. It
// needs an unlocked wallet to sign the decryption grant.
func (a *App) decrypt(ctx context.Context, args []string) error {
	coin, err := parseCoin(args[0])
	if err != nil {
		return err
	}
	if a.Mode() != ModeOnline {
		return errOffline
	}
	if !a.session.CanSign() {
		return errNoWallet
	}
	user := a.session.Address()

	bal, err := a.tokens.ConfidentialBalanceHandle(ctx, coin, user)
	if err != nil {
		return err
	}
	v, err := a.decrypter.Decrypt(ctx, bal.ContractAddress, user, bal.Handle, a.session)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Coin %d balance: %s\n", coin, v)
	return nil
}
