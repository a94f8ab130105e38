package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/invisibledrop/internal/chain"
	"github.com/dmitrijs2005/invisibledrop/internal/cryptox"
)

// getPassword is an indirection used to facilitate testing.
var getPassword = GetPassword

// importKey reads a private key and a passphrase (twice), stores the key in
// the keystore and unlocks it.
func (a *App) importKey(ctx context.Context, _ []string) error {
	key, err := getPassword("Private key (hex)", a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(key)

	pass, err := getPassword("New passphrase", a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(pass)

	again, err := getPassword("Repeat passphrase", a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(again)

	if !bytes.Equal(pass, again) {
		return errors.New("passphrases do not match")
	}

	addr, err := a.keystore.Import(ctx, string(key), pass)
	if err != nil {
		return err
	}
	signer, err := a.keystore.Unlock(ctx, pass)
	if err != nil {
		return err
	}
	a.session.set(signer)

	fmt.Fprintf(a.out, "Imported and unlocked %s\n", addr.Hex())
	return nil
}

func (a *App) unlock(ctx context.Context, _ []string) error {
	pass, err := getPassword("Passphrase", a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(pass)

	signer, err := a.keystore.Unlock(ctx, pass)
	if err != nil {
		return err
	}
	a.session.set(signer)

	fmt.Fprintf(a.out, "Unlocked %s\n", signer.Address().Hex())
	return nil
}

// lock drops the key but keeps watching its address.
func (a *App) lock(_ context.Context, _ []string) error {
	if !a.session.CanSign() {
		fmt.Fprintln(a.out, "Wallet is not unlocked")
		return nil
	}
	a.session.set(chain.NewReadOnly(a.session.Address()))
	fmt.Fprintln(a.out, "Locked")
	return nil
}

func (a *App) forget(ctx context.Context, _ []string) error {
	if err := a.keystore.Forget(ctx); err != nil {
		return err
	}
	a.session.set(nil)
	fmt.Fprintln(a.out, "Wallet removed from this device")
	return nil
}
