// Package wallet keeps the user's private key in the local database, sealed
// under a key derived from a passphrase.
//
// The passphrase is stretched with argon2id over a random salt. The sha256 of
// the derived key is stored as a verifier and compared in constant time on
// unlock; the private key itself is AES-GCM sealed. Nothing in the database
// is usable without the passphrase.
package wallet

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/invisibledrop/internal/chain"
	"github.com/dmitrijs2005/invisibledrop/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/dmitrijs2005/invisibledrop/internal/cryptox"
	"github.com/dmitrijs2005/invisibledrop/internal/dbx"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const saltSize = 32

var (
	// ErrNoKeystore is returned when no key has been imported yet.
	ErrNoKeystore = fmt.Errorf("keystore: %w", common.ErrorNotFound)
	// ErrWrongPassphrase is returned when the verifier does not match.
	ErrWrongPassphrase = fmt.Errorf("keystore: %w", common.ErrorUnauthorized)
	// ErrEmptyPassphrase rejects imports without a passphrase.
	ErrEmptyPassphrase = errors.New("keystore: empty passphrase")
)

type sealedKey struct {
	Key string `json:"key"`
}

// Keystore implements passphrase-protected key storage over the metadata
// table.
type Keystore struct {
	db *sql.DB
}

func NewKeystore(db *sql.DB) *Keystore {
	return &Keystore{db: db}
}

func (k *Keystore) repo() metadata.Repository {
	return metadata.NewSQLiteRepository(k.db)
}

// Import stores privHex (with or without 0x) under passphrase, replacing any
// existing key. It returns the imported address.
func (k *Keystore) Import(ctx context.Context, privHex string, passphrase []byte) (ethcommon.Address, error) {
	if len(passphrase) == 0 {
		return ethcommon.Address{}, ErrEmptyPassphrase
	}
	signer, err := chain.WalletSignerFromHex(privHex)
	if err != nil {
		return ethcommon.Address{}, err
	}
	raw := signer.PrivateKeyBytes()
	signer.Lock()
	defer cryptox.Wipe(raw)

	salt, err := cryptox.RandomBytes(saltSize)
	if err != nil {
		return ethcommon.Address{}, err
	}
	masterKey := cryptox.DeriveMasterKey(passphrase, salt)
	defer cryptox.Wipe(masterKey)

	ciphertext, nonce, err := cryptox.SealJSON(sealedKey{Key: hex.EncodeToString(raw)}, masterKey)
	if err != nil {
		return ethcommon.Address{}, fmt.Errorf("seal key: %w", err)
	}

	address := signer.Address()
	err = dbx.WithTx(ctx, k.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		for key, value := range map[string][]byte{
			metadata.KeySalt:       salt,
			metadata.KeyVerifier:   cryptox.MakeVerifier(masterKey),
			metadata.KeyNonce:      nonce,
			metadata.KeyCiphertext: ciphertext,
			metadata.KeyAddress:    []byte(address.Hex()),
		} {
			if err := repo.Set(ctx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ethcommon.Address{}, fmt.Errorf("save keystore: %w", err)
	}
	return address, nil
}

// Exists reports whether a key has been imported.
func (k *Keystore) Exists(ctx context.Context) (bool, error) {
	values, err := k.repo().GetMany(ctx, metadata.KeystoreKeys...)
	if err != nil {
		return false, err
	}
	return len(values) == len(metadata.KeystoreKeys), nil
}

// Address returns the stored address without unlocking.
func (k *Keystore) Address(ctx context.Context) (ethcommon.Address, error) {
	v, err := k.repo().Get(ctx, metadata.KeyAddress)
	if err != nil {
		return ethcommon.Address{}, err
	}
	if v == nil {
		return ethcommon.Address{}, ErrNoKeystore
	}
	return ethcommon.HexToAddress(string(v)), nil
}

// Unlock verifies passphrase and returns a signer holding the decrypted key.
// The caller should Lock it when the session ends.
func (k *Keystore) Unlock(ctx context.Context, passphrase []byte) (*chain.WalletSigner, error) {
	values, err := k.repo().GetMany(ctx, metadata.KeystoreKeys...)
	if err != nil {
		return nil, err
	}
	if len(values) != len(metadata.KeystoreKeys) {
		return nil, ErrNoKeystore
	}

	masterKey := cryptox.DeriveMasterKey(passphrase, values[metadata.KeySalt])
	defer cryptox.Wipe(masterKey)

	if subtle.ConstantTimeCompare(values[metadata.KeyVerifier], cryptox.MakeVerifier(masterKey)) == 0 {
		return nil, ErrWrongPassphrase
	}

	var sealed sealedKey
	if err := cryptox.OpenJSON(values[metadata.KeyCiphertext], values[metadata.KeyNonce], masterKey, &sealed); err != nil {
		return nil, fmt.Errorf("open keystore: %w", err)
	}

	key, err := crypto.HexToECDSA(sealed.Key)
	sealed.Key = ""
	if err != nil {
		return nil, fmt.Errorf("open keystore: %w", err)
	}

	signer := chain.NewWalletSigner(key)
	if want := ethcommon.HexToAddress(string(values[metadata.KeyAddress])); signer.Address() != want {
		signer.Lock()
		return nil, fmt.Errorf("open keystore: key does not match stored address %s", want.Hex())
	}
	return signer, nil
}

// Forget removes the stored key.
func (k *Keystore) Forget(ctx context.Context) error {
	return k.repo().Delete(ctx, metadata.KeystoreKeys...)
}
