// Package metadata stores small key/value settings of the local client,
// chiefly the encrypted keystore.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeySalt       = "keystore_salt"
	KeyVerifier   = "keystore_verifier"
	KeyNonce      = "keystore_nonce"
	KeyCiphertext = "keystore_ciphertext"
	KeyAddress    = "keystore_address"
)

// KeystoreKeys lists every key written by the keystore.
var KeystoreKeys = []string{KeySalt, KeyVerifier, KeyNonce, KeyCiphertext, KeyAddress}

// Repository is a key/value store. Get returns (nil, nil) for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
