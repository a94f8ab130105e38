package cryptox

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Sealed layout: ephemeral P-256 public key (65) || nonce (12) || ciphertext+tag.
const (
	p256PublicKeyLen = 65
	minSealedLen     = p256PublicKeyLen + nonceSize + 16
	eciesInfo        = "invisibledrop-ecies-v1"
)

// GenerateP256 returns a fresh P-256 key pair for ECIES.
func GenerateP256() (*ecdh.PrivateKey, error) {
	return ecdh.P256().GenerateKey(rand.Reader)
}

// SealTo encrypts plaintext to the uncompressed P-256 public key
// recipientPub. The AES key is HKDF-SHA256 of the ECDH secret salted with
// the ephemeral public key, which is also bound as additional data.
func SealTo(recipientPub []byte, plaintext []byte) ([]byte, error) {
	pub, err := ecdh.P256().NewPublicKey(recipientPub)
	if err != nil {
		return nil, fmt.Errorf("parse recipient key: %w", err)
	}

	ephemeral, err := GenerateP256()
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}

	shared, err := ephemeral.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("ecdh: %w", err)
	}
	defer Wipe(shared)

	ephPub := ephemeral.PublicKey().Bytes()
	key, err := deriveKey(shared, ephPub)
	if err != nil {
		return nil, err
	}
	defer Wipe(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce, err := RandomBytes(nonceSize)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(ephPub)+nonceSize+len(plaintext)+aead.Overhead())
	out = append(out, ephPub...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, ephPub), nil
}

// OpenWith decrypts a SealTo output with the recipient's raw P-256 private
// key bytes.
func OpenWith(recipientPriv []byte, sealed []byte) ([]byte, error) {
	if len(sealed) < minSealedLen {
		return nil, errors.New("sealed message too short")
	}
	priv, err := ecdh.P256().NewPrivateKey(recipientPriv)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	ephPub := sealed[:p256PublicKeyLen]
	nonce := sealed[p256PublicKeyLen : p256PublicKeyLen+nonceSize]
	ciphertext := sealed[p256PublicKeyLen+nonceSize:]

	pub, err := ecdh.P256().NewPublicKey(ephPub)
	if err != nil {
		return nil, fmt.Errorf("parse ephemeral key: %w", err)
	}
	shared, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("ecdh: %w", err)
	}
	defer Wipe(shared)

	key, err := deriveKey(shared, ephPub)
	if err != nil {
		return nil, err
	}
	defer Wipe(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, ephPub)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func deriveKey(shared, salt []byte) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, []byte(eciesInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}
