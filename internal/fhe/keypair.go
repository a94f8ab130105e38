package fhe

import (
	"github.com/dmitrijs2005/invisibledrop/internal/cryptox"
)

// Keypair is the ephemeral P-256 key a decryption result is sealed to. It
// lives for one decrypt call.
type Keypair struct {
	PublicKey  []byte
	PrivateKey []byte
}

func GenerateKeypair() (*Keypair, error) {
	k, err := cryptox.GenerateP256()
	if err != nil {
		return nil, err
	}
	return &Keypair{PublicKey: k.PublicKey().Bytes(), PrivateKey: k.Bytes()}, nil
}

// Wipe zeroes the private key.
func (k *Keypair) Wipe() {
	if k == nil {
		return
	}
	cryptox.Wipe(k.PrivateKey)
	k.PrivateKey = nil
}
