package domain

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// KeypairSize is the length of the combined secret+public encoding.
const KeypairSize = ed25519.PrivateKeySize

// Keypair is a signer a bundle requires. It is either local, holding the secret key, or
// remote, holding only the public key; a remote signature is collected out-of-band.
//
// On the wire a remote keypair is the 64 byte encoding with an all-zero secret half. This is
// the one place where zero bytes are meaningful data; KeypairFromBytes turns that encoding
// into the explicit remote form and Bytes turns it back.
type Keypair struct {
	pubkey solana.PublicKey
	secret solana.PrivateKey
}

// NewLocalKeypair wraps secret key material. The public half embedded in the secret must
// match the key derived from the seed.
func NewLocalKeypair(secret solana.PrivateKey) (Keypair, error) {
	if len(secret) != KeypairSize {
		return Keypair{}, fmt.Errorf("%w: secret key must be %d bytes, got %d", ErrInvalidKeypair, KeypairSize, len(secret))
	}
	derived := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], secret[ed25519.SeedSize:]) {
		return Keypair{}, fmt.Errorf("%w: public half does not match secret", ErrInvalidKeypair)
	}
	owned := make(solana.PrivateKey, KeypairSize)
	copy(owned, secret)
	return Keypair{pubkey: solana.PublicKeyFromBytes(owned[ed25519.SeedSize:]), secret: owned}, nil
}

// NewRandomKeypair generates a fresh local keypair.
func NewRandomKeypair() (Keypair, error) {
	secret, err := solana.NewRandomPrivateKey()
	if err != nil {
		return Keypair{}, err
	}
	return NewLocalKeypair(secret)
}

// NewRemoteKeypair returns a keypair whose signature must be requested out-of-band.
func NewRemoteKeypair(pubkey solana.PublicKey) Keypair {
	return Keypair{pubkey: pubkey}
}

// KeypairFromBytes decodes the 64 byte secret+public encoding.
// An all-zero secret half yields a remote keypair.
func KeypairFromBytes(b []byte) (Keypair, error) {
	if len(b) != KeypairSize {
		return Keypair{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeypair, KeypairSize, len(b))
	}
	if isZero(b[:ed25519.SeedSize]) {
		return NewRemoteKeypair(solana.PublicKeyFromBytes(b[ed25519.SeedSize:])), nil
	}
	return NewLocalKeypair(solana.PrivateKey(b))
}

// KeypairFromBase58 decodes a base58 string of the 64 byte encoding.
func KeypairFromBase58(s string) (Keypair, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Keypair{}, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	return KeypairFromBytes(b)
}

// PublicKey returns the public half.
func (k Keypair) PublicKey() solana.PublicKey { return k.pubkey }

// IsRemote reports whether the secret key is held out-of-band.
func (k Keypair) IsRemote() bool { return k.secret == nil }

// PrivateKey returns the secret key for local keypairs.
func (k Keypair) PrivateKey() (solana.PrivateKey, bool) {
	return k.secret, k.secret != nil
}

// Bytes returns the 64 byte encoding, zero-filled in the secret half for remote keypairs.
func (k Keypair) Bytes() [KeypairSize]byte {
	var out [KeypairSize]byte
	if k.secret != nil {
		copy(out[:], k.secret)
		return out
	}
	copy(out[ed25519.SeedSize:], k.pubkey[:])
	return out
}

// Sign signs message with the local secret key.
func (k Keypair) Sign(message []byte) (solana.Signature, error) {
	if k.secret == nil {
		return solana.Signature{}, fmt.Errorf("%w: %s", ErrRemoteSigner, k.pubkey)
	}
	return k.secret.Sign(message)
}

// String never reveals secret material.
func (k Keypair) String() string {
	if k.IsRemote() {
		return "remote:" + k.pubkey.String()
	}
	return "local:" + k.pubkey.String()
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
