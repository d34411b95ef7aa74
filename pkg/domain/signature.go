package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// SignatureRequest asks an external signer for one signature.
// It is stateless: one round trip per distinct (user, pubkey, message).
type SignatureRequest struct {
	// ID correlates the request with its response, e.g. when a client submits over HTTP.
	ID string `json:"id"`

	// UserID is the identity on whose behalf the engine is asking.
	UserID string `json:"user_id"`

	Pubkey  solana.PublicKey `json:"pubkey"`
	Message []byte           `json:"message"`
	Timeout time.Duration    `json:"timeout"`
}

// Presigner carries a public key and a signature collected elsewhere.
type Presigner struct {
	Pubkey    solana.PublicKey
	Signature solana.Signature
}

// Sign returns the stored signature if it verifies against message.
func (p Presigner) Sign(message []byte) (solana.Signature, error) {
	if !p.Signature.Verify(p.Pubkey, message) {
		return solana.Signature{}, &SignError{Pubkey: p.Pubkey, Err: ErrInvalidSignature}
	}
	return p.Signature, nil
}

// PublicKey returns the key the signature was made with.
func (p Presigner) PublicKey() solana.PublicKey { return p.Pubkey }
