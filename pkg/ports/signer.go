package ports

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/aretw0/flowchain/pkg/domain"
)

// SignatureRequester obtains a signature from a key the engine does not hold.
//
// It answers with the signature or one of domain.ErrWrongKey, domain.ErrWrongUser,
// domain.ErrSignatureTimeout and domain.ErrSignerFailed. Where the key lives is up to the
// implementation.
type SignatureRequester interface {
	RequestSignature(ctx context.Context, req domain.SignatureRequest) (solana.Signature, error)
}
