package domain

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Availability errors.
var (
	// ErrNotAvailable is returned when a command runs without an execution service attached.
	ErrNotAvailable = errors.New("execution service not available")

	// ErrNotReady is returned by Call when the service has no free capacity.
	ErrNotReady = errors.New("execution service not ready")

	// ErrIncompleteTransaction is returned when a multi-step composition finishes without
	// producing every instruction it declared.
	ErrIncompleteTransaction = errors.New("incomplete transaction")
)

// Bundle errors.
var (
	// ErrFeePayerMismatch is returned when combining bundles paid by different accounts.
	ErrFeePayerMismatch = errors.New("bundles have different fee payers")

	// ErrReserveOverflow is returned when combined minimum reserves exceed a uint64.
	ErrReserveOverflow = errors.New("combined minimum reserve overflows")

	// ErrMissingFeePayer is returned when a bundle carries instructions but no fee payer.
	ErrMissingFeePayer = errors.New("bundle has instructions but no fee payer")

	// ErrInvalidKeypair is returned when secret material does not match its public half.
	ErrInvalidKeypair = errors.New("invalid keypair")

	// ErrRemoteSigner is returned when a remote keypair is asked to sign locally.
	ErrRemoteSigner = errors.New("remote keypair cannot sign locally")
)

// Signing errors. The first four are what an external signer may answer with.
var (
	ErrWrongKey         = errors.New("signature request: wrong public key")
	ErrWrongUser        = errors.New("signature request: wrong user")
	ErrSignatureTimeout = errors.New("signature request timed out")
	ErrSignerFailed     = errors.New("signature worker failed")

	// ErrSigningTimeout is returned when the shared deadline for a bundle's remote
	// signatures elapses before every response arrived.
	ErrSigningTimeout = errors.New("timed out collecting signatures")

	// ErrInvalidSignature is returned when a returned signature does not verify against
	// the message and the requested key.
	ErrInvalidSignature = errors.New("signature does not verify")

	// ErrMissingSigner is returned when the message requires a signature from a key that
	// no signer in the bundle provides.
	ErrMissingSigner = errors.New("no signer for required key")

	// ErrRequestNotFound is returned when a signature submission references an unknown request.
	ErrRequestNotFound = errors.New("signature request not found")
)

// ErrExecutionNotFound is returned when a journal has no record for an execution id.
var ErrExecutionNotFound = errors.New("execution not found")

// InsufficientBalanceError is raised before anything is signed or sent when the fee payer
// cannot cover the minimum reserve plus the transaction fee.
type InsufficientBalanceError struct {
	Account   solana.PublicKey
	Required  uint64
	Available uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: required %d lamports, available %d",
		e.Account, e.Required, e.Available)
}

// SignError attributes a failed signature request to the key it was for.
type SignError struct {
	Pubkey solana.PublicKey
	Err    error
}

func (e *SignError) Error() string {
	return fmt.Sprintf("signature for %s: %v", e.Pubkey, e.Err)
}

func (e *SignError) Unwrap() error { return e.Err }

// SubmitError wraps a failure that happened while sending or confirming a transaction.
// The transaction may or may not have landed; callers must treat the final state as unknown.
type SubmitError struct {
	// Signature is the transaction signature, set when the transaction was fully signed.
	Signature *solana.Signature
	Err       error
}

func (e *SubmitError) Error() string {
	if e.Signature != nil {
		return fmt.Sprintf("submit transaction %s (final state unknown): %v", e.Signature, e.Err)
	}
	return fmt.Sprintf("submit transaction (final state unknown): %v", e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// FailureKind classifies err as one of "balance", "signing", "submission", "availability"
// or "other".
func FailureKind(err error) string {
	var (
		balance *InsufficientBalanceError
		sign    *SignError
		submit  *SubmitError
	)
	switch {
	case errors.As(err, &balance):
		return "balance"
	case errors.Is(err, ErrSigningTimeout), errors.As(err, &sign), errors.Is(err, ErrMissingSigner):
		return "signing"
	case errors.As(err, &submit):
		return "submission"
	case errors.Is(err, ErrNotAvailable), errors.Is(err, ErrIncompleteTransaction), errors.Is(err, ErrNotReady):
		return "availability"
	default:
		return "other"
	}
}
