package domain

import (
	"math"

	"github.com/gagliardetto/solana-go"
)

// Bundle is the assembled but unsigned payload of one transaction: who pays, who must sign,
// the balance floor the fee payer must keep, and the ordered instructions.
//
// A Bundle is built by a command without any network I/O and is consumed exactly once by the
// execution service. The zero Bundle is a valid no-op.
type Bundle struct {
	FeePayer       solana.PublicKey
	Signers        []Keypair
	MinimumReserve uint64
	Instructions   []solana.Instruction
}

// IsEmpty reports whether there is nothing to submit.
func (b *Bundle) IsEmpty() bool {
	return b == nil || (len(b.Instructions) == 0 && b.MinimumReserve == 0)
}

// Validate checks the bundle can be turned into a message.
func (b *Bundle) Validate() error {
	if b.IsEmpty() {
		return nil
	}
	if b.FeePayer.IsZero() {
		return ErrMissingFeePayer
	}
	return nil
}

// Combine appends next to b, for commands composed of several steps that pay from the same
// account. Reserves add up; signers and instructions keep their order.
func (b *Bundle) Combine(next *Bundle) error {
	if next.IsEmpty() {
		return nil
	}
	if b.IsEmpty() && b.FeePayer.IsZero() {
		b.FeePayer = next.FeePayer
	}
	if !next.FeePayer.IsZero() && !next.FeePayer.Equals(b.FeePayer) {
		return ErrFeePayerMismatch
	}
	if b.MinimumReserve > math.MaxUint64-next.MinimumReserve {
		return ErrReserveOverflow
	}
	b.Signers = append(b.Signers, next.Signers...)
	b.MinimumReserve += next.MinimumReserve
	b.Instructions = append(b.Instructions, next.Instructions...)
	return nil
}

// RemoteSigners returns the public keys of every remote signer, in bundle order, including
// duplicates.
func (b *Bundle) RemoteSigners() []solana.PublicKey {
	var keys []solana.PublicKey
	for _, s := range b.Signers {
		if s.IsRemote() {
			keys = append(keys, s.PublicKey())
		}
	}
	return keys
}
