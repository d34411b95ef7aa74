package domain

import (
	"time"

	"github.com/aretw0/flowchain/pkg/value"
)

// ExecutionState is a step of the execution state machine.
type ExecutionState string

const (
	StateAssembling ExecutionState = "assembling" // Fetching blockhash and balance, building the message
	StateSigning    ExecutionState = "signing"    // Collecting local and remote signatures
	StateSubmitting ExecutionState = "submitting" // Sent to the network, awaiting confirmation
	StateConfirmed  ExecutionState = "confirmed"  // Sink: transaction landed (or dry run)
	StateFailed     ExecutionState = "failed"     // Sink: see Error
)

// IsFinal reports whether the state is a sink.
func (s ExecutionState) IsFinal() bool {
	return s == StateConfirmed || s == StateFailed
}

// ExecutionRecord is the journal entry of one execution.
type ExecutionRecord struct {
	// ID identifies the execution across the journal, logs and hooks.
	ID string `cbor:"id" json:"id"`

	// State is the last state reached.
	State ExecutionState `cbor:"state" json:"state"`

	// FeePayer is the base58 fee payer, empty for dry runs.
	FeePayer string `cbor:"fee_payer,omitempty" json:"fee_payer,omitempty"`

	// Signature is the base58 transaction signature once the transaction is fully signed.
	Signature string `cbor:"signature,omitempty" json:"signature,omitempty"`

	// Error holds the failure message when State is StateFailed.
	Error string `cbor:"error,omitempty" json:"error,omitempty"`

	// Outputs are the pass-through values the command attached to the request.
	Outputs *value.Map `cbor:"outputs,omitempty" json:"outputs,omitempty"`

	CreatedAt time.Time `cbor:"created_at" json:"created_at"`
	UpdatedAt time.Time `cbor:"updated_at" json:"updated_at"`
}

// NewExecutionRecord creates a record in the assembling state.
func NewExecutionRecord(id string, now time.Time) *ExecutionRecord {
	return &ExecutionRecord{
		ID:        id,
		State:     StateAssembling,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
