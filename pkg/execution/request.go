package execution

import (
	"github.com/gagliardetto/solana-go"

	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/ports"
	"github.com/aretw0/flowchain/pkg/value"
)

// Request is what a command submits: the bundle to execute and the outputs to pass through
// to its caller once the execution succeeds.
type Request struct {
	// UserID is the identity remote signatures are requested on behalf of.
	UserID string

	Bundle *domain.Bundle

	// Outputs are the command's pass-through values, recorded in the journal.
	Outputs *value.Map
}

// Response is the outcome of a successful execution.
type Response struct {
	// ExecutionID identifies the journal record.
	ExecutionID string

	// Signature is the transaction signature, nil for a dry run.
	Signature *solana.Signature

	Outputs *value.Map
}

// Service is the execution service as commands see it.
type Service = ports.Service[Request, Response]
