package ports

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Network is the blockchain client used by the execution service.
// Implementations are shared between executions and must be safe for concurrent use.
// Retries and rate limiting are the implementation's concern.
type Network interface {
	// LatestBlockhash returns the blockhash a new message should reference.
	LatestBlockhash(ctx context.Context) (solana.Hash, error)

	// Balance returns the balance of account in lamports.
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)

	// FeeForMessage returns the fee the network charges for message.
	FeeForMessage(ctx context.Context, message *solana.Message) (uint64, error)

	// SendAndConfirm submits a fully signed transaction and waits for confirmation.
	SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}
