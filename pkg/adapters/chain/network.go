// Package chain implements ports.Network over the Solana JSON-RPC API.
package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"github.com/aretw0/flowchain/internal/logging"
	"github.com/aretw0/flowchain/pkg/ports"
)

const (
	// DefaultConfirmTimeout bounds how long SendAndConfirm polls for a signature status.
	DefaultConfirmTimeout = 90 * time.Second

	// DefaultPollInterval is the initial delay between signature status polls.
	DefaultPollInterval = 500 * time.Millisecond
)

// ErrBlockhashNotFound is returned when the network no longer knows the message's blockhash.
var ErrBlockhashNotFound = errors.New("blockhash not found")

// TransactionError reports a transaction that landed but failed on chain.
type TransactionError struct {
	Signature solana.Signature
	Err       any
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// Network talks to a Solana RPC endpoint.
type Network struct {
	client         *rpc.Client
	commitment     rpc.CommitmentType
	confirmTimeout time.Duration
	pollInterval   time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
}

var _ ports.Network = (*Network)(nil)

// Option configures the Network.
type Option func(*Network)

// WithCommitment sets the commitment used for reads and for confirmation.
func WithCommitment(c rpc.CommitmentType) Option {
	return func(n *Network) {
		n.commitment = c
	}
}

// WithConfirmTimeout bounds how long SendAndConfirm waits for confirmation.
func WithConfirmTimeout(d time.Duration) Option {
	return func(n *Network) {
		n.confirmTimeout = d
	}
}

// WithPollInterval sets the initial delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(n *Network) {
		n.pollInterval = d
	}
}

// WithRateLimit caps outgoing RPC requests per second. Zero disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(n *Network) {
		if perSecond > 0 {
			n.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithLogger configures a logger for the Network.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Network) {
		n.logger = logger
	}
}

// New creates a Network for the RPC endpoint url.
func New(url string, opts ...Option) *Network {
	return NewFromClient(rpc.New(url), opts...)
}

// NewFromClient wraps an existing RPC client.
func NewFromClient(client *rpc.Client, opts ...Option) *Network {
	n := &Network{
		client:         client,
		commitment:     rpc.CommitmentConfirmed,
		confirmTimeout: DefaultConfirmTimeout,
		pollInterval:   DefaultPollInterval,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Network) wait(ctx context.Context) error {
	if n.limiter == nil {
		return nil
	}
	return n.limiter.Wait(ctx)
}

// LatestBlockhash implements ports.Network.
func (n *Network) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := n.wait(ctx); err != nil {
		return solana.Hash{}, err
	}
	out, err := n.client.GetLatestBlockhash(ctx, n.commitment)
	if err != nil {
		return solana.Hash{}, err
	}
	return out.Value.Blockhash, nil
}

// Balance implements ports.Network.
func (n *Network) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	if err := n.wait(ctx); err != nil {
		return 0, err
	}
	out, err := n.client.GetBalance(ctx, account, n.commitment)
	if err != nil {
		return 0, err
	}
	return out.Value, nil
}

// FeeForMessage implements ports.Network.
func (n *Network) FeeForMessage(ctx context.Context, message *solana.Message) (uint64, error) {
	raw, err := message.MarshalBinary()
	if err != nil {
		return 0, err
	}
	if err := n.wait(ctx); err != nil {
		return 0, err
	}
	out, err := n.client.GetFeeForMessage(ctx, base64.StdEncoding.EncodeToString(raw), n.commitment)
	if err != nil {
		return 0, err
	}
	if out.Value == nil {
		return 0, ErrBlockhashNotFound
	}
	return *out.Value, nil
}

// SendAndConfirm implements ports.Network. It sends tx once and polls its status until it
// reaches the configured commitment, fails on chain, or the confirm timeout elapses.
func (n *Network) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := n.wait(ctx); err != nil {
		return solana.Signature{}, err
	}
	sig, err := n.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: n.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	logger := n.logger.With("signature", sig)
	logger.Debug("Transaction sent")

	ctx, cancel := context.WithTimeout(ctx, n.confirmTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.pollInterval
	b.MaxInterval = 4 * n.pollInterval
	b.MaxElapsedTime = 0

	poll := func() error {
		if err := n.wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		out, err := n.client.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return err
		}
		if len(out.Value) == 0 || out.Value[0] == nil {
			return errPending
		}
		status := out.Value[0]
		if status.Err != nil {
			return backoff.Permanent(&TransactionError{Signature: sig, Err: status.Err})
		}
		if !reached(status.ConfirmationStatus, n.commitment) {
			return errPending
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		if !errors.Is(err, errPending) {
			logger.Debug("Signature status poll failed", "err", err, "retry_in", next)
		}
	}
	if err := backoff.RetryNotify(poll, backoff.WithContext(b, ctx), notify); err != nil {
		var txErr *TransactionError
		if !errors.As(err, &txErr) && ctx.Err() != nil {
			return sig, fmt.Errorf("confirm transaction %s: %w", sig, ctx.Err())
		}
		return sig, err
	}
	logger.Debug("Transaction confirmed", "commitment", n.commitment)
	return sig, nil
}

var errPending = errors.New("transaction not yet confirmed")

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case string(rpc.ConfirmationStatusProcessed):
			return 1
		case string(rpc.ConfirmationStatusConfirmed):
			return 2
		case string(rpc.ConfirmationStatusFinalized):
			return 3
		}
		return 0
	}
	have := rank(string(status))
	return have > 0 && have >= rank(string(want))
}
