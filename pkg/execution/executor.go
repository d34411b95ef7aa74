package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/aretw0/flowchain/internal/logging"
	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/ports"
	"github.com/aretw0/flowchain/pkg/signing"
)

// DefaultMaxConcurrent bounds the executions an Executor runs at once.
const DefaultMaxConcurrent = 16

// Executor runs bundles against a network. It implements Service.
//
// Ready waits for a free concurrency slot without holding it. Call takes a free slot if there
// is one and otherwise fails with domain.ErrNotReady rather than queueing, so a caller that
// loses the race after Ready retries.
type Executor struct {
	network     ports.Network
	coordinator *signing.Coordinator
	journal     ports.Journal
	hooks       domain.LifecycleHooks
	logger      *slog.Logger

	slots *semaphore.Weighted
	now   func() time.Time
}

var _ Service = (*Executor)(nil)

// Option configures the Executor.
type Option func(*Executor)

// WithCoordinator sets the signing coordinator. The default signs with local keys only.
func WithCoordinator(c *signing.Coordinator) Option {
	return func(e *Executor) {
		e.coordinator = c
	}
}

// WithJournal records every state transition in journal.
func WithJournal(journal ports.Journal) Option {
	return func(e *Executor) {
		e.journal = journal
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithLogger configures a logger for the Executor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMaxConcurrent bounds the number of executions in flight.
func WithMaxConcurrent(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewExecutor creates an Executor submitting to network.
func NewExecutor(network ports.Network, opts ...Option) *Executor {
	e := &Executor{
		network: network,
		logger:  logging.NewNop(),
		slots:   semaphore.NewWeighted(DefaultMaxConcurrent),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.coordinator == nil {
		e.coordinator = signing.NewCoordinator(nil, signing.WithLogger(e.logger))
	}
	return e
}

// Ready blocks until a slot is free. The slot is released again before returning.
func (e *Executor) Ready(ctx context.Context) error {
	if err := e.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	e.slots.Release(1)
	return nil
}

// Call executes req.Bundle.
func (e *Executor) Call(ctx context.Context, req Request) (Response, error) {
	if !e.slots.TryAcquire(1) {
		return Response{}, domain.ErrNotReady
	}
	defer e.slots.Release(1)

	return e.execute(ctx, req)
}

// run tracks one execution through its states.
type run struct {
	e       *Executor
	record  *domain.ExecutionRecord
	logger  *slog.Logger
	started bool
}

func (e *Executor) execute(ctx context.Context, req Request) (Response, error) {
	id := uuid.NewString()
	r := &run{
		e:      e,
		record: domain.NewExecutionRecord(id, e.now()),
		logger: e.logger.With("execution_id", id),
	}
	r.record.Outputs = req.Outputs
	r.enter(ctx, domain.StateAssembling, nil)

	resp := Response{ExecutionID: id, Outputs: req.Outputs}

	if req.Bundle.IsEmpty() {
		r.logger.Debug("Empty bundle, nothing to submit")
		r.enter(ctx, domain.StateConfirmed, nil)
		return resp, nil
	}

	sig, err := r.submit(ctx, req)
	if err != nil {
		r.enter(ctx, domain.StateFailed, err)
		return Response{}, err
	}
	resp.Signature = &sig
	r.enter(ctx, domain.StateConfirmed, nil)
	return resp, nil
}

func (r *run) submit(ctx context.Context, req Request) (solana.Signature, error) {
	bundle := req.Bundle
	if err := bundle.Validate(); err != nil {
		return solana.Signature{}, err
	}
	r.record.FeePayer = bundle.FeePayer.String()
	r.logger = r.logger.With("fee_payer", bundle.FeePayer)

	// assembling
	var (
		blockhash solana.Hash
		balance   uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if blockhash, err = r.e.network.LatestBlockhash(gctx); err != nil {
			return fmt.Errorf("failed to get latest blockhash: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if balance, err = r.e.network.Balance(gctx, bundle.FeePayer); err != nil {
			return fmt.Errorf("failed to get fee payer balance: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return solana.Signature{}, err
	}

	tx, err := solana.NewTransaction(bundle.Instructions, blockhash, solana.TransactionPayer(bundle.FeePayer))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build message: %w", err)
	}
	// The message is fixed from here on: signatures are collected over these bytes.
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to serialize message: %w", err)
	}

	fee, err := r.e.network.FeeForMessage(ctx, &tx.Message)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get fee for message: %w", err)
	}
	if bundle.MinimumReserve > math.MaxUint64-fee {
		return solana.Signature{}, &domain.InsufficientBalanceError{Account: bundle.FeePayer, Required: math.MaxUint64, Available: balance}
	}
	required := bundle.MinimumReserve + fee
	if balance < required {
		return solana.Signature{}, &domain.InsufficientBalanceError{Account: bundle.FeePayer, Required: required, Available: balance}
	}
	r.logger.Debug("Message assembled", "fee", fee, "required", required, "balance", balance)

	// signing
	r.enter(ctx, domain.StateSigning, nil)
	signers, err := r.e.coordinator.Collect(ctx, req.UserID, bundle.Signers, message)
	if err != nil {
		return solana.Signature{}, err
	}
	if err := signing.SignTransaction(tx, message, signers); err != nil {
		return solana.Signature{}, err
	}
	sig := tx.Signatures[0]
	r.record.Signature = sig.String()
	r.logger = r.logger.With("signature", sig)

	// submitting
	r.enter(ctx, domain.StateSubmitting, nil)
	confirmed, err := r.e.network.SendAndConfirm(ctx, tx)
	if err != nil {
		return solana.Signature{}, &domain.SubmitError{Signature: &sig, Err: err}
	}
	return confirmed, nil
}

// enter moves the execution to state, notifying hooks and the journal.
func (r *run) enter(ctx context.Context, state domain.ExecutionState, cause error) {
	from := r.record.State
	if !r.started {
		from = ""
		r.started = true
	}
	r.record.State = state
	r.record.UpdatedAt = r.e.now()
	if cause != nil {
		r.record.Error = cause.Error()
	}

	switch {
	case cause != nil:
		r.logger.Warn("Execution failed", "err", cause, "kind", domain.FailureKind(cause))
	case state.IsFinal():
		r.logger.Info("Execution confirmed")
	default:
		r.logger.Debug("Execution state changed", "state", state)
	}

	r.e.hooks.StateChange(ctx, &domain.ExecutionEvent{
		Timestamp:   r.record.UpdatedAt,
		ExecutionID: r.record.ID,
		From:        from,
		To:          state,
		Err:         cause,
	})

	if r.e.journal != nil {
		// The journal must not turn a landed transaction into an error.
		if err := r.e.journal.Save(context.WithoutCancel(ctx), r.record); err != nil {
			r.logger.Warn("Failed to record execution state", "state", state, "err", err)
		}
	}
}
