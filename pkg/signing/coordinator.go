package signing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/flowchain/internal/logging"
	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/ports"
)

// DefaultTimeout is the shared deadline for all remote signatures of one bundle.
const DefaultTimeout = 2 * time.Minute

// Signer produces a signature for one public key.
// domain.Keypair (local) and domain.Presigner implement it.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(message []byte) (solana.Signature, error)
}

// Coordinator partitions a bundle's signers into local and remote and collects the remote
// signatures.
type Coordinator struct {
	requester ports.SignatureRequester
	timeout   time.Duration
	locks     *keyLock
	locker    ports.DistributedLocker
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the shared deadline for a bundle's remote signatures.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// WithLocker serializes requests for the same public key across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *Coordinator) {
		c.locker = locker
	}
}

// WithHooks registers callbacks for signature requests and responses.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Coordinator) {
		c.hooks = hooks
	}
}

// WithLogger configures a logger for the Coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a Coordinator. requester may be nil when only local keys are used;
// a bundle with remote signers then fails with domain.ErrSignerFailed.
func NewCoordinator(requester ports.SignatureRequester, opts ...Option) *Coordinator {
	c := &Coordinator{
		requester: requester,
		timeout:   DefaultTimeout,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	// The distributed lock must outlive the whole batch.
	c.locks = newKeyLock(c.locker, c.timeout+10*time.Second, c.logger)
	return c
}

// Partition splits signers into local keypairs, deduplicated by public key, and the sorted
// distinct public keys of the remote ones.
func Partition(signers []domain.Keypair) (local []domain.Keypair, remote []solana.PublicKey) {
	seenLocal := map[solana.PublicKey]bool{}
	seenRemote := map[solana.PublicKey]bool{}
	for _, s := range signers {
		pk := s.PublicKey()
		if s.IsRemote() {
			if !seenRemote[pk] {
				seenRemote[pk] = true
				remote = append(remote, pk)
			}
			continue
		}
		if !seenLocal[pk] {
			seenLocal[pk] = true
			local = append(local, s)
		}
	}
	slices.SortFunc(remote, func(a, b solana.PublicKey) int {
		return bytes.Compare(a[:], b[:])
	})
	return local, remote
}

// Collect returns the signer set for message: the local keypairs plus one verified
// presigner per distinct remote key. userID identifies on whose behalf remote signatures
// are requested.
//
// Remote requests run concurrently under one deadline. If any of them fails or the deadline
// passes, Collect fails and returns no signers. Requests still in flight are abandoned.
func (c *Coordinator) Collect(ctx context.Context, userID string, signers []domain.Keypair, message []byte) ([]Signer, error) {
	local, remote := Partition(signers)

	out := make([]Signer, 0, len(local)+len(remote))
	for _, kp := range local {
		out = append(out, kp)
	}
	if len(remote) == 0 {
		return out, nil
	}
	if c.requester == nil {
		return nil, &domain.SignError{Pubkey: remote[0], Err: fmt.Errorf("%w: no signature requester configured", domain.ErrSignerFailed)}
	}

	presigners, err := c.requestAll(ctx, userID, remote, message)
	if err != nil {
		return nil, err
	}
	for _, p := range presigners {
		out = append(out, p)
	}
	return out, nil
}

func (c *Coordinator) requestAll(ctx context.Context, userID string, keys []solana.PublicKey, message []byte) ([]domain.Presigner, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()

	results := make([]domain.Presigner, len(keys))
	var completed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	for i, pk := range keys {
		g.Go(func() error {
			return c.locks.withLock(gctx, pk.String(), func(ctx context.Context) error {
				p, err := c.request(ctx, userID, pk, message, time.Until(deadline))
				if err != nil {
					return err
				}
				results[i] = p
				completed.Add(1)
				return nil
			})
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err == nil {
			return results, nil
		}
		if ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, c.timeoutError(ctx, int(completed.Load()), len(keys))
		}
		return nil, err
	case <-ctx.Done():
		return nil, c.timeoutError(ctx, int(completed.Load()), len(keys))
	}
}

func (c *Coordinator) timeoutError(ctx context.Context, got, want int) error {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ctx.Err()
	}
	c.logger.Warn("Signature collection timed out", "received", got, "required", want, "timeout", c.timeout)
	return fmt.Errorf("%w: received %d of %d signatures within %s", domain.ErrSigningTimeout, got, want, c.timeout)
}

func (c *Coordinator) request(ctx context.Context, userID string, pk solana.PublicKey, message []byte, remaining time.Duration) (domain.Presigner, error) {
	start := time.Now()
	c.hooks.SignatureRequest(ctx, &domain.SignatureEvent{
		Timestamp: start,
		Pubkey:    pk,
		UserID:    userID,
	})
	c.logger.Debug("Requesting signature", "pubkey", pk, "user_id", userID)

	sig, err := c.requester.RequestSignature(ctx, domain.SignatureRequest{
		UserID:  userID,
		Pubkey:  pk,
		Message: message,
		Timeout: remaining,
	})
	var p domain.Presigner
	if err == nil {
		p = domain.Presigner{Pubkey: pk, Signature: sig}
		if _, verr := p.Sign(message); verr != nil {
			err = verr
		}
	}

	c.hooks.SignatureResponse(ctx, &domain.SignatureEvent{
		Timestamp: time.Now(),
		Pubkey:    pk,
		UserID:    userID,
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		var se *domain.SignError
		if errors.As(err, &se) {
			return p, err
		}
		return p, &domain.SignError{Pubkey: pk, Err: err}
	}
	return p, nil
}

// SignTransaction fills tx.Signatures in the order the message requires them.
// message must be the serialized tx.Message the signers were collected for.
func SignTransaction(tx *solana.Transaction, message []byte, signers []Signer) error {
	byKey := make(map[solana.PublicKey]Signer, len(signers))
	for _, s := range signers {
		byKey[s.PublicKey()] = s
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if required > len(tx.Message.AccountKeys) {
		return fmt.Errorf("message requires %d signatures but has %d accounts", required, len(tx.Message.AccountKeys))
	}
	sigs := make([]solana.Signature, required)
	for i, key := range tx.Message.AccountKeys[:required] {
		s, ok := byKey[key]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrMissingSigner, key)
		}
		sig, err := s.Sign(message)
		if err != nil {
			return err
		}
		sigs[i] = sig
	}
	tx.Signatures = sigs
	return nil
}
