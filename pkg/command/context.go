package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/flowchain/internal/logging"
	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/execution"
	"github.com/aretw0/flowchain/pkg/value"
)

// Context is what a command sees of the engine running it.
type Context struct {
	// Service executes bundles. A nil Service behaves as execution.Unavailable.
	Service execution.Service

	// UserID is the identity remote signatures are requested on behalf of.
	UserID string

	Logger *slog.Logger
}

// NewContext creates a Context submitting to service on behalf of userID.
func NewContext(service execution.Service, userID string, logger *slog.Logger) *Context {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Context{Service: service, UserID: userID, Logger: logger}
}

func (c *Context) service() execution.Service {
	if c == nil || c.Service == nil {
		return execution.Unavailable{}
	}
	return c.Service
}

// Execute waits for the service to accept work and submits bundle with the command's
// pass-through outputs. A Call rejected with domain.ErrNotReady goes back to waiting.
func (c *Context) Execute(ctx context.Context, bundle *domain.Bundle, outputs *value.Map) (execution.Response, error) {
	svc := c.service()
	var userID string
	if c != nil {
		userID = c.UserID
	}
	req := execution.Request{
		UserID:  userID,
		Bundle:  bundle,
		Outputs: outputs,
	}
	for {
		if err := svc.Ready(ctx); err != nil {
			return execution.Response{}, err
		}
		resp, err := svc.Call(ctx, req)
		if !errors.Is(err, domain.ErrNotReady) {
			return resp, err
		}
		if ctx.Err() != nil {
			return resp, err
		}
	}
}

// Batch collects the bundles of a command composed of several steps into one transaction.
type Batch struct {
	steps  int
	added  int
	bundle domain.Bundle
}

// NewBatch creates a Batch expecting steps contributions.
func NewBatch(steps int) *Batch {
	return &Batch{steps: steps}
}

// Add merges the bundle of the next step. A nil or empty bundle is no contribution and
// leaves the step count unchanged.
func (b *Batch) Add(bundle *domain.Bundle) error {
	if bundle == nil || bundle.IsEmpty() {
		return nil
	}
	if b.added == b.steps {
		return fmt.Errorf("batch expects %d steps, got another", b.steps)
	}
	if err := b.bundle.Combine(bundle); err != nil {
		return fmt.Errorf("step %d: %w", b.added, err)
	}
	b.added++
	return nil
}

// Bundle returns the combined bundle once every step has contributed.
func (b *Batch) Bundle() (*domain.Bundle, error) {
	if b.added < b.steps {
		return nil, fmt.Errorf("%w: %d of %d steps produced instructions", domain.ErrIncompleteTransaction, b.added, b.steps)
	}
	out := b.bundle
	return &out, nil
}

// ExecuteBatch submits the combined bundle of batch.
func (c *Context) ExecuteBatch(ctx context.Context, batch *Batch, outputs *value.Map) (execution.Response, error) {
	bundle, err := batch.Bundle()
	if err != nil {
		return execution.Response{}, err
	}
	return c.Execute(ctx, bundle, outputs)
}
