package domain

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
)

// ExecutionEvent reports a state transition of an execution.
type ExecutionEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	ExecutionID string         `json:"execution_id"`
	From        ExecutionState `json:"from,omitempty"`
	To          ExecutionState `json:"to"`
	Err         error          `json:"-"`
}

// SignatureEvent reports a remote signature request or its outcome.
type SignatureEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Pubkey    solana.PublicKey `json:"pubkey"`
	UserID    string           `json:"user_id,omitempty"`
	Duration  time.Duration    `json:"duration,omitempty"` // Set on responses
	Err       error            `json:"-"`
}

// LifecycleHooks defines callbacks for execution observability.
// Every hook is optional.
type LifecycleHooks struct {
	OnStateChange       func(context.Context, *ExecutionEvent)
	OnSignatureRequest  func(context.Context, *SignatureEvent)
	OnSignatureResponse func(context.Context, *SignatureEvent)
}

// StateChange invokes OnStateChange if set.
func (h LifecycleHooks) StateChange(ctx context.Context, ev *ExecutionEvent) {
	if h.OnStateChange != nil {
		h.OnStateChange(ctx, ev)
	}
}

// SignatureRequest invokes OnSignatureRequest if set.
func (h LifecycleHooks) SignatureRequest(ctx context.Context, ev *SignatureEvent) {
	if h.OnSignatureRequest != nil {
		h.OnSignatureRequest(ctx, ev)
	}
}

// SignatureResponse invokes OnSignatureResponse if set.
func (h LifecycleHooks) SignatureResponse(ctx context.Context, ev *SignatureEvent) {
	if h.OnSignatureResponse != nil {
		h.OnSignatureResponse(ctx, ev)
	}
}
