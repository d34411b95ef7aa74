package signing

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/aretw0/flowchain/internal/logging"
	"github.com/aretw0/flowchain/pkg/domain"
)

// PendingRequest is a signature request waiting for a client.
type PendingRequest struct {
	domain.SignatureRequest
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type hubResult struct {
	sig solana.Signature
	err error
}

type hubEntry struct {
	pending PendingRequest
	result  chan hubResult // buffered, written at most once
}

// Hub is an in-process ports.SignatureRequester. Each request is parked under a fresh ID
// until a client submits a signature for it, rejects it, or its timeout elapses.
type Hub struct {
	mu      sync.Mutex
	entries map[string]*hubEntry

	logger *slog.Logger
}

// HubOption configures the Hub.
type HubOption func(*Hub)

// WithHubLogger configures a logger for the Hub.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// NewHub creates an empty Hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		entries: make(map[string]*hubEntry),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RequestSignature parks req and waits for the answer.
// A zero req.Timeout waits until ctx is done.
func (h *Hub) RequestSignature(ctx context.Context, req domain.SignatureRequest) (solana.Signature, error) {
	req.ID = uuid.NewString()
	now := time.Now()
	entry := &hubEntry{
		pending: PendingRequest{SignatureRequest: req, CreatedAt: now},
		result:  make(chan hubResult, 1),
	}
	var expired <-chan time.Time
	if req.Timeout > 0 {
		entry.pending.ExpiresAt = now.Add(req.Timeout)
		timer := time.NewTimer(req.Timeout)
		defer timer.Stop()
		expired = timer.C
	}

	h.mu.Lock()
	h.entries[req.ID] = entry
	h.mu.Unlock()
	defer h.remove(req.ID)

	h.logger.Info("Signature requested", "request_id", req.ID, "pubkey", req.Pubkey, "user_id", req.UserID)

	select {
	case res := <-entry.result:
		return res.sig, res.err
	case <-expired:
		return solana.Signature{}, domain.ErrSignatureTimeout
	case <-ctx.Done():
		return solana.Signature{}, ctx.Err()
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, id)
}

// Pending lists the requests waiting for userID, oldest first. An empty userID lists all.
func (h *Hub) Pending(userID string) []PendingRequest {
	h.mu.Lock()
	out := make([]PendingRequest, 0, len(h.entries))
	for _, e := range h.entries {
		if userID == "" || e.pending.UserID == userID {
			out = append(out, e.pending)
		}
	}
	h.mu.Unlock()

	slices.SortFunc(out, func(a, b PendingRequest) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Submit answers request id with a signature made by pubkey on behalf of userID.
//
// A submission from another user is refused with domain.ErrWrongUser and leaves the request
// pending. A signature from a different key, or one that does not verify, fails the request
// itself with domain.ErrWrongKey or domain.ErrInvalidSignature.
func (h *Hub) Submit(id, userID string, pubkey solana.PublicKey, sig solana.Signature) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[id]
	if !ok {
		return domain.ErrRequestNotFound
	}
	req := entry.pending.SignatureRequest
	if req.UserID != userID {
		return domain.ErrWrongUser
	}

	var err error
	switch {
	case !pubkey.Equals(req.Pubkey):
		err = fmt.Errorf("%w: expected %s, got %s", domain.ErrWrongKey, req.Pubkey, pubkey)
	case !sig.Verify(req.Pubkey, req.Message):
		err = domain.ErrInvalidSignature
	}
	h.resolve(id, entry, hubResult{sig: sig, err: err})
	return err
}

// Reject fails request id with domain.ErrSignerFailed, e.g. when the user declines.
func (h *Hub) Reject(id, userID, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[id]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if entry.pending.UserID != userID {
		return domain.ErrWrongUser
	}
	h.resolve(id, entry, hubResult{err: fmt.Errorf("%w: %s", domain.ErrSignerFailed, reason)})
	return nil
}

// resolve delivers the result and forgets the request. Callers hold h.mu.
func (h *Hub) resolve(id string, entry *hubEntry, res hubResult) {
	entry.result <- res
	delete(h.entries, id)
	h.logger.Info("Signature request resolved", "request_id", id, "err", res.err)
}
