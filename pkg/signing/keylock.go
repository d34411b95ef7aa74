package signing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/flowchain/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
// The mutex is a one-slot channel so waiting can be abandoned when the context ends.
type lockEntry struct {
	ch   chan struct{}
	refs int
}

// keyLock serializes work per key. Unused entries are garbage collected by reference count.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.DistributedLocker // Optional distributed locker
	ttl    time.Duration
	logger *slog.Logger
}

func newKeyLock(locker ports.DistributedLocker, ttl time.Duration, logger *slog.Logger) *keyLock {
	return &keyLock{
		locks:  make(map[string]*lockEntry),
		locker: locker,
		ttl:    ttl,
		logger: logger,
	}
}

// acquire gets or creates the entry for key and increments its reference count.
// The caller MUST call release(key) when done with the entry.
func (k *keyLock) acquire(key string) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, exists := k.locks[key]
	if !exists {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (k *keyLock) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, exists := k.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(k.locks, key)
	}
}

// size returns the number of live entries.
func (k *keyLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// withLock runs fn while holding the lock for key.
func (k *keyLock) withLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := k.acquire(key)
	defer k.release(key)

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-entry.ch }()

	if k.locker != nil {
		unlock, err := k.locker.Lock(ctx, key, k.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The request context may be done already; release with a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := unlock(releaseCtx); err != nil {
				k.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"pubkey", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
