package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/flowchain/internal/logging"
	"github.com/aretw0/flowchain/pkg/domain"
)

// allExecutions is the subscription key receiving every event.
const allExecutions = "*"

// streamEvent is the SSE payload of a state change.
type streamEvent struct {
	domain.ExecutionEvent
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// StreamManager fans execution events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // execution id or "*" -> channels
	closed      bool
	logger      *slog.Logger
}

// NewStreamManager creates a StreamManager with no subscribers. logger may be nil.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for events of executionID, or of every execution when it
// is empty. The returned func unsubscribes and closes the channel. After Close the channel
// comes back already closed.
func (sm *StreamManager) Subscribe(executionID string) (<-chan string, func()) {
	if executionID == "" {
		executionID = allExecutions
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if sm.closed {
		close(ch)
		return ch, func() {}
	}
	if _, ok := sm.subscribers[executionID]; !ok {
		sm.subscribers[executionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[executionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[executionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, executionID)
			}
		}
	}
}

// Close ends every subscription so that streaming handlers return, e.g. on server shutdown.
func (sm *StreamManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.closed {
		return
	}
	sm.closed = true
	n := 0
	for _, subs := range sm.subscribers {
		for ch := range subs {
			close(ch)
			n++
		}
	}
	clear(sm.subscribers)
	sm.logger.Debug("Closed event streams", "subscribers", n)
}

// Broadcast delivers msg to the subscribers of executionID and to those of every execution.
// Slow subscribers drop messages.
func (sm *StreamManager) Broadcast(executionID, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, key := range []string{executionID, allExecutions} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("SSE client buffer full, dropping event", "execution_id", executionID)
			}
		}
	}
}

// Hooks publishes every state change.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, ev *domain.ExecutionEvent) {
			payload := streamEvent{ExecutionEvent: *ev}
			if ev.Err != nil {
				payload.Error = ev.Err.Error()
				payload.Kind = domain.FailureKind(ev.Err)
			}
			data, err := json.Marshal(payload)
			if err != nil {
				sm.logger.Error("Event encode failed", "err", err)
				return
			}
			sm.Broadcast(ev.ExecutionID, string(data))
		},
	}
}

// subscribeEvents handles GET /v1/events?execution_id= (SSE).
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	executionID := r.URL.Query().Get("execution_id")
	ch, cancel := s.streams.Subscribe(executionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
