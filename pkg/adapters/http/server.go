// Package http exposes the engine over HTTP: commands and values in the wire encoding,
// the signature hub, the execution journal, execution events and metrics.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/flowchain"
	"github.com/aretw0/flowchain/internal/logging"
	"github.com/aretw0/flowchain/pkg/command"
	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/execution"
	"github.com/aretw0/flowchain/pkg/ports"
	"github.com/aretw0/flowchain/pkg/signing"
	"github.com/aretw0/flowchain/pkg/value"
)

// UserHeader carries the identity commands run on behalf of.
const UserHeader = "X-User-ID"

// MaxBodySize bounds request bodies.
const MaxBodySize = 1 << 20

// Server serves the HTTP API.
type Server struct {
	registry *command.Registry
	service  execution.Service
	hub      *signing.Hub
	journal  ports.Journal
	gatherer prometheus.Gatherer
	streams  *StreamManager
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithService sets the execution service commands submit to.
func WithService(s execution.Service) Option {
	return func(srv *Server) {
		srv.service = s
	}
}

// WithHub exposes the pending signature requests of hub.
func WithHub(hub *signing.Hub) Option {
	return func(srv *Server) {
		srv.hub = hub
	}
}

// WithJournal exposes execution records.
func WithJournal(j ports.Journal) Option {
	return func(srv *Server) {
		srv.journal = j
	}
}

// WithGatherer serves the metrics of g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(srv *Server) {
		srv.gatherer = g
	}
}

// WithStreams publishes the events of sm on /v1/events. Pass sm.Hooks() to the execution
// service to feed it.
func WithStreams(sm *StreamManager) Option {
	return func(srv *Server) {
		srv.streams = sm
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(srv *Server) {
		srv.logger = logger
	}
}

// NewServer creates a Server running the commands of registry.
func NewServer(registry *command.Registry, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		service:  execution.Unavailable{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger)
	}
	return s
}

// Hooks returns lifecycle hooks that publish state changes to /v1/events subscribers.
func (s *Server) Hooks() domain.LifecycleHooks {
	return s.streams.Hooks()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/commands", s.listCommands)
		r.Post("/commands/{name}", s.runCommand)
		r.Post("/values/normalize", s.normalize)
		r.Get("/signatures", s.listSignatures)
		r.Post("/signatures/{id}", s.answerSignature)
		r.Get("/executions", s.listExecutions)
		r.Get("/executions/{id}", s.getExecution)
		r.Get("/events", s.subscribeEvents)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+UserHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "flowchain",
		"version": strings.TrimSpace(flowchain.Version),
	})
}

func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.Names())
}

// runCommand handles POST /v1/commands/{name}. The body is a wire-encoded Map of inputs.
func (s *Server) runCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, err := s.readValue(w, r)
	if err != nil {
		return
	}
	inputs, ok := v.(*value.Map)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid_inputs", errors.New("command inputs must be a map"))
		return
	}

	logger := s.logger.With("command", name, "request_id", middleware.GetReqID(r.Context()))
	cc := command.NewContext(s.service, r.Header.Get(UserHeader), logger)
	outputs, err := s.registry.Run(r.Context(), name, cc, inputs)
	if err != nil {
		status, kind := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error("Command failed", "err", err, "kind", kind)
		} else {
			logger.Debug("Command rejected", "err", err, "kind", kind)
		}
		s.writeError(w, status, kind, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outputs)
}

// normalize handles POST /v1/values/normalize.
func (s *Server) normalize(w http.ResponseWriter, r *http.Request) {
	v, err := s.readValue(w, r)
	if err != nil {
		return
	}
	s.writeJSON(w, http.StatusOK, value.Wire{Value: value.Normalize(v)})
}

func (s *Server) readValue(w http.ResponseWriter, r *http.Request) (value.Value, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "invalid_value", err)
		return nil, err
	}
	v, err := value.DecodeJSON(data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_value", err)
		return nil, err
	}
	return v, nil
}

// writeJSON writes v without HTML escaping so wire strings stay byte-identical.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind string, err error) {
	s.writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}
