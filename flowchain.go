package flowchain

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/flowchain/internal/logging"
	"github.com/aretw0/flowchain/pkg/command"
	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/execution"
	"github.com/aretw0/flowchain/pkg/observability"
	"github.com/aretw0/flowchain/pkg/ports"
	"github.com/aretw0/flowchain/pkg/signing"
	"github.com/aretw0/flowchain/pkg/value"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

// Engine is the high-level entry point of the library. It wires the command registry, the
// signature hub, the signing coordinator and the execution service around one network.
type Engine struct {
	registry *command.Registry
	hub      *signing.Hub
	executor *execution.Executor
	metrics  *observability.Metrics

	journal          ports.Journal
	locker           ports.DistributedLocker
	requester        ports.SignatureRequester
	hooks            []domain.LifecycleHooks
	registerer       prometheus.Registerer
	signatureTimeout time.Duration
	maxConcurrent    int
	logger           *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithJournal records every execution in j.
func WithJournal(j ports.Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithLocker serializes remote signature requests per key across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithSignatureRequester routes remote signature requests to r instead of the built-in hub.
func WithSignatureRequester(r ports.SignatureRequester) Option {
	return func(e *Engine) {
		e.requester = r
	}
}

// WithLifecycleHooks registers observability hooks. It may be given several times.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithMetrics registers Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.registerer = reg
	}
}

// WithSignatureTimeout sets the shared deadline for a bundle's remote signatures.
func WithSignatureTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.signatureTimeout = d
	}
}

// WithMaxConcurrent bounds the executions in flight.
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) {
		e.maxConcurrent = n
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes an Engine submitting to network, with the built-in commands registered.
func New(network ports.Network, opts ...Option) (*Engine, error) {
	if network == nil {
		return nil, fmt.Errorf("network is required")
	}
	e := &Engine{
		registry:         command.NewRegistry(),
		signatureTimeout: signing.DefaultTimeout,
		maxConcurrent:    execution.DefaultMaxConcurrent,
		logger:           logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.hub = signing.NewHub(signing.WithHubLogger(e.logger))
	if e.requester == nil {
		e.requester = e.hub
	}
	command.RegisterBuiltins(e.registry)

	hooks := e.hooks
	if e.registerer != nil {
		e.metrics = observability.NewMetrics(e.registerer)
		hooks = append(hooks, e.metrics.Hooks())
	}
	chained := observability.Chain(hooks...)

	coordinator := signing.NewCoordinator(e.requester,
		signing.WithTimeout(e.signatureTimeout),
		signing.WithLocker(e.locker),
		signing.WithHooks(chained),
		signing.WithLogger(e.logger),
	)
	execOpts := []execution.Option{
		execution.WithCoordinator(coordinator),
		execution.WithHooks(chained),
		execution.WithLogger(e.logger),
		execution.WithMaxConcurrent(e.maxConcurrent),
	}
	if e.journal != nil {
		execOpts = append(execOpts, execution.WithJournal(e.journal))
	}
	e.executor = execution.NewExecutor(network, execOpts...)
	return e, nil
}

// Registry returns the command registry, to register further commands.
func (e *Engine) Registry() *command.Registry { return e.registry }

// Hub returns the in-process signature hub. It only receives requests when no other
// requester was configured.
func (e *Engine) Hub() *signing.Hub { return e.hub }

// Service returns the execution service.
func (e *Engine) Service() execution.Service { return e.executor }

// Journal returns the configured journal, or nil.
func (e *Engine) Journal() ports.Journal { return e.journal }

// Run runs the command registered under name on behalf of userID.
func (e *Engine) Run(ctx context.Context, name, userID string, inputs *value.Map) (*value.Map, error) {
	cc := command.NewContext(e.executor, userID, e.logger.With("command", name))
	return e.registry.Run(ctx, name, cc, inputs)
}
