package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/flowchain"
	"github.com/aretw0/flowchain/internal/config"
	"github.com/aretw0/flowchain/pkg/adapters/chain"
	"github.com/aretw0/flowchain/pkg/adapters/memory"
	"github.com/aretw0/flowchain/pkg/adapters/redis"
	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/persistence/middleware"
	"github.com/aretw0/flowchain/pkg/ports"
)

// EngineOptions carries what the process adds on top of the configuration.
type EngineOptions struct {
	// Network overrides the RPC endpoint of the configuration. Used by tests.
	Network ports.Network
	// Registerer receives the Prometheus collectors. Nil disables metrics.
	Registerer prometheus.Registerer
	Hooks      []domain.LifecycleHooks
}

// NewEngine builds an Engine from cfg. With cfg.Redis.Addr set the journal and the key
// lock live in Redis, otherwise the journal is kept in memory and keys are only serialized
// within this process. The returned closer releases the Redis connection.
func NewEngine(cfg config.Config, logger *slog.Logger, opts EngineOptions) (*flowchain.Engine, io.Closer, error) {
	network := opts.Network
	if network == nil {
		chainOpts := []chain.Option{
			chain.WithCommitment(rpc.CommitmentType(cfg.RPC.Commitment)),
			chain.WithLogger(logger),
		}
		if cfg.RPC.ConfirmTimeout > 0 {
			chainOpts = append(chainOpts, chain.WithConfirmTimeout(cfg.RPC.ConfirmTimeout))
		}
		if cfg.RPC.RateLimit > 0 {
			chainOpts = append(chainOpts, chain.WithRateLimit(cfg.RPC.RateLimit))
		}
		network = chain.New(cfg.RPC.Endpoint, chainOpts...)
	}

	engineOpts := []flowchain.Option{
		flowchain.WithLogger(logger),
		flowchain.WithSignatureTimeout(cfg.Signing.Timeout),
		flowchain.WithMaxConcurrent(cfg.Execution.MaxConcurrent),
	}
	if opts.Registerer != nil {
		engineOpts = append(engineOpts, flowchain.WithMetrics(opts.Registerer))
	}
	for _, h := range opts.Hooks {
		engineOpts = append(engineOpts, flowchain.WithLifecycleHooks(h))
	}

	var (
		journal ports.Journal
		closer  io.Closer = nopCloser{}
	)
	if cfg.Redis.Addr != "" {
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		journalOpts := []redis.Option{redis.WithPrefix(cfg.Redis.Prefix)}
		if cfg.Redis.TTL > 0 {
			journalOpts = append(journalOpts, redis.WithTTL(cfg.Redis.TTL))
		}
		journal = redis.NewFromClient(client, journalOpts...)
		engineOpts = append(engineOpts, flowchain.WithLocker(redis.NewLocker(client, cfg.Redis.Prefix)))
		closer = client
		logger.Info("Using Redis journal", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
	} else {
		journal = memory.NewJournal()
	}

	var mws []middleware.Middleware
	if len(cfg.Journal.Redact) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Journal.Redact))
	}
	active, fallback, err := cfg.Journal.EncryptionKeys()
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback}))
	}
	engineOpts = append(engineOpts, flowchain.WithJournal(middleware.Chain(journal, mws...)))

	engine, err := flowchain.New(network, engineOpts...)
	if err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
