package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/flowchain/internal/config"
	api "github.com/aretw0/flowchain/pkg/adapters/http"
	"github.com/aretw0/flowchain/pkg/adapters/mcp"
	"github.com/aretw0/flowchain/pkg/domain"
)

// ShutdownTimeout bounds how long in-flight requests may take once shutdown begins.
const ShutdownTimeout = 5 * time.Second

// Serve runs the HTTP API on ln until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, ln net.Listener, cfg config.Config, logger *slog.Logger, opts EngineOptions) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts.Registerer = reg

	streams := api.NewStreamManager(logger)
	opts.Hooks = append([]domain.LifecycleHooks{streams.Hooks()}, opts.Hooks...)

	engine, closer, err := NewEngine(cfg, logger, opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	server := api.NewServer(engine.Registry(),
		api.WithService(engine.Service()),
		api.WithHub(engine.Hub()),
		api.WithJournal(engine.Journal()),
		api.WithGatherer(reg),
		api.WithStreams(streams),
		api.WithLogger(logger),
	)
	srv := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(streams.Close)

	if cfg.MCP.Enabled {
		path := strings.TrimSuffix(cfg.MCP.Path, "/")
		tools := mcp.NewServer(engine, mcp.WithLogger(logger))
		mux := http.NewServeMux()
		mux.Handle(path+"/", tools.Handler(path))
		mux.Handle("/", srv.Handler)
		srv.Handler = mux
		srv.RegisterOnShutdown(tools.Close)
		logger.Info("MCP endpoint enabled", "sse", path+"/sse", "message", path+"/message")
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting flowchain server", "addr", ln.Addr().String(), "rpc", cfg.RPC.Endpoint)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Shutting down", "cause", context.Cause(ctx))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
		return srv.Close()
	}
	logger.Info("Server stopped gracefully")
	return nil
}
