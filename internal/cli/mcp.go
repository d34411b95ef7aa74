package cli

import (
	"log/slog"

	"github.com/aretw0/flowchain/internal/config"
	"github.com/aretw0/flowchain/pkg/adapters/mcp"
)

// ServeMCP runs the MCP tools over stdin and stdout until stdin closes or the process is
// interrupted. Logs must not go to stdout while it runs.
func ServeMCP(cfg config.Config, logger *slog.Logger, opts EngineOptions) error {
	engine, closer, err := NewEngine(cfg, logger, opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	logger.Info("Starting flowchain MCP server (stdio)", "commands", engine.Registry().Names())
	return mcp.NewServer(engine, mcp.WithLogger(logger)).ServeStdio()
}
