package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/edumentor/edumentor/internal/app"
	"github.com/edumentor/edumentor/internal/config"
	"github.com/edumentor/edumentor/internal/mcp"
)

// runMCP starts the MCP server on stdio. Tool calls search the indexed
// study material and generate quizzes; the host process (an editor or an
// agent runtime) speaks JSON-RPC on stdin/stdout, so all logging goes to
// stderr.
func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configureLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting MCP server", "version", Version)

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Version:   Version,
		Knowledge: a.Knowledge,
		Quiz:      a.Quiz,
		Logger:    slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	slog.Info("MCP server ready",
		"name", "edumentor",
		"version", Version,
		"transport", "stdio")

	if err := mcpServer.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	slog.Info("MCP server shut down gracefully")
	return nil
}
