// Package cmd provides CLI commands for EduMentor.
//
// Commands:
//   - serve: HTTP API server with SSE streaming
//   - index: ingest PDF files and web articles into the knowledge store
//   - ask: one-shot tutor question from the terminal
//   - mcp: Model Context Protocol server for IDE integration
//
// Signal handling and graceful shutdown are implemented for the
// long-running commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/edumentor/edumentor/internal/config"
	"github.com/edumentor/edumentor/internal/log"
)

// Execute is the main entry point for the EduMentor CLI application.
func Execute() error {
	// Initialize logger once at entry point; configureLogger refines it
	// after the command loads its config.
	level := "info"
	if os.Getenv("DEBUG") != "" {
		level = "debug"
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "index":
		return runIndex()
	case "ask":
		return runAsk()
	case "mcp":
		return runMCP()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// configureLogger replaces the process-default logger once configuration
// is loaded. The DEBUG environment variable wins over config so a quick
// debug run never needs a config edit.
//
// IMPORTANT: logs go to stderr. stdout is reserved for command output
// and, in mcp mode, for JSON-RPC messages.
func configureLogger(cfg *config.Config) {
	level := cfg.LogLevel
	if os.Getenv("DEBUG") != "" {
		level = "debug"
	}
	slog.SetDefault(log.New(log.Config{Level: level, JSON: cfg.LogJSON}))
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("EduMentor - AI tutoring backend for school students")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  edumentor serve [addr]                Start HTTP API server (default: 127.0.0.1:8000)")
	fmt.Println("  edumentor index --subject <s> <src>   Index PDFs, globs, or article URLs")
	fmt.Println("  edumentor ask [--subject <s>] <q>     Ask the tutor a one-shot question")
	fmt.Println("  edumentor mcp                         Start MCP server (stdio transport)")
	fmt.Println("  edumentor version                     Show version information")
	fmt.Println("  edumentor help                        Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  edumentor serve :8080")
	fmt.Println("  edumentor index --subject maths textbook.pdf chapters/*.pdf")
	fmt.Println("  edumentor index --subject science https://example.org/photosynthesis")
	fmt.Println("  edumentor ask --subject maths \"how do I add fractions?\"")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY       Required for the googleai provider")
	fmt.Println("  OPENAI_API_KEY       Required for the openai provider")
	fmt.Println("  EDUMENTOR_PROVIDER   Override AI provider (googleai, ollama, openai)")
	fmt.Println("  EDUMENTOR_DATA_DIR   Override data directory (default: ~/.edumentor)")
	fmt.Println("  DEBUG                Enable debug logging")
	fmt.Println()
	fmt.Println("Configuration file: ~/.edumentor/config.yaml")
}
