// Package app builds the application object graph and manages its
// lifecycle. Setup wires the AI provider, storage, and agents together
// in dependency order; Close tears everything down in reverse.
// Commands own the outer surface (HTTP server, MCP transport, one-shot
// CLI calls) and pull the components they need from App.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/edumentor/edumentor/internal/config"
	"github.com/edumentor/edumentor/internal/document"
	"github.com/edumentor/edumentor/internal/history"
	"github.com/edumentor/edumentor/internal/knowledge"
	"github.com/edumentor/edumentor/internal/metrics"
	"github.com/edumentor/edumentor/internal/orchestrator"
	"github.com/edumentor/edumentor/internal/profile"
	"github.com/edumentor/edumentor/internal/quiz"
	"github.com/edumentor/edumentor/internal/session"
	"github.com/edumentor/edumentor/internal/tutor"
)

// App is the assembled application. Fields are populated by Setup, or
// partially by SetupLite, and stay valid until Close.
type App struct {
	Config *config.Config

	// AI provider
	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	// Storage
	DB        *sql.DB
	Knowledge *knowledge.Store
	Sessions  *session.Store
	Profiles  *profile.Store
	History   *history.Store
	Results   *quiz.ResultStore

	// Services and agents
	Documents    *document.Service
	Tutor        *tutor.Agent
	Quiz         *quiz.Generator
	Orchestrator *orchestrator.Orchestrator
	Metrics      *metrics.Registry

	// Lifecycle management
	otelCleanup func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// Close gracefully shuts down all resources: background workers are
// canceled and drained, the database closes, then pending traces flush.
// Safe to call on a partially initialized App.
func (a *App) Close() error {
	slog.Info("shutting down application")

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	var errs []error
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		} else {
			slog.Info("database closed")
		}
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return errors.Join(errs...)
}
