package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/edumentor/edumentor/internal/config"
	"github.com/edumentor/edumentor/internal/database"
	"github.com/edumentor/edumentor/internal/document"
	"github.com/edumentor/edumentor/internal/history"
	"github.com/edumentor/edumentor/internal/knowledge"
	"github.com/edumentor/edumentor/internal/metrics"
	"github.com/edumentor/edumentor/internal/observability"
	"github.com/edumentor/edumentor/internal/orchestrator"
	"github.com/edumentor/edumentor/internal/profile"
	"github.com/edumentor/edumentor/internal/quiz"
	"github.com/edumentor/edumentor/internal/security"
	"github.com/edumentor/edumentor/internal/session"
	"github.com/edumentor/edumentor/internal/tutor"
)

const (
	// sessionCleanupInterval is how often the in-memory session store
	// sweeps for idle conversations.
	sessionCleanupInterval = 5 * time.Minute

	// fetchTimeout bounds outbound article fetches during link ingestion.
	fetchTimeout = 30 * time.Second
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	a := &App{Config: cfg}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				slog.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg)

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	if err := provideStorage(a); err != nil {
		return nil, err
	}

	logger := slog.Default()

	kn, err := knowledge.NewStore(a.DB, embedder, cfg.Subjects, cfg.EmbeddingDims, logger)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}
	a.Knowledge = kn

	a.Documents = document.NewService(cfg.ChunkSize, cfg.ChunkOverlap,
		security.NewURL().SafeClient(fetchTimeout), logger)

	// The janitor holds the only reference to cancel besides Close, so
	// Close's wg.Wait() returns once the sweep loop has observed it.
	cleanupCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		maxIdle := time.Duration(cfg.SessionMaxIdleMinutes) * time.Minute
		a.Sessions.RunCleanup(cleanupCtx, sessionCleanupInterval, maxIdle)
	}()

	tut, err := tutor.New(tutor.Config{
		Genkit:      g,
		Model:       cfg.FullModelName(),
		Logger:      logger,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("creating tutor agent: %w", err)
	}
	a.Tutor = tut

	gen, err := quiz.NewGenerator(quiz.GeneratorConfig{
		Genkit:      g,
		Model:       cfg.FullModelName(),
		Logger:      logger,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("creating quiz generator: %w", err)
	}
	a.Quiz = gen

	orch, err := orchestrator.New(orchestrator.Config{
		Tutor:     tut,
		Sessions:  a.Sessions,
		Profiles:  a.Profiles,
		Knowledge: kn,
		History:   a.History,
		Metrics:   a.Metrics,
		Logger:    logger,
		TopK:      cfg.SearchTopK,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	a.Orchestrator = orch

	return a, nil
}

// SetupLite builds the storage layer only: no AI provider, no knowledge
// index, no agents. Maintenance tooling and tests that touch profiles,
// history, or quiz results use it to avoid needing provider credentials.
// Close works the same as for a full App.
func SetupLite(cfg *config.Config) (_ *App, retErr error) {
	a := &App{Config: cfg}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				slog.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if err := provideStorage(a); err != nil {
		return nil, err
	}

	return a, nil
}

// provideOtelShutdown attaches the OTLP trace exporter before Genkit
// initialization so the TracerProvider is ready when spans start.
func provideOtelShutdown(ctx context.Context, cfg *config.Config) func() {
	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	if err != nil {
		slog.Warn("setting up trace export, tracing disabled", "error", err)
		return func() {}
	}

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports googleai (default), ollama, and openai providers. Prompts
// are inline in the agent packages, so no prompt directory is set.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		// Register embedder for document indexing
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		slog.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		// The plugin reads OPENAI_API_KEY from the environment.
		// SAFETY: os.Setenv is not concurrent-safe, but Setup runs exactly
		// once during startup, before goroutines are spawned.
		if cfg.OpenAIAPIKey != "" {
			_ = os.Setenv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
		}
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		slog.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // "googleai" and the legacy "gemini" alias
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		slog.Info("initialized Genkit with googleai provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the AI provider
// plugin. Each provider registers embedders differently:
//   - googleai: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideStorage opens the database, runs migrations, and builds every
// store that works without the AI provider. The knowledge store is not
// built here: its embedder comes from the provider.
func provideStorage(a *App) error {
	cfg := a.Config
	logger := slog.Default()

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	db, err := database.Open(dbPath)
	if err != nil {
		return err
	}
	a.DB = db

	if err := database.Migrate(db, logger); err != nil {
		return err
	}

	profilesPath, err := cfg.ProfilesPath()
	if err != nil {
		return err
	}
	profiles, err := profile.NewStore(profilesPath, logger)
	if err != nil {
		return fmt.Errorf("creating profile store: %w", err)
	}
	a.Profiles = profiles

	hist, err := history.NewStore(db, logger)
	if err != nil {
		return fmt.Errorf("creating history store: %w", err)
	}
	a.History = hist

	results, err := quiz.NewResultStore(db, logger)
	if err != nil {
		return fmt.Errorf("creating result store: %w", err)
	}
	a.Results = results

	a.Sessions = session.NewStore(logger)
	a.Metrics = metrics.NewRegistry()

	return nil
}
