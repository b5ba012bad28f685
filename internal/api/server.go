package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/edumentor/edumentor/internal/document"
	"github.com/edumentor/edumentor/internal/history"
	"github.com/edumentor/edumentor/internal/knowledge"
	"github.com/edumentor/edumentor/internal/metrics"
	"github.com/edumentor/edumentor/internal/orchestrator"
	"github.com/edumentor/edumentor/internal/profile"
	"github.com/edumentor/edumentor/internal/quiz"
)

// Orchestrator routes a chat message to an agent and produces the reply.
// Satisfied by *orchestrator.Orchestrator.
type Orchestrator interface {
	Handle(ctx context.Context, req orchestrator.ChatRequest) (*orchestrator.ChatResponse, error)
	HandleStream(ctx context.Context, req orchestrator.ChatRequest, cb func(chunk string) error) (*orchestrator.ChatResponse, error)
}

// ProfileStore reads and writes student profiles. Satisfied by
// *profile.Store.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
	Put(ctx context.Context, p *profile.Profile) error
}

// HistoryStore serves the recorded exchange log. Satisfied by
// *history.Store.
type HistoryStore interface {
	List(ctx context.Context, userID string, limit int, subject string) ([]history.Exchange, error)
	RecentSessions(ctx context.Context, userID string, limit int) ([]history.SessionSummary, error)
	Search(ctx context.Context, userID, query string) ([]history.Exchange, error)
	Stats(ctx context.Context, userID string) (*history.Stats, error)
	DeleteUser(ctx context.Context, userID string) (int64, error)
}

// KnowledgeStore indexes and searches study material. Satisfied by
// *knowledge.Store.
type KnowledgeStore interface {
	Search(ctx context.Context, subject, query string, opts ...knowledge.SearchOption) ([]knowledge.Match, error)
	Add(ctx context.Context, doc *document.Document) (int, error)
	Stats(ctx context.Context) ([]knowledge.SubjectStats, error)
	DeleteDocument(ctx context.Context, subject, docID string) error
	DeleteSubject(ctx context.Context, subject string) error
	Subjects() []string
}

// DocumentIngestor turns uploads and links into chunked documents.
// Satisfied by *document.Service.
type DocumentIngestor interface {
	FromPDF(subject, filename string, data []byte) (*document.Document, error)
	FromURL(ctx context.Context, rawURL, subject string) (*document.Document, error)
}

// QuizGenerator produces quizzes. Satisfied by *quiz.Generator.
type QuizGenerator interface {
	Generate(ctx context.Context, req quiz.GenerateRequest) (*quiz.Quiz, error)
}

// ResultStore persists quiz attempts. Satisfied by *quiz.ResultStore.
type ResultStore interface {
	Save(ctx context.Context, q *quiz.Quiz) error
	Get(ctx context.Context, id int64) (*quiz.Record, error)
	RecordSubmission(ctx context.Context, res *quiz.Result, answers []int) error
	List(ctx context.Context, userID string, limit int) ([]quiz.Attempt, error)
	Statistics(ctx context.Context, userID string) (*quiz.Statistics, error)
	Delete(ctx context.Context, userID string) (int64, error)
}

// MetricsSource exposes the request counters. Satisfied by
// *metrics.Registry.
type MetricsSource interface {
	Snapshot() metrics.Snapshot
}

// RateLimit configures the per-IP token bucket.
type RateLimit struct {
	RPS   float64 // tokens refilled per second (0 = default 10)
	Burst int     // bucket size and initial allowance (0 = default 30)
}

const defaultMaxUploadBytes = 16 << 20

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	Orchestrator Orchestrator     // Required
	Profiles     ProfileStore     // Optional: nil disables profile endpoints
	History      HistoryStore     // Optional: nil disables history endpoints
	Knowledge    KnowledgeStore   // Optional: nil disables subject endpoints
	Documents    DocumentIngestor // Optional: nil disables uploads and link ingestion
	Quiz         QuizGenerator    // Optional: nil disables quiz generation
	Results      ResultStore      // Optional: nil disables quiz result endpoints
	Metrics      MetricsSource    // Optional: nil disables /metrics
	DB           *sql.DB          // Optional: nil skips the DB ping in /ready

	CORSOrigins    []string
	RateLimit      RateLimit
	TrustProxy     bool  // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	MaxUploadBytes int64 // 0 = default 16 MiB
	IsDev          bool  // Disables HSTS
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	mux := http.NewServeMux()

	ch := &chatHandler{orch: cfg.Orchestrator, logger: logger}
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/chat/stream", ch.stream)

	if cfg.Profiles != nil {
		ph := &profileHandler{store: cfg.Profiles, logger: logger}
		mux.HandleFunc("GET /api/v1/profiles/{userID}", ph.get)
		mux.HandleFunc("PUT /api/v1/profiles/{userID}", ph.put)
	}

	if cfg.Knowledge != nil {
		sh := &subjectHandler{
			knowledge: cfg.Knowledge,
			docs:      cfg.Documents,
			maxUpload: maxUpload,
			logger:    logger,
		}
		mux.HandleFunc("GET /api/v1/subjects/stats", sh.stats)
		mux.HandleFunc("GET /api/v1/subjects/{subject}/search", sh.search)
		mux.HandleFunc("DELETE /api/v1/subjects/{subject}/documents/{docID}", sh.deleteDocument)
		mux.HandleFunc("DELETE /api/v1/subjects/{subject}", sh.deleteSubject)
		if cfg.Documents != nil {
			mux.HandleFunc("POST /api/v1/subjects/{subject}/documents", sh.upload)
			mux.HandleFunc("POST /api/v1/subjects/{subject}/links", sh.link)
		}
	}

	if cfg.History != nil {
		hh := &historyHandler{store: cfg.History, logger: logger}
		mux.HandleFunc("GET /api/v1/history/{userID}", hh.list)
		mux.HandleFunc("GET /api/v1/history/{userID}/sessions", hh.sessions)
		mux.HandleFunc("GET /api/v1/history/{userID}/stats", hh.stats)
		mux.HandleFunc("GET /api/v1/history/{userID}/search", hh.search)
		mux.HandleFunc("DELETE /api/v1/history/{userID}", hh.purge)
	}

	if cfg.Results != nil {
		qh := &quizHandler{
			gen:      cfg.Quiz,
			results:  cfg.Results,
			profiles: cfg.Profiles,
			logger:   logger,
		}
		if cfg.Quiz != nil {
			mux.HandleFunc("POST /api/v1/quiz/generate", qh.generate)
		}
		mux.HandleFunc("POST /api/v1/quiz/submit", qh.submit)
		mux.HandleFunc("GET /api/v1/quiz/results/{userID}", qh.list)
		mux.HandleFunc("GET /api/v1/quiz/result/{resultID}", qh.get)
		mux.HandleFunc("GET /api/v1/quiz/statistics/{userID}", qh.statistics)
		mux.HandleFunc("DELETE /api/v1/quiz/results/{userID}", qh.purge)
		mux.HandleFunc("GET /api/v1/quiz/report/{resultID}", qh.report)
	}

	if cfg.Metrics != nil {
		m := cfg.Metrics
		mux.HandleFunc("GET /api/v1/metrics", func(w http.ResponseWriter, _ *http.Request) {
			WriteJSON(w, http.StatusOK, m.Snapshot())
		})
	}

	rps := cfg.RateLimit.RPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 30
	}
	rl := newRateLimiter(rps, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Use a top-level mux to separate health probes from the middleware
	// stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.DB))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
