// Package tutor implements the teaching agent. It assembles the system
// prompt from the student's profile and retrieved study material, maps the
// conversation window to model turns, and calls the model with retry and
// rate limiting. Practice requests are served from a canned bank without a
// model call.
package tutor

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/edumentor/edumentor/internal/profile"
	"github.com/edumentor/edumentor/internal/session"
)

// ErrEmptyMessage is returned when the student message is blank.
var ErrEmptyMessage = errors.New("message is empty")

// Config contains all required parameters for the tutor agent.
type Config struct {
	Genkit *genkit.Genkit
	Model  string // provider-qualified model name, e.g. "googleai/gemini-2.5-flash"
	Logger *slog.Logger

	Temperature float32 // 0 = provider default
	MaxTokens   int     // 0 = provider default

	Retry       RetryConfig   // zero value uses defaults
	RateLimiter *rate.Limiter // nil = default limiter
}

// Request carries everything the agent needs for one answer. Profile,
// Context, and History are all optional; their absence shortens the prompt
// but never fails the call.
type Request struct {
	UserID  string
	Subject string
	Message string
	Profile *profile.Profile
	Context string // formatted retrieval block from the knowledge store
	History []session.Message
}

// Response is the agent's answer. ToolUsed is empty when the model answered
// without a shortcut.
type Response struct {
	Answer   string `json:"answer"`
	ToolUsed string `json:"tool_used,omitempty"`
}

// Agent answers student questions. Stateless; safe for concurrent use.
type Agent struct {
	g       *genkit.Genkit
	model   string
	logger  *slog.Logger
	genCfg  *ai.GenerationCommonConfig
	retry   RetryConfig
	limiter *rate.Limiter
}

// New creates the tutor agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model name is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Agent{
		g:       cfg.Genkit,
		model:   cfg.Model,
		logger:  logger,
		genCfg:  generationConfig(cfg.Temperature, cfg.MaxTokens),
		retry:   retry,
		limiter: limiter,
	}, nil
}

// generationConfig builds the model tuning block, or nil when both
// knobs are left at the provider default.
func generationConfig(temperature float32, maxTokens int) *ai.GenerationCommonConfig {
	if temperature == 0 && maxTokens == 0 {
		return nil
	}
	return &ai.GenerationCommonConfig{
		Temperature:     float64(temperature),
		MaxOutputTokens: maxTokens,
	}
}

// Answer produces a complete response for one student message.
func (a *Agent) Answer(ctx context.Context, req Request) (*Response, error) {
	return a.respond(ctx, req, nil)
}

// AnswerStream is Answer with incremental output. cb receives each text
// chunk as the model produces it; canned practice sets arrive as a single
// chunk. The full response is returned after generation completes.
func (a *Agent) AnswerStream(ctx context.Context, req Request, cb func(chunk string) error) (*Response, error) {
	return a.respond(ctx, req, cb)
}

func (a *Agent) respond(ctx context.Context, req Request, cb func(string) error) (*Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	if wantsPractice(message) {
		if set := practiceQuestions(req.Subject); set != "" {
			a.logger.Info("serving canned practice set",
				"subject", req.Subject,
				"user_id", req.UserID,
			)
			if cb != nil {
				if err := cb(set); err != nil {
					return nil, err
				}
			}
			return &Response{Answer: set, ToolUsed: ToolQuizBank}, nil
		}
	}

	var toolUsed string
	mathMode := looksLikeMath(message)
	if mathMode {
		toolUsed = ToolMathSteps
	}

	system := buildSystemPrompt(req.Profile, req.Subject, req.Context, mathMode)
	messages := buildMessages(req.History, message)

	a.logger.Debug("asking tutor model",
		"user_id", req.UserID,
		"subject", req.Subject,
		"history_turns", len(req.History),
		"has_profile", req.Profile != nil,
		"has_context", req.Context != "",
		"math_mode", mathMode,
	)

	opts := []ai.GenerateOption{
		ai.WithSystem(system),
		ai.WithMessages(messages...),
		ai.WithModelName(a.model),
	}
	if a.genCfg != nil {
		opts = append(opts, ai.WithConfig(a.genCfg))
	}
	if cb != nil {
		opts = append(opts, ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			return cb(chunk.Text())
		}))
	}

	resp, err := a.generateWithRetry(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &Response{
		Answer:   strings.TrimSpace(resp.Text()),
		ToolUsed: toolUsed,
	}, nil
}
