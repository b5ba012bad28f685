// Package orchestrator routes student messages to the right agent and
// assembles the per-request context around the call: conversation window,
// stored profile, and retrieved study material. Profile, retrieval, and
// history writes are all best-effort; a broken side service degrades the
// answer instead of failing the chat.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/edumentor/edumentor/internal/history"
	"github.com/edumentor/edumentor/internal/knowledge"
	"github.com/edumentor/edumentor/internal/metrics"
	"github.com/edumentor/edumentor/internal/planner"
	"github.com/edumentor/edumentor/internal/profile"
	"github.com/edumentor/edumentor/internal/session"
	"github.com/edumentor/edumentor/internal/tutor"
)

// Validation errors. Handlers map these to bad-request responses.
var (
	ErrNoUser    = errors.New("user ID is required")
	ErrNoMessage = errors.New("message is required")
)

// ReplyInternalError is the reply handlers send when orchestration itself
// fails. It goes out with a 200 so the chat UI shows a message instead of
// an error screen.
const ReplyInternalError = "Sorry — the orchestration service encountered an internal error."

// Replies substituted when the agent cannot produce an answer.
const (
	replyTutorError = "Sorry — the tutor service encountered an internal error."
	replyEmpty      = "Sorry — failed to produce a response."
)

// Tutor answers student questions. Satisfied by *tutor.Agent.
type Tutor interface {
	Answer(ctx context.Context, req tutor.Request) (*tutor.Response, error)
	AnswerStream(ctx context.Context, req tutor.Request, cb func(chunk string) error) (*tutor.Response, error)
}

// PlanFunc builds a study plan. The default is planner.BuildPlan.
type PlanFunc func(req planner.PlanRequest) *planner.Plan

// SessionStore keeps short-lived conversation state. Satisfied by
// *session.Store.
type SessionStore interface {
	GetOrCreate(userID, sessionID, subject string) *session.Session
	Append(sessionID string, msg session.Message) error
}

// ProfileStore loads student profiles. Satisfied by *profile.Store.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
}

// KnowledgeSearcher retrieves study material. Satisfied by
// *knowledge.Store.
type KnowledgeSearcher interface {
	Search(ctx context.Context, subject, query string, opts ...knowledge.SearchOption) ([]knowledge.Match, error)
}

// HistoryStore persists finished exchanges. Satisfied by *history.Store.
type HistoryStore interface {
	SaveExchange(ctx context.Context, ex *history.Exchange) (int64, error)
}

// Recorder counts requests, routes, errors, latencies, and tool usage.
// Satisfied by *metrics.Registry.
type Recorder interface {
	RecordRequest()
	RecordRoute(agent string)
	RecordError()
	RecordTool(tool string)
	Timer(agent string) func()
}

// Config wires the orchestrator's dependencies. Tutor and Sessions are
// required; Profiles, Knowledge, and History are optional and their absence
// switches the matching enrichment off.
type Config struct {
	Tutor     Tutor
	Planner   PlanFunc // nil uses planner.BuildPlan
	Sessions  SessionStore
	Profiles  ProfileStore
	Knowledge KnowledgeSearcher
	History   HistoryStore
	Metrics   Recorder // nil gets a private registry
	Logger    *slog.Logger
	TopK      int // chunks fetched per retrieval; 0 uses the store default
}

// ChatRequest is one student message.
type ChatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the orchestrated answer. Agent names which agent
// produced it and ContextUsed counts the retrieved chunks that informed
// the prompt.
type ChatResponse struct {
	SessionID   string `json:"session_id"`
	Agent       string `json:"agent"`
	Answer      string `json:"reply"`
	ToolUsed    string `json:"tool_used,omitempty"`
	ContextUsed int    `json:"context_used,omitempty"`
}

// Orchestrator routes messages and runs the surrounding bookkeeping.
// Safe for concurrent use.
type Orchestrator struct {
	tutor     Tutor
	plan      PlanFunc
	sessions  SessionStore
	profiles  ProfileStore
	knowledge KnowledgeSearcher
	history   HistoryStore
	metrics   Recorder
	logger    *slog.Logger
	topK      int
}

// New creates the orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Tutor == nil {
		return nil, errors.New("tutor agent is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}

	plan := cfg.Planner
	if plan == nil {
		plan = planner.BuildPlan
	}
	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.NewRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		tutor:     cfg.Tutor,
		plan:      plan,
		sessions:  cfg.Sessions,
		profiles:  cfg.Profiles,
		knowledge: cfg.Knowledge,
		history:   cfg.History,
		metrics:   rec,
		logger:    logger,
		topK:      cfg.TopK,
	}, nil
}

// Route decides which agent handles a message. Messages that mention a
// plan for studying or a test go to the planner; everything else is a
// tutoring question.
func Route(message string) string {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "plan") && (strings.Contains(lower, "study") || strings.Contains(lower, "test")) {
		return metrics.AgentPlanner
	}
	return metrics.AgentTutor
}

// Handle answers one student message. Agent failures are absorbed into a
// fallback reply; the returned error is reserved for invalid requests.
func (o *Orchestrator) Handle(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return o.handle(ctx, req, nil)
}

// HandleStream is Handle with incremental output. The tutor streams chunk
// by chunk; plans render instantly and arrive as a single chunk. A callback
// error aborts the request, since it means the client stopped listening.
func (o *Orchestrator) HandleStream(ctx context.Context, req ChatRequest, cb func(chunk string) error) (*ChatResponse, error) {
	if cb == nil {
		return nil, errors.New("stream callback is required")
	}
	return o.handle(ctx, req, cb)
}

func (o *Orchestrator) handle(ctx context.Context, req ChatRequest, cb func(string) error) (*ChatResponse, error) {
	o.metrics.RecordRequest()

	userID := strings.TrimSpace(req.UserID)
	message := strings.TrimSpace(req.Message)
	if userID == "" {
		return nil, ErrNoUser
	}
	if message == "" {
		return nil, ErrNoMessage
	}

	sess := o.sessions.GetOrCreate(userID, req.SessionID, req.Subject)
	window := sess.Messages // the turns before this message

	if err := o.sessions.Append(sess.ID, session.Message{Role: session.RoleUser, Content: message}); err != nil {
		o.logger.Warn("append user turn", "session_id", sess.ID, "error", err)
	}

	prof := o.loadProfile(ctx, userID)
	docContext, matches := o.searchKnowledge(ctx, req.Subject, message)

	agent := Route(message)
	o.metrics.RecordRoute(agent)
	o.logger.Info("routing message",
		"user_id", userID,
		"session_id", sess.ID,
		"agent", agent,
		"subject", req.Subject,
		"context_chunks", matches,
	)

	stop := o.metrics.Timer(agent)
	answer, toolUsed, err := o.runAgent(ctx, agent, tutor.Request{
		UserID:  userID,
		Subject: req.Subject,
		Message: message,
		Profile: prof,
		Context: docContext,
		History: window,
	}, cb)
	stop()
	if err != nil {
		// The client went away mid-stream; nothing left to answer.
		return nil, err
	}

	if err := o.sessions.Append(sess.ID, session.Message{Role: session.RoleAssistant, Content: answer}); err != nil {
		o.logger.Warn("append assistant turn", "session_id", sess.ID, "error", err)
	}
	o.saveExchange(ctx, userID, sess.ID, req.Subject, message, answer, agent, toolUsed, matches)

	if toolUsed != "" {
		o.metrics.RecordTool(toolUsed)
	}

	return &ChatResponse{
		SessionID:   sess.ID,
		Agent:       agent,
		Answer:      answer,
		ToolUsed:    toolUsed,
		ContextUsed: matches,
	}, nil
}

// runAgent calls the routed agent and absorbs its failures into fallback
// replies. The error return is reserved for callback failures.
func (o *Orchestrator) runAgent(ctx context.Context, agent string, req tutor.Request, cb func(string) error) (answer, toolUsed string, err error) {
	if agent == metrics.AgentPlanner {
		plan := o.plan(planner.PlanRequest{
			Goal:    req.Message,
			Subject: req.Subject,
			Profile: req.Profile,
		})
		answer = plan.Render()
		if cb != nil {
			if err := cb(answer); err != nil {
				return "", "", err
			}
		}
		return answer, "", nil
	}

	var resp *tutor.Response
	if cb != nil {
		// Track whether a failure started in the client callback, so a
		// dead client is not mistaken for a broken model.
		var cbErr error
		resp, err = o.tutor.AnswerStream(ctx, req, func(chunk string) error {
			if err := cb(chunk); err != nil {
				cbErr = err
				return err
			}
			return nil
		})
		if cbErr != nil {
			return "", "", cbErr
		}
	} else {
		resp, err = o.tutor.Answer(ctx, req)
	}
	if err != nil {
		o.metrics.RecordError()
		o.logger.Error("tutor agent failed", "user_id", req.UserID, "error", err)
		return replyTutorError, "", nil
	}
	if resp.Answer == "" {
		o.logger.Warn("tutor returned an empty answer", "user_id", req.UserID)
		return replyEmpty, resp.ToolUsed, nil
	}
	return resp.Answer, resp.ToolUsed, nil
}

func (o *Orchestrator) loadProfile(ctx context.Context, userID string) *profile.Profile {
	if o.profiles == nil {
		return nil
	}
	prof, err := o.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			o.logger.Warn("load profile", "user_id", userID, "error", err)
		}
		return nil
	}
	return prof
}

// searchKnowledge retrieves study material for the message. Returns the
// formatted context block and how many chunks it contains.
func (o *Orchestrator) searchKnowledge(ctx context.Context, subject, message string) (string, int) {
	if o.knowledge == nil || subject == "" {
		return "", 0
	}
	var opts []knowledge.SearchOption
	if o.topK > 0 {
		opts = append(opts, knowledge.WithTopK(o.topK))
	}
	found, err := o.knowledge.Search(ctx, subject, message, opts...)
	if err != nil {
		if !errors.Is(err, knowledge.ErrUnknownSubject) {
			o.logger.Warn("knowledge search", "subject", subject, "error", err)
		}
		return "", 0
	}
	if len(found) == 0 {
		return "", 0
	}
	return knowledge.FormatContext(found), len(found)
}

func (o *Orchestrator) saveExchange(ctx context.Context, userID, sessionID, subject, question, answer, agent, tool string, contextChunks int) {
	if o.history == nil {
		return
	}
	meta := map[string]any{"agent": agent}
	if tool != "" {
		meta["tool"] = tool
	}
	if contextChunks > 0 {
		meta["context_chunks"] = contextChunks
	}
	_, err := o.history.SaveExchange(ctx, &history.Exchange{
		UserID:    userID,
		SessionID: sessionID,
		Subject:   subject,
		Question:  question,
		Answer:    answer,
		Metadata:  meta,
	})
	if err != nil {
		o.logger.Warn("save chat history", "session_id", sessionID, "error", err)
	}
}
