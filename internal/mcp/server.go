package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/edumentor/edumentor/internal/knowledge"
	"github.com/edumentor/edumentor/internal/quiz"
)

// serverName identifies this server to MCP clients.
const serverName = "edumentor"

// KnowledgeSearcher is the slice of the knowledge store the tools use.
// Satisfied by *knowledge.Store.
type KnowledgeSearcher interface {
	Search(ctx context.Context, subject, query string, opts ...knowledge.SearchOption) ([]knowledge.Match, error)
	Stats(ctx context.Context) ([]knowledge.SubjectStats, error)
	Subjects() []string
}

// QuizGenerator produces quizzes for the generate_quiz tool. Satisfied by
// *quiz.Generator.
type QuizGenerator interface {
	Generate(ctx context.Context, req quiz.GenerateRequest) (*quiz.Quiz, error)
}

// Config holds MCP server configuration.
type Config struct {
	Version   string
	Knowledge KnowledgeSearcher
	Quiz      QuizGenerator // Optional: nil disables generate_quiz
	Logger    *slog.Logger
}

// Server wraps the MCP SDK server around the tutoring backend's tools.
type Server struct {
	mcpServer *mcp.Server
	knowledge KnowledgeSearcher
	quiz      QuizGenerator
	logger    *slog.Logger
}

// NewServer creates an MCP server with all available tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if cfg.Knowledge == nil {
		return nil, errors.New("knowledge store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: cfg.Version,
		}, nil),
		knowledge: cfg.Knowledge,
		quiz:      cfg.Quiz,
		logger:    logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	return s, nil
}

// Run serves MCP requests on the transport until the context is cancelled
// or the client disconnects. This is a blocking call.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("mcp server running", "name", serverName)
	return s.mcpServer.Run(ctx, transport)
}
