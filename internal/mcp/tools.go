package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/edumentor/edumentor/internal/knowledge"
	"github.com/edumentor/edumentor/internal/quiz"
)

// Tool names exposed to MCP clients.
const (
	ToolSearchMaterials = "search_materials"
	ToolSubjectStats    = "subject_stats"
	ToolGenerateQuiz    = "generate_quiz"
)

// SearchMaterialsInput is the input schema for search_materials.
type SearchMaterialsInput struct {
	Subject string `json:"subject" jsonschema:"Subject whose index to search"`
	Query   string `json:"query" jsonschema:"What to look for in the study material"`
	TopK    int    `json:"top_k,omitempty" jsonschema:"How many matches to return (1-10, default 3)"`
}

// SubjectStatsInput is the empty input schema for subject_stats.
type SubjectStatsInput struct{}

// GenerateQuizInput is the input schema for generate_quiz.
type GenerateQuizInput struct {
	Subject      string `json:"subject" jsonschema:"Subject the quiz covers"`
	Topic        string `json:"topic" jsonschema:"Topic within the subject"`
	Difficulty   string `json:"difficulty,omitempty" jsonschema:"beginner, intermediate, or advanced (default beginner)"`
	NumQuestions int    `json:"num_questions,omitempty" jsonschema:"How many questions to generate (1-20, default 5)"`
}

func (s *Server) registerTools() error {
	subjects := strings.Join(s.knowledge.Subjects(), ", ")

	searchSchema, err := jsonschema.For[SearchMaterialsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", ToolSearchMaterials, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolSearchMaterials,
		Description: "Search indexed study material for a subject using semantic similarity. " +
			"Available subjects: " + subjects + ".",
		InputSchema: searchSchema,
	}, s.SearchMaterials)

	statsSchema, err := jsonschema.For[SubjectStatsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", ToolSubjectStats, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolSubjectStats,
		Description: "Report how many documents and text chunks are indexed per subject, with their sources.",
		InputSchema: statsSchema,
	}, s.SubjectStats)

	if s.quiz != nil {
		quizSchema, err := jsonschema.For[GenerateQuizInput](nil)
		if err != nil {
			return fmt.Errorf("schema for %s: %w", ToolGenerateQuiz, err)
		}
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name: ToolGenerateQuiz,
			Description: "Generate a multiple choice quiz on a topic. Returns the full question set " +
				"including correct answer indexes and explanations.",
			InputSchema: quizSchema,
		}, s.GenerateQuiz)
	}

	return nil
}

// SearchMaterials handles the search_materials tool call.
func (s *Server) SearchMaterials(ctx context.Context, _ *mcp.CallToolRequest, in SearchMaterialsInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Query) == "" {
		return errorResult("query is required"), nil, nil
	}

	var opts []knowledge.SearchOption
	if in.TopK > 0 {
		opts = append(opts, knowledge.WithTopK(in.TopK))
	}

	matches, err := s.knowledge.Search(ctx, in.Subject, in.Query, opts...)
	if err != nil {
		if errors.Is(err, knowledge.ErrUnknownSubject) {
			return errorResult(fmt.Sprintf("unknown subject %q; available: %s",
				in.Subject, strings.Join(s.knowledge.Subjects(), ", "))), nil, nil
		}
		return nil, nil, fmt.Errorf("search materials: %w", err)
	}

	return jsonResult(map[string]any{
		"subject": in.Subject,
		"query":   in.Query,
		"matches": matches,
		"count":   len(matches),
	})
}

// SubjectStats handles the subject_stats tool call.
func (s *Server) SubjectStats(ctx context.Context, _ *mcp.CallToolRequest, _ SubjectStatsInput) (*mcp.CallToolResult, any, error) {
	stats, err := s.knowledge.Stats(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("subject stats: %w", err)
	}
	return jsonResult(map[string]any{"subjects": stats})
}

// GenerateQuiz handles the generate_quiz tool call. Generation failures
// are reported in-band: they are either input mistakes the model can fix
// (bad difficulty, missing topic) or a topic the question bank cannot
// cover, and the model should pick differently rather than see the whole
// call fail.
func (s *Server) GenerateQuiz(ctx context.Context, _ *mcp.CallToolRequest, in GenerateQuizInput) (*mcp.CallToolResult, any, error) {
	q, err := s.quiz.Generate(ctx, quiz.GenerateRequest{
		Subject:    in.Subject,
		Topic:      in.Topic,
		Difficulty: in.Difficulty,
		Count:      in.NumQuestions,
	})
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	s.logger.Debug("mcp quiz generated",
		"subject", q.Subject,
		"topic", q.Topic,
		"questions", len(q.Questions),
		"source", q.Source,
	)
	return jsonResult(map[string]any{
		"subject":    q.Subject,
		"topic":      q.Topic,
		"difficulty": q.Difficulty,
		"source":     q.Source,
		"questions":  q.Questions,
	})
}

// jsonResult marshals data into a single text content block. All tool
// output is JSON; clients parse it.
func jsonResult(data any) (*mcp.CallToolResult, any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}, nil, nil
}

// errorResult reports a caller mistake in-band so the calling model can
// read the message and retry.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
