package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/edumentor/edumentor/internal/profile"
)

const (
	defaultQuestionCount = 5
	maxQuestionCount     = 20

	// maxResponseBytes caps how much model output the parser accepts.
	maxResponseBytes = 10 << 10
)

// GeneratorConfig contains all required parameters for the quiz generator.
type GeneratorConfig struct {
	Genkit *genkit.Genkit
	Model  string // provider-qualified model name
	Logger *slog.Logger

	Temperature float32 // 0 = provider default
	MaxTokens   int     // 0 = provider default
}

// GenerateRequest describes the quiz a student asked for.
type GenerateRequest struct {
	UserID     string
	Subject    string
	Topic      string
	Difficulty string // defaults to beginner
	Count      int    // defaults to 5, capped at 20
	Profile    *profile.Profile
}

// Generator produces quizzes from the model. When the model is unreachable
// or returns nothing usable it serves the built-in question bank instead,
// so the quiz feature degrades rather than fails.
type Generator struct {
	g      *genkit.Genkit
	model  string
	logger *slog.Logger
	genCfg *ai.GenerationCommonConfig
}

// NewGenerator creates the quiz generator.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
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
	var genCfg *ai.GenerationCommonConfig
	if cfg.Temperature != 0 || cfg.MaxTokens != 0 {
		genCfg = &ai.GenerationCommonConfig{
			Temperature:     float64(cfg.Temperature),
			MaxOutputTokens: cfg.MaxTokens,
		}
	}
	return &Generator{g: cfg.Genkit, model: cfg.Model, logger: logger, genCfg: genCfg}, nil
}

// Generate builds a quiz for the request. The returned quiz has no ID; the
// caller persists it through the ResultStore.
func (gen *Generator) Generate(ctx context.Context, req GenerateRequest) (*Quiz, error) {
	subject := strings.TrimSpace(req.Subject)
	topic := strings.TrimSpace(req.Topic)
	if subject == "" {
		return nil, errors.New("subject is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	difficulty := strings.ToLower(strings.TrimSpace(req.Difficulty))
	if difficulty == "" {
		difficulty = DifficultyBeginner
	}
	if !slices.Contains(difficulties, difficulty) {
		return nil, fmt.Errorf("unknown difficulty %q", req.Difficulty)
	}

	count := req.Count
	switch {
	case count <= 0:
		count = defaultQuestionCount
	case count > maxQuestionCount:
		count = maxQuestionCount
	}

	quiz := &Quiz{
		UserID:     req.UserID,
		Subject:    subject,
		Topic:      topic,
		Difficulty: difficulty,
		Source:     SourceModel,
	}

	questions, err := gen.askModel(ctx, subject, topic, difficulty, count, req.Profile)
	if err != nil {
		questions = fallbackQuestions(subject, count)
		if len(questions) == 0 {
			return nil, fmt.Errorf("generate quiz for %s/%s: %w", subject, topic, err)
		}
		gen.logger.Warn("quiz generation failed, serving question bank",
			"subject", subject,
			"topic", topic,
			"error", err,
		)
		quiz.Source = SourceFallback
	}

	quiz.Questions = questions
	gen.logger.Info("generated quiz",
		"subject", subject,
		"topic", topic,
		"difficulty", difficulty,
		"questions", len(questions),
		"source", quiz.Source,
	)
	return quiz, nil
}

func (gen *Generator) askModel(ctx context.Context, subject, topic, difficulty string, count int, p *profile.Profile) ([]Question, error) {
	system, user := buildQuizPrompt(subject, topic, difficulty, count, p)

	opts := []ai.GenerateOption{
		ai.WithSystem(system),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(user))),
		ai.WithModelName(gen.model),
	}
	if gen.genCfg != nil {
		opts = append(opts, ai.WithConfig(gen.genCfg))
	}
	resp, err := genkit.Generate(ctx, gen.g, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	questions, err := parseQuestions(resp.Text())
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// buildQuizPrompt returns the system and user prompts. The system prompt
// demands a bare JSON array so parsing stays trivial; models still wrap it
// in code fences often enough that parseQuestions strips them.
func buildQuizPrompt(subject, topic, difficulty string, count int, p *profile.Profile) (system, user string) {
	var profileContext string
	if p != nil && (p.Grade != "" || p.Syllabus != "") {
		profileContext = fmt.Sprintf(" for a %s grade student following %s syllabus", p.Grade, p.Syllabus)
	}

	system = fmt.Sprintf(`You are an expert educator creating assessment questions%s.
Generate %d multiple choice questions about %s in %s.
Difficulty level: %s

IMPORTANT: Return ONLY a valid JSON array, no other text or markdown.

Each question must have:
- A clear question statement
- Exactly 4 options (A, B, C, D)
- The correct answer index (0-3)
- A brief explanation of why the answer is correct

Format as JSON array:
[
  {
    "question": "Question text here?",
    "options": ["Option A", "Option B", "Option C", "Option D"],
    "correct_answer": 0,
    "explanation": "Explanation of the correct answer"
  }
]`, profileContext, count, topic, subject, difficulty)

	user = fmt.Sprintf("Generate %d quiz questions about %s in %s at %s level.", count, topic, subject, difficulty)
	return system, user
}

// parseQuestions decodes the model response into validated questions.
// Invalid questions are dropped; an empty result is an error so the caller
// can fall back.
func parseQuestions(raw string) ([]Question, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, errors.New("empty model response")
	}
	if len(text) > maxResponseBytes {
		return nil, fmt.Errorf("model response too large (%d bytes)", len(text))
	}

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	var questions []Question
	if err := json.Unmarshal([]byte(text), &questions); err != nil {
		return nil, fmt.Errorf("parse quiz JSON: %w", err)
	}

	valid := questions[:0]
	for _, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		if len(q.Options) != 4 {
			continue
		}
		if q.CorrectIndex < 0 || q.CorrectIndex > 3 {
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return nil, errors.New("no valid questions in model response")
	}
	return valid, nil
}
