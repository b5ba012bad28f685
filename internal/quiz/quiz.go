// Package quiz generates, grades, and stores multiple choice quizzes.
//
// Generation asks the model for a strict JSON array and validates every
// question; when the model fails or returns nothing usable, a built-in
// per-subject question bank keeps the feature working offline. Grading is
// pure, so it can be tested without a database, and attempts are persisted
// in SQLite alongside the chat history.
package quiz

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Difficulty levels accepted for generation. They mirror the proficiency
// levels students declare in their profile.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Question sources recorded on a generated quiz.
const (
	SourceModel    = "llm"
	SourceFallback = "fallback"
)

// passThreshold is the minimum score percentage counted as a pass.
const passThreshold = 60.0

var difficulties = []string{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// ValidDifficulty reports whether s names a known difficulty level. The
// empty string is valid and means the default.
func ValidDifficulty(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "" || slices.Contains(difficulties, s)
}

// Question is a single multiple choice question. The JSON tags match the
// format the model is asked to produce, so the same type parses model
// output and serialises stored questions.
type Question struct {
	Text         string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_answer"`
	Explanation  string   `json:"explanation"`
}

// PublicQuestion is a question with the answer withheld, safe to hand to
// the student before they submit.
type PublicQuestion struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// Public strips the correct answer and explanation.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{Text: q.Text, Options: q.Options}
}

// Quiz is a generated quiz before the student answers it.
type Quiz struct {
	ID         int64      `json:"result_id"`
	UserID     string     `json:"user_id"`
	Subject    string     `json:"subject"`
	Topic      string     `json:"topic"`
	Difficulty string     `json:"difficulty"`
	Source     string     `json:"source"`
	Questions  []Question `json:"questions"`
}

// Submission pairs the stored questions of an attempt with the answers the
// student handed in. Answers use -1 for questions left unanswered.
type Submission struct {
	QuizID     int64
	UserID     string
	Subject    string
	Topic      string
	Difficulty string
	Questions  []Question
	Answers    []int
	TimeTaken  int // seconds, 0 when not reported
}

// QuestionResult is the per-question breakdown of a graded attempt.
type QuestionResult struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	UserAnswer    int      `json:"user_answer"`
	CorrectAnswer int      `json:"correct_answer"`
	IsCorrect     bool     `json:"is_correct"`
	Explanation   string   `json:"explanation"`
}

// Result is a graded quiz attempt.
type Result struct {
	ID         int64            `json:"result_id"`
	UserID     string           `json:"user_id"`
	Subject    string           `json:"subject"`
	Topic      string           `json:"topic"`
	Difficulty string           `json:"difficulty"`
	Total      int              `json:"total_questions"`
	Correct    int              `json:"correct_answers"`
	Score      float64          `json:"score_percentage"`
	Passed     bool             `json:"passed"`
	Details    []QuestionResult `json:"detailed_results,omitempty"`
	TimeTaken  int              `json:"time_taken_seconds,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
