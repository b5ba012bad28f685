package tutor

import (
	"fmt"
	"strings"
)

// Tool labels reported in responses and counted by the metrics registry.
const (
	ToolQuizBank  = "quiz_bank"
	ToolMathSteps = "math_steps"
)

// practiceQuestion is one canned multiple-choice question.
type practiceQuestion struct {
	question string
	options  []string
}

// practiceBank holds the per-subject practice sets served without a model
// call when a student asks for a quiz.
var practiceBank = map[string][]practiceQuestion{
	"maths": {
		{
			question: "What is 1/2 + 1/3?",
			options:  []string{"2/5", "5/6", "1/6", "3/5"},
		},
		{
			question: "What is 3/4 - 1/8?",
			options:  []string{"1/8", "5/8", "3/8", "7/8"},
		},
	},
	"science": {
		{
			question: "Which gas do plants absorb during photosynthesis?",
			options:  []string{"Oxygen", "Carbon dioxide", "Nitrogen", "Hydrogen"},
		},
		{
			question: "What force pulls objects towards the Earth?",
			options:  []string{"Magnetism", "Friction", "Gravity", "Tension"},
		},
	},
	"evs": {
		{
			question: "Which of these is a renewable source of energy?",
			options:  []string{"Coal", "Petrol", "Solar power", "Natural gas"},
		},
		{
			question: "Which of these helps reduce waste at home?",
			options:  []string{"Burning plastic", "Recycling bottles", "Littering", "Using more paper"},
		},
	},
}

// wantsPractice reports whether the student is asking for practice questions.
func wantsPractice(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "quiz") || strings.Contains(lower, "practice")
}

// looksLikeMath reports whether the message contains a calculation. A bare
// hyphen only counts when digits are present, so hyphenated words do not
// trigger maths mode.
func looksLikeMath(message string) bool {
	if strings.ContainsAny(message, "+*/=^") {
		return true
	}
	return strings.Contains(message, "-") && strings.ContainsAny(message, "0123456789")
}

// practiceQuestions renders the canned set for a subject, or "" when the
// bank has nothing for it.
func practiceQuestions(subject string) string {
	bank := practiceBank[strings.ToLower(subject)]
	if len(bank) == 0 {
		return ""
	}

	lines := []string{"Here are some practice questions:", ""}
	for i, q := range bank {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, q.question))
		for _, opt := range q.options {
			lines = append(lines, "   - "+opt)
		}
		lines = append(lines, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
