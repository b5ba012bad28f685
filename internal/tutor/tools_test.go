package tutor

import "testing"

func TestWantsPractice(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"Can I have a QUIZ?", true},
		{"give me practice problems", true},
		{"What is a fraction?", false},
		{"explain photosynthesis", false},
	}
	for _, tt := range tests {
		if got := wantsPractice(tt.message); got != tt.want {
			t.Errorf("wantsPractice(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestLooksLikeMath(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"addition", "What is 2+3?", true},
		{"multiplication", "what is 7 * 6", true},
		{"equation", "solve x = 5", true},
		{"power", "what is 2^10", true},
		{"subtraction with digits", "What is 10 - 4?", true},
		{"hyphenated words only", "give me step-by-step help", false},
		{"plain question", "why is the sky blue", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeMath(tt.message); got != tt.want {
				t.Errorf("looksLikeMath(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestPracticeQuestionsFormat(t *testing.T) {
	want := "Here are some practice questions:\n" +
		"\n" +
		"1. What is 1/2 + 1/3?\n" +
		"   - 2/5\n" +
		"   - 5/6\n" +
		"   - 1/6\n" +
		"   - 3/5\n" +
		"\n" +
		"2. What is 3/4 - 1/8?\n" +
		"   - 1/8\n" +
		"   - 5/8\n" +
		"   - 3/8\n" +
		"   - 7/8"

	if got := practiceQuestions("maths"); got != want {
		t.Errorf("practiceQuestions(maths) =\n%q\nwant\n%q", got, want)
	}
}

func TestPracticeQuestionsSubjects(t *testing.T) {
	if got := practiceQuestions("history"); got != "" {
		t.Errorf("practiceQuestions(history) = %q, want empty", got)
	}
	if got := practiceQuestions("SCIENCE"); got == "" {
		t.Error("practiceQuestions(SCIENCE) empty, want case-insensitive lookup")
	}
	if got := practiceQuestions("evs"); got == "" {
		t.Error("practiceQuestions(evs) empty, want the evs bank")
	}
}
