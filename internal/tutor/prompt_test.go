package tutor

import (
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/edumentor/edumentor/internal/profile"
	"github.com/edumentor/edumentor/internal/session"
)

func TestBuildSystemPromptBare(t *testing.T) {
	got := buildSystemPrompt(nil, "", "", false)
	if got != basePersona {
		t.Errorf("bare prompt = %q, want the persona alone", got)
	}
}

func TestBuildSystemPromptSubjectOnly(t *testing.T) {
	got := buildSystemPrompt(nil, "science", "", false)
	if !strings.Contains(got, "- Subject: science.") {
		t.Errorf("prompt missing subject line:\n%s", got)
	}
	if !strings.Contains(got, "Adapt explanations using the profile") {
		t.Error("prompt missing adaptation guidance")
	}
}

func TestBuildSystemPromptOrdering(t *testing.T) {
	p := &profile.Profile{UserID: "u1", Name: "Asha", Grade: "8"}
	got := buildSystemPrompt(p, "maths", "[1] From notes.pdf:\nSome text.", true)

	persona := strings.Index(got, "You are EduMentor")
	prof := strings.Index(got, "Student Profile (for personalization):")
	docs := strings.Index(got, "Relevant content from uploaded documents:")
	math := strings.Index(got, "Work through it step by step")

	if persona == -1 || prof == -1 || docs == -1 || math == -1 {
		t.Fatalf("prompt missing a section:\n%s", got)
	}
	if !(persona < prof && prof < docs && docs < math) {
		t.Errorf("sections out of order: persona=%d profile=%d docs=%d math=%d", persona, prof, docs, math)
	}
}

func TestProfileLines(t *testing.T) {
	p := &profile.Profile{
		UserID:      "u1",
		Name:        "Rahul",
		Age:         15,
		Grade:       "10",
		Syllabus:    "ICSE",
		Proficiency: profile.ProficiencyAdvanced,
		Gender:      "male",
		WeakAreas:   []string{"trigonometry", "optics"},
	}

	got := profileLines(p, "maths")
	want := []string{
		"Name: Rahul",
		"Age: 15",
		"Grade: 10",
		"Syllabus: ICSE",
		"Subject: maths",
		"Proficiency: advanced",
		"Gender: male",
		"Weak areas: trigonometry, optics",
	}
	if len(got) != len(want) {
		t.Fatalf("profileLines() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("profileLines()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestProfileLinesSkipsEmptyFields(t *testing.T) {
	got := profileLines(&profile.Profile{UserID: "u1", Name: "Asha"}, "")
	if len(got) != 1 || got[0] != "Name: Asha" {
		t.Errorf("profileLines() = %v, want just the name", got)
	}
}

func TestBuildMessages(t *testing.T) {
	history := []session.Message{
		{Role: session.RoleUser, Content: "What is 1/2 + 1/3?"},
		{Role: session.RoleAssistant, Content: "It is 5/6."},
	}

	msgs := buildMessages(history, "Why?")
	if len(msgs) != 3 {
		t.Fatalf("buildMessages() returned %d messages, want 3", len(msgs))
	}

	wantRoles := []ai.Role{ai.RoleUser, ai.RoleModel, ai.RoleUser}
	wantText := []string{"What is 1/2 + 1/3?", "It is 5/6.", "Why?"}
	for i, msg := range msgs {
		if msg.Role != wantRoles[i] {
			t.Errorf("message %d role = %q, want %q", i, msg.Role, wantRoles[i])
		}
		if got := msg.Text(); got != wantText[i] {
			t.Errorf("message %d text = %q, want %q", i, got, wantText[i])
		}
	}
}

func TestBuildMessagesNoHistory(t *testing.T) {
	msgs := buildMessages(nil, "Hello")
	if len(msgs) != 1 {
		t.Fatalf("buildMessages() returned %d messages, want 1", len(msgs))
	}
	if msgs[0].Role != ai.RoleUser || msgs[0].Text() != "Hello" {
		t.Errorf("message = %q/%q", msgs[0].Role, msgs[0].Text())
	}
}
