package tutor

import (
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/edumentor/edumentor/internal/profile"
	"github.com/edumentor/edumentor/internal/session"
)

// basePersona is the tutor's standing instruction, before personalisation.
const basePersona = `You are EduMentor, a friendly, patient AI tutor
for middle and high school students. You explain step by step, check
understanding, and adapt difficulty.

Always:
- Use clear, simple language.
- Show intermediate steps for maths problems.
- Ask a brief follow-up question to confirm understanding.
`

// profileGuidance tells the model how to use the profile block.
const profileGuidance = "Adapt explanations using the profile: use simpler language and more " +
	"scaffolding for younger/beginner students; provide deeper examples for " +
	"advanced students. Focus your expertise on the student's selected subject. " +
	"Where helpful, address the student by name and refer to their grade or " +
	"age when giving examples."

// contextGuidance is appended when retrieved study material is present.
const contextGuidance = "IMPORTANT: Relevant content from uploaded study materials has been " +
	"provided below. Use this information to answer the student's question " +
	"accurately. If the uploaded content contains the answer, prioritize it " +
	"over general knowledge. If the materials do not cover the question, say " +
	"so. Always cite the source when using information from uploaded documents."

// mathGuidance is appended when the message looks like a calculation.
const mathGuidance = "The student's message contains a calculation. Work through it step by " +
	"step, showing every intermediate result, before stating the final answer."

// buildSystemPrompt assembles the system prompt from the persona, the
// student's profile, and the retrieved material. Missing pieces simply
// shorten the prompt.
func buildSystemPrompt(p *profile.Profile, subject, docContext string, mathMode bool) string {
	var b strings.Builder
	b.WriteString(basePersona)

	if parts := profileLines(p, subject); len(parts) > 0 {
		b.WriteString("\nStudent Profile (for personalization):\n- ")
		b.WriteString(strings.Join(parts, "\n- "))
		b.WriteString(".\n")
		b.WriteString(profileGuidance)
	}

	if docContext != "" {
		b.WriteString("\n\n")
		b.WriteString(contextGuidance)
		b.WriteString("\n\nRelevant content from uploaded documents:\n")
		b.WriteString(docContext)
	}

	if mathMode {
		b.WriteString("\n\n")
		b.WriteString(mathGuidance)
	}

	return b.String()
}

// profileLines renders the profile fields that are set, in a stable order.
func profileLines(p *profile.Profile, subject string) []string {
	var parts []string
	if p != nil {
		if p.Name != "" {
			parts = append(parts, "Name: "+p.Name)
		}
		if p.Age > 0 {
			parts = append(parts, fmt.Sprintf("Age: %d", p.Age))
		}
		if p.Grade != "" {
			parts = append(parts, "Grade: "+p.Grade)
		}
		if p.Syllabus != "" {
			parts = append(parts, "Syllabus: "+p.Syllabus)
		}
	}
	if subject != "" {
		parts = append(parts, "Subject: "+subject)
	}
	if p != nil {
		if p.Proficiency != "" {
			parts = append(parts, "Proficiency: "+p.Proficiency)
		}
		if p.Gender != "" {
			parts = append(parts, "Gender: "+p.Gender)
		}
		if len(p.WeakAreas) > 0 {
			parts = append(parts, "Weak areas: "+strings.Join(p.WeakAreas, ", "))
		}
	}
	return parts
}

// buildMessages maps the session window to model turns and appends the new
// student message as the final user turn.
func buildMessages(history []session.Message, userMessage string) []*ai.Message {
	messages := make([]*ai.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role == session.RoleUser {
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		} else {
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		}
	}
	return append(messages, ai.NewUserMessage(ai.NewTextPart(userMessage)))
}
