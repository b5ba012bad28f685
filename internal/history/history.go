// Package history keeps the durable question/answer log in SQLite. Every
// tutoring exchange is recorded here after the response is produced, which
// powers the dashboard views (recent sessions, search, per-subject stats)
// without touching the short-lived session window.
package history

import "time"

// Exchange is one question/answer pair as stored in chat_history.
type Exchange struct {
	ID        int64          `json:"id"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Subject   string         `json:"subject,omitempty"`
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SessionSummary is a condensed view of one conversation, grouped from the
// exchange log rather than the live session store.
type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	FirstQuestion string    `json:"first_question"`
	MessageCount  int       `json:"message_count"`
	StartedAt     time.Time `json:"started_at"`
}

// SubjectCount is the number of exchanges recorded for one subject.
type SubjectCount struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// Stats summarises a user's recorded activity.
type Stats struct {
	TotalQuestions int            `json:"total_questions"`
	TotalSessions  int            `json:"total_sessions"`
	BySubject      []SubjectCount `json:"by_subject"`
}
