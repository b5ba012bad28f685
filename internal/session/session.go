// Package session keeps short-lived conversation state in memory. Each
// session window holds the last few exchanges that the tutor receives as
// conversational context; durable history lives in the history package.
package session

import (
	"errors"
	"time"
)

// maxMessages caps the conversation window. Older messages fall off the
// front; long-term recall is served by the history store, not the window.
const maxMessages = 10

// Message roles as stored in the conversation window.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNotFound is returned when a session ID does not exist in the store.
var ErrNotFound = errors.New("session not found")

// Message is a single turn in the conversation window.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session is one student's active conversation.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
