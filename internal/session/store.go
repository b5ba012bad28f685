package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds active sessions in memory. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *slog.Logger
}

// NewStore creates an empty session store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// GetOrCreate returns the session with the given ID if it exists and belongs
// to userID, otherwise it creates a fresh session. An unknown or foreign
// session ID is never reused; the caller gets a new server-generated ID.
func (s *Store) GetOrCreate(userID, sessionID, subject string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID != "" {
		if sess, ok := s.sessions[sessionID]; ok && sess.UserID == userID {
			if subject != "" && sess.Subject != subject {
				sess.Subject = subject
			}
			return copySession(sess)
		}
	}

	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.ID] = sess
	s.logger.Debug("created session", "session_id", sess.ID, "user_id", userID, "subject", subject)
	return copySession(sess)
}

// Get returns a snapshot of the session, or ErrNotFound.
func (s *Store) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(sess), nil
}

// Append adds a message to the session window, dropping the oldest entries
// beyond the window cap. Returns ErrNotFound for unknown sessions.
func (s *Store) Append(sessionID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}

	if msg.At.IsZero() {
		msg.At = time.Now()
	}
	sess.Messages = append(sess.Messages, msg)
	if len(sess.Messages) > maxMessages {
		sess.Messages = sess.Messages[len(sess.Messages)-maxMessages:]
	}
	sess.UpdatedAt = msg.At
	return nil
}

// Delete removes a session. Returns ErrNotFound if it does not exist.
func (s *Store) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// Count returns the number of active sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunCleanup blocks until ctx is canceled, removing sessions idle for longer
// than maxIdle on each tick. Callers must track the goroutine with a WaitGroup.
func (s *Store) RunCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.expireIdle(maxIdle); n > 0 {
				s.logger.Info("expired idle sessions", "count", n, "active", s.Count())
			}
		}
	}
}

// expireIdle removes sessions whose last activity is older than maxIdle.
func (s *Store) expireIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.UpdatedAt) > maxIdle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// copySession returns a snapshot safe to use outside the store lock.
func copySession(sess *Session) *Session {
	cp := *sess
	cp.Messages = make([]Message, len(sess.Messages))
	copy(cp.Messages, sess.Messages)
	return &cp
}
