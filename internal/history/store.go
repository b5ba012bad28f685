package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Query limits. List and RecentSessions clamp caller limits to these caps;
// Search always returns at most searchLimit rows.
const (
	defaultListLimit     = 50
	maxListLimit         = 200
	defaultSessionsLimit = 10
	maxSessionsLimit     = 50
	searchLimit          = 20
)

// Store reads and writes the chat_history table.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates a history store on an already-migrated database.
func NewStore(db *sql.DB, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// SaveExchange records one question/answer pair and returns its row ID.
func (s *Store) SaveExchange(ctx context.Context, ex *Exchange) (int64, error) {
	if ex.UserID == "" {
		return 0, errors.New("user ID is required")
	}
	if ex.SessionID == "" {
		return 0, errors.New("session ID is required")
	}

	meta := "{}"
	if len(ex.Metadata) > 0 {
		raw, err := json.Marshal(ex.Metadata)
		if err != nil {
			return 0, fmt.Errorf("encode metadata: %w", err)
		}
		meta = string(raw)
	}

	at := ex.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (user_id, session_id, subject, question, answer, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ex.UserID, ex.SessionID, ex.Subject, ex.Question, ex.Answer, meta, at,
	)
	if err != nil {
		return 0, fmt.Errorf("insert exchange: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("exchange id: %w", err)
	}
	return id, nil
}

// List returns a user's exchanges, newest first. An empty subject returns
// all subjects; limit is clamped to [1, 200] with a default of 50.
func (s *Store) List(ctx context.Context, userID string, limit int, subject string) ([]Exchange, error) {
	limit = clampLimit(limit, defaultListLimit, maxListLimit)

	query := `SELECT id, user_id, session_id, subject, question, answer, metadata, created_at
		FROM chat_history WHERE user_id = ?`
	args := []any{userID}
	if subject != "" {
		query += " AND subject = ?"
		args = append(args, subject)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	return scanExchanges(rows)
}

// RecentSessions groups the exchange log into conversations, newest first.
// Each summary carries the opening question and the exchange count.
func (s *Store) RecentSessions(ctx context.Context, userID string, limit int) ([]SessionSummary, error) {
	limit = clampLimit(limit, defaultSessionsLimit, maxSessionsLimit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id,
		        MIN(created_at) AS started_at,
		        (SELECT question FROM chat_history f
		         WHERE f.session_id = h.session_id
		         ORDER BY f.created_at ASC, f.id ASC LIMIT 1) AS first_question,
		        COUNT(*) AS message_count
		 FROM chat_history h
		 WHERE user_id = ?
		 GROUP BY session_id
		 ORDER BY started_at DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.SessionID, &sum.StartedAt, &sum.FirstQuestion, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("scan session summary: %w", err)
		}
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Search matches the query as a substring of either the question or the
// answer, newest first, at most 20 rows.
func (s *Store) Search(ctx context.Context, userID, query string) ([]Exchange, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search query is required")
	}
	pattern := "%" + query + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, session_id, subject, question, answer, metadata, created_at
		 FROM chat_history
		 WHERE user_id = ? AND (question LIKE ? OR answer LIKE ?)
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, pattern, pattern, searchLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	defer rows.Close()

	return scanExchanges(rows)
}

// Stats summarises a user's recorded activity: totals plus a per-subject
// breakdown ordered by volume.
func (s *Store) Stats(ctx context.Context, userID string) (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT session_id) FROM chat_history WHERE user_id = ?",
		userID,
	).Scan(&stats.TotalQuestions, &stats.TotalSessions)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, COUNT(*) AS n FROM chat_history
		 WHERE user_id = ? AND subject != ''
		 GROUP BY subject
		 ORDER BY n DESC, subject ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("count by subject: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc SubjectCount
		if err := rows.Scan(&sc.Subject, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan subject count: %w", err)
		}
		stats.BySubject = append(stats.BySubject, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subject counts: %w", err)
	}
	return stats, nil
}

// DeleteUser removes every exchange for the user and returns how many rows
// were deleted. Deleting a user with no history is not an error.
func (s *Store) DeleteUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chat_history WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Info("deleted user history", "user_id", userID, "rows", n)
	}
	return n, nil
}

func scanExchanges(rows *sql.Rows) ([]Exchange, error) {
	var out []Exchange
	for rows.Next() {
		var (
			ex   Exchange
			meta string
		)
		if err := rows.Scan(&ex.ID, &ex.UserID, &ex.SessionID, &ex.Subject,
			&ex.Question, &ex.Answer, &meta, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &ex.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for exchange %d: %w", ex.ID, err)
			}
		}
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchanges: %w", err)
	}
	return out, nil
}

func clampLimit(limit, def, max int) int {
	switch {
	case limit <= 0:
		return def
	case limit > max:
		return max
	default:
		return limit
	}
}
