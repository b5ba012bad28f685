package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotFound is returned when a quiz attempt does not exist.
var ErrNotFound = errors.New("quiz result not found")

// List limits.
const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
)

// Attempt is the list view of a stored quiz: metadata and score without
// the questions or the student's answers.
type Attempt struct {
	ID         int64     `json:"result_id"`
	UserID     string    `json:"user_id"`
	Subject    string    `json:"subject"`
	Topic      string    `json:"topic"`
	Difficulty string    `json:"difficulty"`
	Total      int       `json:"total_questions"`
	Correct    int       `json:"correct_answers"`
	Score      float64   `json:"score_percentage"`
	TimeTaken  int       `json:"time_taken_seconds,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Record is the full stored form of an attempt, including the question set
// and any submitted answers. Answers stays empty until the student submits.
type Record struct {
	Attempt
	Questions []Question `json:"questions"`
	Answers   []int      `json:"user_answers"`
}

// Submitted reports whether answers have been recorded for the attempt.
func (r *Record) Submitted() bool {
	return len(r.Answers) > 0
}

// Result grades the stored attempt. Attempts without a submission grade as
// zero with every question counted unanswered, which matches what the
// student would see had they handed in a blank sheet.
func (r *Record) Result() (*Result, error) {
	answers := r.Answers
	if len(answers) != len(r.Questions) {
		padded := make([]int, len(r.Questions))
		for i := range padded {
			padded[i] = -1
			if i < len(answers) {
				padded[i] = answers[i]
			}
		}
		answers = padded
	}

	res, err := Grade(Submission{
		QuizID:     r.ID,
		UserID:     r.UserID,
		Subject:    r.Subject,
		Topic:      r.Topic,
		Difficulty: r.Difficulty,
		Questions:  r.Questions,
		Answers:    answers,
		TimeTaken:  r.TimeTaken,
	})
	if err != nil {
		return nil, err
	}
	res.CreatedAt = r.CreatedAt
	return res, nil
}

// SubjectStat is the per-subject slice of a user's statistics.
type SubjectStat struct {
	Subject   string  `json:"subject"`
	QuizCount int     `json:"quiz_count"`
	AvgScore  float64 `json:"avg_score"`
}

// Statistics summarises all of a user's quiz attempts.
type Statistics struct {
	TotalQuizzes           int           `json:"total_quizzes"`
	AverageScore           float64       `json:"average_score"`
	BestScore              float64       `json:"best_score"`
	TotalQuestionsAnswered int           `json:"total_questions_answered"`
	TotalCorrect           int           `json:"total_correct"`
	PassRate               float64       `json:"pass_rate"`
	BySubject              []SubjectStat `json:"by_subject"`
}

// ResultStore reads and writes the quiz_results table.
type ResultStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewResultStore creates a result store on an already-migrated database.
func NewResultStore(db *sql.DB, logger *slog.Logger) (*ResultStore, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultStore{db: db, logger: logger}, nil
}

// Save persists a freshly generated quiz with no answers yet and fills in
// its ID. The full question set is stored so grading later runs against
// exactly what the student saw.
func (s *ResultStore) Save(ctx context.Context, q *Quiz) error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	if q.Subject == "" {
		return errors.New("subject is required")
	}
	if len(q.Questions) == 0 {
		return errors.New("quiz has no questions")
	}

	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_results (user_id, subject, topic, difficulty, total_questions,
		                           correct_answers, score_percentage, questions, user_answers, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, 0, ?, '[]', ?)`,
		q.UserID, q.Subject, q.Topic, q.Difficulty, len(q.Questions), string(questions), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	q.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("quiz id: %w", err)
	}
	return nil
}

// Get loads one attempt with its full question set.
func (s *ResultStore) Get(ctx context.Context, id int64) (*Record, error) {
	var (
		rec       Record
		questions string
		answers   string
		timeTaken sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, subject, topic, difficulty, total_questions, correct_answers,
		        score_percentage, questions, user_answers, time_taken_seconds, created_at
		 FROM quiz_results WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.UserID, &rec.Subject, &rec.Topic, &rec.Difficulty, &rec.Total,
		&rec.Correct, &rec.Score, &questions, &answers, &timeTaken, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz %d: %w", id, err)
	}

	if err := json.Unmarshal([]byte(questions), &rec.Questions); err != nil {
		return nil, fmt.Errorf("decode questions for quiz %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
		return nil, fmt.Errorf("decode answers for quiz %d: %w", id, err)
	}
	rec.TimeTaken = int(timeTaken.Int64)
	return &rec, nil
}

// RecordSubmission stores the student's answers and the graded score on
// the attempt row.
func (s *ResultStore) RecordSubmission(ctx context.Context, res *Result, answers []int) error {
	if answers == nil {
		answers = []int{}
	}
	encoded, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	timeTaken := sql.NullInt64{Int64: int64(res.TimeTaken), Valid: res.TimeTaken > 0}
	out, err := s.db.ExecContext(ctx,
		`UPDATE quiz_results
		 SET user_answers = ?, correct_answers = ?, score_percentage = ?, time_taken_seconds = ?
		 WHERE id = ?`,
		string(encoded), res.Correct, res.Score, timeTaken, res.ID,
	)
	if err != nil {
		return fmt.Errorf("update quiz %d: %w", res.ID, err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Info("recorded quiz submission",
		"result_id", res.ID,
		"user_id", res.UserID,
		"score", res.Score,
		"passed", res.Passed,
	)
	return nil
}

// List returns a user's attempts, newest first. Limit is clamped to
// [1, 100] with a default of 20.
func (s *ResultStore) List(ctx context.Context, userID string, limit int) ([]Attempt, error) {
	switch {
	case limit <= 0:
		limit = defaultResultsLimit
	case limit > maxResultsLimit:
		limit = maxResultsLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, subject, topic, difficulty, total_questions, correct_answers,
		        score_percentage, time_taken_seconds, created_at
		 FROM quiz_results
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			a         Attempt
			timeTaken sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Subject, &a.Topic, &a.Difficulty,
			&a.Total, &a.Correct, &a.Score, &timeTaken, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.TimeTaken = int(timeTaken.Int64)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

// Statistics aggregates all of a user's attempts: overall totals plus a
// per-subject breakdown ordered by volume.
func (s *ResultStore) Statistics(ctx context.Context, userID string) (*Statistics, error) {
	stats := &Statistics{}
	var avg, best, passRate float64

	// 60 in the CASE mirrors the pass threshold used by Grade.
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(score_percentage), 0),
		        COALESCE(MAX(score_percentage), 0),
		        COALESCE(SUM(total_questions), 0),
		        COALESCE(SUM(correct_answers), 0),
		        COALESCE(AVG(CASE WHEN score_percentage >= 60 THEN 100.0 ELSE 0 END), 0)
		 FROM quiz_results WHERE user_id = ?`,
		userID,
	).Scan(&stats.TotalQuizzes, &avg, &best, &stats.TotalQuestionsAnswered, &stats.TotalCorrect, &passRate)
	if err != nil {
		return nil, fmt.Errorf("count quiz results: %w", err)
	}
	stats.AverageScore = round2(avg)
	stats.BestScore = round2(best)
	stats.PassRate = round2(passRate)

	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, COUNT(*) AS n, AVG(score_percentage)
		 FROM quiz_results
		 WHERE user_id = ?
		 GROUP BY subject
		 ORDER BY n DESC, subject ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("count by subject: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st SubjectStat
		if err := rows.Scan(&st.Subject, &st.QuizCount, &st.AvgScore); err != nil {
			return nil, fmt.Errorf("scan subject stat: %w", err)
		}
		st.AvgScore = round2(st.AvgScore)
		stats.BySubject = append(stats.BySubject, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subject stats: %w", err)
	}
	return stats, nil
}

// Delete removes every attempt for the user and returns how many rows were
// deleted. Deleting a user with no attempts is not an error.
func (s *ResultStore) Delete(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM quiz_results WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("delete quiz results: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Info("deleted quiz results", "user_id", userID, "rows", n)
	}
	return n, nil
}
