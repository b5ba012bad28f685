package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/edumentor/edumentor/internal/profile"
	"github.com/edumentor/edumentor/internal/quiz"
	"github.com/edumentor/edumentor/internal/report"
)

// quizHandler serves quiz generation, grading, and result endpoints. The
// profile store is optional and only enriches generation prompts.
type quizHandler struct {
	gen      QuizGenerator
	results  ResultStore
	profiles ProfileStore
	logger   *slog.Logger
}

type generateBody struct {
	UserID       string `json:"user_id"`
	Subject      string `json:"subject"`
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	NumQuestions int    `json:"num_questions"`
}

// generate handles POST /api/v1/quiz/generate. The response withholds
// correct answers and explanations; the full question set is persisted so
// submission can grade against it.
func (h *quizHandler) generate(w http.ResponseWriter, r *http.Request) {
	var body generateBody
	r.Body = http.MaxBytesReader(w, r.Body, maxProfileBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDecodeError(w, err, h.logger)
		return
	}

	switch {
	case strings.TrimSpace(body.UserID) == "":
		WriteError(w, http.StatusBadRequest, "missing_user", "user_id is required", h.logger)
		return
	case strings.TrimSpace(body.Subject) == "":
		WriteError(w, http.StatusBadRequest, "missing_subject", "subject is required", h.logger)
		return
	case strings.TrimSpace(body.Topic) == "":
		WriteError(w, http.StatusBadRequest, "missing_topic", "topic is required", h.logger)
		return
	case !quiz.ValidDifficulty(body.Difficulty):
		WriteError(w, http.StatusBadRequest, "invalid_difficulty",
			"difficulty must be beginner, intermediate, or advanced", h.logger)
		return
	}

	q, err := h.gen.Generate(r.Context(), quiz.GenerateRequest{
		UserID:     body.UserID,
		Subject:    body.Subject,
		Topic:      body.Topic,
		Difficulty: body.Difficulty,
		Count:      body.NumQuestions,
		Profile:    h.loadProfile(r, body.UserID),
	})
	if err != nil {
		h.logger.Error("quiz generation failed", "subject", body.Subject, "topic", body.Topic, "error", err)
		WriteError(w, http.StatusInternalServerError, "generation_failed", "failed to generate quiz", h.logger)
		return
	}

	if err := h.results.Save(r.Context(), q); err != nil {
		h.logger.Error("quiz save failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "save_failed", "failed to store quiz", h.logger)
		return
	}

	public := make([]quiz.PublicQuestion, len(q.Questions))
	for i, question := range q.Questions {
		public[i] = question.Public()
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"result_id":  q.ID,
		"subject":    q.Subject,
		"topic":      q.Topic,
		"difficulty": q.Difficulty,
		"source":     q.Source,
		"questions":  public,
	})
}

// loadProfile fetches the student profile when a store is wired. Missing
// profiles are normal; generation proceeds without one.
func (h *quizHandler) loadProfile(r *http.Request, userID string) *profile.Profile {
	if h.profiles == nil {
		return nil
	}
	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			h.logger.Warn("profile lookup failed", "user", userID, "error", err)
		}
		return nil
	}
	return p
}

type submitBody struct {
	ResultID  int64  `json:"result_id"`
	UserID    string `json:"user_id"`
	Answers   []int  `json:"answers"`
	TimeTaken int    `json:"time_taken_seconds"`
}

// submit handles POST /api/v1/quiz/submit. Answers are graded against the
// stored questions after an ownership check, and the graded result
// overwrites any previous submission for the attempt.
func (h *quizHandler) submit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	r.Body = http.MaxBytesReader(w, r.Body, maxProfileBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDecodeError(w, err, h.logger)
		return
	}

	switch {
	case body.ResultID < 1:
		WriteError(w, http.StatusBadRequest, "missing_result_id", "result_id is required", h.logger)
		return
	case strings.TrimSpace(body.UserID) == "":
		WriteError(w, http.StatusBadRequest, "missing_user", "user_id is required", h.logger)
		return
	case len(body.Answers) == 0:
		WriteError(w, http.StatusBadRequest, "missing_answers", "answers are required", h.logger)
		return
	}

	rec, err := h.results.Get(r.Context(), body.ResultID)
	if err != nil {
		if errors.Is(err, quiz.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "quiz_not_found", "Quiz not found", h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "load_failed", "failed to load quiz", h.logger)
		return
	}
	if rec.UserID != body.UserID {
		WriteError(w, http.StatusForbidden, "unauthorized", "Unauthorized", h.logger)
		return
	}

	res, err := quiz.Grade(quiz.Submission{
		QuizID:     rec.ID,
		UserID:     rec.UserID,
		Subject:    rec.Subject,
		Topic:      rec.Topic,
		Difficulty: rec.Difficulty,
		Questions:  rec.Questions,
		Answers:    body.Answers,
		TimeTaken:  body.TimeTaken,
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, "bad_answers", err.Error(), h.logger)
		return
	}

	if err := h.results.RecordSubmission(r.Context(), res, body.Answers); err != nil {
		if errors.Is(err, quiz.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "quiz_not_found", "Quiz not found", h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "save_failed", "failed to record submission", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, res)
}

// list handles GET /api/v1/quiz/results/{userID}?limit=.
func (h *quizHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	limit, ok := queryLimit(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer", h.logger)
		return
	}

	attempts, err := h.results.List(r.Context(), userID, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list results", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"results": attempts,
		"count":   len(attempts),
	})
}

// resultID parses the {resultID} path segment.
func resultID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("resultID"), 10, 64)
	if err != nil || id < 1 {
		WriteError(w, http.StatusBadRequest, "invalid_id", "result ID must be a positive integer", logger)
		return 0, false
	}
	return id, true
}

// get handles GET /api/v1/quiz/result/{resultID}, returning the full
// stored attempt including questions and recorded answers.
func (h *quizHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := resultID(w, r, h.logger)
	if !ok {
		return
	}

	rec, err := h.results.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, quiz.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "quiz_not_found", "Quiz not found", h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "load_failed", "failed to load result", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, rec)
}

// statistics handles GET /api/v1/quiz/statistics/{userID}.
func (h *quizHandler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.results.Statistics(r.Context(), r.PathValue("userID"))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "stats_failed", "failed to compute statistics", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// purge handles DELETE /api/v1/quiz/results/{userID}.
func (h *quizHandler) purge(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	deleted, err := h.results.Delete(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete results", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"deleted_count": deleted,
	})
}

// report handles GET /api/v1/quiz/report/{resultID}?student_name=. The PDF
// renders in memory first so failures can still produce a JSON error.
// Unsubmitted attempts render with every question marked unanswered.
func (h *quizHandler) report(w http.ResponseWriter, r *http.Request) {
	id, ok := resultID(w, r, h.logger)
	if !ok {
		return
	}

	rec, err := h.results.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, quiz.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "quiz_not_found", "Quiz not found", h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "load_failed", "failed to load result", h.logger)
		return
	}

	res, err := rec.Result()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "grade_failed", "failed to grade stored attempt", h.logger)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteQuizPDF(&buf, res, r.URL.Query().Get("student_name")); err != nil {
		h.logger.Error("report rendering failed", "result", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "render_failed", "failed to render report", h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName(res)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Debug("failed to write report body", "error", err)
	}
}
