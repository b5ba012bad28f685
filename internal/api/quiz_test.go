package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edumentor/edumentor/internal/profile"
	"github.com/edumentor/edumentor/internal/quiz"
)

// fakeGen is a QuizGenerator double returning a canned quiz.
type fakeGen struct {
	quiz *quiz.Quiz
	err  error
	last quiz.GenerateRequest
}

func (f *fakeGen) Generate(_ context.Context, req quiz.GenerateRequest) (*quiz.Quiz, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	q := *f.quiz
	q.UserID = req.UserID
	q.Subject = req.Subject
	q.Topic = req.Topic
	q.Difficulty = req.Difficulty
	return &q, nil
}

// fakeResults is a map-backed ResultStore double.
type fakeResults struct {
	nextID   int64
	records  map[int64]*quiz.Record
	attempts []quiz.Attempt
	stats    *quiz.Statistics
	deleted  int64

	saveErr  error
	getErr   error
	subErr   error
	listErr  error
	statsErr error
	delErr   error

	lastAnswers []int
}

func newFakeResults() *fakeResults {
	return &fakeResults{records: make(map[int64]*quiz.Record)}
}

func (f *fakeResults) Save(_ context.Context, q *quiz.Quiz) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.nextID++
	q.ID = f.nextID
	f.records[q.ID] = &quiz.Record{
		Attempt: quiz.Attempt{
			ID:         q.ID,
			UserID:     q.UserID,
			Subject:    q.Subject,
			Topic:      q.Topic,
			Difficulty: q.Difficulty,
			Total:      len(q.Questions),
			CreatedAt:  time.Now(),
		},
		Questions: q.Questions,
	}
	return nil
}

func (f *fakeResults) Get(_ context.Context, id int64) (*quiz.Record, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, quiz.ErrNotFound
	}
	return rec, nil
}

func (f *fakeResults) RecordSubmission(_ context.Context, res *quiz.Result, answers []int) error {
	if f.subErr != nil {
		return f.subErr
	}
	rec, ok := f.records[res.ID]
	if !ok {
		return quiz.ErrNotFound
	}
	rec.Answers = answers
	rec.Correct = res.Correct
	rec.Score = res.Score
	rec.TimeTaken = res.TimeTaken
	f.lastAnswers = answers
	return nil
}

func (f *fakeResults) List(context.Context, string, int) ([]quiz.Attempt, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.attempts, nil
}

func (f *fakeResults) Statistics(context.Context, string) (*quiz.Statistics, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.stats, nil
}

func (f *fakeResults) Delete(context.Context, string) (int64, error) {
	if f.delErr != nil {
		return 0, f.delErr
	}
	return f.deleted, nil
}

func sampleQuestions() []quiz.Question {
	return []quiz.Question{
		{
			Text:         "What is 1/2 + 1/4?",
			Options:      []string{"3/4", "1/6", "2/6", "1/2"},
			CorrectIndex: 0,
			Explanation:  "Convert to quarters: 2/4 + 1/4 = 3/4.",
		},
		{
			Text:         "Which fraction equals 50%?",
			Options:      []string{"1/3", "1/2", "2/3", "1/4"},
			CorrectIndex: 1,
			Explanation:  "50% means half.",
		},
		{
			Text:         "What is 2/3 of 9?",
			Options:      []string{"3", "4", "6", "9"},
			CorrectIndex: 2,
			Explanation:  "9 divided by 3 is 3, times 2 is 6.",
		},
	}
}

// seedRecord stores a generated-but-unsubmitted quiz for user u1.
func seedRecord(f *fakeResults, id int64) {
	f.records[id] = &quiz.Record{
		Attempt: quiz.Attempt{
			ID:         id,
			UserID:     "u1",
			Subject:    "maths",
			Topic:      "fractions",
			Difficulty: "beginner",
			Total:      3,
			CreatedAt:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		Questions: sampleQuestions(),
	}
	if id > f.nextID {
		f.nextID = id
	}
}

func TestQuizGenerate(t *testing.T) {
	gen := &fakeGen{quiz: &quiz.Quiz{Source: "llm", Questions: sampleQuestions()}}
	store := newFakeResults()
	handler := testServer(t, ServerConfig{Quiz: gen, Results: store})

	body := jsonBody(t, map[string]any{
		"user_id":       "u1",
		"subject":       "maths",
		"topic":         "fractions",
		"difficulty":    "beginner",
		"num_questions": 3,
	})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/generate", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	raw := w.Body.String()
	// Correct answers and explanations must never reach the client here.
	if strings.Contains(raw, "correct_answer") || strings.Contains(raw, "explanation") {
		t.Errorf("body leaks answers: %s", raw)
	}

	var resp struct {
		ResultID  int64  `json:"result_id"`
		Source    string `json:"source"`
		Questions []struct {
			Question string   `json:"question"`
			Options  []string `json:"options"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ResultID != 1 {
		t.Errorf("result_id = %d, want the saved ID", resp.ResultID)
	}
	if resp.Source != "llm" {
		t.Errorf("source = %q, want llm", resp.Source)
	}
	if len(resp.Questions) != 3 || resp.Questions[0].Question == "" {
		t.Errorf("questions = %+v, want three sanitized questions", resp.Questions)
	}
	if gen.last.Count != 3 || gen.last.Subject != "maths" {
		t.Errorf("generator got %+v", gen.last)
	}
	if _, ok := store.records[1]; !ok {
		t.Error("generated quiz should be persisted for later grading")
	}
}

func TestQuizGenerate_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]any
		wantCode string
	}{
		{"missing user", map[string]any{"subject": "maths", "topic": "x"}, "missing_user"},
		{"missing subject", map[string]any{"user_id": "u1", "topic": "x"}, "missing_subject"},
		{"missing topic", map[string]any{"user_id": "u1", "subject": "maths"}, "missing_topic"},
		{"bad difficulty", map[string]any{"user_id": "u1", "subject": "maths", "topic": "x", "difficulty": "expert"}, "invalid_difficulty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := testServer(t, ServerConfig{Quiz: &fakeGen{}, Results: newFakeResults()})

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/generate", jsonBody(t, tt.body)))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
			env := decodeErrorEnvelope(t, w)
			if env.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", env.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestQuizGenerate_GeneratorFailure(t *testing.T) {
	handler := testServer(t, ServerConfig{
		Quiz:    &fakeGen{err: errors.New("model returned prose")},
		Results: newFakeResults(),
	})

	body := jsonBody(t, map[string]any{"user_id": "u1", "subject": "maths", "topic": "fractions"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/generate", body))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Code != "generation_failed" {
		t.Errorf("code = %q, want generation_failed", env.Error.Code)
	}
}

func TestQuizGenerate_SaveFailure(t *testing.T) {
	store := newFakeResults()
	store.saveErr = errors.New("db locked")
	handler := testServer(t, ServerConfig{
		Quiz:    &fakeGen{quiz: &quiz.Quiz{Questions: sampleQuestions()}},
		Results: store,
	})

	body := jsonBody(t, map[string]any{"user_id": "u1", "subject": "maths", "topic": "fractions"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/generate", body))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Code != "save_failed" {
		t.Errorf("code = %q, want save_failed", env.Error.Code)
	}
}

func TestQuizGenerate_PassesProfile(t *testing.T) {
	profiles := newProfileStore(t)
	if err := profiles.Put(context.Background(), &profile.Profile{UserID: "u1", Name: "Asha", Grade: "5"}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	gen := &fakeGen{quiz: &quiz.Quiz{Questions: sampleQuestions()}}
	handler := testServer(t, ServerConfig{Quiz: gen, Results: newFakeResults(), Profiles: profiles})

	body := jsonBody(t, map[string]any{"user_id": "u1", "subject": "maths", "topic": "fractions"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/generate", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if gen.last.Profile == nil || gen.last.Profile.Name != "Asha" {
		t.Errorf("generator profile = %+v, want the stored profile", gen.last.Profile)
	}
}

func TestQuizGenerate_RouteDisabledWithoutGenerator(t *testing.T) {
	handler := testServer(t, ServerConfig{Results: newFakeResults()})

	body := jsonBody(t, map[string]any{"user_id": "u1", "subject": "maths", "topic": "x"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/generate", body))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a generator", w.Code)
	}
}

func TestQuizSubmit(t *testing.T) {
	store := newFakeResults()
	seedRecord(store, 7)
	handler := testServer(t, ServerConfig{Results: store})

	body := jsonBody(t, map[string]any{
		"result_id":          7,
		"user_id":            "u1",
		"answers":            []int{0, 1, 0},
		"time_taken_seconds": 90,
	})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/submit", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var res quiz.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Total != 3 || res.Correct != 2 {
		t.Errorf("graded %d/%d, want 2/3", res.Correct, res.Total)
	}
	if !res.Passed {
		t.Error("score of 66.67 should pass")
	}
	if len(res.Details) != 3 {
		t.Errorf("details = %d entries, want 3", len(res.Details))
	}
	if len(store.lastAnswers) != 3 {
		t.Errorf("stored answers = %v, want the submission recorded", store.lastAnswers)
	}
}

func TestQuizSubmit_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]any
		wantCode string
	}{
		{"missing result id", map[string]any{"user_id": "u1", "answers": []int{0}}, "missing_result_id"},
		{"missing user", map[string]any{"result_id": 7, "answers": []int{0}}, "missing_user"},
		{"missing answers", map[string]any{"result_id": 7, "user_id": "u1"}, "missing_answers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeResults()
			seedRecord(store, 7)
			handler := testServer(t, ServerConfig{Results: store})

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/submit", jsonBody(t, tt.body)))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			env := decodeErrorEnvelope(t, w)
			if env.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", env.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestQuizSubmit_NotFound(t *testing.T) {
	handler := testServer(t, ServerConfig{Results: newFakeResults()})

	body := jsonBody(t, map[string]any{"result_id": 99, "user_id": "u1", "answers": []int{0, 1, 2}})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/submit", body))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Message != "Quiz not found" {
		t.Errorf("message = %q, want %q", env.Error.Message, "Quiz not found")
	}
}

func TestQuizSubmit_WrongUser(t *testing.T) {
	store := newFakeResults()
	seedRecord(store, 7)
	handler := testServer(t, ServerConfig{Results: store})

	body := jsonBody(t, map[string]any{"result_id": 7, "user_id": "intruder", "answers": []int{0, 1, 2}})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/submit", body))

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Message != "Unauthorized" {
		t.Errorf("message = %q, want %q", env.Error.Message, "Unauthorized")
	}
}

func TestQuizSubmit_AnswerCountMismatch(t *testing.T) {
	store := newFakeResults()
	seedRecord(store, 7)
	handler := testServer(t, ServerConfig{Results: store})

	body := jsonBody(t, map[string]any{"result_id": 7, "user_id": "u1", "answers": []int{0}})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/submit", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Code != "bad_answers" {
		t.Errorf("code = %q, want bad_answers", env.Error.Code)
	}
}

func TestQuizList(t *testing.T) {
	store := newFakeResults()
	store.attempts = []quiz.Attempt{
		{ID: 2, UserID: "u1", Subject: "maths", Score: 80},
		{ID: 1, UserID: "u1", Subject: "evs", Score: 60},
	}
	handler := testServer(t, ServerConfig{Results: store})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quiz/results/u1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"count":2`) {
		t.Errorf("body = %s, want count 2", w.Body.String())
	}
}

func TestQuizList_InvalidLimit(t *testing.T) {
	handler := testServer(t, ServerConfig{Results: newFakeResults()})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quiz/results/u1?limit=tons", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestQuizResult_Get(t *testing.T) {
	store := newFakeResults()
	seedRecord(store, 7)
	handler := testServer(t, ServerConfig{Results: store})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quiz/result/7", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var rec quiz.Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.ID != 7 || len(rec.Questions) != 3 {
		t.Errorf("record = %+v, want the stored attempt with questions", rec.Attempt)
	}
}

func TestQuizResult_GetErrors(t *testing.T) {
	handler := testServer(t, ServerConfig{Results: newFakeResults()})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quiz/result/99", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quiz/result/abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestQuizStatistics(t *testing.T) {
	store := newFakeResults()
	store.stats = &quiz.Statistics{
		TotalQuizzes: 4,
		AverageScore: 72.5,
		BestScore:    90,
		PassRate:     75,
		BySubject:    []quiz.SubjectStat{{Subject: "maths", QuizCount: 3, AvgScore: 70}},
	}
	handler := testServer(t, ServerConfig{Results: store})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quiz/statistics/u1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	got := w.Body.String()
	if !strings.Contains(got, `"total_quizzes":4`) || !strings.Contains(got, `"by_subject"`) {
		t.Errorf("body = %s, want statistics payload", got)
	}
}

func TestQuizPurge(t *testing.T) {
	store := newFakeResults()
	store.deleted = 3
	handler := testServer(t, ServerConfig{Results: store})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/quiz/results/u1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"deleted_count":3`) {
		t.Errorf("body = %s, want deleted count", w.Body.String())
	}
}

func TestQuizReport(t *testing.T) {
	store := newFakeResults()
	seedRecord(store, 7)
	store.records[7].Answers = []int{0, 1, 0}
	handler := testServer(t, ServerConfig{Results: store})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quiz/report/7?student_name=Asha", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "attachment") || !strings.Contains(cd, "quiz_result_maths_fractions_7.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF-") {
		t.Error("body should be a PDF document")
	}
}

func TestQuizReport_UnsubmittedAttempt(t *testing.T) {
	store := newFakeResults()
	seedRecord(store, 7)
	handler := testServer(t, ServerConfig{Results: store})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quiz/report/7", nil))

	// No answers recorded yet still renders, graded as blank.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF-") {
		t.Error("body should be a PDF document")
	}
}

func TestQuizReport_NotFound(t *testing.T) {
	handler := testServer(t, ServerConfig{Results: newFakeResults()})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quiz/report/99", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestQuiz_StoreFailures(t *testing.T) {
	store := newFakeResults()
	store.getErr = errors.New("db locked")
	store.listErr = errors.New("db locked")
	store.statsErr = errors.New("db locked")
	store.delErr = errors.New("db locked")
	handler := testServer(t, ServerConfig{Results: store})

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/quiz/results/u1"},
		{http.MethodGet, "/api/v1/quiz/result/7"},
		{http.MethodGet, "/api/v1/quiz/statistics/u1"},
		{http.MethodDelete, "/api/v1/quiz/results/u1"},
		{http.MethodGet, "/api/v1/quiz/report/7"},
	}
	for _, p := range paths {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(p.method, p.path, nil))
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s %s status = %d, want 500", p.method, p.path, w.Code)
		}
	}
}
