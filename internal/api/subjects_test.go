package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edumentor/edumentor/internal/document"
	"github.com/edumentor/edumentor/internal/knowledge"
)

// fakeKnowledge is an in-memory KnowledgeStore double.
type fakeKnowledge struct {
	subjects  []string
	matches   []knowledge.Match
	stats     []knowledge.SubjectStats
	addN      int
	addErr    error
	searchErr error
	delErr    error
	delSubErr error

	lastDoc     *document.Document
	lastQuery   string
	lastSubject string
	lastOpts    int
}

func (f *fakeKnowledge) Search(_ context.Context, subject, query string, opts ...knowledge.SearchOption) ([]knowledge.Match, error) {
	f.lastSubject, f.lastQuery, f.lastOpts = subject, query, len(opts)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.matches, nil
}

func (f *fakeKnowledge) Add(_ context.Context, doc *document.Document) (int, error) {
	f.lastDoc = doc
	if f.addErr != nil {
		return 0, f.addErr
	}
	return f.addN, nil
}

func (f *fakeKnowledge) Stats(context.Context) ([]knowledge.SubjectStats, error) {
	return f.stats, nil
}

func (f *fakeKnowledge) DeleteDocument(_ context.Context, subject, _ string) error {
	f.lastSubject = subject
	return f.delErr
}

func (f *fakeKnowledge) DeleteSubject(_ context.Context, subject string) error {
	f.lastSubject = subject
	return f.delSubErr
}

func (f *fakeKnowledge) Subjects() []string {
	return f.subjects
}

// fakeIngestor is a DocumentIngestor double.
type fakeIngestor struct {
	doc *document.Document
	err error
}

func (f *fakeIngestor) FromPDF(string, string, []byte) (*document.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *fakeIngestor) FromURL(context.Context, string, string) (*document.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func defaultKnowledge() *fakeKnowledge {
	return &fakeKnowledge{subjects: []string{"maths", "science", "evs"}, addN: 4}
}

func defaultIngestor() *fakeIngestor {
	return &fakeIngestor{doc: &document.Document{
		ID:      "doc-1",
		Subject: "maths",
		Source:  "fractions.pdf",
		Title:   "Fractions",
		Chunks:  []string{"a", "b", "c", "d"},
	}}
}

// pdfUpload builds a multipart body with one "file" part.
func pdfUpload(t *testing.T, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestSubjectUpload(t *testing.T) {
	kn := defaultKnowledge()
	handler := testServer(t, ServerConfig{Knowledge: kn, Documents: defaultIngestor()})

	body, contentType := pdfUpload(t, "fractions.pdf", []byte("%PDF-1.4 fake"))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/subjects/maths/documents", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	got := w.Body.String()
	if !strings.Contains(got, `"chunks_added":4`) {
		t.Errorf("body = %s, want chunks_added 4", got)
	}
	if !strings.Contains(got, `"filename":"fractions.pdf"`) {
		t.Errorf("body = %s, want sanitized filename echoed", got)
	}
	if kn.lastDoc == nil || kn.lastDoc.ID != "doc-1" {
		t.Errorf("indexed doc = %+v, want the ingested document", kn.lastDoc)
	}
}

func TestSubjectUpload_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		filename string
		content  []byte
		wantCode string
	}{
		{"unknown subject", "latin", "a.pdf", []byte("%PDF-1.4"), "unknown_subject"},
		{"bad extension", "maths", "notes.txt", []byte("%PDF-1.4"), "not_pdf"},
		{"dots-only filename", "maths", "...", []byte("%PDF-1.4"), "bad_filename"},
		{"empty file", "maths", "a.pdf", nil, "empty_file"},
		{"wrong magic", "maths", "a.pdf", []byte("PK\x03\x04 zip"), "not_pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := testServer(t, ServerConfig{Knowledge: defaultKnowledge(), Documents: defaultIngestor()})

			body, contentType := pdfUpload(t, tt.filename, tt.content)
			r := httptest.NewRequest(http.MethodPost, "/api/v1/subjects/"+tt.subject+"/documents", body)
			r.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

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

func TestSubjectUpload_StripsPathComponents(t *testing.T) {
	handler := testServer(t, ServerConfig{Knowledge: defaultKnowledge(), Documents: defaultIngestor()})

	body, contentType := pdfUpload(t, "../../etc/notes.pdf", []byte("%PDF-1.4"))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/subjects/maths/documents", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"filename":"notes.pdf"`) {
		t.Errorf("body = %s, want directory components stripped", w.Body.String())
	}
}

func TestSubjectUpload_MissingFile(t *testing.T) {
	handler := testServer(t, ServerConfig{Knowledge: defaultKnowledge(), Documents: defaultIngestor()})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("other", "value"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/subjects/maths/documents", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Code != "missing_file" {
		t.Errorf("code = %q, want missing_file", env.Error.Code)
	}
}

func TestSubjectUpload_ExtractionFailure(t *testing.T) {
	handler := testServer(t, ServerConfig{
		Knowledge: defaultKnowledge(),
		Documents: &fakeIngestor{err: errors.New("no text layer")},
	})

	body, contentType := pdfUpload(t, "scan.pdf", []byte("%PDF-1.4 image only"))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/subjects/maths/documents", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Code != "no_text" {
		t.Errorf("code = %q, want no_text", env.Error.Code)
	}
}

func TestSubjectUpload_TooLarge(t *testing.T) {
	handler := testServer(t, ServerConfig{
		Knowledge:      defaultKnowledge(),
		Documents:      defaultIngestor(),
		MaxUploadBytes: 1024,
	})

	big := append([]byte("%PDF-1.4 "), bytes.Repeat([]byte("x"), 4096)...)
	body, contentType := pdfUpload(t, "big.pdf", big)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/subjects/maths/documents", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413: %s", w.Code, w.Body.String())
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Code != "body_too_large" {
		t.Errorf("code = %q, want body_too_large", env.Error.Code)
	}
}

func TestSubjectLink(t *testing.T) {
	kn := defaultKnowledge()
	ing := defaultIngestor()
	ing.doc.Source = "https://example.com/plants"
	ing.doc.Title = "Plant Life"
	handler := testServer(t, ServerConfig{Knowledge: kn, Documents: ing})

	body := jsonBody(t, map[string]string{"url": "https://example.com/plants"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/subjects/science/links", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	got := w.Body.String()
	if !strings.Contains(got, `"title":"Plant Life"`) {
		t.Errorf("body = %s, want article title", got)
	}
	if !strings.Contains(got, `"chunks_added":4`) {
		t.Errorf("body = %s, want chunk count", got)
	}
}

func TestSubjectLink_MissingURL(t *testing.T) {
	handler := testServer(t, ServerConfig{Knowledge: defaultKnowledge(), Documents: defaultIngestor()})

	body := jsonBody(t, map[string]string{"url": "   "})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/subjects/science/links", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Code != "missing_url" {
		t.Errorf("code = %q, want missing_url", env.Error.Code)
	}
}

func TestSubjectLink_FetchFailure(t *testing.T) {
	handler := testServer(t, ServerConfig{
		Knowledge: defaultKnowledge(),
		Documents: &fakeIngestor{err: errors.New("fetch https://x: connection refused")},
	})

	body := jsonBody(t, map[string]string{"url": "https://x"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/subjects/science/links", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Code != "fetch_failed" {
		t.Errorf("code = %q, want fetch_failed", env.Error.Code)
	}
}

func TestSubjectIngest_RoutesDisabledWithoutIngestor(t *testing.T) {
	// Knowledge alone enables search and stats but not uploads.
	handler := testServer(t, ServerConfig{Knowledge: defaultKnowledge()})

	w := httptest.NewRecorder()
	body := jsonBody(t, map[string]string{"url": "https://example.com"})
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/subjects/science/links", body))
	if w.Code != http.StatusNotFound {
		t.Errorf("links status = %d, want 404 without ingestor", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/subjects/stats", nil))
	if w.Code != http.StatusOK {
		t.Errorf("stats status = %d, want 200 with knowledge only", w.Code)
	}
}

func TestSubjectSearch(t *testing.T) {
	kn := defaultKnowledge()
	kn.matches = []knowledge.Match{
		{DocID: "doc-1", Title: "Fractions", Chunk: "A fraction is part of a whole.", Similarity: 0.91},
	}
	handler := testServer(t, ServerConfig{Knowledge: kn})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/subjects/maths/search?q=fractions&k=5", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if kn.lastQuery != "fractions" || kn.lastSubject != "maths" {
		t.Errorf("search got subject=%q query=%q", kn.lastSubject, kn.lastQuery)
	}
	if kn.lastOpts != 1 {
		t.Errorf("options passed = %d, want 1 for k param", kn.lastOpts)
	}
	if !strings.Contains(w.Body.String(), `"count":1`) {
		t.Errorf("body = %s, want count 1", w.Body.String())
	}
}

func TestSubjectSearch_BadParams(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantCode string
	}{
		{"missing query", "/api/v1/subjects/maths/search", "missing_query"},
		{"blank query", "/api/v1/subjects/maths/search?q=%20%20", "missing_query"},
		{"non-numeric k", "/api/v1/subjects/maths/search?q=x&k=lots", "invalid_k"},
		{"zero k", "/api/v1/subjects/maths/search?q=x&k=0", "invalid_k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := testServer(t, ServerConfig{Knowledge: defaultKnowledge()})

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

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

func TestSubjectSearch_UnknownSubject(t *testing.T) {
	kn := defaultKnowledge()
	kn.searchErr = knowledge.ErrUnknownSubject
	handler := testServer(t, ServerConfig{Knowledge: kn})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/subjects/latin/search?q=x", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	env := decodeErrorEnvelope(t, w)
	if env.Error.Code != "unknown_subject" {
		t.Errorf("code = %q, want unknown_subject", env.Error.Code)
	}
}

func TestSubjectStats(t *testing.T) {
	kn := defaultKnowledge()
	kn.stats = []knowledge.SubjectStats{
		{Subject: "maths", Documents: 2, Chunks: 40},
		{Subject: "science", Documents: 1, Chunks: 12},
	}
	handler := testServer(t, ServerConfig{Knowledge: kn})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/subjects/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"subjects"`) {
		t.Errorf("body = %s, want subjects key", w.Body.String())
	}
}

func TestSubjectDeleteSubject(t *testing.T) {
	tests := []struct {
		name       string
		delSubErr  error
		wantStatus int
	}{
		{"cleared", nil, http.StatusOK},
		{"unknown subject", knowledge.ErrUnknownSubject, http.StatusBadRequest},
		{"store failure", errors.New("db locked"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kn := defaultKnowledge()
			kn.delSubErr = tt.delSubErr
			handler := testServer(t, ServerConfig{Knowledge: kn})

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/subjects/maths", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if kn.lastSubject != "maths" {
					t.Errorf("cleared subject = %q, want maths", kn.lastSubject)
				}
				if !strings.Contains(w.Body.String(), `"success":true`) {
					t.Errorf("body = %s, want success", w.Body.String())
				}
			}
		})
	}
}

func TestSubjectDeleteDocument(t *testing.T) {
	tests := []struct {
		name       string
		delErr     error
		wantStatus int
	}{
		{"deleted", nil, http.StatusOK},
		{"unknown subject", knowledge.ErrUnknownSubject, http.StatusBadRequest},
		{"missing document", knowledge.ErrNotFound, http.StatusNotFound},
		{"store failure", errors.New("db locked"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kn := defaultKnowledge()
			kn.delErr = tt.delErr
			handler := testServer(t, ServerConfig{Knowledge: kn})

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/subjects/maths/documents/doc-1", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
