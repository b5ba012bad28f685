package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/edumentor/edumentor/internal/document"
	"github.com/edumentor/edumentor/internal/knowledge"
	"github.com/edumentor/edumentor/internal/security"
)

var pdfMagic = []byte("%PDF")

// subjectHandler serves the study material endpoints: uploads, link
// ingestion, raw search, and index management.
type subjectHandler struct {
	knowledge KnowledgeStore
	docs      DocumentIngestor
	maxUpload int64
	logger    *slog.Logger
}

// checkSubject rejects subjects outside the configured list before any
// body is read.
func (h *subjectHandler) checkSubject(w http.ResponseWriter, subject string) bool {
	known := h.knowledge.Subjects()
	if slices.Contains(known, subject) {
		return true
	}
	msg := fmt.Sprintf("subject must be one of: %s", strings.Join(known, ", "))
	WriteError(w, http.StatusBadRequest, "unknown_subject", msg, h.logger)
	return false
}

// upload handles POST /api/v1/subjects/{subject}/documents. It accepts a
// multipart form with a single "file" field holding a PDF.
func (h *subjectHandler) upload(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	if !h.checkSubject(w, subject) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "upload exceeds the size limit", h.logger)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_multipart", "invalid multipart form", h.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing_file", `multipart field "file" is required`, h.logger)
		return
	}
	defer file.Close()

	filename, err := security.SanitizeFilename(header.Filename)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "bad_filename", err.Error(), h.logger)
		return
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		WriteError(w, http.StatusBadRequest, "not_pdf", "only .pdf files are accepted", h.logger)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "read_failed", "failed to read upload", h.logger)
		return
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "empty_file", "uploaded file is empty", h.logger)
		return
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		WriteError(w, http.StatusBadRequest, "not_pdf", "file does not look like a PDF", h.logger)
		return
	}

	doc, err := h.docs.FromPDF(subject, filename, data)
	if err != nil {
		// Extraction failures are a property of the file, not the
		// server. Scanned PDFs have no text layer at all.
		WriteError(w, http.StatusBadRequest, "no_text",
			"could not extract text from the PDF; scanned files need OCR first", h.logger)
		return
	}

	added, err := h.addDocument(w, r, doc)
	if err != nil {
		return
	}

	h.logger.Info("document indexed", "subject", subject, "filename", filename, "chunks", added)
	WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"subject":      subject,
		"filename":     filename,
		"chunks_added": added,
	})
}

// link handles POST /api/v1/subjects/{subject}/links with a JSON body
// {"url": "..."}.
func (h *subjectHandler) link(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	if !h.checkSubject(w, subject) {
		return
	}

	var body struct {
		URL string `json:"url"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxProfileBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDecodeError(w, err, h.logger)
		return
	}
	rawURL := strings.TrimSpace(body.URL)
	if rawURL == "" {
		WriteError(w, http.StatusBadRequest, "missing_url", "url is required", h.logger)
		return
	}

	doc, err := h.docs.FromURL(r.Context(), rawURL, subject)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "fetch_failed", err.Error(), h.logger)
		return
	}

	added, err := h.addDocument(w, r, doc)
	if err != nil {
		return
	}

	h.logger.Info("article indexed", "subject", subject, "url", rawURL, "chunks", added)
	WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"subject":      subject,
		"url":          rawURL,
		"title":        doc.Title,
		"chunks_added": added,
	})
}

// addDocument indexes a prepared document and writes the error response
// itself on failure, so both ingestion paths share the status mapping.
func (h *subjectHandler) addDocument(w http.ResponseWriter, r *http.Request, doc *document.Document) (int, error) {
	added, err := h.knowledge.Add(r.Context(), doc)
	if err != nil {
		if errors.Is(err, knowledge.ErrUnknownSubject) {
			WriteError(w, http.StatusBadRequest, "unknown_subject", err.Error(), h.logger)
		} else {
			h.logger.Error("indexing failed", "doc", doc.ID, "error", err)
			WriteError(w, http.StatusInternalServerError, "index_failed", "failed to index document", h.logger)
		}
		return 0, err
	}
	return added, nil
}

// search handles GET /api/v1/subjects/{subject}/search?q=&k=.
func (h *subjectHandler) search(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteError(w, http.StatusBadRequest, "missing_query", "q is required", h.logger)
		return
	}

	var opts []knowledge.SearchOption
	if raw := r.URL.Query().Get("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil || k < 1 {
			WriteError(w, http.StatusBadRequest, "invalid_k", "k must be a positive integer", h.logger)
			return
		}
		opts = append(opts, knowledge.WithTopK(k))
	}

	matches, err := h.knowledge.Search(r.Context(), subject, query, opts...)
	if err != nil {
		if errors.Is(err, knowledge.ErrUnknownSubject) {
			WriteError(w, http.StatusBadRequest, "unknown_subject", err.Error(), h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "search_failed", "search failed", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"subject": subject,
		"query":   query,
		"matches": matches,
		"count":   len(matches),
	})
}

// stats handles GET /api/v1/subjects/stats.
func (h *subjectHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.knowledge.Stats(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "stats_failed", "failed to collect index stats", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"subjects": stats})
}

// deleteDocument handles DELETE /api/v1/subjects/{subject}/documents/{docID}.
func (h *subjectHandler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	docID := r.PathValue("docID")

	err := h.knowledge.DeleteDocument(r.Context(), subject, docID)
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	case errors.Is(err, knowledge.ErrUnknownSubject):
		WriteError(w, http.StatusBadRequest, "unknown_subject", err.Error(), h.logger)
	case errors.Is(err, knowledge.ErrNotFound):
		WriteError(w, http.StatusNotFound, "document_not_found", "no such document", h.logger)
	default:
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete document", h.logger)
	}
}

// deleteSubject handles DELETE /api/v1/subjects/{subject}, clearing
// every document indexed under the subject.
func (h *subjectHandler) deleteSubject(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")

	err := h.knowledge.DeleteSubject(r.Context(), subject)
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, map[string]any{"success": true, "subject": subject})
	case errors.Is(err, knowledge.ErrUnknownSubject):
		WriteError(w, http.StatusBadRequest, "unknown_subject", err.Error(), h.logger)
	default:
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to clear subject", h.logger)
	}
}
