package document

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDF pulls plain text out of a PDF, joining pages with blank
// lines. Pages that fail text extraction are skipped with a warning;
// it is an error when no page yields any text (image-only scans,
// protected files).
func ExtractPDF(data []byte, logger *slog.Logger) (_ string, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	// The parser panics on malformed cross-reference tables instead
	// of returning an error.
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	total := reader.NumPage()
	if total == 0 {
		return "", errors.New("pdf has no pages")
	}

	var pages []string
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("failed to extract page text", "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, text)
	}

	if len(pages) == 0 {
		return "", fmt.Errorf("no extractable text in any of %d pages (image-based or protected pdf)", total)
	}

	logger.Debug("extracted pdf text", "pages_with_text", len(pages), "total_pages", total)
	return strings.Join(pages, "\n\n"), nil
}

// FromPDF extracts and chunks an uploaded PDF. The filename becomes
// the document source and its stem the title.
func FromPDF(subject, filename string, data []byte, chunkSize, overlap int, logger *slog.Logger) (*Document, error) {
	text, err := ExtractPDF(data, logger)
	if err != nil {
		return nil, err
	}

	chunks := Chunk(text, chunkSize, overlap)
	if len(chunks) == 0 {
		return nil, errors.New("pdf text produced no chunks")
	}

	title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if title == "" {
		title = filename
	}

	return &Document{
		ID:      NewID(filename),
		Subject: subject,
		Source:  filename,
		Title:   title,
		Chunks:  chunks,
	}, nil
}
