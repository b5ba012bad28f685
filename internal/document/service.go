package document

import (
	"context"
	"log/slog"
	"net/http"
)

// Service bundles the chunking configuration, the outbound HTTP client,
// and the logger, so one value can turn both uploads and links into
// documents.
type Service struct {
	chunkSize int
	overlap   int
	client    *http.Client
	logger    *slog.Logger
}

// NewService creates the ingestion service. A non-positive chunk size falls
// back to the indexing default, an out-of-range overlap to a tenth of the
// size, a nil client to http.DefaultClient, and a nil logger to the default
// logger; pass the hardened client from internal/security when URLs come
// from user input.
func NewService(chunkSize, overlap int, client *http.Client, logger *slog.Logger) *Service {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{chunkSize: chunkSize, overlap: overlap, client: client, logger: logger}
}

// FromPDF extracts and chunks an uploaded PDF.
func (s *Service) FromPDF(subject, filename string, data []byte) (*Document, error) {
	return FromPDF(subject, filename, data, s.chunkSize, s.overlap, s.logger)
}

// FromURL fetches a web article and chunks its readable text.
func (s *Service) FromURL(ctx context.Context, rawURL, subject string) (*Document, error) {
	return FromURL(ctx, s.client, rawURL, subject, s.chunkSize, s.overlap)
}
