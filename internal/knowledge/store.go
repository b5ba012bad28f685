// Package knowledge indexes chunked study material per subject and
// serves cosine nearest-neighbor search over sqlite-vec tables.
package knowledge

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/edumentor/edumentor/internal/document"
)

var (
	// ErrUnknownSubject indicates a subject nothing was configured for.
	ErrUnknownSubject = errors.New("unknown subject")

	// ErrNotFound indicates the document is not in the subject's index.
	ErrNotFound = errors.New("document not found")
)

// searchTimeout bounds a single embed-plus-query round trip.
const searchTimeout = 10 * time.Second

// Store manages one metadata table (documents_<subject>) and one
// sqlite-vec virtual table (documents_vec_<subject>) per subject,
// linked by rowid.
//
// Store is safe for concurrent use.
type Store struct {
	db       *sql.DB
	embedder ai.Embedder
	subjects map[string]struct{}
	ordered  []string
	logger   *slog.Logger
}

// NewStore creates the per-subject tables and returns a ready store.
// Vector tables are created here rather than in migrations because
// the embedding dimensionality comes from configuration. Subject
// names reach the DDL only after config validation (lowercase ASCII
// letters) and the per-call membership checks below.
func NewStore(db *sql.DB, embedder ai.Embedder, subjects []string, dims int, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if len(subjects) == 0 {
		return nil, errors.New("at least one subject is required")
	}
	if dims <= 0 {
		return nil, fmt.Errorf("invalid embedding dimensions: %d", dims)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		db:       db,
		embedder: embedder,
		subjects: make(map[string]struct{}, len(subjects)),
		ordered:  make([]string, 0, len(subjects)),
		logger:   logger,
	}

	for _, subject := range subjects {
		if _, dup := s.subjects[subject]; dup {
			continue
		}
		if err := s.createTables(subject, dims); err != nil {
			return nil, fmt.Errorf("create tables for subject %q: %w", subject, err)
		}
		s.subjects[subject] = struct{}{}
		s.ordered = append(s.ordered, subject)
	}

	return s, nil
}

func (s *Store) createTables(subject string, dims int) error {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents_%s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, subject),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_documents_%s_doc ON documents_%s(doc_id)`, subject, subject),
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS documents_vec_%s USING vec0(embedding float[%d])`, subject, dims),
	}
	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Add indexes a chunked document under its subject, replacing any
// rows left from a previous upload of the same source. Returns the
// number of chunks indexed.
func (s *Store) Add(ctx context.Context, doc *document.Document) (int, error) {
	if doc == nil || len(doc.Chunks) == 0 {
		return 0, errors.New("document has no chunks")
	}
	if _, ok := s.subjects[doc.Subject]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSubject, doc.Subject)
	}

	// Embed before opening the transaction; provider calls are slow.
	// All chunks go out in a single request.
	embeddings, err := s.embedBatch(ctx, doc.Chunks)
	if err != nil {
		return 0, fmt.Errorf("embed %d chunks: %w", len(doc.Chunks), err)
	}
	vectors := make([][]byte, len(embeddings))
	for i, vec := range embeddings {
		blob, err := serializeVector(vec)
		if err != nil {
			return 0, err
		}
		vectors[i] = blob
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	meta := "documents_" + doc.Subject
	vecTable := "documents_vec_" + doc.Subject

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE rowid IN (SELECT id FROM %s WHERE doc_id = ?)", vecTable, meta),
		doc.ID,
	); err != nil {
		return 0, fmt.Errorf("clear previous vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE doc_id = ?", meta),
		doc.ID,
	); err != nil {
		return 0, fmt.Errorf("clear previous chunks: %w", err)
	}

	for i, chunk := range doc.Chunks {
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (doc_id, title, source, chunk_index, content) VALUES (?, ?, ?, ?, ?)", meta),
			doc.ID, doc.Title, doc.Source, i, chunk,
		)
		if err != nil {
			return 0, fmt.Errorf("insert chunk %d: %w", i, err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("chunk %d rowid: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (rowid, embedding) VALUES (?, ?)", vecTable),
			rowID, vectors[i],
		); err != nil {
			return 0, fmt.Errorf("insert vector %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("indexed document",
		"subject", doc.Subject,
		"doc_id", doc.ID,
		"source", doc.Source,
		"chunks", len(doc.Chunks))
	return len(doc.Chunks), nil
}

// Search embeds the query and returns the closest chunks in the
// subject's index, best match first. An empty index yields an empty
// result, not an error.
func (s *Store) Search(ctx context.Context, subject, query string, opts ...SearchOption) ([]Match, error) {
	if _, ok := s.subjects[subject]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, subject)
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}

	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	vec, err := s.embed(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	blob, err := serializeVector(vec)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(queryCtx, fmt.Sprintf(`
		SELECT m.doc_id, m.title, m.source, m.chunk_index, m.content,
		       vec_distance_cosine(v.embedding, ?) AS distance
		FROM documents_vec_%s v
		JOIN documents_%s m ON m.id = v.rowid
		ORDER BY distance ASC
		LIMIT ?`, subject, subject),
		blob, cfg.topK,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m        Match
			distance float64
		)
		if err := rows.Scan(&m.DocID, &m.Title, &m.Source, &m.ChunkIndex, &m.Chunk, &distance); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Similarity = 1 - distance
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}

	return matches, nil
}

// Stats reports index sizes per subject, in configuration order.
func (s *Store) Stats(ctx context.Context) ([]SubjectStats, error) {
	stats := make([]SubjectStats, 0, len(s.ordered))
	for _, subject := range s.ordered {
		st := SubjectStats{Subject: subject}

		row := s.db.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT COUNT(*), COUNT(DISTINCT doc_id) FROM documents_%s", subject))
		if err := row.Scan(&st.Chunks, &st.Documents); err != nil {
			return nil, fmt.Errorf("count subject %q: %w", subject, err)
		}

		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
			"SELECT DISTINCT source FROM documents_%s ORDER BY source", subject))
		if err != nil {
			return nil, fmt.Errorf("list sources for %q: %w", subject, err)
		}
		for rows.Next() {
			var source string
			if err := rows.Scan(&source); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan source: %w", err)
			}
			st.Sources = append(st.Sources, source)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate sources: %w", err)
		}
		rows.Close()

		stats = append(stats, st)
	}
	return stats, nil
}

// DeleteDocument removes one document's chunks from a subject index.
func (s *Store) DeleteDocument(ctx context.Context, subject, docID string) error {
	if _, ok := s.subjects[subject]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSubject, subject)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	meta := "documents_" + subject
	vecTable := "documents_vec_" + subject

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE rowid IN (SELECT id FROM %s WHERE doc_id = ?)", vecTable, meta),
		docID,
	); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE doc_id = ?", meta),
		docID,
	)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q in subject %q", ErrNotFound, docID, subject)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("deleted document", "subject", subject, "doc_id", docID, "chunks", affected)
	return nil
}

// DeleteSubject clears every document indexed under a subject.
func (s *Store) DeleteSubject(ctx context.Context, subject string) error {
	if _, ok := s.subjects[subject]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSubject, subject)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents_vec_"+subject); err != nil {
		return fmt.Errorf("clear vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents_"+subject); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("cleared subject index", "subject", subject)
	return nil
}

// Subjects returns the configured subjects in order.
func (s *Store) Subjects() []string {
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// embedBatch embeds all texts in one provider round trip.
func (s *Store) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(text, nil)
	}
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	vecs := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, errors.New("embedder returned an empty embedding")
		}
		vecs[i] = emb.Embedding
	}
	return vecs, nil
}

// serializeVector encodes a float32 vector in the little-endian blob
// format sqlite-vec expects.
func serializeVector(vec []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("serialize vector: %w", err)
	}
	return buf.Bytes(), nil
}
