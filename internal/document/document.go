// Package document turns raw study material (PDF uploads and web
// articles) into chunked documents ready for embedding.
package document

import (
	"crypto/sha256"
	"encoding/hex"
)

// Document is a piece of study material split into chunks.
type Document struct {
	ID      string   `json:"id"`
	Subject string   `json:"subject"`
	Source  string   `json:"source"` // original filename or URL
	Title   string   `json:"title"`
	Chunks  []string `json:"chunks,omitempty"`
}

// NewID derives a stable document ID from the material's source, so
// re-indexing the same file or URL replaces its previous entries
// instead of duplicating them.
func NewID(source string) string {
	hash := sha256.Sum256([]byte(source))
	return "doc_" + hex.EncodeToString(hash[:16])
}
