package document

import (
	"strings"
	"testing"

	"github.com/edumentor/edumentor/internal/testutil"
)

func TestNewID(t *testing.T) {
	id := NewID("fractions.pdf")
	if !strings.HasPrefix(id, "doc_") {
		t.Errorf("id = %q, want doc_ prefix", id)
	}
	if len(id) != len("doc_")+32 {
		t.Errorf("id length = %d, want %d", len(id), len("doc_")+32)
	}
	if NewID("fractions.pdf") != id {
		t.Error("same source should produce the same id")
	}
	if NewID("plants.pdf") == id {
		t.Error("different sources should produce different ids")
	}
}

func TestExtractPDFRejectsGarbage(t *testing.T) {
	if _, err := ExtractPDF([]byte("not a pdf at all"), testutil.DiscardLogger()); err == nil {
		t.Error("expected error for non-pdf bytes")
	}
	if _, err := ExtractPDF(nil, testutil.DiscardLogger()); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestExtractPDFRecoversFromMalformedFile(t *testing.T) {
	// A plausible header followed by garbage drives the parser into
	// its panicking code paths; the caller must still get an error.
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Broken\nxref\ngarbage\n%%EOF")
	if _, err := ExtractPDF(data, testutil.DiscardLogger()); err == nil {
		t.Error("expected error for malformed pdf")
	}
}

func TestFromPDFErrors(t *testing.T) {
	if _, err := FromPDF("maths", "notes.pdf", []byte("junk"), 500, 50, testutil.DiscardLogger()); err == nil {
		t.Error("expected error for unparseable upload")
	}
}
