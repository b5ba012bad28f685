package security

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrUnsafeFilename indicates an uploaded file name could not be reduced to
// a safe form.
var ErrUnsafeFilename = errors.New("unsafe filename")

// maxFilenameLen bounds sanitized names; longer names are truncated, not
// rejected, so verbose scanner output like "Chapter 3 - Photosynthesis
// (final) (1).pdf" still works.
const maxFilenameLen = 200

// SanitizeFilename reduces a client-supplied file name to a safe base name
// for storage in document metadata and later echoing in HTTP headers.
//
// The result contains no path separators, no control characters, and no
// leading dots (hidden files, "..").
func SanitizeFilename(name string) (string, error) {
	// Strip any directory component, from both path conventions
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			// unreachable after Base
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimSpace(b.String())
	cleaned = strings.TrimLeft(cleaned, ".")
	if cleaned == "" {
		return "", ErrUnsafeFilename
	}

	if len(cleaned) > maxFilenameLen {
		ext := filepath.Ext(cleaned)
		if len(ext) > 20 {
			ext = ""
		}
		// Trim the stem rune by rune so multibyte names stay valid UTF-8
		stem := []rune(strings.TrimSuffix(cleaned, ext))
		for len(stem) > 0 && len(string(stem))+len(ext) > maxFilenameLen {
			stem = stem[:len(stem)-1]
		}
		cleaned = string(stem) + ext
	}

	return cleaned, nil
}
