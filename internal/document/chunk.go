package document

import (
	"strings"
	"unicode/utf8"
)

// Chunk splits text into overlapping windows of at most size bytes,
// preferring to cut at a paragraph break and otherwise at the end of
// a sentence. Chunks are trimmed and empty ones dropped.
func Chunk(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			end = breakPoint(text, start, end)
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(text) {
			break
		}
		// Overlap the next window with the tail of this one, unless
		// the break landed so close to start that the window would
		// stop advancing.
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// breakPoint picks where to cut the window text[start:end). A
// paragraph break wins over a sentence break; a sentence cut keeps
// the closing punctuation.
func breakPoint(text string, start, end int) int {
	window := text[start:end]
	if para := strings.LastIndex(window, "\n\n"); para > 0 {
		return start + para
	}

	sentence := strings.LastIndex(window, ". ")
	if p := strings.LastIndex(window, "! "); p > sentence {
		sentence = p
	}
	if p := strings.LastIndex(window, "? "); p > sentence {
		sentence = p
	}
	if sentence > 0 {
		return start + sentence + 1
	}

	// No natural break; back the hard cut off a split rune.
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end == start {
		// Window narrower than the rune at start; emit the whole rune
		// rather than stalling.
		_, n := utf8.DecodeRuneInString(text[start:])
		end = start + n
	}
	return end
}
