package knowledge

import (
	"fmt"
	"strings"
)

// FormatContext renders search matches as a prompt context block, one
// numbered excerpt per match with its source attached. Returns an
// empty string for no matches so callers can skip the block entirely.
func FormatContext(matches []Match) string {
	if len(matches) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, m := range matches {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] From %s:\n%s", i+1, m.Source, m.Chunk)
	}
	return sb.String()
}
