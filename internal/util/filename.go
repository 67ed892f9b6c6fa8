package util

import (
	"path/filepath"
	"strings"
)

// SanitizeFilename reduces an uploaded filename to a safe document identifier.
// Path components are dropped and characters that are awkward in file names or
// spreadsheet cells are replaced. Two uploads with the same filename still map
// to the same identifier.
func SanitizeFilename(input string) string {
	base := filepath.Base(strings.TrimSpace(input))
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", "\"", "_", " ", "_")
	out := repl.Replace(base)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
