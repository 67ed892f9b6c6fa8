// Package docsource turns uploaded documents into the text and raw table rows
// the extraction pipeline consumes. Table detection is best effort: whatever
// row structure the reader produces is passed through unjudged.
package docsource

import (
	"fmt"
	"os"
	"strings"

	"invoicemerge/internal"
)

type Extracted struct {
	Text string
	Rows []internal.RawTableRow
}

// ExtractFile dispatches on the filename extension.
func ExtractFile(path string) (Extracted, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Extracted{}, err
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return ExtractPDF(blob)
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return ExtractHTML(blob)
	default:
		return Extracted{}, fmt.Errorf("unsupported document type: %s", path)
	}
}

// IsSupported reports whether a filename can be handled by ExtractFile.
func IsSupported(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".pdf") || strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm")
}
