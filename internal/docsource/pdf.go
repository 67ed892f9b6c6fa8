package docsource

import (
	"bytes"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"invoicemerge/internal"
)

// cellGap is the horizontal whitespace, in points, that separates two table
// cells rather than two words of the same cell.
const cellGap = 14.0

// ExtractPDF returns the concatenated page text and a best-effort table per
// page. Rows are rebuilt from horizontal text runs: a run starting far enough
// right of the previous one opens a new cell. A page contributes rows only
// when more than one multi-cell row was found, mirroring the single-table
// assumption of the upstream extractor.
func ExtractPDF(content []byte) (Extracted, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Extracted{}, err
	}

	var text strings.Builder
	rows := make([]internal.RawTableRow, 0)

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		if pageText, err := p.GetPlainText(nil); err == nil && pageText != "" {
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(pageText)
		}

		textRows, err := p.GetTextByRow()
		if err != nil {
			continue
		}
		pageRows := make([]internal.RawTableRow, 0, len(textRows))
		for _, tr := range textRows {
			cells := splitRowCells(tr)
			if len(cells) >= 2 {
				pageRows = append(pageRows, cells)
			}
		}
		if len(pageRows) > 1 {
			rows = append(rows, pageRows...)
		}
	}

	return Extracted{Text: text.String(), Rows: rows}, nil
}

func splitRowCells(row *pdf.Row) internal.RawTableRow {
	var cells internal.RawTableRow
	var current strings.Builder
	lastEnd := 0.0

	flush := func() {
		value := strings.TrimSpace(current.String())
		current.Reset()
		if value == "" {
			cells = append(cells, nil)
			return
		}
		cells = append(cells, &value)
	}

	for _, word := range row.Content {
		if word.S == "" {
			continue
		}
		if current.Len() > 0 {
			gap := word.X - lastEnd
			if gap > cellGap {
				flush()
			} else if gap > 1.0 {
				current.WriteString(" ")
			}
		}
		current.WriteString(word.S)
		lastEnd = word.X + word.W
	}
	if current.Len() > 0 {
		flush()
	}

	return cells
}
