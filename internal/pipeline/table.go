package pipeline

import (
	"strings"

	"invoicemerge/internal"
	"invoicemerge/internal/util"
)

var headerMarkers = []string{"code", "item", "description"}

// ExtractTableRows filters the collaborator's raw rows down to line-item field
// mappings. Header rows and rows with fewer than six cells are skipped; a bad
// row never aborts the document. Page-then-row order is preserved.
func ExtractTableRows(rows []internal.RawTableRow) []internal.RowFields {
	out := make([]internal.RowFields, 0, len(rows))
	for _, row := range rows {
		if isHeaderRow(row) {
			continue
		}
		if len(row) < 6 {
			continue
		}
		out = append(out, mapRow(row))
	}
	return out
}

// isHeaderRow reports whether any of the first three cells looks like a column
// heading rather than data.
func isHeaderRow(row internal.RawTableRow) bool {
	limit := len(row)
	if limit > 3 {
		limit = 3
	}
	for i := 0; i < limit; i++ {
		if row[i] == nil {
			continue
		}
		cell := strings.ToLower(*row[i])
		for _, marker := range headerMarkers {
			if strings.Contains(cell, marker) {
				return true
			}
		}
	}
	return false
}

func mapRow(row internal.RawTableRow) internal.RowFields {
	return internal.RowFields{
		CodeName:         cellText(row, 0),
		ItemCode:         cellText(row, 1),
		Description:      cellText(row, 2),
		QuantityUnitType: strings.TrimSpace(strings.SplitN(cellText(row, 3), "/", 2)[0]),
		UnitPrice:        util.CleanNumeric(row[4]),
		TotalSalesAmount: util.CleanNumeric(row[5]),
	}
}

func cellText(row internal.RawTableRow, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	return strings.TrimSpace(*row[idx])
}
