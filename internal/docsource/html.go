package docsource

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"invoicemerge/internal"
)

// ExtractHTML handles invoices exported as HTML. The body text keeps the
// source's whitespace so line-oriented keyword extraction still works; the
// first table supplies the raw rows, header row included.
func ExtractHTML(content []byte) (Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return Extracted{}, err
	}

	text := strings.TrimSpace(doc.Find("body").Text())

	rows := make([]internal.RawTableRow, 0)
	doc.Find("table").First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row internal.RawTableRow
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			value := strings.TrimSpace(cell.Text())
			row = append(row, &value)
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})
	if len(rows) < 2 {
		rows = nil
	}

	return Extracted{Text: text, Rows: rows}, nil
}
