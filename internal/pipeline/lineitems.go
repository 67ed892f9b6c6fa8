package pipeline

import "invoicemerge/internal"

// BuildLineItems combines the document header fields with each extracted table
// row. Header fields come from the un-normalized text. Zero rows means zero
// line items, which is a legitimate outcome for a document.
func BuildLineItems(text string, rows []internal.RowFields, sourceDocumentID string) []internal.LineItemRecord {
	if len(rows) == 0 {
		return nil
	}

	header := extractHeader(text)
	out := make([]internal.LineItemRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, internal.LineItemRecord{
			Status:           header.Status,
			SubmissionDate:   header.SubmissionDate,
			IssuanceDate:     header.IssuanceDate,
			InternalID:       header.InternalID,
			Issuer:           header.Issuer,
			Recipients:       header.Recipients,
			CodeName:         r.CodeName,
			ItemCode:         r.ItemCode,
			Description:      r.Description,
			QuantityUnitType: r.QuantityUnitType,
			UnitPrice:        r.UnitPrice,
			TotalSalesAmount: r.TotalSalesAmount,
			SourceDocumentID: sourceDocumentID,
		})
	}
	return out
}
