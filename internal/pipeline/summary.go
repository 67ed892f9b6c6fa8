package pipeline

import (
	"strings"

	"invoicemerge/internal"
)

const mnoServicesLiteral = "MNOs Services"

var summaryNormalizer = strings.NewReplacer("|", "", "—", ":", "–", ":")

// NormalizeSummaryText prepares extracted text for summary extraction: table
// border pipes are dropped and em/en dashes become the regular separator.
func NormalizeSummaryText(text string) string {
	return summaryNormalizer.Replace(text)
}

// BuildSummary derives the single per-document summary record. Every field
// falls back to its sentinel, so the record is never empty by construction.
func BuildSummary(text, sourceDocumentID string) internal.DocumentSummaryRecord {
	norm := NormalizeSummaryText(text)
	header := extractHeader(norm)

	return internal.DocumentSummaryRecord{
		Status:               header.Status,
		SubmissionDate:       header.SubmissionDate,
		IssuanceDate:         header.IssuanceDate,
		InternalID:           header.InternalID,
		Issuer:               header.Issuer,
		Recipients:           header.Recipients,
		CodeName:             detectCodeName(norm),
		ItemCode:             ExtractField(norm, "Item Code"),
		Description:          ExtractField(norm, "Description"),
		QuantityUnitType:     ExtractField(norm, "Quantity/ Unit Type"),
		UnitPrice:            ExtractNumericField(norm, "Unit Price"),
		TotalSaleAmount:      ExtractNumericField(norm, "Total Sales Amount"),
		TotalSales:           ExtractNumericField(norm, "Total Sales"),
		TotalDiscount:        ExtractNumericField(norm, "Total discount"),
		TotalItemDiscount:    ExtractNumericField(norm, "Total Items Discount"),
		ValueAddedTax:        ExtractNumericField(norm, "Value added tax"),
		ExtraInvoiceDiscount: ExtractNumericField(norm, "Extra Invoice Discounts"),
		TotalAmount:          ExtractNumericField(norm, "Total Amount"),
		SourceDocumentID:     sourceDocumentID,
	}
}

type headerFields struct {
	Status         string
	SubmissionDate string
	IssuanceDate   string
	InternalID     string
	Issuer         string
	Recipients     string
}

// extractHeader pulls the six header fields shared by line items and the
// summary. The recipient's taxpayer name lives in the section after the last
// "Recipients" heading; the issuer's is the first in the whole text.
func extractHeader(text string) headerFields {
	return headerFields{
		Status:         ExtractField(text, "Status"),
		SubmissionDate: ExtractField(text, "Submission Date"),
		IssuanceDate:   ExtractField(text, "Issuance Date"),
		InternalID:     ExtractField(text, "Internal ID"),
		Issuer:         ExtractField(text, "Taxpayer Name"),
		Recipients:     ExtractField(recipientSection(text), "Taxpayer Name"),
	}
}

func recipientSection(text string) string {
	parts := strings.Split(text, "Recipients")
	return parts[len(parts)-1]
}

func detectCodeName(text string) string {
	if strings.Contains(text, mnoServicesLiteral) {
		return mnoServicesLiteral
	}
	return internal.SentinelText
}
