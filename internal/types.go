package internal

// SentinelText is what text extraction returns when a keyword is not found.
const SentinelText = "N/A"

// RawTableRow is one table row as produced by the parsing collaborator.
// Cells are nullable and the length varies per row.
type RawTableRow []*string

// RowFields is the typed mapping of one accepted table row, before the
// document header fields are attached.
type RowFields struct {
	CodeName         string
	ItemCode         string
	Description      string
	QuantityUnitType string
	UnitPrice        float64
	TotalSalesAmount float64
}

type LineItemRecord struct {
	Status           string
	SubmissionDate   string
	IssuanceDate     string
	InternalID       string
	Issuer           string
	Recipients       string
	CodeName         string
	ItemCode         string
	Description      string
	QuantityUnitType string
	UnitPrice        float64
	TotalSalesAmount float64
	SourceDocumentID string
}

// DocumentSummaryRecord carries the same header fields as LineItemRecord plus
// the invoice-level totals. Field declaration order is load-bearing: it fixes
// the column order of the extra fields attached during the merge.
type DocumentSummaryRecord struct {
	Status               string
	SubmissionDate       string
	IssuanceDate         string
	InternalID           string
	Issuer               string
	Recipients           string
	CodeName             string
	ItemCode             string
	Description          string
	QuantityUnitType     string
	UnitPrice            float64
	TotalSaleAmount      float64
	TotalSales           float64
	TotalDiscount        float64
	TotalItemDiscount    float64
	ValueAddedTax        float64
	ExtraInvoiceDiscount float64
	TotalAmount          float64
	SourceDocumentID     string
}

// MergedRecord is a line item with the document-level extra fields attached.
// Extras is nil on every row except the one selected as the document's last
// line item.
type MergedRecord struct {
	LineItemRecord
	Extras map[string]any
}

// BatchRow is one stored conversion batch.
type BatchRow struct {
	ID         string
	Source     string
	Status     string
	OutputPath string
	Documents  int
	LineItems  int
	Summaries  int
	CreatedAt  string
}

// BatchDocumentRow is one document's outcome inside a stored batch.
type BatchDocumentRow struct {
	BatchID          string
	Filename         string
	SourceDocumentID string
	Status           string
	LineItems        int
}

// InvoiceMailRow is one fetched mail message that may carry invoice documents.
type InvoiceMailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
