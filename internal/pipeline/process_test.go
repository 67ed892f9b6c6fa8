package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"invoicemerge/internal/config"
	"invoicemerge/internal/storage"
)

func invoiceHTML(internalID string, totalAmount float64) string {
	return fmt.Sprintf(`<html><body>
<p>Status: Valid</p>
<p>Submission Date: 2024-01-02</p>
<p>Issuance Date: 2024-01-01</p>
<p>Internal ID: %s</p>
<p>Taxpayer Name: Issuer Co</p>
<p>Recipients</p>
<p>Taxpayer Name: Buyer Co</p>
<p>Total Amount (EGP): %.2f</p>
<table>
<tr><th>Code Name</th><th>Item Code</th><th>Description</th><th>Qty</th><th>Unit Price</th><th>Total</th></tr>
<tr><td>MNOs Services</td><td>%s-1</td><td>Data bundle</td><td>10 / Each</td><td>150.00</td><td>1,500.00</td></tr>
<tr><td>MNOs Services</td><td>%s-2</td><td>Voice minutes</td><td>30 / Each</td><td>50.00</td><td>1,500.00</td></tr>
</table>
</body></html>`, internalID, totalAmount, internalID, internalID)
}

func writeBatchFixtures(t *testing.T) (string, []DocumentInput) {
	t.Helper()
	dir := t.TempDir()

	docs := []struct {
		name   string
		id     string
		amount float64
	}{
		{name: "first.html", id: "INV-1", amount: 100},
		{name: "second.html", id: "INV-2", amount: 250},
	}

	inputs := make([]DocumentInput, 0, len(docs))
	for _, d := range docs {
		path := filepath.Join(dir, d.name)
		if err := os.WriteFile(path, []byte(invoiceHTML(d.id, d.amount)), 0o644); err != nil {
			t.Fatal(err)
		}
		inputs = append(inputs, DocumentInput{Filename: d.name, Path: path})
	}
	return dir, inputs
}

func newTestService(t *testing.T) *ProcessingService {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewProcessingService(db, config.Config{Workers: 2}, zerolog.Nop())
}

func TestProcessBatchEndToEnd(t *testing.T) {
	_, inputs := writeBatchFixtures(t)
	svc := newTestService(t)

	result, err := svc.ProcessBatch(context.Background(), inputs)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Records) != 4 {
		t.Fatalf("rows=%d", len(result.Records))
	}
	if result.LineItems != 4 || result.Summaries != 2 {
		t.Fatalf("counts: %+v", result)
	}

	wantCodes := []string{"INV-1-1", "INV-1-2", "INV-2-1", "INV-2-2"}
	for i, want := range wantCodes {
		if result.Records[i].ItemCode != want {
			t.Fatalf("row %d item %q want %q", i, result.Records[i].ItemCode, want)
		}
	}

	if result.Records[0].Extras != nil || result.Records[2].Extras != nil {
		t.Fatal("non-last rows carry extras")
	}
	if result.Records[1].Extras["TotalAmount"] != 100.0 {
		t.Fatalf("doc 1 extras: %v", result.Records[1].Extras)
	}
	if result.Records[3].Extras["TotalAmount"] != 250.0 {
		t.Fatalf("doc 2 extras: %v", result.Records[3].Extras)
	}

	if result.Records[0].Status != "Valid" || result.Records[0].Issuer != "Issuer Co" || result.Records[0].Recipients != "Buyer Co" {
		t.Fatalf("header fields: %+v", result.Records[0].LineItemRecord)
	}
	if result.Records[0].SourceDocumentID != "first.html" {
		t.Fatalf("source id %q", result.Records[0].SourceDocumentID)
	}
}

func TestProcessBatchIsDeterministic(t *testing.T) {
	_, inputs := writeBatchFixtures(t)
	svc := newTestService(t)

	first, err := svc.ProcessBatch(context.Background(), inputs)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.ProcessBatch(context.Background(), inputs)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Fatal("pipeline output is not deterministic")
	}
}

func TestProcessBatchAbsorbsFailedDocuments(t *testing.T) {
	dir, inputs := writeBatchFixtures(t)
	inputs = append(inputs, DocumentInput{Filename: "missing.pdf", Path: filepath.Join(dir, "missing.pdf")})
	svc := newTestService(t)

	result, err := svc.ProcessBatch(context.Background(), inputs)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 4 {
		t.Fatalf("rows=%d", len(result.Records))
	}
	if !result.Documents[2].Failed {
		t.Fatalf("documents: %+v", result.Documents)
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blank.html")
	if err := os.WriteFile(path, []byte(`<html><body><p>nothing here</p></body></html>`), 0o644); err != nil {
		t.Fatal(err)
	}
	svc := newTestService(t)

	_, err := svc.ProcessBatch(context.Background(), []DocumentInput{{Filename: "blank.html", Path: path}})
	if err != ErrEmptyBatch {
		t.Fatalf("err=%v", err)
	}
}

func TestRunBatchExportsAndRecords(t *testing.T) {
	_, inputs := writeBatchFixtures(t)
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	svc := NewProcessingService(db, config.Config{Workers: 2}, zerolog.Nop())

	out := filepath.Join(t.TempDir(), "invoices_merged.xlsx")
	row, err := svc.RunBatch(context.Background(), "upload", inputs, out)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
	if row.Status != "exported" || row.Documents != 2 || row.LineItems != 4 {
		t.Fatalf("batch row: %+v", row)
	}

	stored, err := db.GetBatch(row.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil || stored.OutputPath != out {
		t.Fatalf("stored: %+v", stored)
	}
	docs, err := db.ListBatchDocuments(row.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].LineItems != 2 {
		t.Fatalf("docs: %+v", docs)
	}
}
