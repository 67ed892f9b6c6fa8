package storage

import (
	"path/filepath"
	"testing"

	"invoicemerge/internal"
)

func TestBatchRoundTrip(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	batch := internal.BatchRow{
		ID:         "batch-1",
		Source:     "upload",
		Status:     "exported",
		OutputPath: "/tmp/out.xlsx",
		Documents:  2,
		LineItems:  4,
		Summaries:  2,
	}
	if err := db.InsertBatch(batch); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertBatchDocument(internal.BatchDocumentRow{
		BatchID: "batch-1", Filename: "a.pdf", SourceDocumentID: "a.pdf", Status: "ok", LineItems: 2,
	}); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetBatch("batch-1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Status != "exported" || got.LineItems != 4 {
		t.Fatalf("batch: %+v", got)
	}

	docs, err := db.ListBatchDocuments("batch-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Filename != "a.pdf" {
		t.Fatalf("docs: %+v", docs)
	}

	listed, err := db.ListBatches(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed: %+v", listed)
	}

	if err := db.InsertRun("batch-1", map[string]float64{"totalMs": 12}, map[string]int{"rows": 4}); err != nil {
		t.Fatal(err)
	}
}

func TestMailUpsert(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	row, err := db.UpsertMail("imap", "<m1@example.com>", "Invoice March", "billing@example.com", "2026-03-01T00:00:00Z", "hash1", "/tmp/m1.eml", "fetched")
	if err != nil {
		t.Fatal(err)
	}
	if row.ID == 0 || row.Status != "fetched" {
		t.Fatalf("row: %+v", row)
	}

	// Upserting the same message must not create a second row.
	again, err := db.UpsertMail("imap", "<m1@example.com>", "Invoice March (resent)", "billing@example.com", "2026-03-01T01:00:00Z", "hash2", "/tmp/m1.eml", "fetched")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != row.ID || again.Subject != "Invoice March (resent)" {
		t.Fatalf("again: %+v", again)
	}

	if err := db.UpdateMailStatus(row.ID, "processed"); err != nil {
		t.Fatal(err)
	}
	pending, err := db.ListMailByStatus("fetched", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending: %+v", pending)
	}
}
