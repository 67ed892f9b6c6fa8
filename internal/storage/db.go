package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"invoicemerge/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS batches (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  status TEXT NOT NULL,
  outputPath TEXT NOT NULL DEFAULT '',
  documents INTEGER NOT NULL DEFAULT 0,
  lineItems INTEGER NOT NULL DEFAULT 0,
  summaries INTEGER NOT NULL DEFAULT 0,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS batch_documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  batchId TEXT NOT NULL,
  filename TEXT NOT NULL,
  sourceDocId TEXT NOT NULL,
  status TEXT NOT NULL,
  lineItems INTEGER NOT NULL DEFAULT 0,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(batchId) REFERENCES batches(id)
);
CREATE INDEX IF NOT EXISTS idx_batch_documents_batch ON batch_documents(batchId);

CREATE TABLE IF NOT EXISTS invoice_mail (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  batchId TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(batchId) REFERENCES batches(id)
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertBatch(row internal.BatchRow) error {
	_, err := d.conn.Exec(`
INSERT INTO batches (id, source, status, outputPath, documents, lineItems, summaries)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, row.ID, row.Source, row.Status, row.OutputPath, row.Documents, row.LineItems, row.Summaries)
	return err
}

func (d *DB) InsertBatchDocument(row internal.BatchDocumentRow) error {
	_, err := d.conn.Exec(`
INSERT INTO batch_documents (batchId, filename, sourceDocId, status, lineItems)
VALUES (?, ?, ?, ?, ?)
`, row.BatchID, row.Filename, row.SourceDocumentID, row.Status, row.LineItems)
	return err
}

func (d *DB) GetBatch(id string) (*internal.BatchRow, error) {
	var row internal.BatchRow
	err := d.conn.QueryRow(`
SELECT id, source, status, outputPath, documents, lineItems, summaries, createdAt
FROM batches WHERE id = ?
`, id).Scan(&row.ID, &row.Source, &row.Status, &row.OutputPath, &row.Documents, &row.LineItems, &row.Summaries, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListBatches(limit int) ([]internal.BatchRow, error) {
	rows, err := d.conn.Query(`
SELECT id, source, status, outputPath, documents, lineItems, summaries, createdAt
FROM batches ORDER BY createdAt DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.BatchRow
	for rows.Next() {
		var row internal.BatchRow
		if err := rows.Scan(&row.ID, &row.Source, &row.Status, &row.OutputPath, &row.Documents, &row.LineItems, &row.Summaries, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) ListBatchDocuments(batchID string) ([]internal.BatchDocumentRow, error) {
	rows, err := d.conn.Query(`
SELECT batchId, filename, sourceDocId, status, lineItems
FROM batch_documents WHERE batchId = ? ORDER BY id ASC
`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.BatchDocumentRow
	for rows.Next() {
		var row internal.BatchDocumentRow
		if err := rows.Scan(&row.BatchID, &row.Filename, &row.SourceDocumentID, &row.Status, &row.LineItems); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpsertMail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.InvoiceMailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO invoice_mail (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.InvoiceMailRow{}, err
	}

	row, err := d.GetMailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.InvoiceMailRow{}, err
	}
	if row == nil {
		return internal.InvoiceMailRow{}, errors.New("failed to upsert invoice mail")
	}
	return *row, nil
}

func (d *DB) GetMailByProviderMessageID(provider, messageID string) (*internal.InvoiceMailRow, error) {
	var row internal.InvoiceMailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM invoice_mail WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustMailByProviderMessageID(provider, messageID string) (internal.InvoiceMailRow, error) {
	row, err := d.GetMailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.InvoiceMailRow{}, err
	}
	if row == nil {
		return internal.InvoiceMailRow{}, fmt.Errorf("invoice mail not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListMailByStatus(status string, limit int) ([]internal.InvoiceMailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM invoice_mail WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.InvoiceMailRow
	for rows.Next() {
		var row internal.InvoiceMailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateMailStatus(mailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE invoice_mail SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, mailID)
	return err
}

func (d *DB) InsertRun(batchID string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (batchId, timingsJson, countsJson) VALUES (?, ?, ?)`, batchID, string(timingsJSON), string(countsJSON))
	return err
}
