package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"invoicemerge/internal/config"
	"invoicemerge/internal/storage"
)

const sampleInvoiceHTML = `<html><body>
<p>Status: Valid</p>
<p>Submission Date: 2024-01-02</p>
<p>Issuance Date: 2024-01-01</p>
<p>Internal ID: INV-9</p>
<p>Taxpayer Name: Issuer Co</p>
<p>Recipients</p>
<p>Taxpayer Name: Buyer Co</p>
<p>Total Amount (EGP): 77.00</p>
<table>
<tr><th>Code Name</th><th>Item Code</th><th>Description</th><th>Qty</th><th>Unit Price</th><th>Total</th></tr>
<tr><td>MNOs Services</td><td>INV-9-1</td><td>Data bundle</td><td>10 / Each</td><td>7.70</td><td>77.00</td></tr>
</table>
</body></html>`

func newTestRouter(t *testing.T) (*gin.Engine, *storage.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		UploadDir: filepath.Join(dir, "uploads"),
		OutputDir: filepath.Join(dir, "converted"),
		Workers:   2,
	}
	return New(db, cfg, zerolog.Nop()).Router(), db
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("pdf_files", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return body, w.FormDataContentType()
}

func TestConvertReturnsWorkbook(t *testing.T) {
	router, db := newTestRouter(t)

	body, contentType := multipartBody(t, "invoice.html", sampleInvoiceHTML)
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "invoices_merged.xlsx") {
		t.Fatalf("content disposition %q", cd)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("cache control %q", cc)
	}

	batches, err := db.ListBatches(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 1 || batches[0].Status != "exported" {
		t.Fatalf("batches: %+v", batches)
	}
}

func TestConvertRejectsEmptySubmission(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "notes.txt", "not an invoice")
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestConvertEmptyBatch(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "blank.html", "<html><body><p>nothing</p></body></html>")
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestListBatchesAndDownload(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "invoice.html", sampleInvoiceHTML)
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("convert status %d", rec.Code)
	}

	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, httptest.NewRequest(http.MethodGet, "/batches", nil))
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status %d", listRec.Code)
	}
	var payload struct {
		Batches []struct {
			ID string
		}
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Batches) != 1 {
		t.Fatalf("payload: %s", listRec.Body.String())
	}

	dlRec := httptest.NewRecorder()
	router.ServeHTTP(dlRec, httptest.NewRequest(http.MethodGet, "/batches/"+payload.Batches[0].ID+"/download", nil))
	if dlRec.Code != http.StatusOK {
		t.Fatalf("download status %d", dlRec.Code)
	}

	missingRec := httptest.NewRecorder()
	router.ServeHTTP(missingRec, httptest.NewRequest(http.MethodGet, "/batches/nope/download", nil))
	if missingRec.Code != http.StatusNotFound {
		t.Fatalf("missing status %d", missingRec.Code)
	}
}
