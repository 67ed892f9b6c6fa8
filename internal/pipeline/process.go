package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"invoicemerge/internal"
	"invoicemerge/internal/config"
	"invoicemerge/internal/docsource"
	"invoicemerge/internal/storage"
	"invoicemerge/internal/util"
)

// ErrEmptyBatch is returned when a batch yields no line items or no summaries
// at all; no workbook is produced in that case.
var ErrEmptyBatch = errors.New("no data could be extracted from the submitted documents")

type DocumentInput struct {
	Filename string
	Path     string
}

type DocumentResult struct {
	Input            DocumentInput
	SourceDocumentID string
	Failed           bool
	LineItems        []internal.LineItemRecord
	Summary          *internal.DocumentSummaryRecord
}

type BatchResult struct {
	Records   []internal.MergedRecord
	Documents []DocumentResult
	LineItems int
	Summaries int
}

type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
	log zerolog.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, log zerolog.Logger) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg, log: log}
}

// ProcessBatch extracts every document concurrently, joins the per-document
// results back into submission order, and runs the cross-document merge.
// Document-level failures are absorbed: a failed document simply contributes
// nothing. Only the batch-level empty result is an error.
func (s *ProcessingService) ProcessBatch(ctx context.Context, inputs []DocumentInput) (BatchResult, error) {
	results := make([]DocumentResult, len(inputs))

	workers := s.cfg.Workers
	if workers > len(inputs) {
		workers = len(inputs)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = s.processDocument(inputs[idx])
			}
		}()
	}

dispatch:
	for i := range inputs {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	batch := BatchResult{Documents: results}
	items := make([]internal.LineItemRecord, 0)
	summaries := make([]internal.DocumentSummaryRecord, 0)
	for _, res := range results {
		items = append(items, res.LineItems...)
		if res.Summary != nil {
			summaries = append(summaries, *res.Summary)
		}
	}
	batch.LineItems = len(items)
	batch.Summaries = len(summaries)

	if len(items) == 0 || len(summaries) == 0 {
		return batch, ErrEmptyBatch
	}

	batch.Records = MergeRecords(items, summaries)
	return batch, nil
}

func (s *ProcessingService) processDocument(in DocumentInput) DocumentResult {
	id := util.SanitizeFilename(in.Filename)
	res := DocumentResult{Input: in, SourceDocumentID: id}

	doc, err := docsource.ExtractFile(in.Path)
	if err != nil {
		s.log.Warn().Str("file", in.Filename).Err(err).Msg("document extraction failed")
		res.Failed = true
		return res
	}

	rows := ExtractTableRows(doc.Rows)
	res.LineItems = BuildLineItems(doc.Text, rows, id)
	if len(res.LineItems) == 0 {
		s.log.Warn().Str("file", in.Filename).Msg("no line items extracted")
	}
	summary := BuildSummary(doc.Text, id)
	res.Summary = &summary
	return res
}

// RunBatch processes the documents, writes the merged workbook, and records
// the batch in storage. On ErrEmptyBatch the batch is still recorded, with no
// output file.
func (s *ProcessingService) RunBatch(ctx context.Context, source string, inputs []DocumentInput, outputPath string) (internal.BatchRow, error) {
	start := time.Now()
	batchID := uuid.NewString()

	result, procErr := s.ProcessBatch(ctx, inputs)
	if procErr == nil {
		if err := ExportMergedToXLSX(result.Records, outputPath); err != nil {
			return internal.BatchRow{}, err
		}
	}

	status := "exported"
	if procErr != nil {
		status = "empty"
		outputPath = ""
	}

	row := internal.BatchRow{
		ID:         batchID,
		Source:     source,
		Status:     status,
		OutputPath: outputPath,
		Documents:  len(inputs),
		LineItems:  result.LineItems,
		Summaries:  result.Summaries,
	}
	if err := s.db.InsertBatch(row); err != nil {
		return internal.BatchRow{}, err
	}
	for _, doc := range result.Documents {
		docStatus := "ok"
		if doc.Failed {
			docStatus = "failed"
		}
		if err := s.db.InsertBatchDocument(internal.BatchDocumentRow{
			BatchID:          batchID,
			Filename:         doc.Input.Filename,
			SourceDocumentID: doc.SourceDocumentID,
			Status:           docStatus,
			LineItems:        len(doc.LineItems),
		}); err != nil {
			return internal.BatchRow{}, err
		}
	}
	_ = s.db.InsertRun(batchID,
		map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
		map[string]int{"documents": len(inputs), "lineItems": result.LineItems, "summaries": result.Summaries, "rows": len(result.Records)})

	s.log.Info().
		Str("batch", batchID).
		Str("source", source).
		Int("documents", len(inputs)).
		Int("rows", len(result.Records)).
		Str("status", status).
		Msg("batch finished")

	return row, procErr
}
