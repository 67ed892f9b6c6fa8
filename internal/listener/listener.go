package listener

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"invoicemerge/internal"
	"invoicemerge/internal/config"
	"invoicemerge/internal/connectors"
	gmailconnector "invoicemerge/internal/connectors/gmail"
	imapconnector "invoicemerge/internal/connectors/imap"
	"invoicemerge/internal/intake"
	"invoicemerge/internal/pipeline"
	"invoicemerge/internal/storage"
)

// Service polls a mailbox, stores new messages, and converts the ones that
// look like invoice mail into merged workbooks.
type Service struct {
	db  *storage.DB
	cfg config.Config
	log zerolog.Logger
}

func NewService(db *storage.DB, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{db: db, cfg: cfg, log: log}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.RunCycle(ctx); err != nil {
			s.log.Error().Err(err).Msg("listener cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

// RunCycle does one fetch-then-process pass. Exported so the CLI can run a
// single cycle without the polling loop.
func (s *Service) RunCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := MakeConnector(provider, s.cfg)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processed, err := s.ProcessPending(ctx, s.cfg.MailListenerBatch)
	if err != nil {
		return err
	}

	s.log.Info().
		Str("provider", provider).
		Int("fetched", fetchResult.Fetched).
		Int("stored", fetchResult.Stored).
		Int("processed", processed).
		Msg("listener cycle done")
	return nil
}

// ProcessPending walks mail rows in status "fetched" and runs a conversion
// batch for each one that passes invoice detection. Returns how many rows
// ended up processed.
func (s *Service) ProcessPending(ctx context.Context, limit int) (int, error) {
	rows, err := s.db.ListMailByStatus("fetched", limit)
	if err != nil {
		return 0, err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg, s.log)
	processed := 0
	for _, row := range rows {
		select {
		case <-ctx.Done():
			return processed, ctx.Err()
		default:
		}

		status, err := s.processMail(ctx, processor, row)
		if err != nil {
			s.log.Warn().Int("mail", row.ID).Err(err).Msg("mail processing failed")
			status = "failed"
		}
		if status == "processed" {
			processed++
		}
		if err := s.db.UpdateMailStatus(row.ID, status); err != nil {
			return processed, err
		}
	}
	return processed, nil
}

func (s *Service) processMail(ctx context.Context, processor *pipeline.ProcessingService, row internal.InvoiceMailRow) (string, error) {
	raw, err := os.ReadFile(row.RawRef)
	if err != nil {
		return "", err
	}

	destDir := filepath.Join(s.cfg.UploadDir, "mail", fmt.Sprintf("%d", row.ID))
	content, err := intake.ReadMail(raw, destDir)
	if err != nil {
		return "", err
	}

	detect := pipeline.DetectInvoiceMail(row.Subject, content.Text, content.AttachmentNames)
	if !detect.IsInvoice {
		s.log.Debug().Int("mail", row.ID).Float64("score", detect.Score).Msg("mail skipped by detection")
		return "skipped", nil
	}
	if len(content.Documents) == 0 {
		return "empty", nil
	}

	outputPath := filepath.Join(s.cfg.OutputDir, "mail", fmt.Sprintf("%d_invoices_merged.xlsx", row.ID))
	_, err = processor.RunBatch(ctx, "mail", content.Documents, outputPath)
	if errors.Is(err, pipeline.ErrEmptyBatch) {
		return "empty", nil
	}
	if err != nil {
		return "", err
	}
	return "processed", nil
}

// MakeConnector builds the configured mailbox connector.
func MakeConnector(provider string, cfg config.Config) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", provider)
	}
}
