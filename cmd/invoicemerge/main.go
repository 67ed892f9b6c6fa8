package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"invoicemerge/internal/config"
	"invoicemerge/internal/connectors"
	"invoicemerge/internal/docsource"
	"invoicemerge/internal/listener"
	"invoicemerge/internal/logger"
	"invoicemerge/internal/pipeline"
	"invoicemerge/internal/server"
	"invoicemerge/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	log := logger.New()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "convert":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "invoice file or directory of invoices")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		out := *output
		if strings.TrimSpace(out) == "" {
			out = filepath.Join(cfg.OutputDir, "invoices_merged.xlsx")
		}

		inputs, err := collectInputs(*input)
		must(err)
		if len(inputs) == 0 {
			must(fmt.Errorf("no supported documents under %s", *input))
		}

		processor := pipeline.NewProcessingService(db, cfg, log)
		batch, err := processor.RunBatch(context.Background(), "cli", inputs, out)
		must(err)
		fmt.Printf("convert done batch=%s documents=%d rows=%d output=%s\n", batch.ID, batch.Documents, batch.LineItems, out)
	case "serve":
		srv := server.New(db, cfg, log)
		fmt.Printf("listening on :%d\n", cfg.ServerPort)
		must(srv.Run())
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", cfg.MailListenerFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := listener.MakeConnector(strings.ToLower(strings.TrimSpace(*provider)), cfg)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batch := fs.Int("batch", cfg.MailListenerBatch, "batch size")
		_ = fs.Parse(os.Args[2:])
		svc := listener.NewService(db, cfg, log)
		processed, err := svc.ProcessPending(context.Background(), *batch)
		must(err)
		fmt.Printf("processed pending mail=%d\n", processed)
	case "mail:listen":
		svc := listener.NewService(db, cfg, log)
		must(svc.Run(context.Background()))
	case "batches:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max batches")
		_ = fs.Parse(os.Args[2:])
		batches, err := db.ListBatches(*limit)
		must(err)
		for _, b := range batches {
			fmt.Printf("%s  %-8s %-8s docs=%d rows=%d %s\n", b.CreatedAt, b.Source, b.Status, b.Documents, b.LineItems, b.OutputPath)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func collectInputs(path string) ([]pipeline.DocumentInput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []pipeline.DocumentInput{{Filename: filepath.Base(path), Path: path}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	inputs := make([]pipeline.DocumentInput, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !docsource.IsSupported(entry.Name()) {
			continue
		}
		inputs = append(inputs, pipeline.DocumentInput{Filename: entry.Name(), Path: filepath.Join(path, entry.Name())})
	}
	return inputs, nil
}

func usage() {
	fmt.Println("usage: invoicemerge <command>")
	fmt.Println("commands:")
	fmt.Println("  convert --input=./invoices [--output=./out/invoices_merged.xlsx]")
	fmt.Println("  serve")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=20")
	fmt.Println("  mail:process [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  batches:list [--limit=20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
