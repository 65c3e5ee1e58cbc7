package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/assemble"
	"github.com/admjesusia/fiscaloliv/internal/async"
	"github.com/admjesusia/fiscaloliv/internal/common"
	"github.com/admjesusia/fiscaloliv/internal/export"
	"github.com/admjesusia/fiscaloliv/internal/ingest"
	"github.com/admjesusia/fiscaloliv/internal/pipeline"
	repo "github.com/admjesusia/fiscaloliv/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		dir     = flag.String("dir", "", "directory of OCR output files to process (required)")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		dsn     = flag.String("dsn", "", "invoice store DSN (overrides FISCAL_DB_DSN)")
		workers = flag.Int("workers", 4, "concurrent documents")
	)
	flag.Parse()

	// Validate required flags
	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	// If output file not specified, use parent directory with default filename
	if *out == "" {
		parentDir := filepath.Dir(*dir)
		*out = filepath.Join(parentDir, "invoices.xlsx")
	}

	// .env is optional; environment variables win
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Load configuration
	cfg := common.LoadConfig()
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize the invoice store
	db, err := repo.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if err := repo.Migrate(ctx, db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	invoices := repo.NewInvoiceRepository(db, logger)

	p := pipeline.New(logger, cfg.Pipeline)
	batchID := uuid.NewString()

	paths, err := ingest.ListDocuments(*dir)
	if err != nil {
		logger.Error("failed to list documents", "dir", *dir, "error", err)
		os.Exit(1)
	}
	logger.Info("starting batch", "batch_id", batchID, "dir", *dir, "documents", len(paths))

	// Pipeline runs are independent; the fingerprint lookup and save are
	// serialized so duplicate detection sees every earlier document.
	var (
		mu         sync.Mutex
		processed  int
		duplicates int
		rejected   int
		failures   int
	)
	handler := func(ctx context.Context, job async.Job) {
		doc, err := ingest.LoadDocument(job.Path)
		if err != nil {
			logger.Error("failed to load document", "path", job.Path, "error", err)
			mu.Lock()
			failures++
			mu.Unlock()
			return
		}

		inv, err := p.Run(ctx, doc)
		if err != nil {
			logger.Error("pipeline run failed", "path", job.Path, "error", err)
			mu.Lock()
			failures++
			mu.Unlock()
			return
		}

		fp := assemble.Fingerprint(inv)

		mu.Lock()
		defer mu.Unlock()
		if _, err := invoices.FindByFingerprint(ctx, fp); err == nil {
			inv = assemble.MarkDuplicate(inv)
			duplicates++
		} else if !errors.Is(err, common.ErrNotFound) {
			logger.Error("fingerprint lookup failed", "path", job.Path, "error", err)
			failures++
			return
		}
		if err := invoices.SaveInvoice(ctx, inv, fp); err != nil {
			logger.Error("failed to save invoice", "path", job.Path, "error", err)
			failures++
			return
		}
		processed++
		if inv.Status == constants.InvoiceRejected {
			rejected++
		}
	}

	queue := async.NewDocumentQueue(handler, logger, async.WithWorkers(*workers))
	for _, path := range paths {
		_ = queue.Enqueue(ctx, async.Job{Path: path, BatchID: batchID, SubmittedAt: time.Now()})
	}
	queue.Shutdown(ctx)

	// Export to XLSX
	logger.Info("exporting to XLSX", "output", *out)
	exportService := export.NewService(invoices, logger)

	xlsxBytes, err := exportService.ExportInvoicesXLSX(ctx)
	if err != nil {
		logger.Error("failed to export invoices", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	// Log summary
	logger.Info("batch processing complete",
		"batch_id", batchID,
		"documents", len(paths),
		"processed", processed,
		"duplicates", duplicates,
		"rejected", rejected,
		"failures", failures,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents found: %d\n", len(paths))
	fmt.Printf("- Processed: %d\n", processed)
	fmt.Printf("- Duplicates: %d\n", duplicates)
	fmt.Printf("- Rejected: %d\n", rejected)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Output: %s\n", *out)
}
