package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/admjesusia/fiscaloliv/internal/common"
	"github.com/admjesusia/fiscaloliv/internal/ingest"
	"github.com/admjesusia/fiscaloliv/internal/pipeline"
)

// nf-inspect runs the extraction pipeline over a single OCR output file and
// prints the assembled invoice as JSON, diagnostics included. No database.
func main() {
	var (
		file    = flag.String("file", "", "OCR output file to inspect (required)")
		verbose = flag.Bool("v", false, "log pipeline stages to stderr")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	doc, err := ingest.LoadDocument(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := pipeline.New(logger, common.LoadConfig().Pipeline)
	inv, err := p.Run(context.Background(), doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(inv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
