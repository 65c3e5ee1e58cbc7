// Package extract turns segmented zones into typed field candidates. Each
// zone label has its own rule set; everything emitted is a candidate with a
// confidence score, never a final value. Selection happens in assemble.
package extract

import (
	"log/slog"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/entity"
)

// Config holds thresholds and behavior flags for the extraction stage.
type Config struct {
	Damping       float64 // confidence multiplier for fallback patterns, default 0.85
	RowYTolerance float64 // max y distance between fragments on one row, default 4
}

type Extractor struct {
	logger *slog.Logger
	cfg    Config
}

func New(logger *slog.Logger, cfg Config) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Damping <= 0 || cfg.Damping >= 1 {
		cfg.Damping = 0.85
	}
	if cfg.RowYTolerance <= 0 {
		cfg.RowYTolerance = 4
	}
	return &Extractor{logger: logger, cfg: cfg}
}

// ItemCandidate is one parsed item-table row before reconciliation. Numeric
// fields are normalized dot-decimal strings; empty means absent.
type ItemCandidate struct {
	Code        string
	Description string
	Packaging   string
	Unit        string
	Quantity    string
	UnitPrice   string
	Subtotal    string
	TaxRate     string
	Discount    string
	Confidence  float64
	RawText     string
}

// Result carries everything the extractor found, including what it could
// not parse: unknown zones and discarded rows surface in diagnostics.
type Result struct {
	Fields        entity.CandidateSet
	Items         []ItemCandidate
	UnknownZones  []string
	DiscardedRows []string
}

// Extract applies zone-specific rules over the segmented document. Zones of
// type Unknown are preserved in the result, never dropped.
func (e *Extractor) Extract(zones []entity.Zone) Result {
	res := Result{Fields: entity.CandidateSet{}}
	for _, z := range zones {
		switch z.Label {
		case constants.ZoneHeader:
			e.extractHeader(z, res.Fields)
		case constants.ZoneItemTable:
			e.extractItems(z, &res)
		case constants.ZoneTotals:
			e.extractTotals(z, res.Fields)
		case constants.ZoneFooter:
			e.extractFooter(z, res.Fields)
		default:
			res.UnknownZones = append(res.UnknownZones, z.Text())
		}
	}
	e.logger.Debug("extract.done",
		"fields", len(res.Fields), "items", len(res.Items),
		"unknown_zones", len(res.UnknownZones), "discarded_rows", len(res.DiscardedRows),
	)
	return res
}
