// Package pipeline wires the extraction stages into one deterministic run
// per document: segment, extract, reconcile, assemble. A run never touches
// shared state, so documents in a batch can be processed concurrently.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/assemble"
	"github.com/admjesusia/fiscaloliv/internal/common"
	"github.com/admjesusia/fiscaloliv/internal/entity"
	"github.com/admjesusia/fiscaloliv/internal/extract"
	"github.com/admjesusia/fiscaloliv/internal/identifier"
	"github.com/admjesusia/fiscaloliv/internal/reconcile"
	"github.com/admjesusia/fiscaloliv/internal/segment"
)

type Pipeline struct {
	logger *slog.Logger
	cfg    common.PipelineConfig
	seg    *segment.Segmenter
	ext    *extract.Extractor
	rec    *reconcile.Reconciler
	asm    *assemble.Assembler
}

type Option func(*Pipeline)

// WithAnchors replaces the default zone anchor keywords, for document
// layouts the built-in vocabulary does not cover.
func WithAnchors(anchors segment.Anchors) Option {
	return func(p *Pipeline) { p.seg = segment.New(anchors) }
}

// WithChecksumRules replaces the default identifier validation registry.
func WithChecksumRules(reg *identifier.Registry) Option {
	return func(p *Pipeline) {
		p.asm = assemble.New(assemble.Config{WarnConfidence: p.cfg.WarningConfidence}, reg)
	}
}

func New(logger *slog.Logger, cfg common.PipelineConfig, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		logger: logger,
		cfg:    cfg,
		seg:    segment.New(nil),
		ext: extract.New(logger, extract.Config{
			Damping:       cfg.FallbackDamping,
			RowYTolerance: cfg.RowYTolerance,
		}),
		rec: reconcile.New(reconcile.Tolerances{
			Absolute:        decimal.NewFromFloat(cfg.AbsoluteTolerance),
			Relative:        decimal.NewFromFloat(cfg.RelativeTolerance),
			MinorMultiplier: decimal.NewFromFloat(cfg.MinorMultiplier),
			GrossMultiplier: decimal.NewFromFloat(cfg.GrossMultiplier),
		}),
		asm: assemble.New(assemble.Config{WarnConfidence: cfg.WarningConfidence}, nil),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run processes one document end to end. Extraction failures become data on
// the returned invoice; the error return is reserved for cancellation.
func (p *Pipeline) Run(ctx context.Context, doc entity.Document) (entity.Invoice, error) {
	ctx = common.WithDocumentID(ctx, doc.ID)
	log := p.logger.With("document_id", doc.ID)

	zones, err := p.seg.Segment(doc)
	if err != nil {
		log.Warn("pipeline.segmentation_failed", "error", err)
		// The segmenter hands back the whole document as Unknown zones;
		// their raw text is all a reviewer has for manual correction.
		unknown := make([]string, 0, len(zones))
		for _, z := range zones {
			unknown = append(unknown, z.Text())
		}
		return p.asm.Assemble(assemble.Input{
			DocumentID:         doc.ID,
			UnknownZones:       unknown,
			SegmentationFailed: true,
		}), nil
	}
	if err := ctx.Err(); err != nil {
		return entity.Invoice{}, err
	}

	res := p.ext.Extract(zones)
	items, discarded := p.reconcileItems(res.Items)
	res.DiscardedRows = append(res.DiscardedRows, discarded...)
	docResult := p.rec.Document(items, declaredGrand(res.Fields))

	if err := ctx.Err(); err != nil {
		return entity.Invoice{}, err
	}

	inv := p.asm.Assemble(assemble.Input{
		DocumentID:    doc.ID,
		Fields:        res.Fields,
		Items:         items,
		DocResult:     docResult,
		UnknownZones:  res.UnknownZones,
		DiscardedRows: res.DiscardedRows,
	})
	log.Info("pipeline.done",
		"status", inv.Status, "items", len(inv.Items),
		"warnings", len(inv.Warnings), "errors", len(inv.Errors),
		"confidence", inv.Confidence,
	)
	return inv, nil
}

// reconcileItems converts raw item candidates to typed line items and runs
// per-item reconciliation. Candidates whose numeric fields do not parse are
// demoted to discarded rows rather than silently dropped.
func (p *Pipeline) reconcileItems(cands []extract.ItemCandidate) ([]entity.LineItem, []string) {
	var items []entity.LineItem
	var discarded []string
	for _, c := range cands {
		it, ok := toLineItem(c)
		if !ok {
			discarded = append(discarded, c.RawText)
			continue
		}
		items = append(items, p.rec.Item(it))
	}
	return items, discarded
}

func toLineItem(c extract.ItemCandidate) (entity.LineItem, bool) {
	qty, err1 := decimal.NewFromString(c.Quantity)
	price, err2 := decimal.NewFromString(c.UnitPrice)
	sub, err3 := decimal.NewFromString(c.Subtotal)
	if err1 != nil || err2 != nil || err3 != nil {
		return entity.LineItem{}, false
	}
	it := entity.LineItem{
		Code:        c.Code,
		Description: c.Description,
		Packaging:   c.Packaging,
		Unit:        c.Unit,
		Quantity:    qty,
		UnitPrice:   price,
		Subtotal:    sub,
		Confidence:  c.Confidence,
		RawText:     c.RawText,
	}
	if c.TaxRate != "" {
		if r, err := decimal.NewFromString(c.TaxRate); err == nil {
			it.TaxRate = r
		}
	}
	if c.Discount != "" {
		if d, err := decimal.NewFromString(c.Discount); err == nil {
			it.Discount = d
		}
	}
	return it, true
}

func declaredGrand(fields entity.CandidateSet) decimal.NullDecimal {
	c, ok := fields.Select(constants.FieldGrandTotal)
	if !ok {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(c.Value)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
