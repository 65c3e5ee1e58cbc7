// Package assemble combines validated and reconciled artifacts into one
// immutable Invoice and classifies the outcome. Candidate selection is a
// pure function; losing candidates stay in diagnostics for audit.
package assemble

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/entity"
	"github.com/admjesusia/fiscaloliv/internal/identifier"
	"github.com/admjesusia/fiscaloliv/internal/reconcile"
)

// invoiceNamespace seeds the deterministic invoice IDs: identical input
// documents produce identical invoices, byte for byte.
var invoiceNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("fiscaloliv/invoice"))

// Config holds thresholds for the assembly stage.
type Config struct {
	WarnConfidence float64 // chosen candidates below this raise a warning, default 0.60
}

type Assembler struct {
	cfg Config
	reg *identifier.Registry
}

func New(cfg Config, reg *identifier.Registry) *Assembler {
	if cfg.WarnConfidence <= 0 {
		cfg.WarnConfidence = 0.60
	}
	if reg == nil {
		reg = identifier.DefaultRegistry()
	}
	return &Assembler{cfg: cfg, reg: reg}
}

// Input is the full set of artifacts for one document.
type Input struct {
	DocumentID         string
	Fields             entity.CandidateSet
	Items              []entity.LineItem
	DocResult          reconcile.DocumentResult
	UnknownZones       []string
	DiscardedRows      []string
	SegmentationFailed bool
}

// Assemble builds the final Invoice. It never returns an error: every
// failure becomes data on the invoice so sibling documents in a batch are
// unaffected.
func (a *Assembler) Assemble(in Input) entity.Invoice {
	inv := entity.Invoice{
		ID:         uuid.NewSHA1(invoiceNamespace, []byte(in.DocumentID)),
		DocumentID: in.DocumentID,
		Items:      in.Items,
		Diag: entity.Diagnostics{
			Candidates:    in.Fields,
			UnknownZones:  in.UnknownZones,
			DiscardedRows: in.DiscardedRows,
		},
	}

	if in.SegmentationFailed {
		inv.Status = constants.InvoiceRejected
		inv.Errors = []entity.Problem{{
			Code:    constants.CodeSegmentationFailed,
			Message: "segmentation failed: no recognizable zone anchors",
		}}
		return inv
	}

	var warnings, fatals []entity.Problem
	minConf := 1.0
	note := func(c entity.CandidateField) {
		if c.Confidence < minConf {
			minConf = c.Confidence
		}
		if c.Confidence < a.cfg.WarnConfidence {
			warnings = append(warnings, entity.Problem{
				Code:    constants.CodeLowConfidence,
				Field:   c.Name,
				Message: fmt.Sprintf("confidence %.2f below threshold %.2f", c.Confidence, a.cfg.WarnConfidence),
				RawText: c.RawText,
			})
		}
	}

	// issuer is required and must pass its checksum
	if c, id, ok := a.selectIdentifier(in.Fields, constants.FieldIssuerID); ok {
		inv.Issuer = id
		note(c)
		if !id.Valid {
			fatals = append(fatals, entity.Problem{
				Code:    constants.CodeIdentifierInvalid,
				Field:   constants.FieldIssuerID,
				Message: fmt.Sprintf("issuer %s failed %s validation", id.Value, id.Kind),
				RawText: id.Raw,
			})
		}
	} else {
		fatals = append(fatals, entity.Problem{
			Code: constants.CodeFieldMissing, Field: constants.FieldIssuerID,
			Message: "no issuer identifier candidates",
		})
	}

	// recipient is optional in jurisdictions with anonymous consumers
	if c, id, ok := a.selectIdentifier(in.Fields, constants.FieldRecipientID); ok {
		inv.Recipient = &id
		note(c)
		if !id.Valid {
			warnings = append(warnings, entity.Problem{
				Code:    constants.CodeIdentifierInvalid,
				Field:   constants.FieldRecipientID,
				Message: fmt.Sprintf("recipient %s failed %s validation", id.Value, id.Kind),
				RawText: id.Raw,
			})
		}
	}

	if c, id, ok := a.selectIdentifier(in.Fields, constants.FieldAccessKey); ok {
		inv.AccessKey = &id
		note(c)
		if !id.Valid {
			warnings = append(warnings, entity.Problem{
				Code:    constants.CodeIdentifierInvalid,
				Field:   constants.FieldAccessKey,
				Message: "access key failed check-digit validation",
				RawText: id.Raw,
			})
		}
	}

	if c, ok := in.Fields.Select(constants.FieldIssueDate); ok {
		if t, err := time.Parse("2006-01-02", c.Value); err == nil {
			inv.IssueDate = t
			note(c)
		} else {
			fatals = append(fatals, entity.Problem{
				Code: constants.CodeFieldMissing, Field: constants.FieldIssueDate,
				Message: "issue date candidate unparseable", RawText: c.RawText,
			})
		}
	} else {
		fatals = append(fatals, entity.Problem{
			Code: constants.CodeFieldMissing, Field: constants.FieldIssueDate,
			Message: "no issue date candidates",
		})
	}

	if c, ok := in.Fields.Select(constants.FieldDocNumber); ok {
		inv.Number = c.Value
		note(c)
	} else {
		fatals = append(fatals, entity.Problem{
			Code: constants.CodeFieldMissing, Field: constants.FieldDocNumber,
			Message: "no document number candidates",
		})
	}
	if c, ok := in.Fields.Select(constants.FieldDocSeries); ok {
		inv.Series = c.Value
		note(c)
	}
	if c, ok := in.Fields.Select(constants.FieldPaymentMethod); ok {
		inv.Payment = c.Value
		note(c)
	}

	if c, ok := in.Fields.Select(constants.FieldItemCount); ok {
		note(c)
		if n, err := strconv.Atoi(c.Value); err == nil && n != len(in.Items) {
			warnings = append(warnings, entity.Problem{
				Code:    constants.CodeItemDiscrepancy,
				Field:   constants.FieldItemCount,
				Message: fmt.Sprintf("document declares %d items, extracted %d", n, len(in.Items)),
				RawText: c.RawText,
			})
		}
	}

	inv.Declared = entity.Totals{
		Subtotal:   a.selectAmount(in.Fields, constants.FieldSubtotal),
		TaxTotal:   a.selectAmount(in.Fields, constants.FieldTaxTotal),
		Discount:   a.selectAmount(in.Fields, constants.FieldDiscountTotal),
		GrandTotal: a.selectAmount(in.Fields, constants.FieldGrandTotal),
	}
	inv.Computed = computedTotals(in.Items, in.DocResult)

	for i, it := range in.Items {
		if it.Confidence < minConf {
			minConf = it.Confidence
		}
		switch it.Status {
		case constants.ReconMinorDiscrepancy, constants.ReconInconsistent:
			warnings = append(warnings, entity.Problem{
				Code:    constants.CodeItemDiscrepancy,
				Field:   fmt.Sprintf("item[%d]", i),
				Message: fmt.Sprintf("subtotal %s differs from expected %s by %s", it.Subtotal, it.Expected, it.Delta),
				RawText: it.RawText,
			})
		}
	}

	switch {
	case in.DocResult.Gross:
		fatals = append(fatals, entity.Problem{
			Code:    constants.CodeTotalGrossMismatch,
			Message: fmt.Sprintf("computed total %s differs grossly from declared %s", in.DocResult.Computed, in.DocResult.Declared.Decimal),
		})
	case in.DocResult.Status != constants.ReconConsistent:
		warnings = append(warnings, entity.Problem{
			Code:    constants.CodeTotalMismatch,
			Message: fmt.Sprintf("computed total %s differs from declared %s by %s", in.DocResult.Computed, in.DocResult.Declared.Decimal, in.DocResult.Delta),
		})
	}

	inv.Confidence = minConf
	inv.Warnings = warnings
	inv.Errors = fatals
	switch {
	case len(fatals) > 0:
		inv.Status = constants.InvoiceRejected
	case len(warnings) > 0:
		inv.Status = constants.InvoiceAcceptedWithWarnings
	default:
		inv.Status = constants.InvoiceAccepted
	}
	return inv
}

// selectIdentifier validates every candidate for the field and picks the
// best one: checksum-valid beats invalid, then confidence, then zone
// specificity. The losing candidates remain in diagnostics.
func (a *Assembler) selectIdentifier(fields entity.CandidateSet, name string) (entity.CandidateField, entity.Identifier, bool) {
	cands := fields[name]
	if len(cands) == 0 {
		return entity.CandidateField{}, entity.Identifier{}, false
	}
	bestIdx := -1
	var bestID entity.Identifier
	for i, c := range cands {
		id := a.reg.Validate(kindFor(name, c.Value), c.Value)
		id.Raw = c.RawText
		if bestIdx < 0 || better(c, id, cands[bestIdx], bestID) {
			bestIdx, bestID = i, id
		}
	}
	return cands[bestIdx], bestID, true
}

func better(c entity.CandidateField, id entity.Identifier, bc entity.CandidateField, bid entity.Identifier) bool {
	if id.Valid != bid.Valid {
		return id.Valid
	}
	if c.Confidence != bc.Confidence {
		return c.Confidence > bc.Confidence
	}
	return c.Zone.Specificity() > bc.Zone.Specificity()
}

// kindFor infers the checksum kind from the field and the digit count:
// recipients may be companies (CNPJ) or natural persons (CPF).
func kindFor(name, value string) string {
	if name == constants.FieldAccessKey {
		return constants.IDKindAccessKey
	}
	if len(value) == 11 {
		return constants.IDKindCPF
	}
	return constants.IDKindCNPJ
}

func (a *Assembler) selectAmount(fields entity.CandidateSet, name string) decimal.NullDecimal {
	c, ok := fields.Select(name)
	if !ok {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(c.Value)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func computedTotals(items []entity.LineItem, doc reconcile.DocumentResult) entity.Totals {
	sub := decimal.Decimal{}
	tax := decimal.Decimal{}
	for _, it := range items {
		sub = sub.Add(it.Subtotal)
		tax = tax.Add(it.Quantity.Mul(it.UnitPrice).Mul(it.TaxRate).Round(2))
	}
	return entity.Totals{
		Subtotal:   decimal.NewNullDecimal(sub),
		TaxTotal:   decimal.NewNullDecimal(tax),
		GrandTotal: decimal.NewNullDecimal(doc.Computed),
	}
}

// MarkDuplicate returns a copy of the invoice flagged as a duplicate of an
// already imported document. A duplicate is never plain Accepted again,
// however clean its extraction; a rejected one stays rejected.
func MarkDuplicate(inv entity.Invoice) entity.Invoice {
	out := inv
	out.Duplicate = true
	out.Warnings = append(append([]entity.Problem(nil), inv.Warnings...), entity.Problem{
		Code:    constants.CodeDuplicateDocument,
		Message: "fingerprint matches a previously imported invoice",
	})
	if out.Status == constants.InvoiceAccepted {
		out.Status = constants.InvoiceAcceptedWithWarnings
	}
	return out
}
