// Package reconcile cross-checks computed amounts against declared ones.
// All arithmetic is decimal; tolerances are configuration, not constants.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/entity"
)

// Tolerances defines the consistency bands. A value is Consistent within
// max(Absolute, Relative*expected), MinorDiscrepancy within MinorMultiplier
// times that band, Inconsistent beyond it. GrossMultiplier bounds the
// document-level band past which a mismatch is no longer a warning.
type Tolerances struct {
	Absolute        decimal.Decimal
	Relative        decimal.Decimal
	MinorMultiplier decimal.Decimal
	GrossMultiplier decimal.Decimal
}

// DefaultTolerances: one currency cent doubled, half a percent relative,
// illustrative escalation multipliers. Production values are tuned against
// real document samples through configuration.
func DefaultTolerances() Tolerances {
	return Tolerances{
		Absolute:        decimal.NewFromFloat(0.02),
		Relative:        decimal.NewFromFloat(0.005),
		MinorMultiplier: decimal.NewFromInt(5),
		GrossMultiplier: decimal.NewFromInt(10),
	}
}

type Reconciler struct {
	tol Tolerances
}

// New builds a Reconciler. The zero-valued Tolerances struct means "use
// defaults"; any explicitly set field keeps the whole struct as given, so
// Absolute and Relative of zero request exact-match reconciliation.
func New(tol Tolerances) *Reconciler {
	if tol.Absolute.IsZero() && tol.Relative.IsZero() &&
		tol.MinorMultiplier.IsZero() && tol.GrossMultiplier.IsZero() {
		tol = DefaultTolerances()
	}
	return &Reconciler{tol: tol}
}

// band returns the Consistent tolerance for an expected value.
func (r *Reconciler) band(expected decimal.Decimal) decimal.Decimal {
	rel := r.tol.Relative.Mul(expected.Abs())
	if rel.GreaterThan(r.tol.Absolute) {
		return rel
	}
	return r.tol.Absolute
}

// Item fills in the expected subtotal, the delta against the reported one
// and the per-item status. The input is returned updated, not mutated.
func (r *Reconciler) Item(it entity.LineItem) entity.LineItem {
	expected := it.Quantity.Mul(it.UnitPrice).
		Mul(decimal.NewFromInt(1).Add(it.TaxRate)).
		Round(2).
		Sub(it.Discount)
	it.Expected = expected
	it.Delta = it.Subtotal.Sub(expected)

	band := r.band(expected)
	diff := it.Delta.Abs()
	switch {
	case diff.LessThanOrEqual(band):
		it.Status = constants.ReconConsistent
	case diff.LessThanOrEqual(band.Mul(r.tol.MinorMultiplier)):
		it.Status = constants.ReconMinorDiscrepancy
	default:
		it.Status = constants.ReconInconsistent
	}
	return it
}

// DocumentResult is the document-level verdict: the computed sum of item
// subtotals against the declared grand total.
type DocumentResult struct {
	Computed decimal.Decimal
	Declared decimal.NullDecimal
	Delta    decimal.Decimal
	Status   constants.ReconStatus
	// Gross marks a mismatch beyond GrossMultiplier times the tolerance
	// band; such documents are rejected rather than warned about.
	Gross bool
}

// Document sums the reported item subtotals and compares them to the
// declared grand total. A document-level mismatch is reported even when
// every individual item is consistent, which catches missing or duplicated
// rows.
func (r *Reconciler) Document(items []entity.LineItem, declared decimal.NullDecimal) DocumentResult {
	sum := decimal.Decimal{}
	for _, it := range items {
		sum = sum.Add(it.Subtotal)
	}
	res := DocumentResult{Computed: sum, Declared: declared, Status: constants.ReconConsistent}
	if !declared.Valid {
		return res
	}

	res.Delta = sum.Sub(declared.Decimal)
	band := r.band(declared.Decimal)
	diff := res.Delta.Abs()
	switch {
	case diff.LessThanOrEqual(band):
		res.Status = constants.ReconConsistent
	case diff.LessThanOrEqual(band.Mul(r.tol.MinorMultiplier)):
		res.Status = constants.ReconMinorDiscrepancy
	default:
		res.Status = constants.ReconInconsistent
		res.Gross = diff.GreaterThan(band.Mul(r.tol.GrossMultiplier))
	}
	return res
}
