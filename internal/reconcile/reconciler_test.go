package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/entity"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func item(qty, price, tax, reported string) entity.LineItem {
	return entity.LineItem{
		Quantity:  dec(qty),
		UnitPrice: dec(price),
		TaxRate:   dec(tax),
		Subtotal:  dec(reported),
	}
}

func TestItemConsistent(t *testing.T) {
	r := New(DefaultTolerances())
	got := r.Item(item("3", "10.00", "0", "30.00"))
	if got.Status != constants.ReconConsistent {
		t.Errorf("status = %s, want CONSISTENT (delta %s)", got.Status, got.Delta)
	}
	if !got.Expected.Equal(dec("30")) {
		t.Errorf("expected = %s, want 30", got.Expected)
	}
}

func TestItemInconsistentBeyondBothTolerances(t *testing.T) {
	// 3 x 10.00 reported as 31.00: delta 1.00 exceeds
	// max(0.02, 0.005*30)=0.15 and the 5x minor band (0.75).
	r := New(DefaultTolerances())
	got := r.Item(item("3", "10.00", "0", "31.00"))
	if got.Status != constants.ReconInconsistent {
		t.Errorf("status = %s, want INCONSISTENT", got.Status)
	}
	if !got.Delta.Equal(dec("1")) {
		t.Errorf("delta = %s, want 1", got.Delta)
	}
}

func TestItemMinorDiscrepancyBand(t *testing.T) {
	// delta 0.50 is above the 0.15 band but inside the 5x band (0.75).
	r := New(DefaultTolerances())
	got := r.Item(item("3", "10.00", "0", "30.50"))
	if got.Status != constants.ReconMinorDiscrepancy {
		t.Errorf("status = %s, want MINOR_DISCREPANCY", got.Status)
	}
}

func TestItemTaxRateEntersExpected(t *testing.T) {
	r := New(DefaultTolerances())
	got := r.Item(item("2", "10.00", "0.1", "22.00"))
	if got.Status != constants.ReconConsistent {
		t.Errorf("status = %s, want CONSISTENT (expected %s)", got.Status, got.Expected)
	}
}

func TestItemDiscountReducesExpected(t *testing.T) {
	r := New(DefaultTolerances())
	it := item("2", "10.00", "0", "17.50")
	it.Discount = dec("2.50")
	got := r.Item(it)
	if got.Status != constants.ReconConsistent {
		t.Errorf("status = %s, want CONSISTENT (expected %s)", got.Status, got.Expected)
	}
}

func TestDocumentMismatchDespiteConsistentItems(t *testing.T) {
	r := New(DefaultTolerances())
	items := []entity.LineItem{
		r.Item(item("1", "10.00", "0", "10.00")),
		r.Item(item("1", "20.00", "0", "20.00")),
	}
	// Declared total of 40 suggests a missing row.
	res := r.Document(items, decimal.NewNullDecimal(dec("40.00")))
	if res.Status == constants.ReconConsistent {
		t.Error("document-level mismatch not detected")
	}
	if !res.Computed.Equal(dec("30")) {
		t.Errorf("computed = %s, want 30", res.Computed)
	}
}

func TestDocumentGrossMismatch(t *testing.T) {
	r := New(DefaultTolerances())
	items := []entity.LineItem{r.Item(item("1", "10.00", "0", "10.00"))}
	res := r.Document(items, decimal.NewNullDecimal(dec("100.00")))
	if res.Status != constants.ReconInconsistent || !res.Gross {
		t.Errorf("status = %s gross=%v, want INCONSISTENT gross", res.Status, res.Gross)
	}
}

func TestDocumentWithinTolerance(t *testing.T) {
	r := New(DefaultTolerances())
	items := []entity.LineItem{r.Item(item("1", "10.00", "0", "10.01"))}
	res := r.Document(items, decimal.NewNullDecimal(dec("10.00")))
	if res.Status != constants.ReconConsistent {
		t.Errorf("status = %s, want CONSISTENT", res.Status)
	}
}

func TestZeroTolerancesMeanExactMatch(t *testing.T) {
	// Zero Absolute and Relative alongside explicit multipliers is a
	// deliberate exact-match configuration and must not be replaced
	// with defaults.
	r := New(Tolerances{
		MinorMultiplier: decimal.NewFromInt(2),
		GrossMultiplier: decimal.NewFromInt(4),
	})
	got := r.Item(item("3", "10.00", "0", "30.01"))
	if got.Status != constants.ReconInconsistent {
		t.Errorf("one-cent delta with zero band: status = %s, want INCONSISTENT", got.Status)
	}
	got = r.Item(item("3", "10.00", "0", "30.00"))
	if got.Status != constants.ReconConsistent {
		t.Errorf("exact match: status = %s, want CONSISTENT", got.Status)
	}
}

func TestZeroValueTolerancesFallBackToDefaults(t *testing.T) {
	r := New(Tolerances{})
	got := r.Item(item("1", "10.00", "0", "10.01"))
	if got.Status != constants.ReconConsistent {
		t.Errorf("one cent within the default band: status = %s, want CONSISTENT", got.Status)
	}
}

func TestDocumentNoDeclaredTotal(t *testing.T) {
	r := New(DefaultTolerances())
	items := []entity.LineItem{r.Item(item("1", "10.00", "0", "10.00"))}
	res := r.Document(items, decimal.NullDecimal{})
	if res.Status != constants.ReconConsistent {
		t.Errorf("absent declared total must not fail reconciliation, got %s", res.Status)
	}
}
