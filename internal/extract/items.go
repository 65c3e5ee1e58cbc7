package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/admjesusia/fiscaloliv/internal/entity"
	"github.com/admjesusia/fiscaloliv/internal/normalize"
)

var (
	reItemPrimary = regexp.MustCompile(`^(\d{4,8}) (.+?) (?:(\d+X\d+[A-Z]*) )?(\d+(?:[.,]\d+)?) ([A-Z]{1,4}) (\d{1,3}(?:\.\d{3})*,\d{2}|\d+\.\d{2}) (\d{1,3}(?:\.\d{3})*,\d{2}|\d+\.\d{2})$`)
	reTaxRateTok  = regexp.MustCompile(`(\d+(?:[.,]\d+)?)%`)
	reAllDigits   = regexp.MustCompile(`^\d+$`)
)

// row is one visual line of the item table: the fragments whose y positions
// coincide within tolerance, ordered left to right.
type row struct {
	frags []entity.Fragment
	text  string
}

// groupRows clusters zone fragments into visual rows by y position and
// orders cells within a row by x. OCR sometimes emits one fragment per
// column and sometimes a single merged fragment per line; both come out as
// one row here.
func groupRows(frags []entity.Fragment, yTol float64) []row {
	var rows []row
	var cur []entity.Fragment
	for _, f := range frags {
		if len(cur) > 0 && abs(f.Y-cur[0].Y) > yTol {
			rows = append(rows, makeRow(cur))
			cur = nil
		}
		cur = append(cur, f)
	}
	if len(cur) > 0 {
		rows = append(rows, makeRow(cur))
	}
	return rows
}

func makeRow(frags []entity.Fragment) row {
	cells := make([]entity.Fragment, len(frags))
	copy(cells, frags)
	sort.SliceStable(cells, func(i, j int) bool { return cells[i].X < cells[j].X })
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c.Text
	}
	return row{frags: cells, text: strings.Join(parts, " ")}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// extractItems emits one ItemCandidate per parsed table row. Column-header
// rows are skipped, per-item discount lines fold into the owning item, and
// rows nothing could parse are kept in diagnostics instead of vanishing.
func (e *Extractor) extractItems(z entity.Zone, res *Result) {
	for _, r := range groupRows(z.Fragments, e.cfg.RowYTolerance) {
		// collapse runs of whitespace so the columnar regex sees one shape
		folded := strings.Join(strings.Fields(normalize.Fold(r.text)), " ")

		if strings.Contains(folded, "CODIGO") && strings.Contains(folded, "DESCRICAO") {
			continue
		}
		if strings.Contains(folded, "DESCONTO SOBRE ITEM") {
			e.applyDiscount(folded, res)
			continue
		}

		item, ok := e.parseItemRow(r, folded)
		if !ok {
			res.DiscardedRows = append(res.DiscardedRows, r.text)
			continue
		}
		res.Items = append(res.Items, item)
	}
}

// applyDiscount folds a "desconto sobre item" line into the previous item.
// A discount with no preceding item is unparseable context and is dropped
// into discarded rows by the caller's next pass; here we just ignore it.
func (e *Extractor) applyDiscount(folded string, res *Result) {
	if len(res.Items) == 0 {
		res.DiscardedRows = append(res.DiscardedRows, folded)
		return
	}
	toks := strings.Fields(folded)
	for i := len(toks) - 1; i >= 0; i-- {
		amount, err := normalize.Number(toks[i])
		if err != nil {
			continue
		}
		// Receipts print discounts either way, "2,50" or "-2,50"; the
		// magnitude is what reduces the item subtotal.
		add, err := decimal.NewFromString(amount)
		if err != nil {
			continue
		}
		add = add.Abs()
		last := &res.Items[len(res.Items)-1]
		if last.Discount == "" {
			last.Discount = add.String()
			return
		}
		if prev, err := decimal.NewFromString(last.Discount); err == nil {
			last.Discount = prev.Add(add).String()
		}
		return
	}
}

// parseItemRow tries, in order: the primary columnar regex over the folded
// row text, an x-position cell mapping when OCR kept the columns apart, and
// finally a damped positional token split for merged-column reads.
func (e *Extractor) parseItemRow(r row, folded string) (ItemCandidate, bool) {
	conf := spanConfidence(r.frags)

	if m := reItemPrimary.FindStringSubmatch(folded); m != nil {
		qty, err1 := normalize.Number(m[4])
		price, err2 := normalize.Number(m[6])
		total, err3 := normalize.Number(m[7])
		if err1 == nil && err2 == nil && err3 == nil {
			return ItemCandidate{
				Code:        m[1],
				Description: strings.TrimSpace(m[2]),
				Packaging:   m[3],
				Unit:        m[5],
				Quantity:    qty,
				UnitPrice:   price,
				Subtotal:    total,
				TaxRate:     e.taxRate(folded),
				Confidence:  conf,
				RawText:     r.text,
			}, true
		}
	}

	if len(r.frags) >= 5 {
		cells := make([]string, len(r.frags))
		for i, f := range r.frags {
			cells[i] = normalize.Fold(f.Text)
		}
		if item, ok := e.parsePositional(cells, r.text, folded, conf); ok {
			return item, true
		}
	}

	return e.parsePositional(strings.Fields(folded), r.text, folded, e.damp(conf))
}

// parsePositional maps tokens to columns by position: subtotal last, unit
// price before it, quantity before that, description in the middle, item
// code first when it is all digits.
func (e *Extractor) parsePositional(toks []string, raw, folded string, conf float64) (ItemCandidate, bool) {
	if len(toks) < 5 {
		return ItemCandidate{}, false
	}
	total, err3 := normalize.Number(toks[len(toks)-1])
	price, err2 := normalize.Number(toks[len(toks)-2])
	qty, err1 := normalize.Number(toks[len(toks)-3])
	if err1 != nil || err2 != nil || err3 != nil {
		return ItemCandidate{}, false
	}

	code := ""
	descStart := 0
	if reAllDigits.MatchString(toks[0]) {
		code = toks[0]
		descStart = 1
	}
	desc := strings.Join(toks[descStart:len(toks)-3], " ")
	if strings.TrimSpace(desc) == "" {
		return ItemCandidate{}, false
	}
	return ItemCandidate{
		Code:        code,
		Description: desc,
		Quantity:    qty,
		UnitPrice:   price,
		Subtotal:    total,
		TaxRate:     e.taxRate(folded),
		Confidence:  conf,
		RawText:     raw,
	}, true
}

// taxRate reads an inline percentage when the layout prints one; consumer
// notes usually do not, and the rate defaults to zero.
func (e *Extractor) taxRate(folded string) string {
	m := reTaxRateTok.FindStringSubmatch(folded)
	if m == nil {
		return "0"
	}
	pct, err := normalize.Number(m[1])
	if err != nil {
		return "0"
	}
	d, err := decimal.NewFromString(pct)
	if err != nil {
		return "0"
	}
	return d.Div(decimal.NewFromInt(100)).String()
}
