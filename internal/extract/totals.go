package extract

import (
	"strings"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/entity"
	"github.com/admjesusia/fiscaloliv/internal/normalize"
)

// totalsRule binds a folded label keyword to the field its trailing number
// declares. Rules are matched in order, so "VALOR A PAGAR" must come before
// the looser "VALOR TOTAL".
type totalsRule struct {
	label string
	field string
	// grandFallback also emits a damped grand-total candidate: receipts
	// without an explicit "a pagar" line declare the payable amount on the
	// "valor total" line.
	grandFallback bool
}

var totalsRules = []totalsRule{
	{label: "QTDE TOTAL DE ITENS", field: constants.FieldItemCount},
	{label: "VALOR A PAGAR", field: constants.FieldGrandTotal},
	{label: "TOTAL A PAGAR", field: constants.FieldGrandTotal},
	{label: "DESCONTO", field: constants.FieldDiscountTotal},
	{label: "TRIBUTOS", field: constants.FieldTaxTotal},
	{label: "VALOR TOTAL", field: constants.FieldSubtotal, grandFallback: true},
}

// extractTotals reads declared document-level amounts from label-adjacent
// numeric tokens in the totals zone.
func (e *Extractor) extractTotals(z entity.Zone, fields entity.CandidateSet) {
	for _, r := range groupRows(z.Fragments, e.cfg.RowYTolerance) {
		rowKey := labelKey(r.text)
		conf := spanConfidence(r.frags)

		for _, rule := range totalsRules {
			idx := strings.Index(rowKey, rule.label)
			if idx < 0 {
				continue
			}
			value, ok := firstNumber(rowKey[idx+len(rule.label):])
			if !ok {
				break
			}
			fields.Add(entity.CandidateField{
				Name: rule.field, RawText: r.text, Value: value, Parsed: true,
				Confidence: conf, Zone: z.Label,
			})
			if rule.grandFallback {
				fields.Add(entity.CandidateField{
					Name: constants.FieldGrandTotal, RawText: r.text, Value: value, Parsed: true,
					Confidence: e.damp(conf), Zone: z.Label,
				})
			}
			break
		}
	}
}

// labelKey folds a row and trims punctuation off non-numeric tokens, so
// "Qtde. total de itens 3" matches "QTDE TOTAL DE ITENS" while "20,00"
// stays parseable.
func labelKey(text string) string {
	toks := strings.Fields(normalize.Fold(text))
	for i, t := range toks {
		if !strings.ContainsAny(t, "0123456789") {
			toks[i] = strings.Trim(t, ".,:;()")
		}
	}
	return strings.Join(toks, " ")
}

// firstNumber returns the first token after a label that normalizes as a
// number.
func firstNumber(after string) (string, bool) {
	for _, t := range strings.Fields(after) {
		if n, err := normalize.Number(t); err == nil {
			return n, true
		}
	}
	return "", false
}
