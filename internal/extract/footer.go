package extract

import (
	"strings"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/entity"
	"github.com/admjesusia/fiscaloliv/internal/normalize"
)

// paymentKinds maps folded footer phrases to canonical payment values.
// Matched in order; first hit wins.
var paymentKinds = []struct{ kw, value string }{
	{"CARTAO DE CREDITO", "credit_card"},
	{"CARTAO DE DEBITO", "debit_card"},
	{"DINHEIRO", "cash"},
	{"PIX", "pix"},
	{"VALE ALIMENTACAO", "food_voucher"},
}

// extractFooter reads the consumer identifier, the access key and the
// payment method. The footer repeats the document number on NFC-e extracts,
// so number/series rules run here too.
func (e *Extractor) extractFooter(z entity.Zone, fields entity.CandidateSet) {
	for _, f := range z.Fragments {
		folded := normalize.Fold(f.Text)
		conf := spanConfidence([]entity.Fragment{f})

		// consumer CPF; the issuer CNPJ repeated inside the access-key
		// caption must not become a recipient candidate
		for _, m := range reCPFPunct.FindAllString(f.Text, -1) {
			value, _ := normalize.Identifier(m)
			fields.Add(entity.CandidateField{
				Name: constants.FieldRecipientID, RawText: f.Text, Value: value, Parsed: true,
				Confidence: conf, Zone: z.Label,
			})
		}
		if m := reAccessKey.FindString(f.Text); m != "" {
			fields.Add(entity.CandidateField{
				Name: constants.FieldAccessKey, RawText: f.Text, Value: reDigitsOut.ReplaceAllString(m, ""), Parsed: true,
				Confidence: conf, Zone: z.Label,
			})
		}

		e.scanDocNumber(f, z.Label, fields)

		for _, pk := range paymentKinds {
			if strings.Contains(folded, pk.kw) {
				fields.Add(entity.CandidateField{
					Name: constants.FieldPaymentMethod, RawText: f.Text, Value: pk.value, Parsed: true,
					Confidence: conf, Zone: z.Label,
				})
				break
			}
		}
	}
}
