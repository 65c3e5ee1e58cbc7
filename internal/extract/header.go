package extract

import (
	"regexp"
	"strings"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/entity"
	"github.com/admjesusia/fiscaloliv/internal/normalize"
)

var (
	reCNPJPunct = regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`)
	reCNPJBare  = regexp.MustCompile(`\b\d{14}\b`)
	reCPFPunct  = regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`)
	reDateTok   = regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}[./-]\d{2,4}\b`)
	reAccessKey = regexp.MustCompile(`\b\d{4}(?:[ .]?\d{4}){10}\b`)
	reDocNumber = regexp.MustCompile(`(?:NOTA FISCAL|EXTRATO|NFC-E|NF-E)[^0-9]{0,16}(\d{1,10})`)
	reDocNumAlt = regexp.MustCompile(`\bN[O.]{0,2} ?(\d{3,10})\b`)
	reSeries    = regexp.MustCompile(`SERIE[^0-9]{0,6}(\d{1,3})`)
	reDigitsOut = regexp.MustCompile(`[^0-9]`)
)

// extractHeader pulls issuer/recipient identifiers, the issue date and the
// document number/series out of a header zone. The first registration
// number seen is the issuer; later ones are recipient candidates.
func (e *Extractor) extractHeader(z entity.Zone, fields entity.CandidateSet) {
	issuerSeen := false
	for _, f := range z.Fragments {
		issuerSeen = e.scanIdentifiers(f, z.Label, fields, issuerSeen)
		e.scanIssueDate(f, z.Label, fields)
		e.scanDocNumber(f, z.Label, fields)
	}
}

// scanIdentifiers emits CNPJ/CPF/access-key candidates found in one
// fragment. Punctuated shapes are the primary pattern; a bare 14-digit run
// is the fallback and gets damped.
func (e *Extractor) scanIdentifiers(f entity.Fragment, zone constants.ZoneLabel, fields entity.CandidateSet, issuerSeen bool) bool {
	conf := spanConfidence([]entity.Fragment{f})

	if m := reAccessKey.FindString(f.Text); m != "" {
		fields.Add(entity.CandidateField{
			Name:       constants.FieldAccessKey,
			RawText:    f.Text,
			Value:      reDigitsOut.ReplaceAllString(m, ""),
			Parsed:     true,
			Confidence: conf,
			Zone:       zone,
		})
		// Digits inside the access key must not be re-read as a bare CNPJ.
		f.Text = strings.Replace(f.Text, m, "", 1)
	}

	for _, m := range reCNPJPunct.FindAllString(f.Text, -1) {
		name := constants.FieldRecipientID
		if !issuerSeen {
			name = constants.FieldIssuerID
			issuerSeen = true
		}
		value, _ := normalize.Identifier(m)
		fields.Add(entity.CandidateField{
			Name: name, RawText: f.Text, Value: value, Parsed: true,
			Confidence: conf, Zone: zone,
		})
	}
	if !reCNPJPunct.MatchString(f.Text) {
		for _, m := range reCNPJBare.FindAllString(f.Text, -1) {
			name := constants.FieldRecipientID
			if !issuerSeen {
				name = constants.FieldIssuerID
				issuerSeen = true
			}
			fields.Add(entity.CandidateField{
				Name: name, RawText: f.Text, Value: m, Parsed: true,
				Confidence: e.damp(conf), Zone: zone,
			})
		}
	}

	for _, m := range reCPFPunct.FindAllString(f.Text, -1) {
		value, _ := normalize.Identifier(m)
		fields.Add(entity.CandidateField{
			Name: constants.FieldRecipientID, RawText: f.Text, Value: value, Parsed: true,
			Confidence: conf, Zone: zone,
		})
	}
	return issuerSeen
}

// scanIssueDate emits one candidate per valid reading of each date-shaped
// token. An ambiguous token yields both readings at equal confidence rather
// than a guess; tokens without an adjacent emission label are damped.
func (e *Extractor) scanIssueDate(f entity.Fragment, zone constants.ZoneLabel, fields entity.CandidateSet) {
	tokens := reDateTok.FindAllString(f.Text, -1)
	if len(tokens) == 0 {
		return
	}
	conf := spanConfidence([]entity.Fragment{f})
	if !strings.Contains(normalize.Fold(f.Text), "EMISS") {
		conf = e.damp(conf)
	}
	for _, tok := range tokens {
		isos, err := normalize.Date(tok)
		if err != nil {
			continue
		}
		for _, iso := range isos {
			fields.Add(entity.CandidateField{
				Name: constants.FieldIssueDate, RawText: f.Text, Value: iso, Parsed: true,
				Confidence: conf, Zone: zone,
			})
		}
	}
}

// scanDocNumber emits document number and series candidates from
// label-adjacent numeric tokens.
func (e *Extractor) scanDocNumber(f entity.Fragment, zone constants.ZoneLabel, fields entity.CandidateSet) {
	folded := normalize.Fold(f.Text)
	conf := spanConfidence([]entity.Fragment{f})

	if m := reDocNumber.FindStringSubmatch(folded); m != nil {
		fields.Add(entity.CandidateField{
			Name: constants.FieldDocNumber, RawText: f.Text, Value: trimZeros(m[1]), Parsed: true,
			Confidence: conf, Zone: zone,
		})
	} else if m := reDocNumAlt.FindStringSubmatch(folded); m != nil {
		fields.Add(entity.CandidateField{
			Name: constants.FieldDocNumber, RawText: f.Text, Value: trimZeros(m[1]), Parsed: true,
			Confidence: e.damp(conf), Zone: zone,
		})
	}

	if m := reSeries.FindStringSubmatch(folded); m != nil {
		fields.Add(entity.CandidateField{
			Name: constants.FieldDocSeries, RawText: f.Text, Value: trimZeros(m[1]), Parsed: true,
			Confidence: conf, Zone: zone,
		})
	}
}

// trimZeros drops leading zeros from document numbers so "Nº 001234" and
// "1234" fingerprint identically.
func trimZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}
