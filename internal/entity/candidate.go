package entity

import (
	"sort"

	"github.com/admjesusia/fiscaloliv/constants"
)

// CandidateField is one possible reading of a named field. Several
// candidates may exist for the same name (e.g. two plausible OCR readings);
// selection happens later and losers are kept for audit.
type CandidateField struct {
	Name       string              `json:"name"`
	RawText    string              `json:"raw_text"`
	Value      string              `json:"value,omitempty"`
	Parsed     bool                `json:"parsed"`
	Confidence float64             `json:"confidence"`
	Zone       constants.ZoneLabel `json:"zone"`
}

// CandidateSet collects candidates per field name. The map itself is only
// ever appended to during extraction; readers iterate via Names for
// deterministic order.
type CandidateSet map[string][]CandidateField

// Add appends a candidate under its field name.
func (s CandidateSet) Add(c CandidateField) {
	s[c.Name] = append(s[c.Name], c)
}

// Names returns the field names present in the set, sorted.
func (s CandidateSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Select returns the canonical candidate for a field name: highest
// confidence wins, ties prefer the more specific zone label, remaining ties
// keep extraction order. The second return is false when the set holds no
// candidate for the name.
func (s CandidateSet) Select(name string) (CandidateField, bool) {
	cands := s[name]
	if len(cands) == 0 {
		return CandidateField{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Confidence > best.Confidence {
			best = c
			continue
		}
		if c.Confidence == best.Confidence && c.Zone.Specificity() > best.Zone.Specificity() {
			best = c
		}
	}
	return best, true
}
