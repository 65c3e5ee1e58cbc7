// Package identifier validates checksum-bearing identifiers. Each kind is a
// strategy object registered in a Registry, so new identifier schemes can be
// added without touching the callers.
package identifier

import (
	"strings"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/entity"
	"github.com/admjesusia/fiscaloliv/internal/normalize"
)

// Rule validates one identifier kind. Validate receives digits that already
// passed the length precheck.
type Rule interface {
	Kind() string
	Length() int
	Validate(digits string) bool
}

// Registry maps identifier kinds to their checksum rules. It is immutable
// after construction and safe for concurrent use.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry builds a registry from the given rules.
func NewRegistry(rules ...Rule) *Registry {
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		m[r.Kind()] = r
	}
	return &Registry{rules: m}
}

// DefaultRegistry covers the Brazilian fiscal-note identifiers: CNPJ, CPF
// and the NF-e access key.
func DefaultRegistry() *Registry {
	return NewRegistry(CNPJ{}, CPF{}, AccessKey{})
}

// Validate normalizes raw and runs the kind's checksum. The raw text is
// always retained on the result for audit; a malformed length short-circuits
// to invalid without running the checksum, so a truncated OCR read cannot
// produce a false checksum pass.
func (r *Registry) Validate(kind, raw string) entity.Identifier {
	id := entity.Identifier{Kind: kind, Raw: raw}
	norm, err := normalize.Identifier(raw)
	if err != nil {
		return id
	}
	id.Value = norm

	rule, ok := r.rules[kind]
	if !ok {
		return id
	}
	if len(norm) != rule.Length() || !isDigits(norm) {
		return id
	}
	id.Valid = rule.Validate(norm)
	return id
}

// CNPJ is the 14-digit Brazilian company registration number with two
// trailing mod-11 check digits.
type CNPJ struct{}

func (CNPJ) Kind() string { return constants.IDKindCNPJ }
func (CNPJ) Length() int  { return 14 }

func (CNPJ) Validate(digits string) bool {
	if allSame(digits) {
		return false
	}
	w1 := []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	w2 := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	d1 := mod11Digit(digits[:12], w1)
	d2 := mod11Digit(digits[:13], w2)
	return int(digits[12]-'0') == d1 && int(digits[13]-'0') == d2
}

// CPF is the 11-digit Brazilian natural-person registration number; it
// shows up as the recipient on consumer fiscal notes.
type CPF struct{}

func (CPF) Kind() string { return constants.IDKindCPF }
func (CPF) Length() int  { return 11 }

func (CPF) Validate(digits string) bool {
	if allSame(digits) {
		return false
	}
	w1 := []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	w2 := []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
	d1 := mod11Digit(digits[:9], w1)
	d2 := mod11Digit(digits[:10], w2)
	return int(digits[9]-'0') == d1 && int(digits[10]-'0') == d2
}

// AccessKey is the 44-digit NF-e access key whose final digit is a mod-11
// check over the preceding 43, with weights cycling 2..9 from the right.
type AccessKey struct{}

func (AccessKey) Kind() string { return constants.IDKindAccessKey }
func (AccessKey) Length() int  { return 44 }

func (AccessKey) Validate(digits string) bool {
	body := digits[:43]
	sum := 0
	weight := 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	dv := 11 - sum%11
	if dv >= 10 {
		dv = 0
	}
	return int(digits[43]-'0') == dv
}

// mod11Digit computes one check digit: weighted sum mod 11, remainder below
// 2 maps to 0.
func mod11Digit(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func allSame(s string) bool {
	return strings.Count(s, s[:1]) == len(s)
}
