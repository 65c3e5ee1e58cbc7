// Package normalize canonicalizes locale-variable OCR tokens: numbers with
// comma or dot decimal separators, day-first or month-first dates, and
// punctuation-riddled identifiers. Everything here is a pure function of its
// inputs.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/admjesusia/fiscaloliv/internal/common"
)

// Kind declares what a token is expected to be.
type Kind string

const (
	KindNumeric    Kind = "numeric"
	KindDate       Kind = "date"
	KindIdentifier Kind = "identifier"
	KindFreeText   Kind = "free_text"
)

// Error reports that a single token could not be parsed as its expected
// kind. It is local and recoverable: callers emit no candidate for the token
// instead of aborting the document.
type Error struct {
	Kind   Kind
	Input  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("normalize %s %q: %s", e.Kind, e.Input, e.Reason)
}

func (e *Error) Unwrap() error { return common.ErrNormalization }

var (
	reCurrencyPrefix = regexp.MustCompile(`^(?i)(r\$|rs|us\$|\$)\s*`)
	reNonNumeric     = regexp.MustCompile(`[^0-9.,]`)
	reThousandsDots  = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	reThousandsComma = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	reDateToken      = regexp.MustCompile(`^(\d{1,4})[./-](\d{1,2})[./-](\d{1,4})$`)
	reNonAlnum       = regexp.MustCompile(`[^0-9A-Za-z]`)
)

// Number canonicalizes a numeric token to a dot-decimal string without
// thousands separators ("1.234,56" -> "1234.56"). Strings carrying more than
// one decimal separator are rejected.
func Number(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = reCurrencyPrefix.ReplaceAllString(s, "")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return "", &Error{Kind: KindNumeric, Input: raw, Reason: "empty token"}
	}
	if reNonNumeric.MatchString(s) {
		return "", &Error{Kind: KindNumeric, Input: raw, Reason: "non-numeric characters"}
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		// The later separator is the decimal one, the other is thousands.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
		if strings.Count(s, ".") > 1 || strings.Contains(s, ",") {
			return "", &Error{Kind: KindNumeric, Input: raw, Reason: "multiple decimal separators"}
		}
	case commas > 1:
		if !reThousandsComma.MatchString(s) {
			return "", &Error{Kind: KindNumeric, Input: raw, Reason: "multiple decimal separators"}
		}
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1:
		if !reThousandsDots.MatchString(s) {
			return "", &Error{Kind: KindNumeric, Input: raw, Reason: "multiple decimal separators"}
		}
		s = strings.ReplaceAll(s, ".", "")
	case dots == 1 && reThousandsDots.MatchString(s):
		// "1.234" is a thousands group, not a three-place decimal.
		s = strings.ReplaceAll(s, ".", "")
	case commas == 1:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", &Error{Kind: KindNumeric, Input: raw, Reason: err.Error()}
	}
	if neg {
		d = d.Neg()
	}
	return d.String(), nil
}

// Date canonicalizes a date token to ISO form. Day-first and month-first
// orderings are disambiguated by range validity; when both readings are
// valid the result carries both candidates (day-first listed first) instead
// of guessing.
func Date(raw string) ([]string, error) {
	s := strings.TrimSpace(raw)
	m := reDateToken.FindStringSubmatch(s)
	if m == nil {
		return nil, &Error{Kind: KindDate, Input: raw, Reason: "unrecognized date shape"}
	}

	// ISO input: 4-digit leading year.
	if len(m[1]) == 4 {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if iso, ok := validDate(y, mo, d); ok {
			return []string{iso}, nil
		}
		return nil, &Error{Kind: KindDate, Input: raw, Reason: "out-of-range components"}
	}

	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		y += 2000
	}

	var out []string
	if iso, ok := validDate(y, b, a); ok { // day-first
		out = append(out, iso)
	}
	if a != b {
		if iso, ok := validDate(y, a, b); ok { // month-first
			out = append(out, iso)
		}
	}
	if len(out) == 0 {
		return nil, &Error{Kind: KindDate, Input: raw, Reason: "no valid ordering"}
	}
	return out, nil
}

// Identifier strips non-alphanumeric punctuation and uppercases, preserving
// leading zeros ("11.222.333/0001-81" -> "11222333000181").
func Identifier(raw string) (string, error) {
	s := reNonAlnum.ReplaceAllString(raw, "")
	if s == "" {
		return "", &Error{Kind: KindIdentifier, Input: raw, Reason: "no alphanumeric content"}
	}
	return strings.ToUpper(s), nil
}

// validDate checks component ranges by round-tripping through time.Date,
// which silently rolls over e.g. Feb 30.
func validDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1900 || year > 2200 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
