package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/admjesusia/fiscaloliv/constants"
)

// Identifier is a checksum-bearing identifier (tax registration number,
// document access key). Invalid values keep their raw text for audit.
type Identifier struct {
	Kind  string `json:"kind"`
	Raw   string `json:"raw"`
	Value string `json:"value"`
	Valid bool   `json:"valid"`
}

// LineItem is one reconciled invoice row.
type LineItem struct {
	Code        string                `json:"code,omitempty"`
	Description string                `json:"description"`
	Packaging   string                `json:"packaging,omitempty"`
	Unit        string                `json:"unit,omitempty"`
	Quantity    decimal.Decimal       `json:"quantity"`
	UnitPrice   decimal.Decimal       `json:"unit_price"`
	TaxRate     decimal.Decimal       `json:"tax_rate"`
	Discount    decimal.Decimal       `json:"discount"`
	Subtotal    decimal.Decimal       `json:"subtotal"` // as reported on the document
	Expected    decimal.Decimal       `json:"expected"` // qty * price * (1+tax) - discount
	Delta       decimal.Decimal       `json:"delta"`
	Status      constants.ReconStatus `json:"status"`
	Confidence  float64               `json:"confidence"`
	RawText     string                `json:"raw_text"`
}

// Totals carries document-level amounts. Declared values come from the
// Totals zone; absent values stay null rather than defaulting to zero.
type Totals struct {
	Subtotal   decimal.NullDecimal `json:"subtotal"`
	TaxTotal   decimal.NullDecimal `json:"tax_total"`
	Discount   decimal.NullDecimal `json:"discount"`
	GrandTotal decimal.NullDecimal `json:"grand_total"`
}

// Problem describes one warning or fatal error, with the original OCR text
// preserved so a reviewer can correct the field by hand.
type Problem struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	RawText string `json:"raw_text,omitempty"`
}

// Diagnostics holds everything that lost or fell outside the main
// extraction: losing candidates, unsegmentable zones, rows that could not be
// parsed. Nothing in here affects the invoice's values; it exists for audit.
type Diagnostics struct {
	Candidates    CandidateSet `json:"candidates,omitempty"`
	UnknownZones  []string     `json:"unknown_zones,omitempty"`
	DiscardedRows []string     `json:"discarded_rows,omitempty"`
}

// Invoice is the single immutable output of one pipeline run. Corrections
// produce a new Invoice, never an in-place mutation.
type Invoice struct {
	ID         uuid.UUID               `json:"id"`
	DocumentID string                  `json:"document_id"`
	Issuer     Identifier              `json:"issuer"`
	Recipient  *Identifier             `json:"recipient,omitempty"`
	AccessKey  *Identifier             `json:"access_key,omitempty"`
	IssueDate  time.Time               `json:"issue_date"`
	Number     string                  `json:"number"`
	Series     string                  `json:"series,omitempty"`
	Payment    string                  `json:"payment_method,omitempty"`
	Items      []LineItem              `json:"items"`
	Declared   Totals                  `json:"declared_totals"`
	Computed   Totals                  `json:"computed_totals"`
	Status     constants.InvoiceStatus `json:"status"`
	Warnings   []Problem               `json:"warnings,omitempty"`
	Errors     []Problem               `json:"errors,omitempty"`
	Confidence float64                 `json:"confidence"`
	Duplicate  bool                    `json:"duplicate"`
	Diag       Diagnostics             `json:"diagnostics"`
}

// Fingerprint is the deterministic dedup key for an invoice.
type Fingerprint string
