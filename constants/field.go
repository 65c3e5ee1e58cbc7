package constants

// Canonical field names produced by the extractor. Candidates are keyed by
// these names; the assembler picks exactly one canonical candidate per name.
const (
	FieldIssuerID      = "issuer_id"
	FieldRecipientID   = "recipient_id"
	FieldAccessKey     = "access_key"
	FieldIssueDate     = "issue_date"
	FieldDocNumber     = "doc_number"
	FieldDocSeries     = "doc_series"
	FieldSubtotal      = "declared_subtotal"
	FieldTaxTotal      = "declared_tax_total"
	FieldGrandTotal    = "declared_grand_total"
	FieldDiscountTotal = "declared_discount_total"
	FieldItemCount     = "declared_item_count"
	FieldPaymentMethod = "payment_method"
)

// RequiredHeaderFields must resolve to at least one candidate for a document
// to be accepted. Everything else may legitimately be absent.
var RequiredHeaderFields = []string{FieldIssuerID, FieldIssueDate, FieldDocNumber}

// Identifier kinds understood by the checksum registry.
const (
	IDKindCNPJ      = "CNPJ"
	IDKindCPF       = "CPF"
	IDKindAccessKey = "NFE_ACCESS_KEY"
)
