package constants

// InvoiceStatus is the terminal classification of one processed document.
type InvoiceStatus string

// Stable values (store these exact strings in DB).
const (
	InvoiceAccepted             InvoiceStatus = "ACCEPTED"
	InvoiceAcceptedWithWarnings InvoiceStatus = "ACCEPTED_WITH_WARNINGS"
	InvoiceRejected             InvoiceStatus = "REJECTED"
)

// ReconStatus is the consistency verdict for a line item or a whole document.
type ReconStatus string

const (
	ReconConsistent       ReconStatus = "CONSISTENT"
	ReconMinorDiscrepancy ReconStatus = "MINOR_DISCREPANCY"
	ReconInconsistent     ReconStatus = "INCONSISTENT"
)

// Problem codes attached to invoice warnings and fatal errors.
const (
	CodeSegmentationFailed = "SEGMENTATION_FAILED"
	CodeFieldMissing       = "FIELD_MISSING"
	CodeIdentifierInvalid  = "IDENTIFIER_INVALID"
	CodeTotalMismatch      = "TOTAL_MISMATCH"
	CodeTotalGrossMismatch = "TOTAL_GROSS_MISMATCH"
	CodeItemDiscrepancy    = "ITEM_DISCREPANCY"
	CodeLowConfidence      = "LOW_CONFIDENCE"
	CodeDuplicateDocument  = "DUPLICATE_DOCUMENT"
)
