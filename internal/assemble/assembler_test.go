package assemble

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/entity"
	"github.com/admjesusia/fiscaloliv/internal/reconcile"
)

const (
	validCNPJ = "11222333000181"
	validCPF  = "11144477735"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func cand(name, raw, value string, conf float64, zone constants.ZoneLabel) entity.CandidateField {
	return entity.CandidateField{Name: name, RawText: raw, Value: value, Confidence: conf, Zone: zone}
}

func cleanInput(t *testing.T) Input {
	t.Helper()
	fields := entity.CandidateSet{}
	fields.Add(cand(constants.FieldIssuerID, "11.222.333/0001-81", validCNPJ, 0.95, constants.ZoneHeader))
	fields.Add(cand(constants.FieldIssueDate, "03/04/2023", "2023-04-03", 0.92, constants.ZoneHeader))
	fields.Add(cand(constants.FieldDocNumber, "NOTA FISCAL 123", "123", 0.9, constants.ZoneHeader))
	fields.Add(cand(constants.FieldGrandTotal, "30,00", "30", 0.9, constants.ZoneTotals))
	item := entity.LineItem{
		Code: "1001", Description: "ARROZ", Unit: "UN",
		Quantity: dec(t, "3"), UnitPrice: dec(t, "10.00"),
		Subtotal: dec(t, "30.00"), Expected: dec(t, "30.00"),
		Status: constants.ReconConsistent, Confidence: 0.95,
	}
	return Input{
		DocumentID: "doc-1",
		Fields:     fields,
		Items:      []entity.LineItem{item},
		DocResult: reconcile.DocumentResult{
			Computed: dec(t, "30.00"),
			Declared: decimal.NewNullDecimal(dec(t, "30")),
			Status:   constants.ReconConsistent,
		},
	}
}

func TestAssembleAccepted(t *testing.T) {
	a := New(Config{}, nil)
	inv := a.Assemble(cleanInput(t))

	if inv.Status != constants.InvoiceAccepted {
		t.Fatalf("status = %s, errors = %v, warnings = %v", inv.Status, inv.Errors, inv.Warnings)
	}
	if !inv.Issuer.Valid || inv.Issuer.Value != validCNPJ {
		t.Errorf("issuer = %+v", inv.Issuer)
	}
	if inv.Number != "123" || inv.IssueDate.Format("2006-01-02") != "2023-04-03" {
		t.Errorf("number = %q date = %s", inv.Number, inv.IssueDate)
	}
	if !inv.Computed.GrandTotal.Valid || !inv.Computed.GrandTotal.Decimal.Equal(dec(t, "30.00")) {
		t.Errorf("computed grand = %+v", inv.Computed.GrandTotal)
	}
}

func TestAssembleDeterministicID(t *testing.T) {
	a := New(Config{}, nil)
	one := a.Assemble(cleanInput(t))
	two := a.Assemble(cleanInput(t))
	if one.ID != two.ID {
		t.Errorf("same document produced different IDs: %s vs %s", one.ID, two.ID)
	}
	other := cleanInput(t)
	other.DocumentID = "doc-2"
	if a.Assemble(other).ID == one.ID {
		t.Error("distinct documents shared an ID")
	}
}

func TestAssembleSegmentationFailure(t *testing.T) {
	a := New(Config{}, nil)
	inv := a.Assemble(Input{
		DocumentID:         "doc-1",
		UnknownZones:       []string{"zzzz qqqq 9 9 9"},
		SegmentationFailed: true,
	})
	if inv.Status != constants.InvoiceRejected {
		t.Fatalf("status = %s", inv.Status)
	}
	if len(inv.Errors) != 1 || inv.Errors[0].Code != constants.CodeSegmentationFailed {
		t.Errorf("errors = %v", inv.Errors)
	}
	if len(inv.Items) != 0 {
		t.Errorf("rejected invoice carries %d items", len(inv.Items))
	}
	if len(inv.Diag.UnknownZones) != 1 || inv.Diag.UnknownZones[0] != "zzzz qqqq 9 9 9" {
		t.Errorf("diagnostics = %+v, want unsegmentable text retained", inv.Diag)
	}
}

func TestAssembleMissingRequiredField(t *testing.T) {
	a := New(Config{}, nil)
	in := cleanInput(t)
	delete(in.Fields, constants.FieldIssuerID)
	inv := a.Assemble(in)
	if inv.Status != constants.InvoiceRejected {
		t.Fatalf("status = %s", inv.Status)
	}
	if !hasProblem(inv.Errors, constants.CodeFieldMissing, constants.FieldIssuerID) {
		t.Errorf("errors = %v", inv.Errors)
	}
}

func TestAssembleInvalidIssuerRejects(t *testing.T) {
	a := New(Config{}, nil)
	in := cleanInput(t)
	in.Fields[constants.FieldIssuerID] = []entity.CandidateField{
		cand(constants.FieldIssuerID, "11222333000182", "11222333000182", 0.95, constants.ZoneHeader),
	}
	inv := a.Assemble(in)
	if inv.Status != constants.InvoiceRejected {
		t.Fatalf("status = %s", inv.Status)
	}
	if !hasProblem(inv.Errors, constants.CodeIdentifierInvalid, constants.FieldIssuerID) {
		t.Errorf("errors = %v", inv.Errors)
	}
}

func TestAssembleValidCandidateBeatsConfidence(t *testing.T) {
	a := New(Config{}, nil)
	in := cleanInput(t)
	in.Fields[constants.FieldIssuerID] = []entity.CandidateField{
		cand(constants.FieldIssuerID, "11222333000182", "11222333000182", 0.99, constants.ZoneHeader),
		cand(constants.FieldIssuerID, "11222333000181", validCNPJ, 0.80, constants.ZoneHeader),
	}
	inv := a.Assemble(in)
	if inv.Issuer.Value != validCNPJ || !inv.Issuer.Valid {
		t.Errorf("issuer = %+v, want checksum-valid candidate over higher confidence", inv.Issuer)
	}
	if inv.Status == constants.InvoiceRejected {
		t.Errorf("status = %s", inv.Status)
	}
}

func TestAssembleInvalidRecipientWarns(t *testing.T) {
	a := New(Config{}, nil)
	in := cleanInput(t)
	in.Fields.Add(cand(constants.FieldRecipientID, "111.444.777-36", "11144477736", 0.9, constants.ZoneFooter))
	inv := a.Assemble(in)
	if inv.Status != constants.InvoiceAcceptedWithWarnings {
		t.Fatalf("status = %s, errors = %v", inv.Status, inv.Errors)
	}
	if !hasProblem(inv.Warnings, constants.CodeIdentifierInvalid, constants.FieldRecipientID) {
		t.Errorf("warnings = %v", inv.Warnings)
	}
	if inv.Recipient == nil || inv.Recipient.Valid {
		t.Errorf("recipient = %+v", inv.Recipient)
	}
}

func TestAssembleGrossMismatchRejects(t *testing.T) {
	a := New(Config{}, nil)
	in := cleanInput(t)
	in.DocResult = reconcile.DocumentResult{
		Computed: dec(t, "10.00"),
		Declared: decimal.NewNullDecimal(dec(t, "100.00")),
		Delta:    dec(t, "90.00"),
		Status:   constants.ReconInconsistent,
		Gross:    true,
	}
	inv := a.Assemble(in)
	if inv.Status != constants.InvoiceRejected {
		t.Fatalf("status = %s", inv.Status)
	}
	if !hasProblem(inv.Errors, constants.CodeTotalGrossMismatch, "") {
		t.Errorf("errors = %v", inv.Errors)
	}
}

func TestAssembleMinorMismatchWarns(t *testing.T) {
	a := New(Config{}, nil)
	in := cleanInput(t)
	in.DocResult = reconcile.DocumentResult{
		Computed: dec(t, "30.00"),
		Declared: decimal.NewNullDecimal(dec(t, "30.50")),
		Delta:    dec(t, "0.50"),
		Status:   constants.ReconMinorDiscrepancy,
	}
	inv := a.Assemble(in)
	if inv.Status != constants.InvoiceAcceptedWithWarnings {
		t.Fatalf("status = %s, errors = %v", inv.Status, inv.Errors)
	}
	if !hasProblem(inv.Warnings, constants.CodeTotalMismatch, "") {
		t.Errorf("warnings = %v", inv.Warnings)
	}
}

func TestAssembleLowConfidenceWarns(t *testing.T) {
	a := New(Config{}, nil)
	in := cleanInput(t)
	in.Fields[constants.FieldDocNumber] = []entity.CandidateField{
		cand(constants.FieldDocNumber, "123", "123", 0.40, constants.ZoneHeader),
	}
	inv := a.Assemble(in)
	if inv.Status != constants.InvoiceAcceptedWithWarnings {
		t.Fatalf("status = %s", inv.Status)
	}
	if !hasProblem(inv.Warnings, constants.CodeLowConfidence, constants.FieldDocNumber) {
		t.Errorf("warnings = %v", inv.Warnings)
	}
	if inv.Confidence > 0.40 {
		t.Errorf("document confidence = %.2f, want <= weakest field", inv.Confidence)
	}
}

func TestMarkDuplicate(t *testing.T) {
	a := New(Config{}, nil)
	inv := a.Assemble(cleanInput(t))
	dup := MarkDuplicate(inv)

	if !dup.Duplicate || dup.Status != constants.InvoiceAcceptedWithWarnings {
		t.Errorf("dup = %s duplicate=%t", dup.Status, dup.Duplicate)
	}
	if !hasProblem(dup.Warnings, constants.CodeDuplicateDocument, "") {
		t.Errorf("warnings = %v", dup.Warnings)
	}
	if inv.Duplicate || len(inv.Warnings) != 0 {
		t.Error("MarkDuplicate mutated its input")
	}

	rej := a.Assemble(Input{DocumentID: "doc-1", SegmentationFailed: true})
	if got := MarkDuplicate(rej); got.Status != constants.InvoiceRejected {
		t.Errorf("rejected duplicate = %s", got.Status)
	}
}

func TestFingerprint(t *testing.T) {
	a := New(Config{}, nil)
	one := Fingerprint(a.Assemble(cleanInput(t)))
	two := Fingerprint(a.Assemble(cleanInput(t)))
	if one == "" || one != two {
		t.Errorf("fingerprints %q vs %q", one, two)
	}

	in := cleanInput(t)
	in.Fields[constants.FieldDocNumber] = []entity.CandidateField{
		cand(constants.FieldDocNumber, "124", "124", 0.9, constants.ZoneHeader),
	}
	if Fingerprint(a.Assemble(in)) == one {
		t.Error("different document number, same fingerprint")
	}

	if fp := Fingerprint(a.Assemble(Input{DocumentID: "x", SegmentationFailed: true})); fp != "" {
		t.Errorf("fingerprint of rejected empty invoice = %q", fp)
	}
}

func hasProblem(ps []entity.Problem, code, field string) bool {
	for _, p := range ps {
		if p.Code == code && (field == "" || p.Field == field) {
			return true
		}
	}
	return false
}
