package extract

import (
	"strings"
	"testing"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/entity"
)

func confFrag(text string, y float64, conf float64) entity.Fragment {
	chars := make([]float64, len(text))
	for i := range chars {
		chars[i] = conf
	}
	return entity.Fragment{Text: text, Y: y, CharConfidences: chars}
}

func headerZone(frags ...entity.Fragment) entity.Zone {
	return entity.Zone{Label: constants.ZoneHeader, Fragments: frags, FirstPage: 1, LastPage: 1}
}

func itemZone(frags ...entity.Fragment) entity.Zone {
	return entity.Zone{Label: constants.ZoneItemTable, Fragments: frags, FirstPage: 1, LastPage: 1}
}

func TestExtractHeaderIdentifiers(t *testing.T) {
	e := New(nil, Config{})
	res := e.Extract([]entity.Zone{headerZone(
		entity.Fragment{Text: "ATACADAO S.A. CNPJ: 11.222.333/0001-81", Y: 0},
		entity.Fragment{Text: "Emissão: 25/01/2023", Y: 10},
		entity.Fragment{Text: "EXTRATO No. 001234 SERIE 001", Y: 20},
	)})

	issuer, ok := res.Fields.Select(constants.FieldIssuerID)
	if !ok || issuer.Value != "11222333000181" {
		t.Errorf("issuer = %+v, ok=%v", issuer, ok)
	}
	date, ok := res.Fields.Select(constants.FieldIssueDate)
	if !ok || date.Value != "2023-01-25" {
		t.Errorf("issue date = %+v, ok=%v", date, ok)
	}
	num, ok := res.Fields.Select(constants.FieldDocNumber)
	if !ok || num.Value != "1234" {
		t.Errorf("doc number = %+v, ok=%v", num, ok)
	}
	series, ok := res.Fields.Select(constants.FieldDocSeries)
	if !ok || series.Value != "1" {
		t.Errorf("doc series = %+v, ok=%v", series, ok)
	}
}

func TestExtractAmbiguousDateKeepsBothCandidates(t *testing.T) {
	e := New(nil, Config{})
	res := e.Extract([]entity.Zone{headerZone(
		entity.Fragment{Text: "Emissão: 03/04/2023", Y: 0},
	)})

	cands := res.Fields[constants.FieldIssueDate]
	if len(cands) != 2 {
		t.Fatalf("ambiguous date produced %d candidates, want 2: %+v", len(cands), cands)
	}
	if cands[0].Confidence != cands[1].Confidence {
		t.Errorf("ambiguous candidates must share confidence: %v vs %v",
			cands[0].Confidence, cands[1].Confidence)
	}
	if cands[0].Value != "2023-04-03" {
		t.Errorf("day-first candidate should come first, got %q", cands[0].Value)
	}
}

func TestExtractItemRowPrimaryPattern(t *testing.T) {
	e := New(nil, Config{})
	res := e.Extract([]entity.Zone{itemZone(
		entity.Fragment{Text: "Codigo Descricao Qtde UN Valor Unit Valor Total", Y: 0},
		entity.Fragment{Text: "0012345 ARROZ TIPO 1 5X1KG 2 UN 10,00 20,00", Y: 10},
	)})

	if len(res.Items) != 1 {
		t.Fatalf("got %d items, want 1 (discarded: %v)", len(res.Items), res.DiscardedRows)
	}
	it := res.Items[0]
	if it.Code != "0012345" || it.Quantity != "2" || it.UnitPrice != "10" || it.Subtotal != "20" {
		t.Errorf("parsed item = %+v", it)
	}
	if it.Unit != "UN" || it.Packaging != "5X1KG" {
		t.Errorf("unit/packaging = %q/%q", it.Unit, it.Packaging)
	}
	if !strings.Contains(it.Description, "ARROZ") {
		t.Errorf("description = %q", it.Description)
	}
}

func TestExtractItemRowFallbackIsDamped(t *testing.T) {
	e := New(nil, Config{Damping: 0.85})

	primary := e.Extract([]entity.Zone{itemZone(
		entity.Fragment{Text: "0012345 FEIJAO CARIOCA 2 UN 10,00 20,00", Y: 0},
	)})
	// No unit column: only the positional fallback can parse this.
	fallback := e.Extract([]entity.Zone{itemZone(
		entity.Fragment{Text: "0012345 FEIJAO CARIOCA 2 10,00 20,00", Y: 0},
	)})

	if len(primary.Items) != 1 || len(fallback.Items) != 1 {
		t.Fatalf("items: primary=%d fallback=%d", len(primary.Items), len(fallback.Items))
	}
	if !(fallback.Items[0].Confidence < primary.Items[0].Confidence) {
		t.Errorf("fallback confidence %v not below primary %v",
			fallback.Items[0].Confidence, primary.Items[0].Confidence)
	}
}

func TestExtractDiscountFoldsIntoPreviousItem(t *testing.T) {
	e := New(nil, Config{})
	res := e.Extract([]entity.Zone{itemZone(
		entity.Fragment{Text: "0012345 FEIJAO CARIOCA 2 UN 10,00 20,00", Y: 0},
		entity.Fragment{Text: "desconto sobre item 2,50", Y: 10},
	)})

	if len(res.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(res.Items))
	}
	if res.Items[0].Discount != "2.5" {
		t.Errorf("discount = %q, want 2.5", res.Items[0].Discount)
	}

	// Some receipts print the discount as a signed amount; the stored
	// discount is the magnitude either way.
	signed := e.Extract([]entity.Zone{itemZone(
		entity.Fragment{Text: "0012345 FEIJAO CARIOCA 2 UN 10,00 20,00", Y: 0},
		entity.Fragment{Text: "desconto sobre item -2,50", Y: 10},
	)})
	if len(signed.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(signed.Items))
	}
	if signed.Items[0].Discount != "2.5" {
		t.Errorf("signed discount = %q, want 2.5", signed.Items[0].Discount)
	}
}

func TestExtractUnparseableRowIsKept(t *testing.T) {
	e := New(nil, Config{})
	res := e.Extract([]entity.Zone{itemZone(
		entity.Fragment{Text: "#### garbled @@ row", Y: 0},
	)})

	if len(res.Items) != 0 {
		t.Fatalf("garbled row parsed as item: %+v", res.Items)
	}
	if len(res.DiscardedRows) != 1 {
		t.Errorf("discarded rows = %v, want the garbled row preserved", res.DiscardedRows)
	}
}

func TestExtractTotals(t *testing.T) {
	e := New(nil, Config{})
	res := e.Extract([]entity.Zone{{
		Label: constants.ZoneTotals,
		Fragments: []entity.Fragment{
			{Text: "Qtde. total de itens 3", Y: 0},
			{Text: "Valor total Rs 120,00", Y: 10},
			{Text: "Desconto total Rs 5,00", Y: 20},
			{Text: "Valor a Pagar Rs 115,00", Y: 30},
		},
	}})

	grand, ok := res.Fields.Select(constants.FieldGrandTotal)
	if !ok || grand.Value != "115" {
		t.Errorf("grand total = %+v, ok=%v", grand, ok)
	}
	sub, ok := res.Fields.Select(constants.FieldSubtotal)
	if !ok || sub.Value != "120" {
		t.Errorf("subtotal = %+v, ok=%v", sub, ok)
	}
	disc, ok := res.Fields.Select(constants.FieldDiscountTotal)
	if !ok || disc.Value != "5" {
		t.Errorf("discount = %+v, ok=%v", disc, ok)
	}
	count, ok := res.Fields.Select(constants.FieldItemCount)
	if !ok || count.Value != "3" {
		t.Errorf("item count = %+v, ok=%v", count, ok)
	}
}

func TestExtractTotalsGrandFallsBackToValorTotal(t *testing.T) {
	e := New(nil, Config{})
	res := e.Extract([]entity.Zone{{
		Label: constants.ZoneTotals,
		Fragments: []entity.Fragment{
			{Text: "Valor total Rs 99,90", Y: 0},
		},
	}})

	grand, ok := res.Fields.Select(constants.FieldGrandTotal)
	if !ok || grand.Value != "99.9" {
		t.Errorf("fallback grand total = %+v, ok=%v", grand, ok)
	}
	primary, _ := res.Fields.Select(constants.FieldSubtotal)
	if !(grand.Confidence < primary.Confidence) {
		t.Errorf("fallback grand candidate must be damped: %v vs %v",
			grand.Confidence, primary.Confidence)
	}
}

func TestExtractFooterPaymentAndRecipient(t *testing.T) {
	e := New(nil, Config{})
	res := e.Extract([]entity.Zone{{
		Label: constants.ZoneFooter,
		Fragments: []entity.Fragment{
			{Text: "FORMA DE PAGAMENTO", Y: 0},
			{Text: "Cartão de Crédito 115,00", Y: 10},
			{Text: "CPF do consumidor: 111.444.777-35", Y: 20},
		},
	}})

	pay, ok := res.Fields.Select(constants.FieldPaymentMethod)
	if !ok || pay.Value != "credit_card" {
		t.Errorf("payment = %+v, ok=%v", pay, ok)
	}
	rcpt, ok := res.Fields.Select(constants.FieldRecipientID)
	if !ok || rcpt.Value != "11144477735" {
		t.Errorf("recipient = %+v, ok=%v", rcpt, ok)
	}
}

func TestConfidenceMonotoneInCharConfidence(t *testing.T) {
	e := New(nil, Config{})

	high := e.Extract([]entity.Zone{itemZone(confFrag("0012345 FEIJAO CARIOCA 2 UN 10,00 20,00", 0, 0.95))})
	low := e.Extract([]entity.Zone{itemZone(confFrag("0012345 FEIJAO CARIOCA 2 UN 10,00 20,00", 0, 0.60))})

	if len(high.Items) != 1 || len(low.Items) != 1 {
		t.Fatalf("items: high=%d low=%d", len(high.Items), len(low.Items))
	}
	if !(low.Items[0].Confidence < high.Items[0].Confidence) {
		t.Errorf("lower char confidence must not raise field confidence: %v vs %v",
			low.Items[0].Confidence, high.Items[0].Confidence)
	}
}

func TestUnknownZonePreserved(t *testing.T) {
	e := New(nil, Config{})
	res := e.Extract([]entity.Zone{{
		Label:     constants.ZoneUnknown,
		Fragments: []entity.Fragment{{Text: "unclassifiable"}},
	}})
	if len(res.UnknownZones) != 1 || res.UnknownZones[0] != "unclassifiable" {
		t.Errorf("unknown zones = %v", res.UnknownZones)
	}
}
