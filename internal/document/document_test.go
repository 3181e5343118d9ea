package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fieldops/internal/pricing"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLenientDecimal_CoercesGarbageToZero(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"quantity": 2}`, "2"},
		{`{"quantity": "3.5"}`, "3.5"},
		{`{"quantity": null}`, "0"},
		{`{"quantity": "abc"}`, "0"},
		{`{"quantity": ""}`, "0"},
		{`{}`, "0"},
	}
	for _, tc := range cases {
		var it DraftLineItem
		if err := json.Unmarshal([]byte(tc.in), &it); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.in, err)
		}
		if !it.Quantity.Decimal.Equal(d(tc.want)) {
			t.Fatalf("%s: expected %s, got %s", tc.in, tc.want, it.Quantity.Decimal)
		}
	}
}

func TestDraft_UnknownFieldsDropped(t *testing.T) {
	raw := `{
		"kind": "invoice",
		"legacyField": {"nested": true},
		"lineItems": [{"name": "Callout", "quantity": 1, "unitPrice": 80, "randomExtra": "x"}]
	}`
	var draft Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(draft.LineItems) != 1 || draft.LineItems[0].Name != "Callout" {
		t.Fatalf("unexpected draft: %+v", draft)
	}
}

func TestSanitizeItems_ClampsAndNormalizes(t *testing.T) {
	items := SanitizeItems([]DraftLineItem{
		{Kind: "mystery", Name: "Labour", Quantity: LenientDecimal{d("-2")}, UnitPrice: LenientDecimal{d("45")}},
		{Kind: "textBlock", Name: "Terms note"},
		{Name: "Parts", Quantity: LenientDecimal{d("1")}, UnitPrice: LenientDecimal{d("19.99")},
			Discount: &DraftDiscount{Type: "freebie", Value: LenientDecimal{d("5")}}},
	})

	if items[0].Kind != pricing.ItemCharge {
		t.Fatalf("unknown kind must normalize to charge, got %s", items[0].Kind)
	}
	if !items[0].Quantity.Equal(decimal.Zero) {
		t.Fatalf("negative quantity must clamp to zero, got %s", items[0].Quantity)
	}
	if items[1].Kind != pricing.ItemTextBlock {
		t.Fatalf("textBlock kind must survive, got %s", items[1].Kind)
	}
	if items[2].Discount != nil {
		t.Fatalf("malformed discount must be dropped, got %+v", items[2].Discount)
	}
}

func TestAssemble_PricesAndResolvesDueDate(t *testing.T) {
	issue := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	a := NewAssembler(nil)

	doc := a.Assemble(Draft{
		Kind:        "invoice",
		PaymentTerm: "Net 30",
		IssueDate:   &issue,
		LineItems: []DraftLineItem{
			{Name: "Service call", Quantity: LenientDecimal{d("2")}, UnitPrice: LenientDecimal{d("50")}},
			{Name: "Optional extra", Quantity: LenientDecimal{d("1")}, UnitPrice: LenientDecimal{d("100")}, Optional: true},
		},
		DocumentDiscount: &DraftDiscount{Type: "percent", Value: LenientDecimal{d("10")}},
		TaxRatePercent:   LenientDecimal{d("15")},
	})

	if doc.Kind != KindInvoice {
		t.Fatalf("expected invoice kind, got %s", doc.Kind)
	}
	if !doc.Totals.Total.Equal(d("103.5")) {
		t.Fatalf("expected total 103.5, got %s", doc.Totals.Total)
	}
	if !doc.DueDate.Equal(issue.AddDate(0, 0, 30)) {
		t.Fatalf("expected due date +30d, got %s", doc.DueDate)
	}
	if doc.Number != "" || doc.SequenceValue != 0 {
		t.Fatalf("assemble must not mint a number: %+v", doc)
	}
}

func TestAssemble_DefaultsIssueDateAndKind(t *testing.T) {
	now := time.Date(2026, 7, 15, 13, 45, 0, 0, time.UTC)
	a := NewAssembler(nil, WithClock(func() time.Time { return now }))

	doc := a.Assemble(Draft{PaymentTerm: "bogus term"})
	if doc.Kind != KindInvoice {
		t.Fatalf("expected default kind invoice, got %s", doc.Kind)
	}
	wantIssue := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	if !doc.IssueDate.Equal(wantIssue) {
		t.Fatalf("expected issue date %s, got %s", wantIssue, doc.IssueDate)
	}
	// Unknown term falls back to the issue date.
	if !doc.DueDate.Equal(wantIssue) {
		t.Fatalf("expected due date == issue date, got %s", doc.DueDate)
	}
}

func TestSeriesFor(t *testing.T) {
	cases := map[Kind]string{
		KindInvoice:       "invoice",
		KindQuote:         "quote",
		KindPurchaseOrder: "purchaseOrder",
		KindCreditNote:    "creditNote",
	}
	for kind, series := range cases {
		if got := SeriesFor(kind); got != series {
			t.Fatalf("%s: expected series %s, got %s", kind, series, got)
		}
	}
}
