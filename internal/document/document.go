// Package document assembles fully-priced, numbered documents from drafts.
package document

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fieldops/internal/pricing"
	"fieldops/internal/sequence"
)

type Kind string

const (
	KindQuote         Kind = "quote"
	KindInvoice       Kind = "invoice"
	KindPurchaseOrder Kind = "purchaseOrder"
	KindCreditNote    Kind = "creditNote"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindQuote, KindInvoice, KindPurchaseOrder, KindCreditNote:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown document kind: %s", s)
	}
}

// SeriesFor maps a document kind to its counter series.
func SeriesFor(kind Kind) string {
	switch kind {
	case KindQuote:
		return sequence.SeriesQuote
	case KindPurchaseOrder:
		return sequence.SeriesPurchaseOrder
	case KindCreditNote:
		return sequence.SeriesCreditNote
	default:
		return sequence.SeriesInvoice
	}
}

// Document is a persisted, priced, numbered record.
type Document struct {
	ID               string            `json:"id"`
	Kind             Kind              `json:"kind"`
	Number           string            `json:"number"`
	SequenceValue    int64             `json:"sequenceValue"`
	CustomerRef      string            `json:"customerRef,omitempty"`
	IssueDate        time.Time         `json:"issueDate"`
	DueDate          time.Time         `json:"dueDate"`
	PaymentTerm      string            `json:"paymentTerm,omitempty"`
	LineItems        []pricing.LineItem `json:"lineItems"`
	DocumentDiscount *pricing.Discount `json:"documentDiscount,omitempty"`
	TaxRatePercent   decimal.Decimal   `json:"taxRatePercent"`
	Totals           pricing.Totals    `json:"totals"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// LenientDecimal accepts JSON numbers, quoted numbers, null, and garbage.
// Anything unparseable decodes to zero: drafts pass through UI forms in
// half-edited states and must never inject NaN into the money path.
type LenientDecimal struct {
	decimal.Decimal
}

func (l *LenientDecimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		l.Decimal = decimal.Zero
		return nil
	}
	if data[0] == '"' && len(data) >= 2 {
		data = bytes.TrimSpace(data[1 : len(data)-1])
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		l.Decimal = decimal.Zero
		return nil
	}
	l.Decimal = d
	return nil
}

// Draft is the untrusted shape submitted by collaborators. Unknown JSON
// fields are dropped by typed decoding; numeric fields are coerced via
// LenientDecimal and clamped in Sanitize.
type Draft struct {
	Kind             string          `json:"kind"`
	CustomerRef      string          `json:"customerRef"`
	IssueDate        *time.Time      `json:"issueDate"`
	PaymentTerm      string          `json:"paymentTerm"`
	LineItems        []DraftLineItem `json:"lineItems"`
	DocumentDiscount *DraftDiscount  `json:"documentDiscount"`
	TaxRatePercent   LenientDecimal  `json:"taxRatePercent"`
}

type DraftLineItem struct {
	Kind        string         `json:"kind"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Quantity    LenientDecimal `json:"quantity"`
	UnitPrice   LenientDecimal `json:"unitPrice"`
	UnitCost    LenientDecimal `json:"unitCost"`
	Optional    bool           `json:"optional"`
	Discount    *DraftDiscount `json:"lineDiscount"`
	ServiceDate *time.Time     `json:"serviceDate"`
}

type DraftDiscount struct {
	Type  string         `json:"type"`
	Value LenientDecimal `json:"value"`
}

// SanitizeItems converts draft line items into well-typed pricing input:
// negatives clamp to zero, unknown item kinds become plain charges, and
// malformed discounts are dropped. Everything downstream of this boundary
// can assume validated values.
func SanitizeItems(items []DraftLineItem) []pricing.LineItem {
	out := make([]pricing.LineItem, 0, len(items))
	for _, it := range items {
		kind := pricing.ItemCharge
		if pricing.ItemKind(it.Kind) == pricing.ItemTextBlock {
			kind = pricing.ItemTextBlock
		}
		out = append(out, pricing.LineItem{
			Kind:        kind,
			Name:        it.Name,
			Description: it.Description,
			Quantity:    clampZero(it.Quantity.Decimal),
			UnitPrice:   clampZero(it.UnitPrice.Decimal),
			UnitCost:    clampZero(it.UnitCost.Decimal),
			Optional:    it.Optional,
			Discount:    sanitizeDiscount(it.Discount),
			ServiceDate: it.ServiceDate,
		})
	}
	return out
}

func sanitizeDiscount(d *DraftDiscount) *pricing.Discount {
	if d == nil {
		return nil
	}
	switch pricing.DiscountType(d.Type) {
	case pricing.DiscountAmount, pricing.DiscountPercent:
	default:
		return nil
	}
	return &pricing.Discount{
		Type:  pricing.DiscountType(d.Type),
		Value: clampZero(d.Value.Decimal),
	}
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
