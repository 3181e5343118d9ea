package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemKind string

const (
	ItemCharge    ItemKind = "charge"
	ItemTextBlock ItemKind = "textBlock"
)

type DiscountType string

const (
	DiscountAmount  DiscountType = "amount"
	DiscountPercent DiscountType = "percent"
)

// Discount is either a flat amount or a percentage of the base it applies to.
type Discount struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

type LineItem struct {
	Kind        ItemKind        `json:"kind"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	UnitCost    decimal.Decimal `json:"unitCost"`
	Optional    bool            `json:"optional,omitempty"`
	Discount    *Discount       `json:"discount,omitempty"`
	ServiceDate *time.Time      `json:"serviceDate,omitempty"`
}

// Input is what Compute prices: the line items plus the document-level
// discount and tax rate. Callers pass drafts freely; Compute never fails.
type Input struct {
	LineItems        []LineItem
	DocumentDiscount *Discount
	TaxRatePercent   decimal.Decimal
}

type Totals struct {
	SubtotalBeforeDiscount decimal.Decimal `json:"subtotalBeforeDiscount"`
	LineDiscountTotal      decimal.Decimal `json:"lineDiscountTotal"`
	DocumentDiscountAmount decimal.Decimal `json:"documentDiscountAmount"`
	TaxAmount              decimal.Decimal `json:"taxAmount"`
	Total                  decimal.Decimal `json:"total"`

	// Display-only: what the document would have cost with all discounts
	// zeroed, and how much the discounts saved.
	OriginalTotal decimal.Decimal `json:"originalTotal"`
	TotalSavings  decimal.Decimal `json:"totalSavings"`
}

const moneyScale = 2

var hundred = decimal.NewFromInt(100)

// Compute prices a document. Pure and idempotent; safe on partial drafts.
//
// Rules:
// - textBlock and optional lines contribute nothing to any total.
// - Line discounts apply per line subtotal; the document discount applies to
//   the subtotal after line discounts.
// - Every subtraction is clamped at zero so discounts can never push a
//   document negative.
// - Negative inputs are treated as zero.
// - Amounts are rounded to cents at each accumulation boundary so repeated
//   display/recompute cycles cannot drift.
func Compute(in Input) Totals {
	subtotal := decimal.Zero
	lineDiscounts := decimal.Zero

	for _, li := range in.LineItems {
		if li.Kind == ItemTextBlock || li.Optional {
			continue
		}
		lineSubtotal := clampZero(li.Quantity).Mul(clampZero(li.UnitPrice)).Round(moneyScale)
		subtotal = subtotal.Add(lineSubtotal)
		lineDiscounts = lineDiscounts.Add(discountAmount(li.Discount, lineSubtotal))
	}

	discountedSubtotal := clampZero(subtotal.Sub(lineDiscounts))
	docDiscount := discountAmount(in.DocumentDiscount, discountedSubtotal)
	afterAllDiscounts := clampZero(discountedSubtotal.Sub(docDiscount))

	taxRate := clampZero(in.TaxRatePercent)
	taxAmount := afterAllDiscounts.Mul(taxRate).Div(hundred).Round(moneyScale)
	total := afterAllDiscounts.Add(taxAmount)

	originalTax := subtotal.Mul(taxRate).Div(hundred).Round(moneyScale)
	originalTotal := subtotal.Add(originalTax)

	return Totals{
		SubtotalBeforeDiscount: subtotal,
		LineDiscountTotal:      lineDiscounts,
		DocumentDiscountAmount: docDiscount,
		TaxAmount:              taxAmount,
		Total:                  total,
		OriginalTotal:          originalTotal,
		TotalSavings:           clampZero(originalTotal.Sub(total)),
	}
}

// discountAmount resolves a discount against its base, rounded to cents.
// A nil discount or unknown type contributes zero.
func discountAmount(d *Discount, base decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	v := clampZero(d.Value)
	switch d.Type {
	case DiscountPercent:
		return base.Mul(v).Div(hundred).Round(moneyScale)
	case DiscountAmount:
		return v.Round(moneyScale)
	default:
		return decimal.Zero
	}
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
