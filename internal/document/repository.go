package document

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fieldops/internal/pricing"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertInTx persists a document and fills in its generated ID. Runs inside
// the caller's transaction: the row and the sequence claim commit together.
func InsertInTx(ctx context.Context, tx pgx.Tx, doc *Document) error {
	lineItems, err := json.Marshal(doc.LineItems)
	if err != nil {
		return err
	}
	var docDiscount *string
	if doc.DocumentDiscount != nil {
		b, err := json.Marshal(doc.DocumentDiscount)
		if err != nil {
			return err
		}
		s := string(b)
		docDiscount = &s
	}

	const q = `
INSERT INTO documents (
	kind, number, sequence_value, customer_ref, issue_date, due_date, payment_term,
	line_items, document_discount, tax_rate,
	subtotal, line_discount_total, document_discount_amount, tax_amount, total,
	created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, CAST($8 AS jsonb), CAST($9 AS jsonb), $10, $11, $12, $13, $14, $15, $16)
RETURNING id
`
	return tx.QueryRow(ctx, q,
		doc.Kind, doc.Number, doc.SequenceValue, doc.CustomerRef,
		doc.IssueDate, doc.DueDate, doc.PaymentTerm,
		string(lineItems), docDiscount, doc.TaxRatePercent.StringFixed(2),
		doc.Totals.SubtotalBeforeDiscount.StringFixed(2),
		doc.Totals.LineDiscountTotal.StringFixed(2),
		doc.Totals.DocumentDiscountAmount.StringFixed(2),
		doc.Totals.TaxAmount.StringFixed(2),
		doc.Totals.Total.StringFixed(2),
		doc.CreatedAt,
	).Scan(&doc.ID)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Document, error) {
	const q = `
SELECT id, kind, number, sequence_value, customer_ref, issue_date, due_date, payment_term,
       line_items, document_discount,
       tax_rate::text, subtotal::text, line_discount_total::text,
       document_discount_amount::text, tax_amount::text, total::text,
       created_at
FROM documents
WHERE id = $1
`
	var doc Document
	var lineItems []byte
	var docDiscount []byte
	var taxRate, subtotal, lineDiscountTotal, docDiscountAmount, taxAmount, total string
	err := r.db.QueryRow(ctx, q, id).Scan(
		&doc.ID, &doc.Kind, &doc.Number, &doc.SequenceValue, &doc.CustomerRef,
		&doc.IssueDate, &doc.DueDate, &doc.PaymentTerm,
		&lineItems, &docDiscount,
		&taxRate, &subtotal, &lineDiscountTotal, &docDiscountAmount, &taxAmount, &total,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(lineItems, &doc.LineItems); err != nil {
		return nil, err
	}
	if len(docDiscount) > 0 {
		var d pricing.Discount
		if err := json.Unmarshal(docDiscount, &d); err != nil {
			return nil, err
		}
		doc.DocumentDiscount = &d
	}

	fields := []struct {
		src string
		dst *decimal.Decimal
	}{
		{taxRate, &doc.TaxRatePercent},
		{subtotal, &doc.Totals.SubtotalBeforeDiscount},
		{lineDiscountTotal, &doc.Totals.LineDiscountTotal},
		{docDiscountAmount, &doc.Totals.DocumentDiscountAmount},
		{taxAmount, &doc.Totals.TaxAmount},
		{total, &doc.Totals.Total},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = d
	}

	// Display-only fields are recomputed, not stored.
	recomputed := pricing.Compute(pricing.Input{
		LineItems:        doc.LineItems,
		DocumentDiscount: doc.DocumentDiscount,
		TaxRatePercent:   doc.TaxRatePercent,
	})
	doc.Totals.OriginalTotal = recomputed.OriginalTotal
	doc.Totals.TotalSavings = recomputed.TotalSavings

	return &doc, nil
}
