package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fieldops/pkg/db"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Save replaces a document's plan wholesale: the plan row is upserted and the
// installment set rewritten in one transaction. Installments are fixed-size
// after this point; only paid fields mutate.
func (r *Repository) Save(ctx context.Context, plan Plan) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		const upsert = `
INSERT INTO payment_plans (document_id, enabled, frequency, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
ON CONFLICT (document_id) DO UPDATE
SET enabled = EXCLUDED.enabled,
    frequency = EXCLUDED.frequency,
    updated_at = NOW()
`
		if _, err := tx.Exec(ctx, upsert, plan.DocumentID, plan.Enabled, plan.Frequency); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM plan_installments WHERE document_id = $1`, plan.DocumentID); err != nil {
			return err
		}

		const ins = `
INSERT INTO plan_installments (document_id, idx, due_date, amount, status, paid_at, paid_amount, payment_method)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
		for _, it := range plan.Installments {
			var paidAmount *string
			if it.PaidAmount != nil {
				s := it.PaidAmount.StringFixed(moneyScale)
				paidAmount = &s
			}
			var method *string
			if it.PaymentMethod != "" {
				method = &it.PaymentMethod
			}
			if _, err := tx.Exec(ctx, ins,
				plan.DocumentID, it.Index, it.DueDate, it.Amount.StringFixed(moneyScale),
				it.Status, it.PaidAt, paidAmount, method,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get loads a plan with its installments in due order. ok is false when the
// document has no plan.
func (r *Repository) Get(ctx context.Context, documentID string) (Plan, bool, error) {
	const q = `
SELECT enabled, frequency
FROM payment_plans
WHERE document_id = $1
`
	var plan Plan
	plan.DocumentID = documentID
	err := r.db.QueryRow(ctx, q, documentID).Scan(&plan.Enabled, &plan.Frequency)
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, false, nil
	}
	if err != nil {
		return Plan{}, false, err
	}

	const qi = `
SELECT idx, due_date, amount::text, status, paid_at, paid_amount::text, payment_method
FROM plan_installments
WHERE document_id = $1
ORDER BY idx ASC
`
	rows, err := r.db.Query(ctx, qi, documentID)
	if err != nil {
		return Plan{}, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var it Installment
		var amount string
		var paidAmount, method *string
		if err := rows.Scan(&it.Index, &it.DueDate, &amount, &it.Status, &it.PaidAt, &paidAmount, &method); err != nil {
			return Plan{}, false, err
		}
		it.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return Plan{}, false, err
		}
		if paidAmount != nil {
			pa, err := decimal.NewFromString(*paidAmount)
			if err != nil {
				return Plan{}, false, err
			}
			it.PaidAmount = &pa
		}
		if method != nil {
			it.PaymentMethod = *method
		}
		plan.Installments = append(plan.Installments, it)
	}
	if err := rows.Err(); err != nil {
		return Plan{}, false, err
	}

	plan.NextPaymentDate = NextPaymentDate(plan.Installments)
	return plan, true, nil
}

// Disable turns a plan off without deleting it, preserving historical payment
// records. Absent plans are a no-op.
func (r *Repository) Disable(ctx context.Context, documentID string) error {
	const q = `
UPDATE payment_plans
SET enabled = FALSE, updated_at = NOW()
WHERE document_id = $1
`
	_, err := r.db.Exec(ctx, q, documentID)
	return err
}

// RecordPayment marks one installment paid. Calls against an absent or
// disabled plan are a tolerated no-op (recorded=false), not an error; an
// already-paid installment is never overwritten.
func (r *Repository) RecordPayment(ctx context.Context, documentID string, idx int, amount decimal.Decimal, method string, paidAt time.Time) (bool, error) {
	recorded := false
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var enabled bool
		err := tx.QueryRow(ctx,
			`SELECT enabled FROM payment_plans WHERE document_id = $1 FOR UPDATE`,
			documentID,
		).Scan(&enabled)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if !enabled {
			return nil
		}

		const q = `
UPDATE plan_installments
SET status = $4, paid_at = $5, paid_amount = $6, payment_method = $7
WHERE document_id = $1 AND idx = $2 AND status <> $3
`
		tag, err := tx.Exec(ctx, q,
			documentID, idx, StatusPaid,
			StatusPaid, paidAt, amount.StringFixed(moneyScale), method,
		)
		if err != nil {
			return err
		}
		recorded = tag.RowsAffected() > 0
		return nil
	})
	return recorded, err
}
