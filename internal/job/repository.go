package job

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const jobColumns = `
id, number, sequence_value, name, customer_ref, status,
line_items, tax_rate::text, payment_term, invoice_id, created_at, updated_at
`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	var lineItems []byte
	var taxRate string
	if err := row.Scan(
		&j.ID, &j.Number, &j.SequenceValue, &j.Name, &j.CustomerRef, &j.Status,
		&lineItems, &taxRate, &j.PaymentTerm, &j.InvoiceID, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lineItems, &j.LineItems); err != nil {
		return nil, err
	}
	var err error
	j.TaxRatePercent, err = decimal.NewFromString(taxRate)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func InsertInTx(ctx context.Context, tx pgx.Tx, j *Job) error {
	lineItems, err := json.Marshal(j.LineItems)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO jobs (number, sequence_value, name, customer_ref, status, line_items, tax_rate, payment_term, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, CAST($6 AS jsonb), $7, $8, NOW(), NOW())
RETURNING id, created_at, updated_at
`
	return tx.QueryRow(ctx, q,
		j.Number, j.SequenceValue, j.Name, j.CustomerRef, j.Status,
		string(lineItems), j.TaxRatePercent.StringFixed(2), j.PaymentTerm,
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Job, error) {
	return scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

// GetForUpdate locks the job row for the rest of the transaction. Invoicing
// takes this lock so two concurrent completions serialize instead of both
// minting an invoice.
func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Job, error) {
	return scanJob(tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id))
}

func SetStatus(ctx context.Context, tx pgx.Tx, id string, status Status) error {
	const q = `
UPDATE jobs
SET status = $2, updated_at = NOW()
WHERE id = $1
`
	_, err := tx.Exec(ctx, q, id, status)
	return err
}

func SetInvoiced(ctx context.Context, tx pgx.Tx, id string, invoiceID string) error {
	const q = `
UPDATE jobs
SET status = $2, invoice_id = $3, updated_at = NOW()
WHERE id = $1
`
	_, err := tx.Exec(ctx, q, id, StatusInvoiced, invoiceID)
	return err
}

func (r *Repository) List(ctx context.Context) ([]Job, error) {
	const q = `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}
