package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fieldops/internal/document"
	"fieldops/internal/sequence"
	"fieldops/pkg/db"
)

var (
	ErrNotCompleted    = errors.New("job: only completed jobs can be invoiced")
	ErrAlreadyInvoiced = errors.New("job: job is already invoiced")
)

type Service struct {
	pool      *pgxpool.Pool
	jobs      *Repository
	assembler *document.Assembler

	prefixOverrides map[string]string
	padding         int
	maxAttempts     int
}

type ServiceOption func(*Service)

func WithNumbering(prefixOverrides map[string]string, padding int) ServiceOption {
	return func(s *Service) {
		s.prefixOverrides = prefixOverrides
		if padding >= 1 {
			s.padding = padding
		}
	}
}

func WithMaxAttempts(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewService(pool *pgxpool.Pool, jobs *Repository, assembler *document.Assembler, opts ...ServiceOption) *Service {
	s := &Service{
		pool:        pool,
		jobs:        jobs,
		assembler:   assembler,
		padding:     4,
		maxAttempts: 5,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type CreateInput struct {
	Name           string                   `json:"name"`
	CustomerRef    string                   `json:"customerRef"`
	LineItems      []document.DraftLineItem `json:"lineItems"`
	TaxRatePercent document.LenientDecimal  `json:"taxRatePercent"`
	PaymentTerm    string                   `json:"paymentTerm"`
}

// Create sanitizes the input once, mints a job number and persists the job,
// all in one transaction per attempt.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Job, error) {
	j := &Job{
		Name:           in.Name,
		CustomerRef:    in.CustomerRef,
		Status:         StatusScheduled,
		LineItems:      document.SanitizeItems(in.LineItems),
		TaxRatePercent: in.TaxRatePercent.Decimal,
		PaymentTerm:    in.PaymentTerm,
	}
	if j.TaxRatePercent.IsNegative() {
		j.TaxRatePercent = decimal.Zero
	}

	def := sequence.DefaultsFor(sequence.SeriesJob)
	def.Padding = s.padding
	if p, ok := s.prefixOverrides[sequence.SeriesJob]; ok {
		def.Prefix = p
	}

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
			res, err := sequence.ReserveInTx(ctx, tx, sequence.SeriesJob, def)
			if err != nil {
				return err
			}
			j.Number = sequence.Format(res.Prefix, res.Padding, res.Value)
			j.SequenceValue = res.Value
			return InsertInTx(ctx, tx, j)
		})
		if err == nil {
			return j, nil
		}
		if !sequence.IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", sequence.ErrConcurrencyExhausted, lastErr)
}

// UpdateStatus moves a job along its lifecycle under a row lock.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (*Job, error) {
	var out *Job
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		j, err := GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanTransition(j.Status, to) {
			return fmt.Errorf("job: cannot transition from %s to %s", j.Status, to)
		}
		if err := SetStatus(ctx, tx, id, to); err != nil {
			return err
		}
		j.Status = to
		out = j
		return nil
	})
	return out, err
}

// Invoice turns a completed job into an invoice. The job row lock, the
// number reservation and the invoice insert share one transaction: two
// clients completing the same job concurrently cannot double-invoice it,
// and a failed insert never spends the invoice number.
func (s *Service) Invoice(ctx context.Context, jobID string) (*document.Document, error) {
	var out *document.Document
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
			j, err := GetForUpdate(ctx, tx, jobID)
			if err != nil {
				return err
			}
			if j.InvoiceID != nil {
				return ErrAlreadyInvoiced
			}
			if j.Status != StatusCompleted {
				return ErrNotCompleted
			}

			doc := s.assembler.AssembleItems(
				document.KindInvoice, j.CustomerRef, nil, j.PaymentTerm,
				j.LineItems, nil, j.TaxRatePercent,
			)
			persisted, err := s.assembler.PersistInTx(ctx, tx, doc)
			if err != nil {
				return err
			}
			if err := SetInvoiced(ctx, tx, jobID, persisted.ID); err != nil {
				return err
			}
			out = persisted
			return nil
		})
		if err == nil {
			return out, nil
		}
		if !sequence.IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", sequence.ErrConcurrencyExhausted, lastErr)
}
