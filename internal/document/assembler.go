package document

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fieldops/internal/events"
	"fieldops/internal/pricing"
	"fieldops/internal/sequence"
	"fieldops/internal/terms"
	"fieldops/pkg/db"
)

// Assembler turns drafts into persisted documents: sanitize, price, mint a
// number and persist, all such that a failure at any step leaves nothing
// behind. Number allocation and document creation share one transaction, so
// a failed insert never spends a number.
type Assembler struct {
	pool *pgxpool.Pool

	prefixOverrides map[string]string
	padding         int
	maxAttempts     int

	now func() time.Time
}

type AssemblerOption func(*Assembler)

func WithNumbering(prefixOverrides map[string]string, padding int) AssemblerOption {
	return func(a *Assembler) {
		a.prefixOverrides = prefixOverrides
		if padding >= 1 {
			a.padding = padding
		}
	}
}

func WithMaxAttempts(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithClock overrides the assembler's notion of now. Tests only.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) { a.now = now }
}

func NewAssembler(pool *pgxpool.Pool, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		pool:        pool,
		padding:     4,
		maxAttempts: 5,
		now:         time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assemble is the pure half of document creation: sanitize the draft, price
// it, resolve scheduling dates. No number is minted and nothing is written.
func (a *Assembler) Assemble(draft Draft) Document {
	kind := KindInvoice
	if k, err := ParseKind(draft.Kind); err == nil {
		kind = k
	}
	return a.AssembleItems(
		kind,
		draft.CustomerRef,
		draft.IssueDate,
		draft.PaymentTerm,
		SanitizeItems(draft.LineItems),
		sanitizeDiscount(draft.DocumentDiscount),
		clampZero(draft.TaxRatePercent.Decimal),
	)
}

// AssembleItems prices already-sanitized line items. Job invoicing enters
// here: its items were validated when the job was created.
func (a *Assembler) AssembleItems(kind Kind, customerRef string, issueDate *time.Time, paymentTerm string, items []pricing.LineItem, docDiscount *pricing.Discount, taxRate decimal.Decimal) Document {
	totals := pricing.Compute(pricing.Input{
		LineItems:        items,
		DocumentDiscount: docDiscount,
		TaxRatePercent:   taxRate,
	})

	issue := a.now().UTC().Truncate(24 * time.Hour)
	if issueDate != nil && !issueDate.IsZero() {
		issue = *issueDate
	}

	return Document{
		Kind:             kind,
		CustomerRef:      customerRef,
		IssueDate:        issue,
		DueDate:          terms.Resolve(issue, paymentTerm),
		PaymentTerm:      paymentTerm,
		LineItems:        items,
		DocumentDiscount: docDiscount,
		TaxRatePercent:   taxRate,
		Totals:           totals,
	}
}

// Create assembles and persists a draft. The whole reservation+insert is
// retried on write conflicts; exhausted retries surface
// sequence.ErrConcurrencyExhausted and no document exists.
func (a *Assembler) Create(ctx context.Context, draft Draft) (*Document, error) {
	doc := a.Assemble(draft)

	var out *Document
	var lastErr error
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		err := db.WithTx(ctx, a.pool, func(tx pgx.Tx) error {
			persisted, err := a.PersistInTx(ctx, tx, doc)
			if err != nil {
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

// PersistInTx mints the number and writes the document plus its outbox
// event inside the caller's transaction; an abort leaves no trace and the
// number is not spent. Job invoicing enters here so the job row lock and
// the invoice insert commit or abort together. The caller owns conflict
// retries.
func (a *Assembler) PersistInTx(ctx context.Context, tx pgx.Tx, doc Document) (*Document, error) {
	series := SeriesFor(doc.Kind)
	def := sequence.DefaultsFor(series)
	def.Padding = a.padding
	if p, ok := a.prefixOverrides[series]; ok {
		def.Prefix = p
	}

	res, err := sequence.ReserveInTx(ctx, tx, series, def)
	if err != nil {
		return nil, err
	}
	doc.Number = sequence.Format(res.Prefix, res.Padding, res.Value)
	doc.SequenceValue = res.Value
	doc.CreatedAt = a.now().UTC()

	if err := InsertInTx(ctx, tx, &doc); err != nil {
		return nil, err
	}

	if err := events.InsertInTx(ctx, tx, doc.ID, events.TopicDocumentCreated, doc.CreatedAt, map[string]any{
		"kind":   doc.Kind,
		"number": doc.Number,
		"total":  doc.Totals.Total,
	}); err != nil {
		return nil, err
	}
	return &doc, nil
}
