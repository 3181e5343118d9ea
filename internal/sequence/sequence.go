// Package sequence mints globally-unique, gapless, human-readable document
// numbers, one counter per named series.
package sequence

import (
	"context"
	"errors"
	"fmt"
)

const (
	SeriesInvoice       = "invoice"
	SeriesQuote         = "quote"
	SeriesJob           = "job"
	SeriesPurchaseOrder = "purchaseOrder"
	SeriesCreditNote    = "creditNote"
)

// ErrConcurrencyExhausted is returned when an allocation keeps losing the
// conflict race past the retry bound. The caller must not create the document.
var ErrConcurrencyExhausted = errors.New("sequence: allocation retries exhausted")

// Counter is the stored state of one series.
type Counter struct {
	Series    string `json:"series"`
	NextValue int64  `json:"nextValue"`
	Prefix    string `json:"prefix"`
	Padding   int    `json:"padding"`
}

// Defaults seed a counter the first time a series is used.
type Defaults struct {
	Prefix  string
	Padding int
}

var seriesPrefixes = map[string]string{
	SeriesInvoice:       "INV",
	SeriesQuote:         "QTE",
	SeriesJob:           "JOB",
	SeriesPurchaseOrder: "PO",
	SeriesCreditNote:    "CN",
}

// DefaultsFor returns the built-in seed values for a series. Unknown series
// get an uppercased prefix derived from their own name.
func DefaultsFor(series string) Defaults {
	p, ok := seriesPrefixes[series]
	if !ok {
		p = fallbackPrefix(series)
	}
	return Defaults{Prefix: p, Padding: 4}
}

func fallbackPrefix(series string) string {
	out := make([]byte, 0, len(series))
	for i := 0; i < len(series); i++ {
		c := series[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return "DOC"
	}
	return string(out)
}

// Number is one allocation result.
type Number struct {
	Formatted string `json:"number"`
	Raw       int64  `json:"rawValue"`
}

// Format renders a sequence value as "{prefix}-{zero-padded value}".
func Format(prefix string, padding int, value int64) string {
	if padding < 1 {
		padding = 1
	}
	return fmt.Sprintf("%s-%0*d", prefix, padding, value)
}

// Reservation is one claimed counter value plus the formatting fields that
// were stored alongside it.
type Reservation struct {
	Value   int64
	Prefix  string
	Padding int
}

// Store is the counter persistence contract. Reserve atomically claims the
// current value of a series and advances it; two concurrent reservations on
// the same series must never observe the same value, and an enclosing
// transaction abort must roll the advance back.
type Store interface {
	// Reserve claims the next value, creating the counter from def when the
	// series does not exist yet.
	Reserve(ctx context.Context, series string, def Defaults) (Reservation, error)

	// Peek reads a counter without advancing it. ok is false when the series
	// has never allocated.
	Peek(ctx context.Context, series string) (Counter, bool, error)
}

// retryable marks store errors worth retrying (write conflicts).
type retryableError interface{ Retryable() bool }

// IsRetryable reports whether err is a transient conflict the allocator may
// retry.
func IsRetryable(err error) bool {
	var re retryableError
	return errors.As(err, &re) && re.Retryable()
}

const defaultMaxAttempts = 5

// Allocator mints formatted numbers from a Store, retrying the whole
// read-modify-write on conflicts. It never retries a partially-applied
// reservation: the store's atomicity contract guarantees a failed attempt
// left no trace.
type Allocator struct {
	store       Store
	maxAttempts int

	// prefixOverrides replaces built-in series prefixes for newly created
	// counters (existing counters keep their stored prefix).
	prefixOverrides map[string]string
	padding         int
}

type AllocatorOption func(*Allocator)

func WithMaxAttempts(n int) AllocatorOption {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

func WithPrefixOverrides(m map[string]string) AllocatorOption {
	return func(a *Allocator) { a.prefixOverrides = m }
}

func WithPadding(p int) AllocatorOption {
	return func(a *Allocator) {
		if p >= 1 {
			a.padding = p
		}
	}
}

func NewAllocator(store Store, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		store:       store,
		maxAttempts: defaultMaxAttempts,
		padding:     4,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Allocator) defaults(series string) Defaults {
	def := DefaultsFor(series)
	def.Padding = a.padding
	if p, ok := a.prefixOverrides[series]; ok {
		def.Prefix = p
	}
	return def
}

// Allocate claims the next number in a series. On a detected write conflict
// the whole reservation is retried from the top; when retries run out the
// error wraps ErrConcurrencyExhausted and no value has been consumed.
func (a *Allocator) Allocate(ctx context.Context, series string) (Number, error) {
	def := a.defaults(series)

	var lastErr error
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		res, err := a.store.Reserve(ctx, series, def)
		if err == nil {
			return Number{
				Formatted: Format(res.Prefix, res.Padding, res.Value),
				Raw:       res.Value,
			}, nil
		}
		if !IsRetryable(err) {
			return Number{}, err
		}
		lastErr = err
	}
	return Number{}, fmt.Errorf("%w: %v", ErrConcurrencyExhausted, lastErr)
}
