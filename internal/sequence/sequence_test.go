package sequence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		prefix  string
		padding int
		value   int64
		want    string
	}{
		{"INV", 4, 7, "INV-0007"},
		{"INV", 4, 12345, "INV-12345"},
		{"QTE", 6, 42, "QTE-000042"},
		{"PO", 1, 3, "PO-3"},
		{"CN", 0, 9, "CN-9"},
	}
	for _, tc := range cases {
		if got := Format(tc.prefix, tc.padding, tc.value); got != tc.want {
			t.Fatalf("Format(%q,%d,%d): expected %q, got %q", tc.prefix, tc.padding, tc.value, tc.want, got)
		}
	}
}

func TestAllocate_LazyDefaultsAndAdvance(t *testing.T) {
	a := NewAllocator(NewMemStore())
	ctx := context.Background()

	first, err := a.Allocate(ctx, SeriesInvoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Formatted != "INV-0001" || first.Raw != 1 {
		t.Fatalf("expected INV-0001/1, got %q/%d", first.Formatted, first.Raw)
	}

	second, err := a.Allocate(ctx, SeriesInvoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Formatted != "INV-0002" || second.Raw != 2 {
		t.Fatalf("expected INV-0002/2, got %q/%d", second.Formatted, second.Raw)
	}

	// Series are independent.
	q, err := a.Allocate(ctx, SeriesQuote)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Formatted != "QTE-0001" {
		t.Fatalf("expected QTE-0001, got %q", q.Formatted)
	}
}

func TestAllocate_PrefixOverrideAppliesToNewSeries(t *testing.T) {
	a := NewAllocator(NewMemStore(), WithPrefixOverrides(map[string]string{SeriesInvoice: "FACT"}), WithPadding(5))
	got, err := a.Allocate(context.Background(), SeriesInvoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Formatted != "FACT-00001" {
		t.Fatalf("expected FACT-00001, got %q", got.Formatted)
	}
}

func TestAllocate_ConcurrentCallersGetContiguousDistinctValues(t *testing.T) {
	const workers = 64
	a := NewAllocator(NewMemStore())
	ctx := context.Background()

	var mu sync.Mutex
	var got []int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			n, err := a.Allocate(ctx, SeriesInvoice)
			if err != nil {
				t.Errorf("allocate failed: %v", err)
				return
			}
			mu.Lock()
			got = append(got, n.Raw)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(got) != workers {
		t.Fatalf("expected %d allocations, got %d", workers, len(got))
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, v := range got {
		if v != int64(i+1) {
			t.Fatalf("expected gapless values 1..%d, got %v", workers, got)
		}
	}
}

// flakyStore fails reservations with a retryable conflict until its
// remaining conflict count hits zero.
type flakyStore struct {
	inner     *MemStore
	conflicts int
}

type fakeConflict struct{}

func (fakeConflict) Error() string   { return "simulated write conflict" }
func (fakeConflict) Retryable() bool { return true }

func (s *flakyStore) Reserve(ctx context.Context, series string, def Defaults) (Reservation, error) {
	if s.conflicts > 0 {
		s.conflicts--
		return Reservation{}, fakeConflict{}
	}
	return s.inner.Reserve(ctx, series, def)
}

func (s *flakyStore) Peek(ctx context.Context, series string) (Counter, bool, error) {
	return s.inner.Peek(ctx, series)
}

func TestAllocate_RetriesConflictsThenSucceeds(t *testing.T) {
	store := &flakyStore{inner: NewMemStore(), conflicts: 3}
	a := NewAllocator(store, WithMaxAttempts(5))

	n, err := a.Allocate(context.Background(), SeriesJob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Raw != 1 {
		t.Fatalf("conflicted attempts must not consume values: got raw %d", n.Raw)
	}
}

func TestAllocate_ExhaustedRetriesSurfaceTypedError(t *testing.T) {
	store := &flakyStore{inner: NewMemStore(), conflicts: 100}
	a := NewAllocator(store, WithMaxAttempts(3))

	_, err := a.Allocate(context.Background(), SeriesJob)
	if !errors.Is(err, ErrConcurrencyExhausted) {
		t.Fatalf("expected ErrConcurrencyExhausted, got %v", err)
	}

	// The failed allocations must not have advanced the counter.
	if _, ok, _ := store.inner.Peek(context.Background(), SeriesJob); ok {
		t.Fatalf("counter must not exist after failed allocations")
	}
}

func TestAllocate_NonRetryableErrorReturnedAsIs(t *testing.T) {
	boom := errors.New("connection refused")
	a := NewAllocator(errStore{err: boom})

	_, err := a.Allocate(context.Background(), SeriesInvoice)
	if !errors.Is(err, boom) {
		t.Fatalf("expected underlying error, got %v", err)
	}
}

type errStore struct{ err error }

func (s errStore) Reserve(context.Context, string, Defaults) (Reservation, error) {
	return Reservation{}, s.err
}

func (s errStore) Peek(context.Context, string) (Counter, bool, error) {
	return Counter{}, false, s.err
}

func TestDefaultsFor_UnknownSeries(t *testing.T) {
	def := DefaultsFor("warranty")
	if def.Prefix != "WARRANTY" || def.Padding != 4 {
		t.Fatalf("unexpected defaults: %+v", def)
	}
}
