package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps counters in the sequence_counters table. The claim is a
// single upsert-increment statement, so concurrent callers serialize on the
// row lock and can never observe the same value; when the statement runs
// inside a caller's transaction a rollback also rolls the claim back.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const reserveSQL = `
INSERT INTO sequence_counters (series, next_value, prefix, padding)
VALUES ($1, 2, $2, $3)
ON CONFLICT (series) DO UPDATE
SET next_value = sequence_counters.next_value + 1
RETURNING next_value - 1, prefix, padding
`

func (s *PGStore) Reserve(ctx context.Context, series string, def Defaults) (Reservation, error) {
	return reserve(ctx, s.db, series, def)
}

// ReserveInTx claims a value inside the caller's transaction, so that a
// failed document insert aborts the claim too and the number is never spent.
func ReserveInTx(ctx context.Context, tx pgx.Tx, series string, def Defaults) (Reservation, error) {
	return reserve(ctx, tx, series, def)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func reserve(ctx context.Context, q rowQuerier, series string, def Defaults) (Reservation, error) {
	if def.Padding < 1 {
		def.Padding = 1
	}
	var res Reservation
	err := q.QueryRow(ctx, reserveSQL, series, def.Prefix, def.Padding).
		Scan(&res.Value, &res.Prefix, &res.Padding)
	if err != nil {
		return Reservation{}, classify(err)
	}
	return res, nil
}

func (s *PGStore) Peek(ctx context.Context, series string) (Counter, bool, error) {
	const q = `
SELECT series, next_value, prefix, padding
FROM sequence_counters
WHERE series = $1
`
	var c Counter
	err := s.db.QueryRow(ctx, q, series).Scan(&c.Series, &c.NextValue, &c.Prefix, &c.Padding)
	if errors.Is(err, pgx.ErrNoRows) {
		return Counter{}, false, nil
	}
	if err != nil {
		return Counter{}, false, err
	}
	return c, true, nil
}

// Configure seeds or reshapes a series. The next value only ever moves
// forward: moving it back would reissue numbers already handed out.
func (s *PGStore) Configure(ctx context.Context, series, prefix string, padding int, next int64) (Counter, error) {
	if padding < 1 {
		padding = 1
	}
	if next < 1 {
		next = 1
	}
	const q = `
INSERT INTO sequence_counters (series, next_value, prefix, padding)
VALUES ($1, $2, $3, $4)
ON CONFLICT (series) DO UPDATE
SET next_value = GREATEST(sequence_counters.next_value, EXCLUDED.next_value),
    prefix     = EXCLUDED.prefix,
    padding    = EXCLUDED.padding
RETURNING series, next_value, prefix, padding
`
	var c Counter
	err := s.db.QueryRow(ctx, q, series, next, prefix, padding).
		Scan(&c.Series, &c.NextValue, &c.Prefix, &c.Padding)
	if err != nil {
		return Counter{}, err
	}
	return c, nil
}

// conflictError wraps serialization/deadlock failures so the allocator knows
// the whole claim may be retried.
type conflictError struct{ err error }

func (e conflictError) Error() string   { return fmt.Sprintf("sequence: write conflict: %v", e.err) }
func (e conflictError) Unwrap() error   { return e.err }
func (e conflictError) Retryable() bool { return true }

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return conflictError{err: err}
		}
	}
	return err
}
