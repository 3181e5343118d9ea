package sequence

import (
	"context"
	"sync"
)

// MemStore is a mutex-guarded in-memory counter table for tests and
// single-process deployments. It satisfies the same atomicity contract as
// PGStore: reservations never duplicate and never skip.
type MemStore struct {
	mu       sync.Mutex
	counters map[string]*Counter
}

func NewMemStore() *MemStore {
	return &MemStore{counters: make(map[string]*Counter)}
}

func (s *MemStore) Reserve(_ context.Context, series string, def Defaults) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[series]
	if !ok {
		padding := def.Padding
		if padding < 1 {
			padding = 1
		}
		c = &Counter{Series: series, NextValue: 1, Prefix: def.Prefix, Padding: padding}
		s.counters[series] = c
	}
	res := Reservation{Value: c.NextValue, Prefix: c.Prefix, Padding: c.Padding}
	c.NextValue++
	return res, nil
}

func (s *MemStore) Peek(_ context.Context, series string) (Counter, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[series]
	if !ok {
		return Counter{}, false, nil
	}
	return *c, true, nil
}
