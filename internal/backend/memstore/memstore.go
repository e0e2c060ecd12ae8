// Package memstore keeps the catalog in process memory. It backs tests and
// single-node demo deployments.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	meta     map[string][]byte
	counters map[string]int64
	products *btree.BTreeG[domain.Product]
	closed   bool
}

var (
	_ backend.Backend        = (*Store)(nil)
	_ backend.Incrementer    = (*Store)(nil)
	_ backend.CounterSwapper = (*Store)(nil)
	_ backend.CategoryLister = (*Store)(nil)
)

func byID(a, b domain.Product) bool {
	return a.ID < b.ID
}

func New() *Store {
	return &Store{
		meta:     make(map[string][]byte),
		counters: make(map[string]int64),
		products: btree.NewG[domain.Product](16, byID),
	}
}

func (s *Store) Name() string { return "memory" }

func (s *Store) GetMeta(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, backend.ErrClosed
	}
	v, ok := s.meta[key]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (s *Store) SetMeta(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return backend.ErrClosed
	}
	s.meta[key] = slices.Clone(value)
	return nil
}

func (s *Store) GetCounter(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, backend.ErrClosed
	}
	return s.counters[key], nil
}

func (s *Store) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, backend.ErrClosed
	}
	s.counters[key]++
	return s.counters[key], nil
}

func (s *Store) CompareAndSwapCounter(_ context.Context, key string, old, new int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, backend.ErrClosed
	}
	if s.counters[key] != old {
		return false, nil
	}
	s.counters[key] = new
	return true, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, backend.ErrClosed
	}
	out := make([]domain.Product, 0, s.products.Len())
	s.products.Ascend(func(p domain.Product) bool {
		out = append(out, p.Clone())
		return true
	})
	return out, nil
}

func (s *Store) CreatedTimes(_ context.Context, ids []int64) (map[int64]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, backend.ErrClosed
	}
	out := make(map[int64]time.Time, len(ids))
	for _, id := range ids {
		if p, ok := s.products.Get(domain.Product{ID: id}); ok {
			out[id] = p.CreatedAt
		}
	}
	return out, nil
}

func (s *Store) UpsertProducts(_ context.Context, products []domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return backend.ErrClosed
	}
	for _, p := range products {
		s.products.ReplaceOrInsert(p.Clone())
	}
	return nil
}

func (s *Store) DeleteProducts(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return backend.ErrClosed
	}
	for _, id := range ids {
		s.products.Delete(domain.Product{ID: id})
	}
	return nil
}

func (s *Store) ClearProducts(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return backend.ErrClosed
	}
	s.products.Clear(false)
	return nil
}

func (s *Store) DistinctCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, backend.ErrClosed
	}
	var list []string
	s.products.Ascend(func(p domain.Product) bool {
		list = append(list, p.Category)
		return true
	})
	return domain.NormalizeCategories(list), nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
