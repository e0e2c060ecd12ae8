// Package backend defines the storage capabilities the snapshot store relies on.
// A backend keeps a few metadata entries (each atomic on its own) and a bag of
// products keyed by id. Nothing here spans more than one key atomically.
package backend

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/shopsync/internal/domain"
)

var (
	// ErrNotFound is returned by GetMeta for a key that was never written.
	ErrNotFound = errors.New("backend: key not found")
	// ErrNoAtomicCounter is returned when a backend offers neither Incrementer nor
	// CounterSwapper.
	ErrNoAtomicCounter = errors.New("backend: no atomic counter support")
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("backend: closed")
)

// Backend is the minimal store every adapter implements.
type Backend interface {
	// Name identifies the adapter in logs.
	Name() string
	GetMeta(ctx context.Context, key string) ([]byte, error)
	SetMeta(ctx context.Context, key string, value []byte) error
	// GetCounter returns 0 for a counter that was never bumped.
	GetCounter(ctx context.Context, key string) (int64, error)
	// ListProducts returns every product ordered by ascending id.
	ListProducts(ctx context.Context) ([]domain.Product, error)
	// CreatedTimes returns the stored createdAt of the ids that exist.
	CreatedTimes(ctx context.Context, ids []int64) (map[int64]time.Time, error)
	// UpsertProducts writes every row it can; failures are aggregated into the error.
	UpsertProducts(ctx context.Context, products []domain.Product) error
	DeleteProducts(ctx context.Context, ids []int64) error
	ClearProducts(ctx context.Context) error
	Close() error
}

// Incrementer is implemented by backends with a native atomic increment.
type Incrementer interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// CounterSwapper is implemented by backends that can compare-and-swap a counter.
// A missing counter compares equal to 0.
type CounterSwapper interface {
	CompareAndSwapCounter(ctx context.Context, key string, old, new int64) (bool, error)
}

// CategoryLister is implemented by backends that can compute the distinct product
// categories without a full scan by the caller.
type CategoryLister interface {
	DistinctCategories(ctx context.Context) ([]string, error)
}
