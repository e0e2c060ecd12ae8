package backend_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/backend/memstore"
	"github.com/talkincode/shopsync/internal/domain"
)

// casOnly hides the native increment so that Counter falls back to compare-and-swap.
type casOnly struct {
	backend.Backend
	swapper backend.CounterSwapper
	swaps   atomic.Int64
}

func (c *casOnly) CompareAndSwapCounter(ctx context.Context, key string, old, new int64) (bool, error) {
	c.swaps.Add(1)
	return c.swapper.CompareAndSwapCounter(ctx, key, old, new)
}

// plain offers no atomic primitive.
type plain struct {
	backend.Backend
}

func TestCounterUsesIncrementer(t *testing.T) {
	ctx := context.Background()
	c := backend.NewCounter(memstore.New(), domain.VersionKey)
	v, err := c.Bump(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestCounterCompareAndSwapConcurrent(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	b := &casOnly{Backend: mem, swapper: mem}
	c := backend.NewCounter(b, domain.VersionKey)

	var wg sync.WaitGroup
	results := make(chan int64, 40)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				v, err := c.Bump(ctx)
				if assert.NoError(t, err) {
					results <- v
				}
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for v := range results {
		assert.False(t, seen[v])
		seen[v] = true
	}
	assert.Len(t, seen, 40)
	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(40), v)
	assert.GreaterOrEqual(t, b.swaps.Load(), int64(40))
}

func TestCounterWithoutAtomicSupport(t *testing.T) {
	c := backend.NewCounter(plain{memstore.New()}, domain.VersionKey)
	_, err := c.Bump(context.Background())
	assert.ErrorIs(t, err, backend.ErrNoAtomicCounter)
}

func TestGetJSONMissing(t *testing.T) {
	var v []string
	found, err := backend.GetJSON(context.Background(), memstore.New(), "nope", &v)
	require.NoError(t, err)
	assert.False(t, found)
}
