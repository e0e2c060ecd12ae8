// Package backendtest holds the behaviour every backend adapter must share.
package backendtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/domain"
)

// Factory returns a fresh, empty backend. Cleanup is registered by the factory.
type Factory func(t *testing.T) backend.Backend

// Run executes the conformance suite against backends produced by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Run("Meta", func(t *testing.T) { testMeta(t, newBackend(t)) })
	t.Run("Counter", func(t *testing.T) { testCounter(t, newBackend(t)) })
	t.Run("ConcurrentBump", func(t *testing.T) { testConcurrentBump(t, newBackend(t)) })
	t.Run("Products", func(t *testing.T) { testProducts(t, newBackend(t)) })
	t.Run("CreatedTimes", func(t *testing.T) { testCreatedTimes(t, newBackend(t)) })
	t.Run("DeleteAndClear", func(t *testing.T) { testDeleteAndClear(t, newBackend(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newBackend(t)) })
}

// Product builds a valid product for tests.
func Product(id int64, name, category string) domain.Product {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute)
	return domain.Product{
		ID:        id,
		Name:      name,
		Price:     float64(id) + 0.5,
		Unit:      "pc",
		Category:  category,
		Slug:      name,
		Image:     name + ".png",
		Images:    []string{name + ".png", name + "-2.png"},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func testMeta(t *testing.T, b backend.Backend) {
	ctx := context.Background()
	_, err := b.GetMeta(ctx, domain.ThemeKey)
	require.ErrorIs(t, err, backend.ErrNotFound)

	require.NoError(t, backend.SetJSON(ctx, b, domain.ThemeKey, "mint"))
	var theme string
	found, err := backend.GetJSON(ctx, b, domain.ThemeKey, &theme)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "mint", theme)

	require.NoError(t, backend.SetJSON(ctx, b, domain.CategoryKey, []string{"a", "b"}))
	require.NoError(t, backend.SetJSON(ctx, b, domain.CategoryKey, []string{"c"}))
	var cats []string
	found, err = backend.GetJSON(ctx, b, domain.CategoryKey, &cats)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"c"}, cats)
}

func testCounter(t *testing.T, b backend.Backend) {
	ctx := context.Background()
	c := backend.NewCounter(b, domain.VersionKey)
	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Zero(t, v)

	for i := int64(1); i <= 3; i++ {
		v, err = c.Bump(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	v, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func testConcurrentBump(t *testing.T, b backend.Backend) {
	ctx := context.Background()
	c := backend.NewCounter(b, domain.VersionKey)
	const workers, perWorker = 8, 5

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				v, err := c.Bump(ctx)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				assert.False(t, seen[v], "version %d handed out twice", v)
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), v)
}

func testProducts(t *testing.T, b backend.Backend) {
	ctx := context.Background()
	list, err := b.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, b.UpsertProducts(ctx, []domain.Product{
		Product(3, "c", "drinks"), Product(1, "a", "fruit"), Product(2, "b", "fruit"),
	}))
	list, err = b.ListProducts(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, domain.ProductIDs(list))
	want := Product(1, "a", "fruit")
	got := list[0]
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Price, got.Price)
	assert.Equal(t, want.Images, got.Images)
	assert.Equal(t, want.Image, got.Image)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt %s != %s", want.CreatedAt, got.CreatedAt)

	changed := Product(2, "b", "fruit")
	changed.Name = "b2"
	changed.Images = []string{}
	changed.Image = ""
	require.NoError(t, b.UpsertProducts(ctx, []domain.Product{changed}))
	list, err = b.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "b2", list[1].Name)
	assert.Empty(t, list[1].Images)
}

func testCreatedTimes(t *testing.T, b backend.Backend) {
	ctx := context.Background()
	require.NoError(t, b.UpsertProducts(ctx, []domain.Product{Product(1, "a", "x"), Product(2, "b", "x")}))
	times, err := b.CreatedTimes(ctx, []int64{2, 9})
	require.NoError(t, err)
	require.Len(t, times, 1)
	assert.True(t, Product(2, "b", "x").CreatedAt.Equal(times[2]))

	times, err = b.CreatedTimes(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, times)
}

func testDeleteAndClear(t *testing.T, b backend.Backend) {
	ctx := context.Background()
	require.NoError(t, b.UpsertProducts(ctx, []domain.Product{
		Product(1, "a", "x"), Product(2, "b", "x"), Product(3, "c", "x"),
	}))
	require.NoError(t, b.DeleteProducts(ctx, []int64{2, 42}))
	list, err := b.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, domain.ProductIDs(list))

	require.NoError(t, b.DeleteProducts(ctx, nil))
	require.NoError(t, b.ClearProducts(ctx))
	list, err = b.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// the counter survives a product wipe
	c := backend.NewCounter(b, domain.VersionKey)
	_, err = c.Bump(ctx)
	require.NoError(t, err)
	require.NoError(t, b.ClearProducts(ctx))
	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func testCategories(t *testing.T, b backend.Backend) {
	lister, ok := b.(backend.CategoryLister)
	if !ok {
		t.Skipf("%s has no category listing", b.Name())
	}
	ctx := context.Background()
	require.NoError(t, b.UpsertProducts(ctx, []domain.Product{
		Product(1, "a", "fruit"), Product(2, "b", "drinks"), Product(3, "c", "fruit"),
	}))
	cats, err := lister.DistinctCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"drinks", "fruit"}, cats)
}
