package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/backend/backendtest"
	"github.com/talkincode/shopsync/internal/domain"
)

func TestConformance(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		s := New()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestClosed(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())
	_, err := s.ListProducts(context.Background())
	assert.ErrorIs(t, err, backend.ErrClosed)
	_, err = s.Incr(context.Background(), domain.VersionKey)
	assert.ErrorIs(t, err, backend.ErrClosed)
}

func TestListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.UpsertProducts(ctx, []domain.Product{backendtest.Product(1, "a", "x")}))
	list, err := s.ListProducts(ctx)
	require.NoError(t, err)
	list[0].Images[0] = "mutated"

	list, err = s.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a.png", list[0].Images[0])
}
