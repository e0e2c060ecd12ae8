package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/backend/backendtest"
	"github.com/talkincode/shopsync/internal/domain"
)

func TestConformance(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		s, err := Open(filepath.Join(t.TempDir(), "data", "shop.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestReopenKeepsState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shop.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertProducts(ctx, []domain.Product{backendtest.Product(7, "g", "x")}))
	_, err = backend.NewCounter(s, domain.VersionKey).Bump(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	list, err := s.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, domain.ProductIDs(list))
	v, err := backend.NewCounter(s, domain.VersionKey).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}
