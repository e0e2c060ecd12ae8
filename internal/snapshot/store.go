// Package snapshot implements the server side of catalog synchronization: whole and
// incremental writes that always end with a version bump, and consistent reads.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/domain"
	"github.com/talkincode/shopsync/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Settings carries the optional storefront fields of a write. Empty Categories means
// "derive from products"; nil Theme or PageSize keeps the stored value.
type Settings struct {
	Categories []string
	Theme      *string
	PageSize   *int
}

// WriteResult is returned by every write.
type WriteResult struct {
	Version    int64
	Categories []string
	Theme      string
	PageSize   int
}

type ImportResult struct {
	WriteResult
	Imported int
}

// Store serializes writes of this process. Across processes only the per-key
// atomicity of the backend holds.
type Store struct {
	backend backend.Backend
	counter *backend.Counter
	mu      sync.Mutex
	now     func() time.Time
}

func New(b backend.Backend) *Store {
	return &Store{
		backend: b,
		counter: backend.NewCounter(b, domain.VersionKey),
		now:     time.Now,
	}
}

// Backend exposes the underlying adapter.
func (s *Store) Backend() backend.Backend {
	return s.backend
}

// Version returns the current catalog version.
func (s *Store) Version(ctx context.Context) (int64, error) {
	return s.counter.Get(ctx)
}

// Load reads the whole snapshot. Products come back ordered by id; when no category
// list was stored the categories are derived from the products.
// The version is read first, so a racing write can only pair newer data with an
// older version.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	version, err := s.counter.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load snapshot")
	}
	var (
		snap   = &domain.Snapshot{Version: version}
		stored []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.backend.ListProducts(gctx)
		snap.Products = list
		return err
	})
	g.Go(func() error {
		_, err := backend.GetJSON(gctx, s.backend, domain.CategoryKey, &stored)
		return err
	})
	g.Go(func() error {
		theme, pageSize, err := s.readSettings(gctx)
		snap.Theme, snap.PageSize = theme, pageSize
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "load snapshot")
	}
	if snap.Products == nil {
		snap.Products = []domain.Product{}
	}
	snap.Categories = domain.NormalizeCategories(stored)
	if len(snap.Categories) == 0 {
		snap.Categories = domain.CategoriesOf(snap.Products)
	}
	return snap, nil
}

// Replace swaps the whole product collection.
func (s *Store) Replace(ctx context.Context, products []domain.Product, opts Settings) (*WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rows := domain.CloneProducts(products)
	for i := range rows {
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		rows[i].UpdatedAt = now
	}
	if err := s.backend.ClearProducts(ctx); err != nil {
		return nil, errors.Wrap(err, "clear products")
	}
	if err := s.backend.UpsertProducts(ctx, rows); err != nil {
		return nil, errors.Wrap(err, "insert products")
	}

	categories := domain.NormalizeCategories(opts.Categories)
	if len(categories) == 0 {
		categories = domain.CategoriesOf(rows)
	}
	res, err := s.finish(ctx, categories, opts)
	if err != nil {
		return nil, err
	}
	zap.L().Info("catalog replaced",
		zap.String("namespace", "snapshot"),
		zap.Int("products", len(rows)),
		zap.Int64("version", res.Version))
	return res, nil
}

// Patch deletes deleteIDs, then upserts upserts keeping the stored createdAt of
// existing rows. When any row fails the version is not bumped and the aggregated error
// is returned. Re-sending the same patch yields the same stored state.
func (s *Store) Patch(ctx context.Context, upserts []domain.Product, deleteIDs []int64, opts Settings) (*WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyPatch(ctx, upserts, deleteIDs); err != nil {
		return nil, err
	}
	categories, err := s.categoriesFor(ctx, opts.Categories)
	if err != nil {
		return nil, err
	}
	res, err := s.finish(ctx, categories, opts)
	if err != nil {
		return nil, err
	}
	zap.L().Info("catalog patched",
		zap.String("namespace", "snapshot"),
		zap.Int("upserts", len(upserts)),
		zap.Int("deletes", len(deleteIDs)),
		zap.Int64("version", res.Version))
	return res, nil
}

// ImportChunk writes one slice of a bulk import. reset clears the collection first.
// An empty chunk still saves the settings and bumps the version.
func (s *Store) ImportChunk(ctx context.Context, products []domain.Product, reset bool, opts Settings) (*ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reset {
		if err := s.backend.ClearProducts(ctx); err != nil {
			return nil, errors.Wrap(err, "clear products")
		}
	}
	if len(products) > 0 {
		if err := s.applyPatch(ctx, products, nil); err != nil {
			return nil, err
		}
	}
	categories, err := s.categoriesFor(ctx, opts.Categories)
	if err != nil {
		return nil, err
	}
	res, err := s.finish(ctx, categories, opts)
	if err != nil {
		return nil, err
	}
	zap.L().Info("catalog chunk imported",
		zap.String("namespace", "snapshot"),
		zap.Bool("reset", reset),
		zap.Int("products", len(products)),
		zap.Int64("version", res.Version))
	return &ImportResult{WriteResult: *res, Imported: len(products)}, nil
}

// Preview reports what a write of products with opts would store, without touching
// the backend.
func (s *Store) Preview(products []domain.Product, opts Settings) *domain.Snapshot {
	categories := domain.NormalizeCategories(opts.Categories)
	if len(categories) == 0 {
		categories = domain.CategoriesOf(products)
	}
	theme := domain.DefaultTheme
	if opts.Theme != nil {
		theme = domain.NormalizeTheme(*opts.Theme)
	}
	pageSize := domain.DefaultPageSize
	if opts.PageSize != nil {
		pageSize = domain.NormalizePageSize(*opts.PageSize)
	}
	return &domain.Snapshot{
		Products:   domain.CloneProducts(products),
		Categories: categories,
		Theme:      theme,
		PageSize:   pageSize,
	}
}

func (s *Store) applyPatch(ctx context.Context, upserts []domain.Product, deleteIDs []int64) error {
	if len(deleteIDs) > 0 {
		if err := s.backend.DeleteProducts(ctx, deleteIDs); err != nil {
			return errors.Wrap(err, "delete products")
		}
	}
	if len(upserts) == 0 {
		return nil
	}
	existing, err := s.backend.CreatedTimes(ctx, domain.ProductIDs(upserts))
	if err != nil {
		return errors.Wrap(err, "lookup created times")
	}
	now := s.now()
	rows := domain.CloneProducts(upserts)
	for i := range rows {
		if created, ok := existing[rows[i].ID]; ok && !created.IsZero() {
			rows[i].CreatedAt = created
		} else if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		rows[i].UpdatedAt = now
	}
	if err := s.backend.UpsertProducts(ctx, rows); err != nil {
		metrics.Incr("catalog_write_errors", 1)
		return errors.Wrap(err, "upsert products")
	}
	return nil
}

// categoriesFor returns the normalized override, or the categories of the whole
// stored collection when the override is empty.
func (s *Store) categoriesFor(ctx context.Context, override []string) ([]string, error) {
	categories := domain.NormalizeCategories(override)
	if len(categories) > 0 {
		return categories, nil
	}
	if lister, ok := s.backend.(backend.CategoryLister); ok {
		cats, err := lister.DistinctCategories(ctx)
		return cats, errors.Wrap(err, "list categories")
	}
	list, err := s.backend.ListProducts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return domain.CategoriesOf(list), nil
}

// finish persists categories and the supplied settings, then bumps the version.
func (s *Store) finish(ctx context.Context, categories []string, opts Settings) (*WriteResult, error) {
	if err := backend.SetJSON(ctx, s.backend, domain.CategoryKey, categories); err != nil {
		return nil, errors.Wrap(err, "save categories")
	}
	if opts.Theme != nil {
		if err := backend.SetJSON(ctx, s.backend, domain.ThemeKey, domain.NormalizeTheme(*opts.Theme)); err != nil {
			return nil, errors.Wrap(err, "save theme")
		}
	}
	if opts.PageSize != nil {
		if err := backend.SetJSON(ctx, s.backend, domain.PageSizeKey, domain.NormalizePageSize(*opts.PageSize)); err != nil {
			return nil, errors.Wrap(err, "save page size")
		}
	}
	theme, pageSize, err := s.readSettings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read settings")
	}
	version, err := s.counter.Bump(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "bump version")
	}
	metrics.Incr("catalog_writes", 1)
	metrics.SetGauge("catalog_version", version)
	return &WriteResult{
		Version:    version,
		Categories: categories,
		Theme:      theme,
		PageSize:   pageSize,
	}, nil
}

func (s *Store) readSettings(ctx context.Context) (string, int, error) {
	var theme string
	if _, err := backend.GetJSON(ctx, s.backend, domain.ThemeKey, &theme); err != nil {
		return "", 0, err
	}
	var pageSize interface{}
	if _, err := backend.GetJSON(ctx, s.backend, domain.PageSizeKey, &pageSize); err != nil {
		return "", 0, err
	}
	return domain.NormalizeTheme(theme), domain.NormalizePageSize(pageSize), nil
}
