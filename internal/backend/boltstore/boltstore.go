// Package boltstore persists the catalog in a local bbolt file.
package boltstore

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/domain"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/multierr"
)

var (
	metaBucket    = []byte("meta")
	counterBucket = []byte("counters")
	productBucket = []byte("products")
)

type Store struct {
	db *bolt.DB
}

var (
	_ backend.Backend        = (*Store)(nil)
	_ backend.Incrementer    = (*Store)(nil)
	_ backend.CategoryLister = (*Store)(nil)
)

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create bolt directory")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt file %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{metaBucket, counterBucket, productBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create bolt buckets")
	}
	return &Store{db: db}, nil
}

func (s *Store) Name() string { return "bolt" }

func idKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func decodeCounter(v []byte) int64 {
	if len(v) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(v))
}

func (s *Store) GetMeta(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get([]byte(key))
		if v == nil {
			return backend.ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (s *Store) SetMeta(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put([]byte(key), value)
	})
}

func (s *Store) GetCounter(_ context.Context, key string) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bolt.Tx) error {
		n = decodeCounter(tx.Bucket(counterBucket).Get([]byte(key)))
		return nil
	})
	return n, err
}

// Incr runs read and write inside one update transaction; bbolt allows a single
// writer at a time.
func (s *Store) Incr(_ context.Context, key string) (int64, error) {
	var n int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(counterBucket)
		n = decodeCounter(b.Get([]byte(key))) + 1
		return b.Put([]byte(key), idKey(n))
	})
	return n, err
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(productBucket).ForEach(func(_, v []byte) error {
			p, err := backend.UnmarshalProduct(v)
			if err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	// big endian keys iterate in id order for positive ids
	return out, nil
}

func (s *Store) CreatedTimes(_ context.Context, ids []int64) (map[int64]time.Time, error) {
	out := make(map[int64]time.Time, len(ids))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(productBucket)
		for _, id := range ids {
			v := b.Get(idKey(id))
			if v == nil {
				continue
			}
			p, err := backend.UnmarshalProduct(v)
			if err != nil {
				return err
			}
			out[id] = p.CreatedAt
		}
		return nil
	})
	return out, err
}

func (s *Store) UpsertProducts(_ context.Context, products []domain.Product) error {
	var errs error
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(productBucket)
		for _, p := range products {
			data, err := backend.MarshalProduct(p)
			if err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "encode product %d", p.ID))
				continue
			}
			if err := b.Put(idKey(p.ID), data); err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "put product %d", p.ID))
			}
		}
		return nil
	})
	return multierr.Append(err, errs)
}

func (s *Store) DeleteProducts(_ context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(productBucket)
		for _, id := range ids {
			if err := b.Delete(idKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ClearProducts(_ context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(productBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(productBucket)
		return err
	})
}

func (s *Store) DistinctCategories(ctx context.Context) ([]string, error) {
	list, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return domain.CategoriesOf(list), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
