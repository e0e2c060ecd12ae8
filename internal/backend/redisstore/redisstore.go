// Package redisstore keeps the catalog in Redis: one string per metadata entry, a
// native INCR counter and one hash holding every product as JSON.
package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/domain"
	"go.uber.org/multierr"
)

const productsKey = "products"

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Store struct {
	rdb    *redis.Client
	prefix string
}

var (
	_ backend.Backend     = (*Store)(nil)
	_ backend.Incrementer = (*Store)(nil)
)

// Open connects and pings the server.
func Open(ctx context.Context, opts Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "connect redis %s", opts.Addr)
	}
	return &Store{rdb: rdb, prefix: opts.Prefix}, nil
}

func (s *Store) Name() string { return "redis" }

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) GetMeta(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, backend.ErrNotFound
	}
	return v, err
}

func (s *Store) SetMeta(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, s.key(key), value, 0).Err()
}

func (s *Store) GetCounter(ctx context.Context, key string) (int64, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.rdb.Incr(ctx, s.key(key)).Result()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	all, err := s.rdb.HGetAll(ctx, s.key(productsKey)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	out := make([]domain.Product, 0, len(all))
	for field, raw := range all {
		p, err := backend.UnmarshalProduct([]byte(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "decode product %s", field)
		}
		out = append(out, p)
	}
	domain.SortProductsByID(out)
	return out, nil
}

func (s *Store) CreatedTimes(ctx context.Context, ids []int64) (map[int64]time.Time, error) {
	out := make(map[int64]time.Time, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = cast.ToString(id)
	}
	values, err := s.rdb.HMGet(ctx, s.key(productsKey), fields...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		p, err := backend.UnmarshalProduct([]byte(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "decode product %d", ids[i])
		}
		out[ids[i]] = p.CreatedAt
	}
	return out, nil
}

func (s *Store) UpsertProducts(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	var errs error
	cmds := make(map[int64]*redis.IntCmd, len(products))
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range products {
			data, err := backend.MarshalProduct(p)
			if err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "encode product %d", p.ID))
				continue
			}
			cmds[p.ID] = pipe.HSet(ctx, s.key(productsKey), cast.ToString(p.ID), data)
		}
		return nil
	})
	if err != nil {
		for id, cmd := range cmds {
			if cmd.Err() != nil {
				errs = multierr.Append(errs, errors.Wrapf(cmd.Err(), "write product %d", id))
			}
		}
		if errs == nil {
			errs = err
		}
	}
	return errs
}

func (s *Store) DeleteProducts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = cast.ToString(id)
	}
	return s.rdb.HDel(ctx, s.key(productsKey), fields...).Err()
}

func (s *Store) ClearProducts(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key(productsKey)).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
