package backend

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultCasRetries = 32
	defaultCasBackoff = 5 * time.Millisecond
)

// Counter is the catalog version. It only moves forward and only through an atomic
// backend primitive.
type Counter struct {
	backend Backend
	key     string
	retries int
	backoff time.Duration
}

func NewCounter(b Backend, key string) *Counter {
	return &Counter{backend: b, key: key, retries: defaultCasRetries, backoff: defaultCasBackoff}
}

// Get returns the current value, 0 when the counter does not exist yet.
func (c *Counter) Get(ctx context.Context) (int64, error) {
	v, err := c.backend.GetCounter(ctx, c.key)
	if err != nil {
		return 0, errors.Wrapf(err, "read counter %s", c.key)
	}
	return v, nil
}

// Bump increments the counter by one and returns the new value.
func (c *Counter) Bump(ctx context.Context) (int64, error) {
	if inc, ok := c.backend.(Incrementer); ok {
		v, err := inc.Incr(ctx, c.key)
		if err != nil {
			return 0, errors.Wrapf(err, "increment counter %s", c.key)
		}
		return v, nil
	}
	cas, ok := c.backend.(CounterSwapper)
	if !ok {
		return 0, ErrNoAtomicCounter
	}
	for attempt := 0; attempt < c.retries; attempt++ {
		cur, err := c.backend.GetCounter(ctx, c.key)
		if err != nil {
			return 0, errors.Wrapf(err, "read counter %s", c.key)
		}
		swapped, err := cas.CompareAndSwapCounter(ctx, c.key, cur, cur+1)
		if err != nil {
			return 0, errors.Wrapf(err, "swap counter %s", c.key)
		}
		if swapped {
			return cur + 1, nil
		}
		zap.L().Debug("counter swap conflict, retrying",
			zap.String("namespace", "backend"),
			zap.String("key", c.key),
			zap.Int("attempt", attempt+1))
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt+1)):
		}
	}
	return 0, errors.Errorf("counter %s: gave up after %d conflicting swaps", c.key, c.retries)
}
