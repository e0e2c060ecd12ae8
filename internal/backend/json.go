package backend

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/talkincode/shopsync/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GetJSON decodes the metadata entry key into v. It reports false when the key does
// not exist.
func GetJSON(ctx context.Context, b Backend, key string, v interface{}) (bool, error) {
	data, err := b.GetMeta(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "read %s", key)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "decode %s", key)
	}
	return true, nil
}

// SetJSON encodes v into the metadata entry key.
func SetJSON(ctx context.Context, b Backend, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := b.SetMeta(ctx, key, data); err != nil {
		return errors.Wrapf(err, "write %s", key)
	}
	return nil
}

// MarshalProduct and UnmarshalProduct are the value codec of key-value backends.
func MarshalProduct(p domain.Product) ([]byte, error) {
	return json.Marshal(p)
}

func UnmarshalProduct(data []byte) (domain.Product, error) {
	var p domain.Product
	err := json.Unmarshal(data, &p)
	if p.Images == nil {
		p.Images = []string{}
	}
	return p, err
}
