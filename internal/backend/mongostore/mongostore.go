// Package mongostore keeps the catalog in MongoDB. Metadata entries are documents of
// one collection keyed by _id, products live in a second collection keyed by id.
package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"
)

const (
	metaCollection    = "shop_meta"
	productCollection = "shop_products"
)

type Options struct {
	URI      string
	Database string
}

type Store struct {
	client   *mongo.Client
	meta     *mongo.Collection
	products *mongo.Collection
}

var (
	_ backend.Backend        = (*Store)(nil)
	_ backend.Incrementer    = (*Store)(nil)
	_ backend.CategoryLister = (*Store)(nil)
)

type metaDoc struct {
	Key     string `bson:"_id"`
	Value   string `bson:"value,omitempty"`
	Counter int64  `bson:"counter,omitempty"`
}

// Open connects, pings and makes sure the product id index exists.
func Open(ctx context.Context, opts Options) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongo")
	}
	db := client.Database(opts.Database)
	s := &Store{
		client:   client,
		meta:     db.Collection(metaCollection),
		products: db.Collection(productCollection),
	}
	_, err = s.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "create product index")
	}
	return s, nil
}

func (s *Store) Name() string { return "mongo" }

func (s *Store) GetMeta(ctx context.Context, key string) ([]byte, error) {
	var doc metaDoc
	err := s.meta.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc.Value), nil
}

func (s *Store) SetMeta(ctx context.Context, key string, value []byte) error {
	_, err := s.meta.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": string(value)}},
		options.Update().SetUpsert(true))
	return err
}

func (s *Store) GetCounter(ctx context.Context, key string) (int64, error) {
	var doc metaDoc
	err := s.meta.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	return doc.Counter, err
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	var doc metaDoc
	err := s.meta.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"counter": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Counter, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	cur, err := s.products.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	out := make([]domain.Product, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	for i := range out {
		if out[i].Images == nil {
			out[i].Images = []string{}
		}
	}
	return out, nil
}

func (s *Store) CreatedTimes(ctx context.Context, ids []int64) (map[int64]time.Time, error) {
	out := make(map[int64]time.Time, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.products.Find(ctx,
		bson.M{"id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"id": 1, "createdAt": 1}))
	if err != nil {
		return nil, err
	}
	var rows []domain.Product
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.CreatedAt
	}
	return out, nil
}

// UpsertProducts sends one unordered bulk write; failed rows do not stop the others.
func (s *Store) UpsertProducts(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(products))
	for _, p := range products {
		if p.Images == nil {
			p.Images = []string{}
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"id": p.ID}).
			SetReplacement(p).
			SetUpsert(true))
	}
	_, err := s.products.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		var errs error
		for _, we := range bulkErr.WriteErrors {
			errs = multierr.Append(errs, errors.Errorf("upsert product %d: %s", products[we.Index].ID, we.Message))
		}
		return errs
	}
	return err
}

func (s *Store) DeleteProducts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.products.DeleteMany(ctx, bson.M{"id": bson.M{"$in": ids}})
	return err
}

func (s *Store) ClearProducts(ctx context.Context) error {
	_, err := s.products.DeleteMany(ctx, bson.M{})
	return err
}

func (s *Store) DistinctCategories(ctx context.Context) ([]string, error) {
	values, err := s.products.Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, err
	}
	list := make([]string, 0, len(values))
	for _, v := range values {
		if c, ok := v.(string); ok {
			list = append(list, c)
		}
	}
	return domain.NormalizeCategories(list), nil
}

// Drop removes both collections. Used to reset test databases.
func (s *Store) Drop(ctx context.Context) error {
	return multierr.Append(s.meta.Drop(ctx), s.products.Drop(ctx))
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
