package app

import (
	"context"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/shopsync/config"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/backend/boltstore"
	"github.com/talkincode/shopsync/internal/backend/memstore"
	"github.com/talkincode/shopsync/internal/backend/mongostore"
	"github.com/talkincode/shopsync/internal/backend/redisstore"
	"github.com/talkincode/shopsync/internal/backend/sqlstore"
	"gorm.io/gorm"
)

// openBackend connects the catalog backend selected by store.backend. The gorm handle
// is returned for the sql backend only.
func openBackend(cfg *config.AppConfig) (backend.Backend, *gorm.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch cfg.Store.Backend {
	case "memory":
		return memstore.New(), nil, nil
	case "bolt", "":
		path := cfg.Store.BoltPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.GetDataDir(), path)
		}
		s, err := boltstore.Open(path)
		return s, nil, err
	case "sql":
		db, err := sqlstore.OpenDB(cfg.Database, cfg.System.Workdir)
		if err != nil {
			return nil, nil, err
		}
		s, err := sqlstore.New(db)
		if err != nil {
			return nil, nil, err
		}
		return s, db, nil
	case "redis":
		s, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Prefix:   cfg.Store.RedisPrefix,
		})
		return s, nil, err
	case "mongo":
		s, err := mongostore.Open(ctx, mongostore.Options{
			URI:      cfg.Store.MongoURI,
			Database: cfg.Store.MongoDatabase,
		})
		return s, nil, err
	default:
		return nil, nil, errors.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
