// Package sqlstore keeps the catalog in a relational database through gorm.
package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/shopsync/config"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store has no native increment; the version counter goes through
// CompareAndSwapCounter.
type Store struct {
	db *gorm.DB
}

var (
	_ backend.Backend        = (*Store)(nil)
	_ backend.CounterSwapper = (*Store)(nil)
	_ backend.CategoryLister = (*Store)(nil)
)

// OpenDB connects to the database described by cfg. sqlite files are resolved
// relative to workdir.
func OpenDB(cfg config.DBConfig, workdir string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.Debug {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		path := cfg.Name
		if !filepath.IsAbs(path) {
			path = filepath.Join(workdir, "data", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create sqlite directory")
		}
		dialector = sqlite.Open(path)
	case "postgres", "":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", cfg.Type)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Type == "sqlite" {
		// sqlite allows one writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxConn > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxConn)
		}
		if cfg.IdleConn > 0 {
			sqlDB.SetMaxIdleConns(cfg.IdleConn)
		}
	}
	return db, nil
}

// New migrates the catalog tables and wraps db.
func New(db *gorm.DB) (*Store, error) {
	if err := db.Migrator().AutoMigrate(domain.Tables...); err != nil {
		return nil, errors.Wrap(err, "migrate catalog tables")
	}
	return &Store{db: db}, nil
}

func (s *Store) Name() string { return "sql:" + s.db.Dialector.Name() }

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) GetMeta(ctx context.Context, key string) ([]byte, error) {
	var m domain.ShopMeta
	err := s.db.WithContext(ctx).Where("meta_key = ?", key).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(m.Value), nil
}

func (s *Store) SetMeta(ctx context.Context, key string, value []byte) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "meta_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&domain.ShopMeta{Key: key, Value: string(value)}).Error
}

func (s *Store) GetCounter(ctx context.Context, key string) (int64, error) {
	var m domain.ShopMeta
	err := s.db.WithContext(ctx).Where("meta_key = ?", key).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return m.Counter, nil
}

// CompareAndSwapCounter sets the counter to new only while it still holds old. A
// counter that does not exist yet is created when old is 0.
func (s *Store) CompareAndSwapCounter(ctx context.Context, key string, old, new int64) (bool, error) {
	db := s.db.WithContext(ctx)
	if old == 0 {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.ShopMeta{Key: key, Counter: new})
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected == 1 {
			return true, nil
		}
	}
	res := db.Model(&domain.ShopMeta{}).
		Where("meta_key = ? AND counter = ?", key, old).
		Update("counter", new)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []domain.Product
	if err := s.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	for i := range rows {
		if rows[i].Images == nil {
			rows[i].Images = []string{}
		}
	}
	return rows, nil
}

func (s *Store) CreatedTimes(ctx context.Context, ids []int64) (map[int64]time.Time, error) {
	out := make(map[int64]time.Time, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Product
	err := s.db.WithContext(ctx).Select("id", "created_at").Where("id IN ?", ids).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.CreatedAt
	}
	return out, nil
}

// UpsertProducts writes row by row so that one bad row does not drop the others.
func (s *Store) UpsertProducts(ctx context.Context, products []domain.Product) error {
	var errs error
	db := s.db.WithContext(ctx)
	for i := range products {
		p := products[i]
		if p.Images == nil {
			p.Images = []string{}
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&p).Error
		if err != nil {
			zap.L().Error("upsert product failed",
				zap.String("namespace", "sqlstore"),
				zap.Int64("id", p.ID),
				zap.Error(err))
			errs = multierr.Append(errs, errors.Wrapf(err, "upsert product %d", p.ID))
		}
	}
	return errs
}

func (s *Store) DeleteProducts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.Product{}).Error
}

func (s *Store) ClearProducts(ctx context.Context) error {
	return s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&domain.Product{}).Error
}

func (s *Store) DistinctCategories(ctx context.Context) ([]string, error) {
	var cats []string
	err := s.db.WithContext(ctx).Model(&domain.Product{}).Distinct().Pluck("category", &cats).Error
	if err != nil {
		return nil, err
	}
	return domain.NormalizeCategories(cats), nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
