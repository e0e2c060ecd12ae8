package app

import (
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/shopsync/config"
	"github.com/talkincode/shopsync/internal/backend"
	"github.com/talkincode/shopsync/internal/domain"
	"github.com/talkincode/shopsync/internal/snapshot"
	"github.com/talkincode/shopsync/pkg/common"
	"github.com/talkincode/shopsync/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	backend   backend.Backend
	store     *snapshot.Store
	sched     *cron.Cron
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ StoreProvider     = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

func (a *Application) Store() *snapshot.Store {
	return a.store
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// OverrideBackend replaces the catalog backend (used in tests).
func (a *Application) OverrideBackend(b backend.Backend) {
	a.backend = b
	a.store = snapshot.New(b)
}

// Init prepares logging, metrics and the catalog backend, seeds the demo catalog when
// asked to and starts the background jobs.
func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	InitLogger(cfg.Logger)
	common.SetNodeID(cfg.System.NodeID)

	if err := cfg.InitDirs(); err != nil {
		zap.S().Warn("Failed to create work directories:", err)
	}

	// Initialize metrics with workdir convention
	err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	b, db, err := openBackend(cfg)
	if err != nil {
		return errors.Wrap(err, "open catalog backend")
	}
	a.gormDB = db
	a.OverrideBackend(b)
	zap.S().Infof("Catalog backend ready, type: %s", b.Name())

	a.checkCatalog()
	a.initJob()
	return nil
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			if err2, ok := err1.(error); ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	if a.gormDB == nil {
		return nil
	}
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			zap.L().Error("close catalog backend", zap.Error(err))
		}
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
