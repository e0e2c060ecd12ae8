package app

import (
	"github.com/robfig/cron/v3"
	"github.com/talkincode/shopsync/config"
	"github.com/talkincode/shopsync/internal/snapshot"
	"gorm.io/gorm"
)

// DBProvider provides database access. DB is nil unless the sql backend is selected.
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// StoreProvider provides the catalog snapshot store
type StoreProvider interface {
	Store() *snapshot.Store
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context
// Handlers should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	StoreProvider
	SchedulerProvider

	// MigrateDB creates the catalog tables when the sql backend is in use
	MigrateDB(track bool) error
}
