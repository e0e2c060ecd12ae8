package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
	NodeID   int64  `yaml:"node_id"`
}

type WebConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type DBConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// StoreConfig selects the catalog backend: memory, bolt, sql, redis or mongo.
type StoreConfig struct {
	Backend       string `yaml:"backend"`
	BoltPath      string `yaml:"bolt_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

type AdminConfig struct {
	Username      string `yaml:"username"`
	Password      string `yaml:"password"` // plain text or bcrypt hash
	ProtectWrites bool   `yaml:"protect_writes"`
	TokenTTL      int    `yaml:"token_ttl"` // seconds
}

type CatalogConfig struct {
	SeedDemo bool `yaml:"seed_demo"`
}

// SyncConfig drives the sync engine used by the agent and import commands.
type SyncConfig struct {
	Endpoint        string `yaml:"endpoint"`
	DebounceMillis  int    `yaml:"debounce_millis"`
	PollSeconds     int    `yaml:"poll_seconds"`
	ImportChunkSize int    `yaml:"import_chunk_size"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	Token           string `yaml:"token"`
}

func (c SyncConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

func (c SyncConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

func (c SyncConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type AppConfig struct {
	System   SysConfig     `yaml:"system"`
	Web      WebConfig     `yaml:"web"`
	Logger   LogConfig     `yaml:"logger"`
	Database DBConfig      `yaml:"database"`
	Store    StoreConfig   `yaml:"store"`
	Admin    AdminConfig   `yaml:"admin"`
	Catalog  CatalogConfig `yaml:"catalog"`
	Sync     SyncConfig    `yaml:"sync"`
}

func (c *AppConfig) GetLogDir() string {
	return filepath.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return filepath.Join(c.System.Workdir, "data")
}

func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetLogDir(), c.GetDataDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	return nil
}

// DefaultAppConfig is used for every value a file or the environment leaves unset.
var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "ShopSync",
		Location: "Asia/Bangkok",
		Workdir:  "/var/shopsync",
		NodeID:   1,
	},
	Web: WebConfig{
		Host:   "0.0.0.0",
		Port:   1816,
		Secret: "9b6de5cc-0731-4bf1-shop-0f568ac9da37",
	},
	Logger: LogConfig{
		Mode:     "development",
		Filename: "/var/shopsync/logs/shopsync.log",
	},
	Database: DBConfig{
		Type:     "sqlite",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "shopsync.db",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  50,
		IdleConn: 10,
	},
	Store: StoreConfig{
		Backend:       "bolt",
		BoltPath:      "shopsync.bolt",
		RedisAddr:     "127.0.0.1:6379",
		RedisPrefix:   "shopsync:",
		MongoURI:      "mongodb://127.0.0.1:27017",
		MongoDatabase: "shopsync",
	},
	Admin: AdminConfig{
		Username: "admin",
		Password: "shopsync",
		TokenTTL: 12 * 3600,
	},
	Sync: SyncConfig{
		Endpoint:        "http://127.0.0.1:1816/api/state",
		DebounceMillis:  1200,
		PollSeconds:     10,
		ImportChunkSize: 20,
		TimeoutSeconds:  15,
	},
}

// LoadConfig reads cfile when it exists, then applies SHOPSYNC_* environment
// overrides. An empty cfile means defaults plus environment.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := *DefaultAppConfig
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "read config %s", cfile)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", cfile)
			}
		}
	}
	applyEnv(&cfg)
	return &cfg, nil
}

func setEnvValue(name string, val *string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := cast.ToIntE(v); err == nil {
			*val = n
		}
	}
}

func setEnvInt64Value(name string, val *int64) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := cast.ToInt64E(v); err == nil {
			*val = n
		}
	}
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("SHOPSYNC_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("SHOPSYNC_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("SHOPSYNC_SYSTEM_DEBUG", &cfg.System.Debug)
	setEnvInt64Value("SHOPSYNC_SYSTEM_NODE_ID", &cfg.System.NodeID)

	setEnvValue("SHOPSYNC_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("SHOPSYNC_WEB_PORT", &cfg.Web.Port)
	setEnvValue("SHOPSYNC_WEB_SECRET", &cfg.Web.Secret)

	setEnvValue("SHOPSYNC_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("SHOPSYNC_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("SHOPSYNC_LOGGER_FILENAME", &cfg.Logger.Filename)

	setEnvValue("SHOPSYNC_DB_TYPE", &cfg.Database.Type)
	setEnvValue("SHOPSYNC_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("SHOPSYNC_DB_PORT", &cfg.Database.Port)
	setEnvValue("SHOPSYNC_DB_NAME", &cfg.Database.Name)
	setEnvValue("SHOPSYNC_DB_USER", &cfg.Database.User)
	setEnvValue("SHOPSYNC_DB_PASSWD", &cfg.Database.Passwd)
	setEnvBoolValue("SHOPSYNC_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("SHOPSYNC_STORE_BACKEND", &cfg.Store.Backend)
	setEnvValue("SHOPSYNC_STORE_BOLT_PATH", &cfg.Store.BoltPath)
	setEnvValue("SHOPSYNC_STORE_REDIS_ADDR", &cfg.Store.RedisAddr)
	setEnvValue("SHOPSYNC_STORE_REDIS_PASSWORD", &cfg.Store.RedisPassword)
	setEnvIntValue("SHOPSYNC_STORE_REDIS_DB", &cfg.Store.RedisDB)
	setEnvValue("SHOPSYNC_STORE_REDIS_PREFIX", &cfg.Store.RedisPrefix)
	setEnvValue("SHOPSYNC_STORE_MONGO_URI", &cfg.Store.MongoURI)
	setEnvValue("SHOPSYNC_STORE_MONGO_DATABASE", &cfg.Store.MongoDatabase)

	setEnvValue("SHOPSYNC_ADMIN_USERNAME", &cfg.Admin.Username)
	setEnvValue("SHOPSYNC_ADMIN_PASSWORD", &cfg.Admin.Password)
	setEnvBoolValue("SHOPSYNC_ADMIN_PROTECT_WRITES", &cfg.Admin.ProtectWrites)
	setEnvIntValue("SHOPSYNC_ADMIN_TOKEN_TTL", &cfg.Admin.TokenTTL)

	setEnvBoolValue("SHOPSYNC_CATALOG_SEED_DEMO", &cfg.Catalog.SeedDemo)

	setEnvValue("SHOPSYNC_SYNC_ENDPOINT", &cfg.Sync.Endpoint)
	setEnvIntValue("SHOPSYNC_SYNC_DEBOUNCE_MILLIS", &cfg.Sync.DebounceMillis)
	setEnvIntValue("SHOPSYNC_SYNC_POLL_SECONDS", &cfg.Sync.PollSeconds)
	setEnvIntValue("SHOPSYNC_SYNC_IMPORT_CHUNK_SIZE", &cfg.Sync.ImportChunkSize)
	setEnvIntValue("SHOPSYNC_SYNC_TIMEOUT_SECONDS", &cfg.Sync.TimeoutSeconds)
	setEnvValue("SHOPSYNC_SYNC_TOKEN", &cfg.Sync.Token)
}
