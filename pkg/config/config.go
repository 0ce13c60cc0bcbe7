package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	pkgdb "github.com/unowned-ai/moodledger/pkg/db"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"

	EnvPrefix = "MOODLEDGER"
)

// Config holds every runtime setting. Keys are dotted (sqlite.path) in files
// and MOODLEDGER_SQLITE_PATH in the environment.
type Config struct {
	Driver   string         `mapstructure:"driver"`
	Timezone string         `mapstructure:"timezone"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
	WAL  bool   `mapstructure:"wal"`
	Sync string `mapstructure:"sync"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type HTTPConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RedisConfig enables event publishing when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
	File string `mapstructure:"file"`
}

// SetDefaults registers the default for every key so that AutomaticEnv can
// see them during Unmarshal.
func SetDefaults(v *viper.Viper, sqlitePath string) {
	v.SetDefault("driver", DriverSQLite)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("sqlite.path", sqlitePath)
	v.SetDefault("sqlite.wal", true)
	v.SetDefault("sqlite.sync", "NORMAL")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "moodledger")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "moodledger.events")
	v.SetDefault("log.mode", "development")
	v.SetDefault("log.file", "")
}

// Load reads defaults, then file (if not empty), then the environment. Flags
// bound on v with BindPFlag win over all three.
func Load(v *viper.Viper, file, sqlitePath string) (Config, error) {
	SetDefaults(v, sqlitePath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Driver {
	case DriverSQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite.path is required for the sqlite driver"))
		}
		if c.SQLite.Sync != "" && !pkgdb.ValidSyncMode(c.SQLite.Sync) {
			errs = append(errs, fmt.Errorf("invalid sqlite.sync %q: must be one of OFF, NORMAL, FULL, EXTRA", c.SQLite.Sync))
		}
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres driver"))
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required for the mongo driver"))
		}
		if c.Mongo.Database == "" {
			errs = append(errs, errors.New("mongo.database is required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown driver %q: must be one of sqlite, postgres, mongo", c.Driver))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Redis.Addr != "" && c.Redis.Channel == "" {
		errs = append(errs, errors.New("redis.channel is required when redis.addr is set"))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone; empty means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
