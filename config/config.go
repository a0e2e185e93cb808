package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AdapterPGXPool connects through a pgxpool.Pool.
	AdapterPGXPool = "pgx.pool"

	// AdapterSQLDB connects through database/sql with the lib/pq driver.
	AdapterSQLDB = "sql.db"

	// AdapterSQLX connects through sqlx on top of the lib/pq driver.
	AdapterSQLX = "sqlx.db"

	// AdapterSQLite opens an embedded SQLite database file.
	AdapterSQLite = "sqlite"
)

const (
	EnvDSN        = "SNAPSHOTSTORE_DSN"
	EnvReplicaDSN = "SNAPSHOTSTORE_REPLICA_DSN"
	EnvAdapter    = "SNAPSHOTSTORE_ADAPTER"
)

const (
	defaultMaxConnections    = int32(20)
	defaultMinConnections    = int32(2)
	defaultMaxConnLifetime   = time.Hour
	defaultMaxConnIdleTime   = time.Minute * 5
	defaultHealthCheckPeriod = time.Minute
	defaultConnectTimeout    = time.Second * 5
)

var (
	ErrReadingConfigFailed = errors.New("reading config file failed")
	ErrParsingConfigFailed = errors.New("parsing config failed")
	ErrInvalidConfig       = errors.New("invalid config")
	ErrUnsupportedAdapter  = errors.New("unsupported database adapter")
	ErrMissingDSN          = errors.New("database dsn is missing")
	ErrReplicaNotSupported = errors.New("replica dsn is only supported by the pgx.pool and sqlx.db adapters")
	ErrInvalidPoolSettings = errors.New("invalid pool settings")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidLogFormat    = errors.New("invalid log format")
	ErrOpeningDBFailed     = errors.New("opening database failed")
)

type Config struct {
	Database Database `yaml:"database"`
	Tables   Tables   `yaml:"tables"`
	Logging  Logging  `yaml:"logging"`
}

type Database struct {
	Adapter    string `yaml:"adapter"`
	DSN        string `yaml:"dsn"`
	ReplicaDSN string `yaml:"replica_dsn"`
	Pool       Pool   `yaml:"pool"`
}

// Pool holds connection pool tuning. Zero values are replaced by defaults.
type Pool struct {
	MaxConns          int32         `yaml:"max_conns"`
	MinConns          int32         `yaml:"min_conns"`
	MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `yaml:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `yaml:"health_check_period"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
}

// Tables overrides the schema and table names. Empty values keep the engine defaults.
type Tables struct {
	Schema         string `yaml:"schema"`
	GlobalID       string `yaml:"global_id"`
	Snapshot       string `yaml:"snapshot"`
	Commit         string `yaml:"commit"`
	CommitProperty string `yaml:"commit_property"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file at path and applies environment overrides and defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Join(ErrReadingConfigFailed, err)
	}

	return Parse(data, os.LookupEnv)
}

// Parse decodes YAML data. lookupEnv resolves environment overrides, os.LookupEnv in production.
func Parse(data []byte, lookupEnv func(key string) (string, bool)) (Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Join(ErrParsingConfigFailed, err)
	}

	cfg.applyEnv(lookupEnv)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (cfg *Config) applyEnv(lookupEnv func(key string) (string, bool)) {
	if lookupEnv == nil {
		return
	}

	if dsn, ok := lookupEnv(EnvDSN); ok && dsn != "" {
		cfg.Database.DSN = dsn
	}

	if replicaDSN, ok := lookupEnv(EnvReplicaDSN); ok && replicaDSN != "" {
		cfg.Database.ReplicaDSN = replicaDSN
	}

	if adapter, ok := lookupEnv(EnvAdapter); ok && adapter != "" {
		cfg.Database.Adapter = adapter
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Database.Adapter == "" {
		cfg.Database.Adapter = AdapterPGXPool
	}

	pool := &cfg.Database.Pool

	if pool.MaxConns == 0 {
		pool.MaxConns = defaultMaxConnections
	}

	if pool.MinConns == 0 {
		pool.MinConns = min(defaultMinConnections, pool.MaxConns)
	}

	if pool.MaxConnLifetime == 0 {
		pool.MaxConnLifetime = defaultMaxConnLifetime
	}

	if pool.MaxConnIdleTime == 0 {
		pool.MaxConnIdleTime = defaultMaxConnIdleTime
	}

	if pool.HealthCheckPeriod == 0 {
		pool.HealthCheckPeriod = defaultHealthCheckPeriod
	}

	if pool.ConnectTimeout == 0 {
		pool.ConnectTimeout = defaultConnectTimeout
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks the adapter, DSNs, pool settings and logging settings.
func (cfg Config) Validate() error {
	switch cfg.Database.Adapter {
	case AdapterPGXPool, AdapterSQLDB, AdapterSQLX, AdapterSQLite:
	default:
		return errors.Join(ErrInvalidConfig, fmt.Errorf("%w: %q", ErrUnsupportedAdapter, cfg.Database.Adapter))
	}

	if cfg.Database.DSN == "" {
		return errors.Join(ErrInvalidConfig, ErrMissingDSN)
	}

	if cfg.Database.ReplicaDSN != "" && cfg.Database.Adapter != AdapterPGXPool && cfg.Database.Adapter != AdapterSQLX {
		return errors.Join(ErrInvalidConfig, ErrReplicaNotSupported)
	}

	pool := cfg.Database.Pool
	if pool.MaxConns < 0 || pool.MinConns < 0 || pool.MinConns > pool.MaxConns {
		return errors.Join(
			ErrInvalidConfig,
			fmt.Errorf("%w: min_conns %d, max_conns %d", ErrInvalidPoolSettings, pool.MinConns, pool.MaxConns),
		)
	}

	if _, err := cfg.Logging.SlogLevel(); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return errors.Join(ErrInvalidConfig, fmt.Errorf("%w: %q", ErrInvalidLogFormat, cfg.Logging.Format))
	}

	return nil
}

// SlogLevel parses the configured level, for example "debug" or "WARN".
func (l Logging) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

// NewLogger builds a slog.Logger writing to w in the configured format and level.
func (l Logging) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOptions))
	}

	return slog.New(slog.NewTextHandler(w, handlerOptions))
}
