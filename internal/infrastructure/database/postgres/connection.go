// Package postgres provides the relational store connection pool, schema
// migrations, and the repository implementations over it.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/pkg/errors"
)

// Config holds relational store connection parameters.
type Config struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxConns == 0 {
		c.MaxConns = 20
	}
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = time.Hour
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
	if c.MigrationsPath == "" {
		c.MigrationsPath = "migrations"
	}
}

// DSN renders the connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// DB owns the connection pool.
type DB struct {
	pool   *pgxpool.Pool
	config *Config
	logger logging.Logger
}

// NewDB connects and verifies the pool with a ping.  The pool is the only
// shared mutable resource on the read path; every query checks a connection
// out and releases it, including on error paths, via the pgx APIs.
func NewDB(ctx context.Context, cfg *Config, log logging.Logger) (*DB, error) {
	cfg.applyDefaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "invalid database configuration")
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabase, "database pool creation failed")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.CodeDatabase, "database unreachable")
	}

	log.Info("connected to database",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.Database))
	return &DB{pool: pool, config: cfg, logger: log}, nil
}

// NewDBWithPool wraps an existing pool (integration tests).
func NewDBWithPool(pool *pgxpool.Pool, cfg *Config, log logging.Logger) *DB {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()
	return &DB{pool: pool, config: cfg, logger: log}
}

// Pool exposes the underlying pool to the repositories in this package.
func (db *DB) Pool() *pgxpool.Pool { return db.pool }

// Ping checks connectivity; used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close drains the pool.
func (db *DB) Close() {
	db.pool.Close()
}

// queryCtx applies the configured per-query timeout so one pathological
// viewport cannot monopolize the pool.
func (db *DB) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.config.QueryTimeout)
}

// RunMigrations applies all pending schema migrations from the configured
// path.  A database already at the latest version is not an error.
func RunMigrations(cfg *Config, log logging.Logger) error {
	cfg.applyDefaults()

	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.DSN())
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabase, "migration setup failed")
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, errors.CodeDatabase, "migration failed")
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return errors.Wrap(err, errors.CodeDatabase, "migration version check failed")
	}
	log.Info("migrations applied",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty))
	return nil
}
