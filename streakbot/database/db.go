package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	PoolSize int

	// AcquireTimeout bounds every transaction; MaxRetries and RetryBackoff
	// drive the transient-failure retry loop.
	AcquireTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
}

// TxOptions derives the ledger transaction options from the connection config.
func (c DBConfig) TxOptions() TxOptions {
	opts := DefaultTxOptions()
	if c.AcquireTimeout > 0 {
		opts.Timeout = c.AcquireTimeout
	}
	if c.MaxRetries >= 0 {
		opts.MaxRetries = c.MaxRetries
	}
	if c.RetryBackoff > 0 {
		opts.Backoff = c.RetryBackoff
	}
	return opts
}

// DB is the process-wide persistence handle. It is created once at startup
// by New and released with Close at shutdown; nothing else holds a global
// connection.
type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var err error
	for i := 1; i <= defaultMaxRetries; i++ {
		var conn net.Conn
		conn, err = net.DialTimeout("tcp", addr, defaultConnTimeout)
		if err == nil {
			conn.Close()
			break
		}
		slog.Warn("Database server unreachable, retrying",
			slog.String("type", "db"),
			slog.String("addr", addr),
			slog.Int("attempt", i),
			slog.Any("error", err))
		time.Sleep(defaultRetryInterval * time.Duration(i))
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{pool: pool, bunDB: newBunDB(cfg)}, nil
}

// NewFromBun wraps an existing bun handle. Used by tests and tools that bring
// their own driver.
func NewFromBun(db *bun.DB) *DB {
	return &DB{bunDB: db}
}

func buildConnString(cfg DBConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Database,
		RawQuery: "connect_timeout=5&sslmode=" + sslMode(cfg),
	}
	return u.String()
}

func sslMode(cfg DBConfig) string {
	if cfg.SSLMode == "" {
		return "disable"
	}
	return cfg.SSLMode
}

func newBunDB(cfg DBConfig) *bun.DB {
	opts := []pgdriver.Option{
		pgdriver.WithAddr(net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.Database),
		pgdriver.WithDialTimeout(defaultConnTimeout),
		pgdriver.WithInsecure(sslMode(cfg) == "disable"),
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	if cfg.PoolSize > 0 {
		sqldb.SetMaxOpenConns(cfg.PoolSize)
	}
	return bun.NewDB(sqldb, pgdialect.New())
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) GetPool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) Ping(ctx context.Context) error {
	start := time.Now()
	var err error
	if db.pool != nil {
		err = db.pool.Ping(ctx)
	} else {
		err = db.bunDB.PingContext(ctx)
	}
	if err != nil {
		return fmt.Errorf("%w: ping: %w", ErrPersistence, err)
	}
	slog.Debug("Database ping",
		slog.String("type", "db"),
		slog.Duration("took", time.Since(start)))
	return nil
}

func (db *DB) ExecWithLog(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if db.pool == nil {
		return pgconn.CommandTag{}, fmt.Errorf("%w: no connection pool", ErrPersistence)
	}

	start := time.Now()
	result, err := db.pool.Exec(ctx, sql, args...)
	duration := time.Since(start)

	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", "exec"),
			slog.String("query", sql),
			slog.Duration("took", duration),
			slog.Any("error", err),
		)
		return result, err
	}

	slog.Info("Query executed",
		slog.String("type", "db"),
		slog.String("operation", "exec"),
		slog.String("query", sql),
		slog.Duration("took", duration),
		slog.Int64("affected_rows", result.RowsAffected()),
	)
	return result, nil
}

func (db *DB) QueryWithLog(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if db.pool == nil {
		return nil, fmt.Errorf("%w: no connection pool", ErrPersistence)
	}

	start := time.Now()
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", "query"),
			slog.String("query", sql),
			slog.Duration("took", time.Since(start)),
			slog.Any("error", err),
		)
		return rows, err
	}
	return rows, nil
}

// Stats reports pool usage for the version command.
func (db *DB) Stats() (acquired, total int32) {
	if db.pool == nil {
		return 0, 0
	}
	s := db.pool.Stat()
	return s.AcquiredConns(), s.TotalConns()
}

// InitializeSchema runs the migrator with an optional snapshot archiver.
func (db *DB) InitializeSchema(ctx context.Context, archiver SnapshotArchiver) (*MigrationReport, error) {
	return NewMigrator(db.bunDB, archiver).Run(ctx)
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		if err := db.bunDB.Close(); err != nil {
			slog.Error("Failed to close database",
				slog.String("type", "db"),
				slog.Any("error", err))
		}
	}
}
