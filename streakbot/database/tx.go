package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// ErrPersistence marks failures of the storage layer itself, as opposed to
// business rule rejections returned from inside a transaction.
var ErrPersistence = errors.New("persistence failure")

const DefaultTxTimeout = 5 * time.Second

// TxOptions configures transaction behavior
type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	Timeout        time.Duration
	MaxRetries     int
	Backoff        time.Duration
}

func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		Timeout:        DefaultTxTimeout,
		MaxRetries:     3,
		Backoff:        100 * time.Millisecond,
	}
}

// Wrap tags a storage error with ErrPersistence. sql.ErrNoRows passes through
// untouched so callers can map it to their own not-found error.
func Wrap(op string, err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// RunInTx executes fn in a transaction, retrying the whole unit when the
// failure is transient. The attempt that fails with a non-transient error, or
// the last retry, decides the returned error. Errors produced by fn are
// returned unchanged.
func RunInTx(ctx context.Context, db *bun.DB, opts TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTxTimeout
	}

	for attempt := 1; ; attempt++ {
		err := runOnce(ctx, db, opts, fn)
		if err == nil || !IsTransient(err) || attempt > opts.MaxRetries {
			return err
		}

		wait := opts.Backoff * time.Duration(attempt)
		slog.Warn("Transaction failed, retrying",
			slog.String("type", "db"),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
			slog.Any("error", err))

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		}
	}
}

func runOnce(ctx context.Context, db *bun.DB, opts TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	txOpts := &sql.TxOptions{}
	if db.Dialect().Name() == dialect.PG {
		txOpts.Isolation = opts.IsolationLevel
	}

	tx, err := db.BeginTx(timeoutCtx, txOpts)
	if err != nil {
		return Wrap("begin transaction", err)
	}
	defer tx.Rollback()

	if err = fn(timeoutCtx, tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return Wrap("commit transaction", err)
	}
	return nil
}

// ForUpdate adds a row lock on dialects that support it. SQLite serializes
// writers on its own.
func ForUpdate(q *bun.SelectQuery, db bun.IDB) *bun.SelectQuery {
	if db.Dialect().Name() == dialect.PG {
		return q.For("UPDATE")
	}
	return q
}

// IsTransient reports whether retrying the same unit of work may succeed:
// serialization failures, deadlocks, dropped connections and admin shutdowns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return transientCode(pgErr.Field('C'))
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return transientCode(pgxErr.Code)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func transientCode(code string) bool {
	switch code {
	case "40001", "40P01", "53300", "57P01", "57P02", "57P03":
		return true
	}
	return strings.HasPrefix(code, "08")
}
