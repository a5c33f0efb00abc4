package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streakbot/streakbot/streakbot/config"
	"github.com/streakbot/streakbot/streakbot/database"
	"github.com/streakbot/streakbot/streakbot/logger"
	"github.com/uptrace/bun"
)

// BaseRepository provides common repository functionality
type BaseRepository struct {
	db             *bun.DB
	txOpts         database.TxOptions
	defaultTimeout time.Duration
}

func NewBaseRepository(db *bun.DB, txOpts database.TxOptions) *BaseRepository {
	return &BaseRepository{
		db:             db,
		txOpts:         txOpts,
		defaultTimeout: config.DefaultQueryTimeout,
	}
}

// WithTimeout creates a context with the default timeout
func (br *BaseRepository) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, br.defaultTimeout)
}

// HandleError maps sql.ErrNoRows to notFound and tags everything else as a
// persistence failure.
func (br *BaseRepository) HandleError(operation string, notFound, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}

	slog.Error("Database operation failed",
		slog.String("type", "db"),
		slog.String("operation", operation),
		slog.Any("error", err))
	return database.Wrap(operation, err)
}

// Transaction runs fn with the configured timeout and transient retries.
func (br *BaseRepository) Transaction(ctx context.Context, fn func(context.Context, bun.Tx) error) error {
	return database.RunInTx(ctx, br.db, br.txOpts, fn)
}

func logQuery(operation string, start time.Time, rows int) {
	logger.LogQuery(fmt.Sprintf("%s (%d rows)", operation, rows), time.Since(start), nil)
}
