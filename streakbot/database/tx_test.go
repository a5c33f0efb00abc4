package database_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/streakbot/streakbot/streakbot/database"
	"github.com/streakbot/streakbot/streakbot/database/dbtest"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestRunInTxRetriesTransientErrors(t *testing.T) {
	db := dbtest.Open(t)
	opts := dbtest.TxOptions()

	attempts := 0
	err := database.RunInTx(context.Background(), db, opts, func(ctx context.Context, tx bun.Tx) error {
		attempts++
		if attempts < 3 {
			return driver.ErrBadConn
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRunInTxGivesUpAfterMaxRetries(t *testing.T) {
	db := dbtest.Open(t)
	opts := dbtest.TxOptions()
	opts.MaxRetries = 2

	attempts := 0
	err := database.RunInTx(context.Background(), db, opts, func(ctx context.Context, tx bun.Tx) error {
		attempts++
		return driver.ErrBadConn
	})
	require.ErrorIs(t, err, driver.ErrBadConn)
	require.Equal(t, 3, attempts)
}

func TestRunInTxDoesNotRetryRuleErrors(t *testing.T) {
	db := dbtest.Open(t)
	rule := errors.New("not allowed")

	attempts := 0
	err := database.RunInTx(context.Background(), db, dbtest.TxOptions(), func(ctx context.Context, tx bun.Tx) error {
		attempts++
		return rule
	})
	require.Equal(t, rule, err)
	require.Equal(t, 1, attempts)
}

func TestRunInTxRollsBack(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	err := database.RunInTx(ctx, db, dbtest.TxOptions(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO streaks (guild_id, user_id, trigger_word, count, best_streak, streak_streak, last_updated, last_raid_success, created_at) VALUES ('g', 'u', 'w', 1, 1, 0, CURRENT_TIMESTAMP, FALSE, CURRENT_TIMESTAMP)")
		require.NoError(t, err)
		return errors.New("abort")
	})
	require.Error(t, err)

	n, err := db.NewSelect().TableExpr("streaks").Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"connection exception", &pgconn.PgError{Code: "08006"}, true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"no rows", sql.ErrNoRows, false},
		{"deadline", context.DeadlineExceeded, false},
		{"plain", errors.New("nope"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := database.IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	require.NoError(t, database.Wrap("op", nil))
	require.Equal(t, sql.ErrNoRows, database.Wrap("op", sql.ErrNoRows))

	err := database.Wrap("select", errors.New("disk"))
	require.ErrorIs(t, err, database.ErrPersistence)
	require.Same(t, err, database.Wrap("again", err))
}
