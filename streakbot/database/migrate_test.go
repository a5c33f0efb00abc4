package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/streakbot/streakbot/streakbot/database"
	"github.com/streakbot/streakbot/streakbot/database/dbtest"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const legacyStreaks = `CREATE TABLE streaks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id VARCHAR NOT NULL,
	user_id VARCHAR NOT NULL,
	trigger_word VARCHAR NOT NULL,
	count INTEGER NOT NULL DEFAULT 0
)`

func seedLegacy(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx := context.Background()

	_, err := db.ExecContext(ctx, legacyStreaks)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		"INSERT INTO streaks (guild_id, user_id, trigger_word, count) VALUES ('g1', 'u1', 'gm', 7), ('g1', 'u2', 'gm', 3)")
	require.NoError(t, err)
}

func countRows(t *testing.T, db *bun.DB, table string) int {
	t.Helper()
	n, err := db.NewSelect().TableExpr(table).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestMigratorFreshDatabase(t *testing.T) {
	db := dbtest.OpenEmpty(t)
	ctx := context.Background()

	report, err := database.NewMigrator(db, nil).Run(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"guild_configs", "streaks"}, report.TablesCreated)
	require.Empty(t, report.ColumnsAdded)

	again, err := database.NewMigrator(db, nil).Run(ctx)
	require.NoError(t, err)
	require.False(t, again.Changed(), "second run must not alter the schema")
}

func TestMigratorAddsMissingColumns(t *testing.T) {
	db := dbtest.OpenEmpty(t)
	seedLegacy(t, db)
	ctx := context.Background()

	report, err := database.NewMigrator(db, nil).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"guild_configs"}, report.TablesCreated)
	require.Contains(t, report.ColumnsAdded, "streaks.best_streak")
	require.Contains(t, report.ColumnsAdded, "streaks.last_raid_at")
	require.NotContains(t, report.ColumnsAdded, "streaks.count")

	var counts []int
	require.NoError(t, db.NewRaw("SELECT count FROM streaks ORDER BY user_id").Scan(ctx, &counts))
	require.Equal(t, []int{7, 3}, counts)

	var best []int
	require.NoError(t, db.NewRaw("SELECT best_streak FROM streaks ORDER BY user_id").Scan(ctx, &best))
	require.Equal(t, []int{7, 3}, best)

	var behind int
	require.NoError(t, db.NewRaw("SELECT count(*) FROM streaks WHERE best_streak < count").Scan(ctx, &behind))
	require.Zero(t, behind)

	again, err := database.NewMigrator(db, nil).Run(ctx)
	require.NoError(t, err)
	require.Empty(t, again.ColumnsAdded)
	require.Empty(t, again.TablesCreated)
}

func TestMigratorRollsBackOnFailure(t *testing.T) {
	db := dbtest.OpenEmpty(t)
	seedLegacy(t, db)
	ctx := context.Background()

	boom := errors.New("boom")
	m := database.NewMigrator(db, nil)
	m.SetAfterApply(func(ctx context.Context, tx bun.Tx) error {
		return boom
	})

	report, err := m.Run(ctx)
	require.ErrorIs(t, err, boom)
	require.NotNil(t, report)
	require.False(t, report.Restored, "rolled back data already matches the snapshot")
	require.Equal(t, 2, countRows(t, db, "streaks"))

	var names []string
	require.NoError(t, db.NewRaw("SELECT name FROM pragma_table_info('streaks')").Scan(ctx, &names))
	require.NotContains(t, names, "best_streak")
}

func TestMigratorRejectsMissingKeyColumn(t *testing.T) {
	db := dbtest.OpenEmpty(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "CREATE TABLE guild_configs (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	_, err = database.NewMigrator(db, nil).Run(ctx)
	require.ErrorIs(t, err, database.ErrSchemaIncomplete)
	require.Contains(t, err.Error(), "guild_configs.guild_id")
}

func TestSnapshotRestore(t *testing.T) {
	db := dbtest.OpenEmpty(t)
	seedLegacy(t, db)
	ctx := context.Background()

	snap, err := database.TakeSnapshot(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 2, snap.RowCount())

	_, err = db.ExecContext(ctx, "DELETE FROM streaks WHERE user_id = 'u1'")
	require.NoError(t, err)

	restored, err := snap.Restore(ctx, db)
	require.NoError(t, err)
	require.True(t, restored)
	require.Equal(t, 2, countRows(t, db, "streaks"))

	restored, err = snap.Restore(ctx, db)
	require.NoError(t, err)
	require.False(t, restored)
}

func TestSnapshotArchiveRoundTrip(t *testing.T) {
	db := dbtest.OpenEmpty(t)
	seedLegacy(t, db)
	ctx := context.Background()

	snap, err := database.TakeSnapshot(ctx, db)
	require.NoError(t, err)
	data, err := snap.Marshal()
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "UPDATE streaks SET count = 0")
	require.NoError(t, err)

	decoded, err := database.UnmarshalSnapshot(data)
	require.NoError(t, err)
	require.Equal(t, 2, decoded.RowCount())

	// same row count, so only a forced restore rewrites the table
	restored, err := decoded.Restore(ctx, db)
	require.NoError(t, err)
	require.False(t, restored)

	require.NoError(t, decoded.RestoreAll(ctx, db))
	var total int
	require.NoError(t, db.NewRaw("SELECT SUM(count) FROM streaks").Scan(ctx, &total))
	require.NotZero(t, total)

	_, err = database.UnmarshalSnapshot([]byte(`{"tables":{"users":[]}}`))
	require.Error(t, err)
}

type recordingArchiver struct {
	names []string
	data  [][]byte
	err   error
}

func (a *recordingArchiver) ArchiveSnapshot(_ context.Context, name string, data []byte) error {
	a.names = append(a.names, name)
	a.data = append(a.data, data)
	return a.err
}

func TestMigratorArchivesSnapshot(t *testing.T) {
	db := dbtest.OpenEmpty(t)
	seedLegacy(t, db)

	archiver := &recordingArchiver{err: errors.New("bucket unavailable")}
	_, err := database.NewMigrator(db, archiver).Run(context.Background())
	require.NoError(t, err, "archive failures must not block the migration")
	require.Len(t, archiver.names, 1)
	require.Contains(t, string(archiver.data[0]), `"trigger_word":"gm"`)
}

func TestMigratorSkipsArchiveForEmptyDatabase(t *testing.T) {
	db := dbtest.OpenEmpty(t)

	archiver := &recordingArchiver{}
	_, err := database.NewMigrator(db, archiver).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, archiver.names)
}
