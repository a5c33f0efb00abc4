package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/streakbot/streakbot/streakbot/config"
	"github.com/streakbot/streakbot/streakbot/database/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// ErrSchemaIncomplete is returned when a table is still missing columns after
// the apply phase.
var ErrSchemaIncomplete = errors.New("schema incomplete after migration")

type column struct {
	Name    string
	Type    string
	Default string
	NotNull bool
}

type table struct {
	Name    string
	Model   any
	Key     []string
	Columns []column
}

type index struct {
	Name    string
	Table   string
	Unique  bool
	Columns string
}

// Key columns cannot be added after the fact. A table missing one of them
// fails verification instead.
var schemaTables = []table{
	{
		Name:  "guild_configs",
		Model: (*models.GuildConfig)(nil),
		Key:   []string{"guild_id"},
		Columns: []column{
			{Name: "trigger_words", Type: "JSONB"},
			{Name: "streak_limit", Type: "INTEGER", Default: "0", NotNull: true},
			{Name: "streak_streak_enabled", Type: "BOOLEAN", Default: "TRUE", NotNull: true},
			{Name: "raid_enabled", Type: "BOOLEAN", Default: "FALSE", NotNull: true},
			{Name: "raid_base_chance", Type: "DOUBLE PRECISION", Default: "0.5", NotNull: true},
			{Name: "raid_initiator_bonus", Type: "DOUBLE PRECISION", Default: "0.05", NotNull: true},
			{Name: "raid_steal_percentage", Type: "DOUBLE PRECISION", Default: "0.2", NotNull: true},
			{Name: "raid_risk_percentage", Type: "DOUBLE PRECISION", Default: "0.15", NotNull: true},
			{Name: "raid_min_steal", Type: "INTEGER", Default: "5", NotNull: true},
			{Name: "raid_max_steal", Type: "INTEGER", Default: "30", NotNull: true},
			{Name: "raid_min_risk", Type: "INTEGER", Default: "3", NotNull: true},
			{Name: "raid_max_risk", Type: "INTEGER", Default: "20", NotNull: true},
			{Name: "raid_success_cooldown_hours", Type: "INTEGER", Default: "4", NotNull: true},
			{Name: "raid_failure_cooldown_hours", Type: "INTEGER", Default: "2", NotNull: true},
			{Name: "gamble_enabled", Type: "BOOLEAN", Default: "FALSE", NotNull: true},
			{Name: "gamble_success_chance", Type: "DOUBLE PRECISION", Default: "0.5", NotNull: true},
			{Name: "gamble_max_percentage", Type: "DOUBLE PRECISION", Default: "0.5", NotNull: true},
			{Name: "gamble_min_streak", Type: "INTEGER", Default: "10", NotNull: true},
			{Name: "created_at", Type: "TIMESTAMP", Default: "CURRENT_TIMESTAMP", NotNull: true},
			{Name: "updated_at", Type: "TIMESTAMP", Default: "CURRENT_TIMESTAMP", NotNull: true},
		},
	},
	{
		Name:  "streaks",
		Model: (*models.Streak)(nil),
		Key:   []string{"id", "guild_id", "user_id", "trigger_word"},
		Columns: []column{
			{Name: "count", Type: "INTEGER", Default: "0", NotNull: true},
			{Name: "best_streak", Type: "INTEGER", Default: "0", NotNull: true},
			{Name: "streak_streak", Type: "INTEGER", Default: "0", NotNull: true},
			{Name: "last_streak_date", Type: "TIMESTAMP"},
			{Name: "last_updated", Type: "TIMESTAMP", Default: "CURRENT_TIMESTAMP", NotNull: true},
			{Name: "last_raid_at", Type: "TIMESTAMP"},
			{Name: "last_raid_success", Type: "BOOLEAN", Default: "FALSE", NotNull: true},
			{Name: "created_at", Type: "TIMESTAMP", Default: "CURRENT_TIMESTAMP", NotNull: true},
		},
	},
}

var schemaIndexes = []index{
	{Name: "idx_streaks_guild_user_word", Table: "streaks", Unique: true, Columns: "guild_id, user_id, trigger_word"},
	{Name: "idx_streaks_guild_word_count", Table: "streaks", Columns: "guild_id, trigger_word, count DESC"},
	{Name: "idx_streaks_guild_user", Table: "streaks", Columns: "guild_id, user_id"},
}

type MigrationReport struct {
	TablesCreated []string
	ColumnsAdded  []string
	Restored      bool
	Took          time.Duration
}

// Changed reports whether the run altered the schema.
func (r *MigrationReport) Changed() bool {
	return len(r.TablesCreated) > 0 || len(r.ColumnsAdded) > 0
}

// SnapshotArchiver stores a copy of the pre-migration snapshot outside the
// database. Archive failures are logged and do not stop the migration.
type SnapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, name string, data []byte) error
}

type Migrator struct {
	db       *bun.DB
	archiver SnapshotArchiver
	timeout  time.Duration

	// afterApply runs inside the transaction once the schema changes are
	// applied; tests use it to force a failure.
	afterApply func(ctx context.Context, tx bun.Tx) error
}

func NewMigrator(db *bun.DB, archiver SnapshotArchiver) *Migrator {
	return &Migrator{
		db:       db,
		archiver: archiver,
		timeout:  config.MigrationTimeout,
	}
}

func (m *Migrator) WithTimeout(d time.Duration) *Migrator {
	m.timeout = d
	return m
}

// Run brings the schema up to date. It is safe to call on every startup:
// only missing tables, columns and indexes are created.
func (m *Migrator) Run(ctx context.Context) (*MigrationReport, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	snap, err := takeSnapshot(ctx, m.db, schemaTables)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot schema: %w", err)
	}
	slog.Info("Schema snapshot taken",
		slog.String("type", "db"),
		slog.Int("tables", len(snap.Tables)),
		slog.Int("rows", snap.RowCount()))

	if m.archiver != nil && snap.RowCount() > 0 {
		m.archive(ctx, snap)
	}

	report := &MigrationReport{}
	err = m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := m.apply(ctx, tx, report); err != nil {
			return err
		}
		if m.afterApply != nil {
			if err := m.afterApply(ctx, tx); err != nil {
				return err
			}
		}
		return verify(ctx, tx)
	})
	report.Took = time.Since(start)

	if err != nil {
		slog.Error("Migration failed, restoring snapshot",
			slog.String("type", "db"),
			slog.Any("error", err))

		restored, restoreErr := snap.Restore(context.WithoutCancel(ctx), m.db)
		report.Restored = restored
		if restoreErr != nil {
			slog.Error("Snapshot restore failed",
				slog.String("type", "db"),
				slog.Any("error", restoreErr))
			return report, errors.Join(fmt.Errorf("migration failed: %w", err), restoreErr)
		}
		return report, fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("Schema migration completed",
		slog.String("type", "db"),
		slog.Any("tables_created", report.TablesCreated),
		slog.Any("columns_added", report.ColumnsAdded),
		slog.Duration("took", report.Took))
	return report, nil
}

func (m *Migrator) archive(ctx context.Context, snap *Snapshot) {
	data, err := snap.Marshal()
	if err == nil {
		name := fmt.Sprintf("snapshot-%s.json", snap.TakenAt.Format("20060102T150405Z"))
		err = m.archiver.ArchiveSnapshot(ctx, name, data)
	}
	if err != nil {
		slog.Warn("Failed to archive schema snapshot",
			slog.String("type", "db"),
			slog.Any("error", err))
	}
}

func (m *Migrator) apply(ctx context.Context, tx bun.Tx, report *MigrationReport) error {
	for _, t := range schemaTables {
		exists, err := tableExists(ctx, tx, t.Name)
		if err != nil {
			return err
		}

		if !exists {
			if _, err := tx.NewCreateTable().Model(t.Model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table %s: %w", t.Name, err)
			}
			report.TablesCreated = append(report.TablesCreated, t.Name)
			continue
		}

		existing, err := tableColumns(ctx, tx, t.Name)
		if err != nil {
			return err
		}
		for _, c := range t.Columns {
			if existing[c.Name] {
				continue
			}
			q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", t.Name, c.definition(tx.Dialect().Name()))
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("failed to add column %s.%s: %w", t.Name, c.Name, err)
			}
			report.ColumnsAdded = append(report.ColumnsAdded, t.Name+"."+c.Name)
		}
	}

	for _, idx := range schemaIndexes {
		if _, err := tx.ExecContext(ctx, idx.statement()); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.Name, err)
		}
	}
	return backfill(ctx, tx)
}

// backfill repairs rows that predate a column. best_streak is added with a
// zero default, so legacy rows are raised to their current count.
func backfill(ctx context.Context, tx bun.Tx) error {
	res, err := tx.ExecContext(ctx, "UPDATE streaks SET best_streak = count WHERE best_streak < count")
	if err != nil {
		return fmt.Errorf("failed to backfill streaks.best_streak: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		slog.Info("Backfilled best streaks",
			slog.String("type", "db"),
			slog.Int64("rows", n))
	}
	return nil
}

func verify(ctx context.Context, tx bun.Tx) error {
	var missing []string
	for _, t := range schemaTables {
		existing, err := tableColumns(ctx, tx, t.Name)
		if err != nil {
			return err
		}
		for _, name := range t.Key {
			if !existing[name] {
				missing = append(missing, t.Name+"."+name)
			}
		}
		for _, c := range t.Columns {
			if !existing[c.Name] {
				missing = append(missing, t.Name+"."+c.Name)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrSchemaIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// SQLite rejects ADD COLUMN with a non-constant default, so such columns are
// added nullable there.
func (c column) definition(name dialect.Name) string {
	def := c.Name + " " + c.Type
	if name == dialect.SQLite && c.Default == "CURRENT_TIMESTAMP" {
		return def
	}
	if c.NotNull {
		def += " NOT NULL"
	}
	if c.Default != "" {
		def += " DEFAULT " + c.Default
	}
	return def
}

func (i index) statement() string {
	kind := "INDEX"
	if i.Unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)", kind, i.Name, i.Table, i.Columns)
}

func tableExists(ctx context.Context, db bun.IDB, name string) (bool, error) {
	var q string
	switch db.Dialect().Name() {
	case dialect.PG:
		q = "SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?"
	case dialect.SQLite:
		q = "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	default:
		return false, fmt.Errorf("unsupported dialect %s", db.Dialect().Name())
	}

	var n int
	if err := db.NewRaw(q, name).Scan(ctx, &n); err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", name, err)
	}
	return n > 0, nil
}

func tableColumns(ctx context.Context, db bun.IDB, name string) (map[string]bool, error) {
	var q string
	switch db.Dialect().Name() {
	case dialect.PG:
		q = "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ?"
	case dialect.SQLite:
		q = "SELECT name FROM pragma_table_info(?)"
	default:
		return nil, fmt.Errorf("unsupported dialect %s", db.Dialect().Name())
	}

	var names []string
	if err := db.NewRaw(q, name).Scan(ctx, &names); err != nil {
		return nil, fmt.Errorf("failed to inspect columns of %s: %w", name, err)
	}

	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[n] = true
	}
	return cols, nil
}
