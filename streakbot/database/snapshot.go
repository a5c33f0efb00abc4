package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Snapshot is an in-memory copy of every existing table the migrator touches.
type Snapshot struct {
	TakenAt time.Time                           `json:"taken_at"`
	Tables  map[string][]map[string]interface{} `json:"tables"`

	models map[string]any
}

func takeSnapshot(ctx context.Context, db *bun.DB, tables []table) (*Snapshot, error) {
	snap := &Snapshot{
		TakenAt: time.Now().UTC(),
		Tables:  make(map[string][]map[string]interface{}, len(tables)),
		models:  make(map[string]any, len(tables)),
	}

	for _, t := range tables {
		exists, err := tableExists(ctx, db, t.Name)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}

		rows := make([]map[string]interface{}, 0)
		if err := db.NewSelect().TableExpr(t.Name).Scan(ctx, &rows); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", t.Name, err)
		}
		for _, row := range rows {
			normalizeRow(row)
		}
		snap.Tables[t.Name] = rows
		snap.models[t.Name] = t.Model
	}
	return snap, nil
}

// normalizeRow turns raw byte columns (jsonb, text on some drivers) into
// strings so they are re-inserted as literals rather than bytea.
func normalizeRow(row map[string]interface{}) {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
}

func (s *Snapshot) RowCount() int {
	n := 0
	for _, rows := range s.Tables {
		n += len(rows)
	}
	return n
}

func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot decodes an archived snapshot. Numbers are kept as
// json.Number so large ids survive the round trip.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	snap.models = make(map[string]any, len(schemaTables))
	for _, t := range schemaTables {
		snap.models[t.Name] = t.Model
	}
	for name := range snap.Tables {
		if _, ok := snap.models[name]; !ok {
			return nil, fmt.Errorf("snapshot contains unknown table %q", name)
		}
	}
	return &snap, nil
}

// Restore brings every snapshotted table back to its captured rows. Tables
// whose row count already matches the snapshot are left alone, which is the
// normal outcome after a rolled back transaction. It reports whether any
// table had to be rewritten.
func (s *Snapshot) Restore(ctx context.Context, db *bun.DB) (bool, error) {
	return s.restore(ctx, db, false)
}

// RestoreAll rewrites every snapshotted table regardless of its current
// contents.
func (s *Snapshot) RestoreAll(ctx context.Context, db *bun.DB) error {
	_, err := s.restore(ctx, db, true)
	return err
}

func (s *Snapshot) restore(ctx context.Context, db *bun.DB, force bool) (bool, error) {
	restored := false
	for name, rows := range s.Tables {
		ok, err := s.restoreTable(ctx, db, name, rows, force)
		if err != nil {
			return restored, fmt.Errorf("failed to restore %s: %w", name, err)
		}
		restored = restored || ok
	}
	return restored, nil
}

func (s *Snapshot) restoreTable(ctx context.Context, db *bun.DB, name string, rows []map[string]interface{}, force bool) (bool, error) {
	exists, err := tableExists(ctx, db, name)
	if err != nil {
		return false, err
	}
	if exists && !force {
		n, err := db.NewSelect().TableExpr(name).Count(ctx)
		if err != nil {
			return false, err
		}
		if n == len(rows) {
			return false, nil
		}
	}

	slog.Warn("Restoring table from snapshot",
		slog.String("type", "db"),
		slog.String("table", name),
		slog.Int("rows", len(rows)))

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if !exists {
			model, ok := s.models[name]
			if !ok {
				return fmt.Errorf("no model known for %s", name)
			}
			if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}
		if _, err := tx.NewRaw("DELETE FROM ?", bun.Ident(name)).Exec(ctx); err != nil {
			return err
		}
		for i := range rows {
			row := rows[i]
			if _, err := tx.NewInsert().Model(&row).TableExpr(name).Exec(ctx); err != nil {
				return err
			}
		}
		return resetSequence(ctx, tx, name, rows)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// resetSequence moves a PostgreSQL serial id past the restored rows so later
// inserts do not collide with them.
func resetSequence(ctx context.Context, tx bun.Tx, name string, rows []map[string]interface{}) error {
	if tx.Dialect().Name() != dialect.PG || len(rows) == 0 {
		return nil
	}
	if _, ok := rows[0]["id"]; !ok {
		return nil
	}
	_, err := tx.NewRaw(
		"SELECT setval(pg_get_serial_sequence(?, 'id'), COALESCE((SELECT MAX(id) FROM ?), 0) + 1, false)",
		name, bun.Ident(name),
	).Exec(ctx)
	return err
}
