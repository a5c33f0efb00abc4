package database

import (
	"context"

	"github.com/uptrace/bun"
)

func (m *Migrator) SetAfterApply(fn func(ctx context.Context, tx bun.Tx) error) {
	m.afterApply = fn
}

func TakeSnapshot(ctx context.Context, db *bun.DB) (*Snapshot, error) {
	return takeSnapshot(ctx, db, schemaTables)
}
