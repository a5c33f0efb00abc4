package repositories

import (
	"context"
	"time"

	"github.com/streakbot/streakbot/internal/domain/streaks"
	"github.com/streakbot/streakbot/streakbot/database"
	"github.com/streakbot/streakbot/streakbot/database/models"
	"github.com/uptrace/bun"
)

type streakRepository struct {
	*BaseRepository
}

func NewStreakRepository(db *bun.DB, txOpts database.TxOptions) streaks.Repository {
	return &streakRepository{BaseRepository: NewBaseRepository(db, txOpts)}
}

func (r *streakRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx streaks.Tx) error) error {
	return r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &streakTx{repo: r, tx: tx})
	})
}

func (r *streakRepository) Get(ctx context.Context, key models.StreakKey) (*models.Streak, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	st := new(models.Streak)
	err := r.db.NewSelect().
		Model(st).
		Where("guild_id = ? AND user_id = ? AND trigger_word = ?", key.GuildID, key.UserID, key.TriggerWord).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("get streak", streaks.ErrNotFound, err)
	}
	return st, nil
}

func (r *streakRepository) ListByWord(ctx context.Context, guildID, word string, limit int) ([]*models.Streak, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	start := time.Now()
	var rows []*models.Streak
	err := r.db.NewSelect().
		Model(&rows).
		Where("guild_id = ? AND trigger_word = ?", guildID, word).
		Where("count > 0").
		Order("count DESC", "best_streak DESC", "user_id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list streaks by word", streaks.ErrNotFound, err)
	}

	logQuery("ListByWord", start, len(rows))
	return rows, nil
}

func (r *streakRepository) ListByUser(ctx context.Context, guildID, userID string) ([]*models.Streak, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	start := time.Now()
	var rows []*models.Streak
	err := r.db.NewSelect().
		Model(&rows).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Order("count DESC", "trigger_word ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list streaks by user", streaks.ErrNotFound, err)
	}

	logQuery("ListByUser", start, len(rows))
	return rows, nil
}

type streakTx struct {
	repo *streakRepository
	tx   bun.Tx
}

func (t *streakTx) GetForUpdate(ctx context.Context, key models.StreakKey) (*models.Streak, error) {
	st := new(models.Streak)
	q := t.tx.NewSelect().
		Model(st).
		Where("guild_id = ? AND user_id = ? AND trigger_word = ?", key.GuildID, key.UserID, key.TriggerWord)

	if err := database.ForUpdate(q, t.tx).Scan(ctx); err != nil {
		return nil, t.repo.HandleError("lock streak", streaks.ErrNotFound, err)
	}
	return st, nil
}

func (t *streakTx) InsertIfAbsent(ctx context.Context, st *models.Streak) (bool, error) {
	res, err := t.tx.NewInsert().
		Model(st).
		ExcludeColumn("id").
		On("CONFLICT (guild_id, user_id, trigger_word) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return false, t.repo.HandleError("insert streak", streaks.ErrNotFound, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, database.Wrap("insert streak", err)
	}
	return n > 0, nil
}

func (t *streakTx) Update(ctx context.Context, st *models.Streak) error {
	_, err := t.tx.NewUpdate().
		Model(st).
		ExcludeColumn("id", "guild_id", "user_id", "trigger_word", "created_at").
		WherePK().
		Exec(ctx)
	return t.repo.HandleError("update streak", streaks.ErrNotFound, err)
}

func (t *streakTx) LastRaid(ctx context.Context, guildID, userID string) (*models.Streak, error) {
	var rows []*models.Streak
	err := t.tx.NewSelect().
		Model(&rows).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Where("last_raid_at IS NOT NULL").
		Order("last_raid_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, t.repo.HandleError("last raid", streaks.ErrNotFound, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
