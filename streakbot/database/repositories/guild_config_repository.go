package repositories

import (
	"context"

	"github.com/streakbot/streakbot/internal/domain/guilds"
	"github.com/streakbot/streakbot/streakbot/database"
	"github.com/streakbot/streakbot/streakbot/database/models"
	"github.com/uptrace/bun"
)

type guildConfigRepository struct {
	*BaseRepository
}

func NewGuildConfigRepository(db *bun.DB, txOpts database.TxOptions) guilds.Repository {
	return &guildConfigRepository{BaseRepository: NewBaseRepository(db, txOpts)}
}

func (r *guildConfigRepository) Get(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	cfg := new(models.GuildConfig)
	err := r.db.NewSelect().
		Model(cfg).
		Where("guild_id = ?", guildID).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("get guild config", guilds.ErrNotFound, err)
	}
	if cfg.TriggerWords == nil {
		cfg.TriggerWords = []string{}
	}
	return cfg, nil
}

func (r *guildConfigRepository) Create(ctx context.Context, cfg *models.GuildConfig) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewInsert().
		Model(cfg).
		On("CONFLICT (guild_id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	return r.HandleError("create guild config", guilds.ErrNotFound, err)
}

func (r *guildConfigRepository) Modify(ctx context.Context, guildID string, fn func(cfg *models.GuildConfig) error) (*models.GuildConfig, error) {
	var out *models.GuildConfig
	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		cfg := new(models.GuildConfig)
		q := tx.NewSelect().
			Model(cfg).
			Where("guild_id = ?", guildID)
		if err := database.ForUpdate(q, tx).Scan(ctx); err != nil {
			return r.HandleError("lock guild config", guilds.ErrNotFound, err)
		}
		if cfg.TriggerWords == nil {
			cfg.TriggerWords = []string{}
		}

		if err := fn(cfg); err != nil {
			return err
		}

		_, err := tx.NewUpdate().
			Model(cfg).
			ExcludeColumn("created_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return r.HandleError("update guild config", guilds.ErrNotFound, err)
		}
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
