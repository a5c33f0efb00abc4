package streakbot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/streakbot/streakbot/internal/domain/guilds"
	"github.com/streakbot/streakbot/internal/domain/streaks"
	"github.com/streakbot/streakbot/streakbot/config"
	"github.com/streakbot/streakbot/streakbot/database"
	"github.com/streakbot/streakbot/streakbot/database/repositories"
	"github.com/streakbot/streakbot/streakbot/logger"
	"github.com/streakbot/streakbot/streakbot/services"
)

// NewLogHandler builds the process log handler from [log]. "json" switches
// to slog's JSON handler for log shippers; anything else is the colored
// console handler.
func NewLogHandler(cfg LogConfig) slog.Handler {
	if cfg.Format == "json" {
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     cfg.Level,
			AddSource: cfg.AddSource,
		})
	}
	return logger.NewHandler(logger.Options{
		Level:   cfg.Level,
		NoColor: cfg.NoColor,
	})
}

func (c DBConfig) toDatabase() database.DBConfig {
	return database.DBConfig{
		Host:           c.Host,
		Port:           c.Port,
		User:           c.User,
		Password:       c.Password,
		Database:       c.Database,
		SSLMode:        c.SSLMode,
		PoolSize:       c.PoolSize,
		AcquireTimeout: c.AcquireTimeout.Std(),
		MaxRetries:     c.MaxRetries,
		RetryBackoff:   c.RetryBackoff.Std(),
	}
}

// OpenDatabase connects to PostgreSQL with the [db] settings.
func OpenDatabase(ctx context.Context, cfg Config) (*database.DB, error) {
	start := time.Now()
	db, err := database.New(ctx, cfg.DB.toDatabase())
	if err != nil {
		return nil, err
	}

	logger.LogSystem("Database connected",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(start)))
	return db, nil
}

// OpenArchive returns nil when no archive bucket is configured.
func OpenArchive(ctx context.Context, cfg Config) (*services.SnapshotArchive, error) {
	if !cfg.Archive.Enabled() {
		return nil, nil
	}
	return services.NewSnapshotArchive(ctx, services.ArchiveConfig{
		Endpoint: cfg.Archive.Endpoint,
		Region:   cfg.Archive.Region,
		Bucket:   cfg.Archive.Bucket,
		Prefix:   cfg.Archive.Prefix,
		Key:      cfg.Archive.Key,
		Secret:   cfg.Archive.Secret,
	})
}

// Migrate runs the schema migrator, archiving the pre-migration snapshot
// when archive is non-nil.
func Migrate(ctx context.Context, db *database.DB, archive *services.SnapshotArchive) (*database.MigrationReport, error) {
	var archiver database.SnapshotArchiver
	if archive != nil {
		archiver = archive
	}

	report, err := db.InitializeSchema(ctx, archiver)
	if err != nil {
		return report, fmt.Errorf("schema migration failed: %w", err)
	}
	return report, nil
}

// Wire builds the ledger and guild settings on top of db.
func (b *Bot) Wire(db *database.DB, archive *services.SnapshotArchive) error {
	txOpts := b.Cfg.DB.toDatabase().TxOptions()

	guildService, err := guilds.NewService(
		repositories.NewGuildConfigRepository(db.BunDB(), txOpts),
		config.GuildConfigCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create guild service: %w", err)
	}

	b.DB = db
	b.Archive = archive
	b.Guilds = guildService
	b.Streaks = streaks.NewService(repositories.NewStreakRepository(db.BunDB(), txOpts))
	return nil
}
