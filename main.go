package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/streakbot/streakbot/streakbot"
	"github.com/streakbot/streakbot/streakbot/commands"
	"github.com/streakbot/streakbot/streakbot/commands/admin"
	"github.com/streakbot/streakbot/streakbot/commands/economy"
	"github.com/streakbot/streakbot/streakbot/commands/system"
	"github.com/streakbot/streakbot/streakbot/config"
	"github.com/streakbot/streakbot/streakbot/handlers"
	"github.com/streakbot/streakbot/streakbot/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(logger.Options{})))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := streakbot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.SetDefault(slog.New(streakbot.NewLogHandler(cfg.Log)))

	slog.Info("Starting StreakBot",
		slog.String("type", "sys"),
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), config.MigrationTimeout+time.Minute)
	defer cancel()

	db, err := streakbot.OpenDatabase(ctx, *cfg)
	if err != nil {
		slog.Error("Database connection failed", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}
	defer db.Close()

	archive, err := streakbot.OpenArchive(ctx, *cfg)
	if err != nil {
		// archiving is best effort; migrations still snapshot in memory
		slog.Warn("Snapshot archive unavailable", slog.String("type", "sys"), slog.Any("error", err))
	}

	report, err := streakbot.Migrate(ctx, db, archive)
	if err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.Bool("restored", report != nil && report.Restored))
		db.Close()
		os.Exit(-1)
	}
	logger.LogSystem("Database schema ready",
		slog.Any("tables_created", report.TablesCreated),
		slog.Any("columns_added", report.ColumnsAdded),
		slog.Duration("took", report.Took))

	b := streakbot.New(*cfg, version, commit)
	if err = b.Wire(db, archive); err != nil {
		slog.Error("Failed to wire services", slog.String("type", "sys"), slog.Any("error", err))
		db.Close()
		os.Exit(-1)
	}

	words := commands.WordAutocompleteHandler(b)

	h := handler.New()
	h.Command("/version", handlers.WrapWithLogging("version", system.VersionHandler(b)))

	h.Command("/streak", handlers.WrapWithLogging("streak", commands.StreakHandler(b)))
	h.Autocomplete("/streak", words)
	h.Command("/leaderboard", handlers.WrapWithLogging("leaderboard", commands.LeaderboardHandler(b)))
	h.Autocomplete("/leaderboard", words)

	h.Command("/gamble", handlers.WrapWithLogging("gamble", economy.GambleHandler(b)))
	h.Autocomplete("/gamble", words)
	h.Command("/raid", handlers.WrapWithLogging("raid", economy.RaidHandler(b)))
	h.Autocomplete("/raid", words)

	h.Command("/config", handlers.WrapWithLogging("config", admin.ConfigHandler(b)))
	h.Autocomplete("/config", words)
	h.Command("/reset", handlers.WrapWithLogging("reset", admin.ResetHandler(b)))
	h.Autocomplete("/reset", words)

	triggers := handlers.NewTriggerListener(b.Guilds, b.Streaks)

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady), bot.NewListenerFunc(triggers.OnMessage)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "bot_setup"))
		db.Close()
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("component", "command_sync"))
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "gateway"))
		return
	}

	slog.Info("Bot is running. Press CTRL-C to exit.", slog.String("type", "sys"))
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...", slog.String("type", "sys"))
}
