package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/streakbot/streakbot/streakbot"
	"github.com/streakbot/streakbot/streakbot/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the StreakBot schema up to date and manage snapshots",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(slog.New(logger.NewHandler(logger.Options{})))
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to config")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*streakbot.Config, error) {
	cfg, err := streakbot.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(streakbot.NewLogHandler(cfg.Log)))
	return cfg, nil
}
