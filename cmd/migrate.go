package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/streakbot/streakbot/streakbot"
	"github.com/streakbot/streakbot/streakbot/services"
)

var noArchive bool

// runMigrate brings the database schema up to date.
func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := streakbot.OpenDatabase(ctx, *cfg)
	if err != nil {
		slog.Error("Failed to connect to database", slog.Any("error", err))
		return err
	}
	defer db.Close()

	var archive *services.SnapshotArchive
	if !noArchive {
		if archive, err = streakbot.OpenArchive(ctx, *cfg); err != nil {
			slog.Warn("Snapshot archive unavailable", slog.Any("error", err))
		}
	}

	report, err := streakbot.Migrate(ctx, db, archive)
	if err != nil {
		slog.Error("Migration failed", slog.Any("error", err))
		return err
	}

	out := cmd.OutOrStdout()
	if !report.Changed() {
		fmt.Fprintln(out, "Schema is up to date")
		return nil
	}
	for _, t := range report.TablesCreated {
		fmt.Fprintf(out, "created table %s\n", t)
	}
	for _, c := range report.ColumnsAdded {
		fmt.Fprintf(out, "added column %s\n", c)
	}
	fmt.Fprintf(out, "Migration completed in %s\n", report.Took)
	return nil
}

func init() {
	rootCmd.RunE = runMigrate
	rootCmd.Flags().BoolVar(&noArchive, "no-archive", false, "skip uploading the pre-migration snapshot")
}
