package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/streakbot/streakbot/streakbot"
	"github.com/streakbot/streakbot/streakbot/database"
	"github.com/streakbot/streakbot/streakbot/logger"
	"github.com/streakbot/streakbot/streakbot/services"
)

var errArchiveDisabled = errors.New("no [archive] bucket configured")

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect and restore archived pre-migration snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		archive, err := openArchive(cmd, cfg)
		if err != nil {
			return err
		}

		infos, err := archive.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSIZE\tLAST MODIFIED")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%d\t%s\n", info.Key, info.Size, info.LastModified.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var restoreYes bool

var snapshotsRestoreCmd = &cobra.Command{
	Use:   "restore <key>",
	Short: "Replace the streak tables with an archived snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !restoreYes {
			return errors.New("restore overwrites every streak and guild config; pass --yes to confirm")
		}
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		archive, err := openArchive(cmd, cfg)
		if err != nil {
			return err
		}
		data, err := archive.Fetch(ctx, args[0])
		if err != nil {
			return err
		}
		snap, err := database.UnmarshalSnapshot(data)
		if err != nil {
			return err
		}

		db, err := streakbot.OpenDatabase(ctx, *cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err = snap.RestoreAll(ctx, db.BunDB()); err != nil {
			return err
		}
		logger.LogSystem("Snapshot restored",
			"key", args[0],
			"rows", snap.RowCount(),
			"taken_at", snap.TakenAt)
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %d rows from %s\n", snap.RowCount(), args[0])
		return nil
	},
}

func openArchive(cmd *cobra.Command, cfg *streakbot.Config) (*services.SnapshotArchive, error) {
	archive, err := streakbot.OpenArchive(cmd.Context(), *cfg)
	if err != nil {
		return nil, err
	}
	if archive == nil {
		return nil, errArchiveDisabled
	}
	return archive, nil
}

func init() {
	snapshotsRestoreCmd.Flags().BoolVar(&restoreYes, "yes", false, "confirm overwriting the current tables")
	snapshotsCmd.AddCommand(snapshotsListCmd, snapshotsRestoreCmd)
	rootCmd.AddCommand(snapshotsCmd)
}
