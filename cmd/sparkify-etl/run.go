package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sparkify/sparkify-etl/internal/etl"
	"github.com/sparkify/sparkify-etl/internal/report"
	"github.com/sparkify/sparkify-etl/internal/store"
	"github.com/sparkify/sparkify-etl/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load song and log files into the star schema",
	Long: `Load every song file, then every log file, into the star schema.

Each source file is loaded in its own transaction and committed before the
next one starts. Dimension tables (songs, artists, users, time) are safe to
reload. The songplays fact table is append-only: running twice over the same
logs stores every play twice unless --truncate-facts is given.`,
	RunE: runETL,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// addRunFlags registers the load flags on the root command so that both
// "sparkify-etl" and "sparkify-etl run" accept them
func addRunFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("song-data", "data/song_data", "root directory of the song files")
	flags.String("log-data", "data/log_data", "root directory of the log files")
	flags.StringSlice("extensions", []string{".json"}, "source file extensions")
	flags.Bool("continue-on-error", false, "roll back and skip files that fail instead of aborting")
	flags.Bool("truncate-facts", false, "empty songplays before loading")
	flags.Bool("create-schema", false, "create missing tables before loading")
	flags.Bool("no-progress", false, "log one line per file instead of drawing a progress bar")
	flags.String("events-dir", "artifacts", "directory for the JSONL event log")

	for _, name := range []string{"song-data", "log-data", "extensions", "continue-on-error",
		"truncate-facts", "create-schema", "no-progress", "events-dir"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

func runETL(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	util.InfoLog("Connecting to %s", cfg.DB.Redacted())
	st, err := store.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := ensureSchema(ctx, st, viper.GetBool("create-schema")); err != nil {
		return err
	}

	logLevel := report.LevelInfo
	if viper.GetBool("quiet") {
		logLevel = report.LevelWarning
	} else if viper.GetBool("verbose") {
		logLevel = report.LevelDebug
	}

	logger, err := report.NewEventLogger(GetConfigString("events-dir", "artifacts"), logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		logger = report.NullLogger()
	}
	defer logger.Close()

	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}

	pipeline := etl.New(st, cfg, logger)
	result, runErr := pipeline.Run(ctx)
	if result != nil {
		printResult(result)
	}
	if runErr != nil {
		return runErr
	}

	util.SuccessLog("Load complete in %v", result.Duration.Round(time.Millisecond))
	return nil
}

// ensureSchema creates or verifies the star schema tables
func ensureSchema(ctx context.Context, st *store.Store, create bool) error {
	if create {
		util.InfoLog("Creating missing tables")
		return st.CreateSchema(ctx)
	}

	missing, err := st.MissingTables(ctx)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tables %s (run \"sparkify-etl init-db\" or pass --create-schema)",
			strings.Join(missing, ", "))
	}
	return nil
}

func printResult(result *etl.Result) {
	kinds := []struct {
		name string
		r    etl.KindResult
	}{
		{"Song files", result.Songs},
		{"Log files", result.Logs},
	}

	for _, k := range kinds {
		if k.r.FilesFound == 0 {
			continue
		}
		util.InfoLog("%s: %d/%d loaded", k.name, k.r.FilesProcessed, k.r.FilesFound)
		if k.r.FilesSkipped > 0 {
			util.WarnLog("  Skipped: %d", k.r.FilesSkipped)
		}
	}

	rows := result.Songs.Rows
	rows.Add(result.Logs.Rows)
	util.InfoLog("  Songs: %s, artists: %s", humanize.Comma(int64(rows.Songs)), humanize.Comma(int64(rows.Artists)))
	util.InfoLog("  Time entries: %s, users: %s", humanize.Comma(int64(rows.TimeEntries)), humanize.Comma(int64(rows.Users)))
	util.InfoLog("  Song plays: %s (%s resolved)", humanize.Comma(int64(rows.SongPlays)), humanize.Comma(int64(rows.Resolved)))
}
