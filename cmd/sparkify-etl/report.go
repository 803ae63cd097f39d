package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sparkify/sparkify-etl/internal/report"
	"github.com/sparkify/sparkify-etl/internal/store"
	"github.com/sparkify/sparkify-etl/internal/util"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a summary report from the database and event logs",
	Long: `Generate a summary report in Markdown format.

The report includes:
- Row counts for every star schema table
- The share of plays resolved against the song catalog
- The most played resolved songs
- File counts and top errors from an event log (optional)

The report is saved to artifacts/reports/<timestamp>/summary.md`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	// Report-specific flags
	reportCmd.Flags().String("out", "", "Output directory for report (default: artifacts/reports/<timestamp>)")
	reportCmd.Flags().String("event-log", "", "Path to event log file (optional)")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	dbCfg, err := loadStoreConfig()
	if err != nil {
		return err
	}

	util.InfoLog("=== Generating Summary Report ===")
	util.InfoLog("Database: %s", dbCfg.Redacted())

	db, err := store.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eventLogPath, _ := cmd.Flags().GetString("event-log")

	summary, err := report.GenerateSummaryReport(ctx, db, eventLogPath)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	summary.Target = dbCfg.Redacted()

	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = filepath.Join(GetConfigString("events-dir", "artifacts"), "reports", time.Now().Format("20060102-150405"))
	}
	outPath := filepath.Join(outDir, "summary.md")

	if err := report.WriteMarkdownReport(summary, outPath); err != nil {
		return err
	}

	st := summary.Stats
	util.InfoLog("songs: %s, artists: %s, users: %s, time: %s, songplays: %s",
		humanize.Comma(st.Songs), humanize.Comma(st.Artists), humanize.Comma(st.Users),
		humanize.Comma(st.TimeEntries), humanize.Comma(st.SongPlays))
	util.SuccessLog("Report written to %s", outPath)
	return nil
}
