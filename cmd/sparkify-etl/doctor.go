package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sparkify/sparkify-etl/internal/scan"
	"github.com/sparkify/sparkify-etl/internal/store"
	"github.com/sparkify/sparkify-etl/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure sparkify-etl can load data.

This command checks:
- Configuration (database driver)
- Database connectivity and server version
- Star schema tables (songs, artists, users, time, songplays)
- Song and log data directories and their JSON files
- Event log directory permissions and disk space

Use this command to troubleshoot issues before running a load.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== Sparkify ETL Doctor - System Diagnostics ===")
	util.InfoLog("")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results := []checkResult{}

	cfg, err := loadConfig()
	if err != nil {
		results = append(results, checkResult{
			name:    "Configuration",
			error:   true,
			message: err.Error(),
		})
	} else {
		results = append(results, checkResult{
			name:    "Configuration",
			message: fmt.Sprintf("driver %s", cfg.DB.Driver),
		})
		results = append(results, checkDatabase(ctx, cfg.DB)...)
		results = append(results, checkDataDirectory("Song data", cfg.SongRoot, cfg.Extensions))
		results = append(results, checkDataDirectory("Log data", cfg.LogRoot, cfg.Extensions))
	}

	eventsDir := viper.GetString("events-dir")
	if eventsDir != "" {
		results = append(results, checkEventsDirectory(eventsDir))
		results = append(results, checkDiskSpace(eventsDir, "events"))
	}

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	// Summary
	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. Please resolve errors before loading.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("✅ All checks passed! Ready to load.")
	}

	return nil
}

// checkDatabase connects to the target database and inspects the star schema
func checkDatabase(ctx context.Context, cfg store.Config) []checkResult {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return []checkResult{{
			name:    "Database",
			error:   true,
			message: err.Error(),
		}}
	}
	defer db.Close()

	results := []checkResult{}

	version, err := db.Version(ctx)
	if err != nil {
		results = append(results, checkResult{
			name:    "Database",
			warning: true,
			message: fmt.Sprintf("%s (connected, %v)", cfg.Redacted(), err),
		})
	} else {
		// Postgres reports a long build string; the first two words are enough
		if fields := strings.Fields(version); len(fields) > 2 {
			version = strings.Join(fields[:2], " ")
		}
		results = append(results, checkResult{
			name:    "Database",
			message: fmt.Sprintf("%s (%s %s)", cfg.Redacted(), db.Driver(), version),
		})
	}

	missing, err := db.MissingTables(ctx)
	switch {
	case err != nil:
		results = append(results, checkResult{
			name:    "Schema",
			error:   true,
			message: err.Error(),
		})
	case len(missing) > 0:
		results = append(results, checkResult{
			name:    "Schema",
			warning: true,
			message: fmt.Sprintf("missing tables %s (run init-db or --create-schema)", strings.Join(missing, ", ")),
		})
	default:
		stats, err := db.Stats(ctx)
		if err != nil {
			results = append(results, checkResult{
				name:    "Schema",
				warning: true,
				message: fmt.Sprintf("tables present, counts unavailable: %v", err),
			})
			break
		}
		results = append(results, checkResult{
			name: "Schema",
			message: fmt.Sprintf("%d tables (%s songs, %s songplays)", len(store.Tables),
				humanize.Comma(stats.Songs), humanize.Comma(stats.SongPlays)),
		})
	}

	return results
}

// checkDataDirectory verifies a data root exists and holds input files
func checkDataDirectory(label, path string, exts []string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		return checkResult{
			name:    label,
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    label,
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	files, err := scan.FindFiles(path, exts...)
	if err != nil {
		return checkResult{
			name:    label,
			error:   true,
			message: err.Error(),
		}
	}

	if len(files) == 0 {
		return checkResult{
			name:    label,
			warning: true,
			message: fmt.Sprintf("%s (no input files)", path),
		}
	}

	return checkResult{
		name:    label,
		message: fmt.Sprintf("%s (%d files)", path, len(files)),
	}
}

// checkEventsDirectory verifies the event log directory is writable
func checkEventsDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0755); err != nil {
				return checkResult{
					name:    "Events directory",
					error:   true,
					message: fmt.Sprintf("cannot create %s: %v", path, err),
				}
			}
			return checkResult{
				name:    "Events directory",
				message: fmt.Sprintf("%s (created)", path),
			}
		}
		return checkResult{
			name:    "Events directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Events directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	testFile := filepath.Join(path, ".sparkify_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Events directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Events directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedBytes := totalBytes - (stat.Bfree * uint64(stat.Bsize))

	usedPercent := 0.0
	if totalBytes > 0 {
		usedPercent = float64(usedBytes) / float64(totalBytes) * 100
	}

	// Event logs are small; only a nearly full disk matters
	warning := false
	warningMsg := ""
	if availBytes < 100*1024*1024 {
		warning = true
		warningMsg = " (low space!)"
	} else if usedPercent > 95 {
		warning = true
		warningMsg = " (>95% used)"
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		warning: warning,
		message: fmt.Sprintf("%s available%s", humanize.IBytes(availBytes), warningMsg),
	}
}
