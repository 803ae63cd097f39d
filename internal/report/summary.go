package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sparkify/sparkify-etl/internal/store"
)

// SummaryReport represents a complete summary report
type SummaryReport struct {
	GeneratedAt time.Time

	// Table statistics
	Stats    store.Stats
	TopSongs []store.TopSong

	// Event log statistics
	RunID        string
	FilesLoaded  int
	FilesSkipped int
	FilesFailed  int
	TopErrors    []ErrorSummary

	// Metadata
	Target       string
	EventLogPath string
}

// ErrorSummary represents an error with its count
type ErrorSummary struct {
	Error string
	Count int
}

// GenerateSummaryReport creates a summary report from the database and an optional event log
func GenerateSummaryReport(ctx context.Context, db *store.Store, eventLogPath string) (*SummaryReport, error) {
	report := &SummaryReport{
		GeneratedAt:  time.Now(),
		EventLogPath: eventLogPath,
		TopErrors:    make([]ErrorSummary, 0),
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		return nil, err
	}
	report.Stats = *stats

	report.TopSongs, err = db.TopSongs(ctx, 10)
	if err != nil {
		return nil, err
	}

	if eventLogPath != "" {
		events, err := ReadEvents(eventLogPath)
		if err != nil {
			return nil, err
		}
		summarizeEvents(report, events)
	}

	return report, nil
}

// summarizeEvents fills the event log section of a report
func summarizeEvents(report *SummaryReport, events []Event) {
	for _, ev := range events {
		if report.RunID == "" {
			report.RunID = ev.RunID
		}
		switch ev.Event {
		case EventLoad:
			report.FilesLoaded++
		case EventSkip:
			report.FilesSkipped++
		case EventError:
			report.FilesFailed++
		}
	}
	report.TopErrors = gatherTopErrors(events, 10)
}

// gatherTopErrors returns the most common error messages of skipped or failed files
func gatherTopErrors(events []Event, limit int) []ErrorSummary {
	errorCounts := make(map[string]int)
	for _, ev := range events {
		if ev.Error != "" {
			errorCounts[ev.Error]++
		}
	}

	errors := make([]ErrorSummary, 0, len(errorCounts))
	for err, count := range errorCounts {
		errors = append(errors, ErrorSummary{
			Error: err,
			Count: count,
		})
	}

	// Sort by count (descending), then message for a stable order
	sort.Slice(errors, func(i, j int) bool {
		if errors[i].Count != errors[j].Count {
			return errors[i].Count > errors[j].Count
		}
		return errors[i].Error < errors[j].Error
	})

	if len(errors) > limit {
		errors = errors[:limit]
	}

	return errors
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Sparkify ETL - Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	if report.Target != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", report.Target))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	// Tables
	st := report.Stats
	md.WriteString("## Tables\n\n")
	md.WriteString("| Table | Rows |\n")
	md.WriteString("|-------|------|\n")
	md.WriteString(fmt.Sprintf("| songs | %s |\n", humanize.Comma(st.Songs)))
	md.WriteString(fmt.Sprintf("| artists | %s |\n", humanize.Comma(st.Artists)))
	md.WriteString(fmt.Sprintf("| users | %s |\n", humanize.Comma(st.Users)))
	md.WriteString(fmt.Sprintf("| time | %s |\n", humanize.Comma(st.TimeEntries)))
	md.WriteString(fmt.Sprintf("| songplays | %s |\n", humanize.Comma(st.SongPlays)))
	md.WriteString("\n")

	if st.SongPlays > 0 {
		pct := float64(st.ResolvedSongPlays) / float64(st.SongPlays) * 100
		md.WriteString(fmt.Sprintf("**Resolved plays:** %s of %s (%.1f%%)\n\n",
			humanize.Comma(st.ResolvedSongPlays), humanize.Comma(st.SongPlays), pct))
	}

	// Top songs
	if len(report.TopSongs) > 0 {
		md.WriteString("## Most Played Songs\n\n")
		md.WriteString("| # | Title | Artist | Plays |\n")
		md.WriteString("|---|-------|--------|-------|\n")
		for i, s := range report.TopSongs {
			md.WriteString(fmt.Sprintf("| %d | %s | %s | %d |\n", i+1, s.Title, s.Artist, s.Plays))
		}
		md.WriteString("\n")
	}

	// Run
	if report.FilesLoaded > 0 || report.FilesSkipped > 0 || report.FilesFailed > 0 {
		md.WriteString("## Run\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		if report.RunID != "" {
			md.WriteString(fmt.Sprintf("| Run ID | `%s` |\n", report.RunID))
		}
		md.WriteString(fmt.Sprintf("| Files Loaded | %d |\n", report.FilesLoaded))
		if report.FilesSkipped > 0 {
			md.WriteString(fmt.Sprintf("| Files Skipped | %d |\n", report.FilesSkipped))
		}
		if report.FilesFailed > 0 {
			md.WriteString(fmt.Sprintf("| Files Failed | %d |\n", report.FilesFailed))
		}
		md.WriteString("\n")
	}

	// Errors
	if len(report.TopErrors) > 0 {
		md.WriteString("## Top Errors\n\n")
		md.WriteString("| Count | Error |\n")
		md.WriteString("|-------|-------|\n")
		for _, err := range report.TopErrors {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", err.Count, truncatePath(err.Error, 120)))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by sparkify-etl*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// truncatePath truncates a file path to a maximum length
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	// Truncate from the middle, keeping start and end
	start := maxLen/2 - 2
	end := len(path) - (maxLen/2 - 2)
	return path[:start] + "..." + path[end:]
}
