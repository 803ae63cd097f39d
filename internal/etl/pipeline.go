// Package etl drives a load run: locate files, extract, transform and load them
// one transaction per source file.
package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sparkify/sparkify-etl/internal/report"
	"github.com/sparkify/sparkify-etl/internal/scan"
	"github.com/sparkify/sparkify-etl/internal/store"
	"github.com/sparkify/sparkify-etl/internal/util"
)

// Kind names a family of source files
type Kind string

const (
	KindSong Kind = "song"
	KindLog  Kind = "log"
)

// Config holds the settings of a load run
type Config struct {
	DB       store.Config
	SongRoot string
	LogRoot  string

	// Extensions filters source files; defaults to .json
	Extensions []string

	// ContinueOnError rolls back and skips a failing file instead of aborting the run
	ContinueOnError bool

	// TruncateFacts empties songplays before loading so a rerun does not duplicate plays
	TruncateFacts bool

	// Progress draws a progress bar instead of logging one line per file
	Progress bool
}

// DefaultConfig returns the configuration of a run against the local dataset
func DefaultConfig() Config {
	return Config{
		DB:       store.DefaultConfig(),
		SongRoot: "data/song_data",
		LogRoot:  "data/log_data",
	}
}

// FileFunc processes one source file inside tx and reports the rows it wrote
type FileFunc func(ctx context.Context, tx *store.Tx, path string) (report.RowCounts, error)

// Pipeline owns the store session for a run
type Pipeline struct {
	store  *store.Store
	cfg    Config
	logger *report.EventLogger
}

// New creates a Pipeline. logger may be nil.
func New(st *store.Store, cfg Config, logger *report.EventLogger) *Pipeline {
	return &Pipeline{
		store:  st,
		cfg:    cfg,
		logger: logger,
	}
}

// KindResult holds the outcome of one ProcessData call
type KindResult struct {
	FilesFound     int
	FilesProcessed int
	FilesSkipped   int
	Rows           report.RowCounts
	Errors         []error
}

// Result holds the outcome of a run
type Result struct {
	Songs    KindResult
	Logs     KindResult
	Duration time.Duration
}

// Run loads every song file, then every log file. Song files go first so
// plays can be resolved against the catalog.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	if p.cfg.TruncateFacts {
		util.WarnLog("Truncating songplays before load")
		if err := p.store.TruncateSongPlays(ctx); err != nil {
			return result, err
		}
		p.logger.LogTruncate("songplays")
	}

	songs, err := p.ProcessData(ctx, KindSong, p.cfg.SongRoot, p.ProcessSongFile)
	result.Songs = *songs
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	logs, err := p.ProcessData(ctx, KindLog, p.cfg.LogRoot, p.ProcessLogFile)
	result.Logs = *logs
	result.Duration = time.Since(start)
	if err != nil {
		return result, err
	}

	return result, nil
}

// ProcessData locates the files under root and runs fn on each of them in its
// own transaction, committing after every file and reporting progress.
func (p *Pipeline) ProcessData(ctx context.Context, kind Kind, root string, fn FileFunc) (*KindResult, error) {
	result := &KindResult{}

	files, err := scan.FindFiles(root, p.cfg.Extensions...)
	if err != nil {
		p.logger.LogError(string(kind), root, err)
		return result, fmt.Errorf("locating %s files: %w", kind, err)
	}
	result.FilesFound = len(files)
	util.InfoLog("%d files found in %s", len(files), root)
	p.logger.LogDiscover(string(kind), root, len(files))

	var bar *progressbar.ProgressBar
	if p.cfg.Progress && len(files) > 0 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription(fmt.Sprintf("Loading %s files", kind)),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionShowIts(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
	}

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fileStart := time.Now()
		rows, err := p.processFile(ctx, path, fn)
		if err != nil {
			if !p.cfg.ContinueOnError {
				p.logger.LogError(string(kind), path, err)
				return result, fmt.Errorf("processing %s: %w", path, err)
			}
			util.ErrorLog("Skipping %s: %v", path, err)
			p.logger.LogSkip(string(kind), path, err)
			result.FilesSkipped++
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
		} else {
			result.FilesProcessed++
			result.Rows.Add(rows)
			p.logger.LogLoad(string(kind), path, rows, time.Since(fileStart))
		}

		if bar != nil {
			bar.Add(1)
		} else {
			util.InfoLog("%d/%d files processed.", i+1, len(files))
		}
	}

	return result, nil
}

// processFile runs fn for one file in a transaction. Any error rolls back
// every write issued for the file.
func (p *Pipeline) processFile(ctx context.Context, path string, fn FileFunc) (report.RowCounts, error) {
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return report.RowCounts{}, err
	}
	defer tx.Rollback()

	rows, err := fn(ctx, tx, path)
	if err != nil {
		return report.RowCounts{}, err
	}

	if err := tx.Commit(); err != nil {
		return report.RowCounts{}, err
	}
	return rows, nil
}
