package etl

import (
	"context"
	"fmt"

	"github.com/sparkify/sparkify-etl/internal/extract"
	"github.com/sparkify/sparkify-etl/internal/report"
	"github.com/sparkify/sparkify-etl/internal/store"
	"github.com/sparkify/sparkify-etl/internal/transform"
	"github.com/sparkify/sparkify-etl/internal/util"
)

// ProcessSongFile loads the song and artist rows of one song file
func (p *Pipeline) ProcessSongFile(ctx context.Context, tx *store.Tx, path string) (report.RowCounts, error) {
	var rows report.RowCounts

	// Song files hold one record each; read them whole
	records, err := extract.ReadAll(path)
	if err != nil {
		return rows, err
	}

	for _, rec := range records {
		rows.Records++

		song, artist, err := transform.SongAndArtist(rec)
		if err != nil {
			return rows, fmt.Errorf("record %d: %w", rows.Records, err)
		}

		if err := tx.InsertSong(ctx, song); err != nil {
			return rows, err
		}
		rows.Songs++

		if err := tx.InsertArtist(ctx, artist); err != nil {
			return rows, err
		}
		rows.Artists++
	}

	if rows.Records == 0 {
		util.WarnLog("No records in %s", path)
	}
	return rows, nil
}

// ProcessLogFile loads the time, user and songplay rows of one activity log.
// Time and user rows are written before the plays that reference them.
func (p *Pipeline) ProcessLogFile(ctx context.Context, tx *store.Tx, path string) (report.RowCounts, error) {
	var rows report.RowCounts

	records := extract.Records(path)
	counted := func(yield func(extract.Record, error) bool) {
		for rec, err := range records {
			if err == nil {
				rows.Records++
			}
			if !yield(rec, err) {
				return
			}
		}
	}

	events, err := transform.CollectPlayEvents(transform.PlayEvents(counted))
	if err != nil {
		return rows, err
	}

	for _, entry := range transform.TimeEntries(events) {
		if err := tx.InsertTime(ctx, &entry); err != nil {
			return rows, err
		}
		rows.TimeEntries++
	}

	for _, user := range transform.Users(events) {
		if err := tx.UpsertUser(ctx, &user); err != nil {
			return rows, err
		}
		rows.Users++
	}

	for _, ev := range events {
		play, err := transform.ResolveSongPlay(ctx, tx, ev)
		if err != nil {
			return rows, err
		}
		if err := tx.InsertSongPlay(ctx, &play); err != nil {
			return rows, err
		}
		rows.SongPlays++
		if play.SongID != nil {
			rows.Resolved++
		}
	}

	util.DebugLog("%s: %d records, %d plays, %d resolved", path, rows.Records, rows.SongPlays, rows.Resolved)
	return rows, nil
}
