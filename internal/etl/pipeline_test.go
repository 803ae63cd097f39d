package etl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sparkify/sparkify-etl/internal/report"
	"github.com/sparkify/sparkify-etl/internal/store"
	"github.com/sparkify/sparkify-etl/internal/util"
)

// fixture is a small song/log dataset laid out like the real one
type fixture struct {
	songRoot string
	logRoot  string
}

func songLine(songID, title, artistID, artistName string, duration float64) string {
	return fmt.Sprintf(`{"num_songs": 1, "artist_id": %q, "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": %q, "song_id": %q, "title": %q, "duration": %v, "year": 2000}`,
		artistID, artistName, songID, title, duration)
}

func logLine(page string, ts int64, userID, level, song, artist string, length float64) string {
	return fmt.Sprintf(`{"artist":%q,"auth":"Logged In","firstName":"Lily","gender":"F","itemInSession":0,"lastName":"Koch","length":%v,"level":%q,"location":"Chicago-Naperville-Elgin, IL-IN-WI","method":"PUT","page":%q,"registration":1.541048010796e+12,"sessionId":818,"song":%q,"status":200,"ts":%d,"userAgent":"Mozilla/5.0","userId":%q}`,
		artist, length, level, page, song, ts, userID)
}

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		songRoot: filepath.Join(root, "song_data"),
		logRoot:  filepath.Join(root, "log_data"),
	}

	writeFile(t, filepath.Join(f.songRoot, "A", "A", "A", "TRAAAAW128F429D538.json"),
		songLine("S1", "T", "A1", "The Artist", 123.45))
	writeFile(t, filepath.Join(f.songRoot, "A", "A", "B", "TRAABJL12903CDCF1A.json"),
		songLine("S2", "Other Song", "A2", "Other Artist", 200))
	// Same artist again from a second song
	writeFile(t, filepath.Join(f.songRoot, "A", "B", "A", "TRABACN128F425B784.json"),
		songLine("S3", "Third", "A1", "The Artist", 99.5))

	writeFile(t, filepath.Join(f.logRoot, "2018", "11", "2018-11-05-events.json"),
		logLine("Home", 1541439990000, "39", "free", "", "", 0),
		logLine("NextSong", 1541440000000, "39", "free", "T", "The Artist", 123.45),
		logLine("NextSong", 1541440200000, "39", "paid", "Unknown", "Nobody", 10),
		logLine("NextSong", 1541440200000, "8", "free", "Other Song", "Other Artist", 200),
		logLine("Logout", 1541440300000, "", "free", "", "", 0),
	)
	writeFile(t, filepath.Join(f.logRoot, "2018", "11", "2018-11-06-events.json"),
		logLine("NextSong", 1541526400000, "39", "free", "Third", "The Artist", 99.5),
	)

	return f
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite, Path: filepath.Join(t.TempDir(), "etl.db")})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.CreateSchema(ctx); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return st
}

func newPipeline(t *testing.T, st *store.Store, f fixture) *Pipeline {
	cfg := DefaultConfig()
	cfg.SongRoot = f.songRoot
	cfg.LogRoot = f.logRoot
	return New(st, cfg, report.NullLogger())
}

func TestRun_LoadsStarSchema(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	f := newFixture(t)

	result, err := newPipeline(t, st, f).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Songs.FilesFound != 3 || result.Songs.FilesProcessed != 3 {
		t.Errorf("expected 3 song files processed, got %+v", result.Songs)
	}
	if result.Logs.FilesProcessed != 2 {
		t.Errorf("expected 2 log files processed, got %+v", result.Logs)
	}
	if result.Logs.Rows.Records != 6 || result.Logs.Rows.SongPlays != 4 || result.Logs.Rows.Resolved != 3 {
		t.Errorf("unexpected log row counts: %+v", result.Logs.Rows)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	expected := store.Stats{Songs: 3, Artists: 2, Users: 2, TimeEntries: 3, SongPlays: 4, ResolvedSongPlays: 3}
	if *stats != expected {
		t.Errorf("expected stats %+v, got %+v", expected, *stats)
	}

	plays, err := st.ListSongPlays(ctx)
	if err != nil {
		t.Fatalf("ListSongPlays failed: %v", err)
	}
	if len(plays) != 4 {
		t.Fatalf("expected 4 plays, got %d", len(plays))
	}

	first := plays[0]
	if first.SongID == nil || *first.SongID != "S1" || first.ArtistID == nil || *first.ArtistID != "A1" {
		t.Errorf("expected first play resolved to (S1, A1), got %v/%v", first.SongID, first.ArtistID)
	}
	if first.StartTime.UnixMilli() != 1541440000000 || first.UserID != 39 || first.SessionID != 818 {
		t.Errorf("unexpected first play: %+v", first)
	}

	unmatched := plays[1]
	if unmatched.SongID != nil || unmatched.ArtistID != nil {
		t.Errorf("expected unmatched play to have NULL ids, got %v/%v", unmatched.SongID, unmatched.ArtistID)
	}
	if unmatched.Level != "paid" {
		t.Errorf("expected play level 'paid', got %q", unmatched.Level)
	}
}

func TestRun_UserLevelFollowsLastRecord(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	f := newFixture(t)

	if _, err := newPipeline(t, st, f).Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// User 39 is free, then paid in the first log, then free in the second log
	u, err := st.GetUser(ctx, 39)
	if err != nil || u == nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if u.Level != "free" {
		t.Errorf("expected level from the last write ('free'), got %q", u.Level)
	}

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Rollback()
	rows, err := newPipeline(t, st, f).ProcessLogFile(ctx, tx,
		filepath.Join(f.logRoot, "2018", "11", "2018-11-05-events.json"))
	if err != nil {
		t.Fatalf("ProcessLogFile failed: %v", err)
	}
	if rows.Users != 2 {
		t.Errorf("expected 2 deduplicated users, got %d", rows.Users)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	u, err = st.GetUser(ctx, 39)
	if err != nil || u == nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if u.Level != "paid" {
		t.Errorf("expected last level within the file ('paid'), got %q", u.Level)
	}
}

func TestRun_IgnoresNonSongPages(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	f := newFixture(t)

	if _, err := newPipeline(t, st, f).Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	plays, err := st.ListSongPlays(ctx)
	if err != nil {
		t.Fatalf("ListSongPlays failed: %v", err)
	}
	// 1541439990000 is the Home page event, 1541440300000 the Logout
	for _, p := range plays {
		ms := p.StartTime.UnixMilli()
		if ms == 1541439990000 || ms == 1541440300000 {
			t.Errorf("play derived from a non-song page at %d", ms)
		}
	}

	n, err := st.Count(ctx, "time")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 distinct play timestamps, got %d", n)
	}
}

func TestRun_TwiceDuplicatesOnlyFacts(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		if _, err := newPipeline(t, st, f).Run(ctx); err != nil {
			t.Fatalf("Run %d failed: %v", i+1, err)
		}
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Songs != 3 || stats.Artists != 2 || stats.Users != 2 || stats.TimeEntries != 3 {
		t.Errorf("dimension tables must be unchanged by a rerun, got %+v", stats)
	}
	if stats.SongPlays != 8 {
		t.Errorf("expected songplays to double to 8, got %d", stats.SongPlays)
	}
}

func TestRun_TruncateFactsMakesRerunStable(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		p := newPipeline(t, st, f)
		p.cfg.TruncateFacts = true
		if _, err := p.Run(ctx); err != nil {
			t.Fatalf("Run %d failed: %v", i+1, err)
		}
	}

	n, err := st.Count(ctx, "songplays")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 songplays after truncating rerun, got %d", n)
	}
}

func TestRun_MalformedFileAbortsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	f := newFixture(t)

	// Valid first line, broken second line: the whole file must roll back
	writeFile(t, filepath.Join(f.logRoot, "2018", "11", "2018-11-07-events.json"),
		logLine("NextSong", 1541600000000, "77", "free", "T", "The Artist", 123.45),
		`{"page":"NextSong",`,
	)

	result, err := newPipeline(t, st, f).Run(ctx)
	if !errors.Is(err, util.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if result.Logs.FilesProcessed != 2 {
		t.Errorf("expected the 2 files before the bad one to be committed, got %d", result.Logs.FilesProcessed)
	}

	u, err := st.GetUser(ctx, 77)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if u != nil {
		t.Error("expected writes of the malformed file to be rolled back")
	}
}

func TestRun_ContinueOnErrorSkipsBadFiles(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	f := newFixture(t)

	writeFile(t, filepath.Join(f.songRoot, "B", "broken.json"), `{"song_id":"S9"}`)

	logger, err := report.NewEventLogger(t.TempDir(), report.LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.SongRoot = f.songRoot
	cfg.LogRoot = f.logRoot
	cfg.ContinueOnError = true

	result, err := New(st, cfg, logger).Run(ctx)
	logger.Close()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Songs.FilesSkipped != 1 || result.Songs.FilesProcessed != 3 {
		t.Errorf("expected 3 processed and 1 skipped song file, got %+v", result.Songs)
	}
	if len(result.Songs.Errors) != 1 || !errors.Is(result.Songs.Errors[0], util.ErrSchema) {
		t.Errorf("expected one ErrSchema, got %v", result.Songs.Errors)
	}

	events, err := report.ReadEvents(logger.Path())
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	skips := 0
	for _, ev := range events {
		if ev.Event == report.EventSkip {
			skips++
		}
	}
	if skips != 1 {
		t.Errorf("expected 1 skip event, got %d", skips)
	}
}

func TestRun_MissingRoot(t *testing.T) {
	st := openStore(t)
	f := newFixture(t)
	f.songRoot = filepath.Join(f.songRoot, "missing")

	_, err := newPipeline(t, st, f).Run(context.Background())
	if !errors.Is(err, util.ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
}

func TestProcessData_CanceledContext(t *testing.T) {
	st := openStore(t)
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(t, st, f)
	result, err := p.ProcessData(ctx, KindSong, f.songRoot, p.ProcessSongFile)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if result.FilesProcessed != 0 {
		t.Errorf("expected no files processed, got %d", result.FilesProcessed)
	}
}
