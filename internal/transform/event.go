package transform

import (
	"context"
	"iter"
	"time"

	"github.com/sparkify/sparkify-etl/internal/extract"
	"github.com/sparkify/sparkify-etl/internal/store"
)

// PageNextSong is the page value the log producer writes for a song play
const PageNextSong = "NextSong"

// PlayEvent is a decoded song-play log record
type PlayEvent struct {
	StartTime time.Time
	UserID    int64
	FirstName string
	LastName  string
	Gender    string
	Level     string
	Song      string
	Artist    string
	Length    float64
	SessionID int64
	Location  string
	UserAgent string
}

// SongLookup resolves a play to catalog ids. A nil match is not an error.
type SongLookup interface {
	FindSong(ctx context.Context, title, artistName string, duration float64) (*store.SongMatch, error)
}

// StartTime converts a millisecond epoch timestamp to UTC time
func StartTime(tsMillis int64) time.Time {
	return time.UnixMilli(tsMillis).UTC()
}

// NewTimeEntry breaks a timestamp down into the time dimension's units
func NewTimeEntry(t time.Time) store.TimeEntry {
	_, week := t.ISOWeek()
	return store.TimeEntry{
		StartTime: t,
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   (int(t.Weekday()) + 6) % 7,
	}
}

// IsSongPlay reports whether a log record is a song play
func IsSongPlay(rec extract.Record) (bool, error) {
	page, err := rec.String("page")
	if err != nil {
		return false, err
	}
	return page == PageNextSong, nil
}

// DecodePlayEvent reads the fields of a song-play record
func DecodePlayEvent(rec extract.Record) (PlayEvent, error) {
	var (
		ev  PlayEvent
		err error
	)

	ts, err := rec.Int("ts")
	if err != nil {
		return ev, err
	}
	ev.StartTime = StartTime(ts)

	if ev.UserID, err = rec.Int("userId"); err != nil {
		return ev, err
	}
	strs := []struct {
		field string
		dst   *string
	}{
		{"firstName", &ev.FirstName},
		{"lastName", &ev.LastName},
		{"gender", &ev.Gender},
		{"level", &ev.Level},
		{"song", &ev.Song},
		{"artist", &ev.Artist},
		{"location", &ev.Location},
		{"userAgent", &ev.UserAgent},
	}
	for _, s := range strs {
		if *s.dst, err = rec.String(s.field); err != nil {
			return ev, err
		}
	}
	if ev.Length, err = rec.Float("length"); err != nil {
		return ev, err
	}
	if ev.SessionID, err = rec.Int("sessionId"); err != nil {
		return ev, err
	}

	return ev, nil
}

// PlayEvents keeps the song-play records of a log sequence and decodes them.
// The first extraction or schema error is yielded once and ends the sequence.
func PlayEvents(records iter.Seq2[extract.Record, error]) iter.Seq2[PlayEvent, error] {
	return func(yield func(PlayEvent, error) bool) {
		for rec, err := range records {
			if err != nil {
				yield(PlayEvent{}, err)
				return
			}

			ok, err := IsSongPlay(rec)
			if err != nil {
				yield(PlayEvent{}, err)
				return
			}
			if !ok {
				continue
			}

			ev, err := DecodePlayEvent(rec)
			if err != nil {
				yield(PlayEvent{}, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// CollectPlayEvents drains a play event sequence
func CollectPlayEvents(events iter.Seq2[PlayEvent, error]) ([]PlayEvent, error) {
	var out []PlayEvent
	for ev, err := range events {
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// TimeEntries returns one time entry per distinct play timestamp, in first-seen order
func TimeEntries(events []PlayEvent) []store.TimeEntry {
	seen := make(map[int64]bool, len(events))
	entries := make([]store.TimeEntry, 0, len(events))
	for _, ev := range events {
		key := ev.StartTime.UnixMilli()
		if seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, NewTimeEntry(ev.StartTime))
	}
	return entries
}

// Users returns one user row per distinct user id, ordered by first appearance.
// Fields come from the user's last record, so the level is the most recent one.
func Users(events []PlayEvent) []store.User {
	index := make(map[int64]int, len(events))
	var users []store.User
	for _, ev := range events {
		u := store.User{
			ID:        ev.UserID,
			FirstName: ev.FirstName,
			LastName:  ev.LastName,
			Gender:    ev.Gender,
			Level:     ev.Level,
		}
		if i, ok := index[ev.UserID]; ok {
			users[i] = u
			continue
		}
		index[ev.UserID] = len(users)
		users = append(users, u)
	}
	return users
}

// SongPlay builds the fact row for a play. A nil match leaves song and artist ids NULL.
func SongPlay(ev PlayEvent, match *store.SongMatch) store.SongPlay {
	p := store.SongPlay{
		StartTime: ev.StartTime,
		UserID:    ev.UserID,
		Level:     ev.Level,
		SessionID: ev.SessionID,
		Location:  ev.Location,
		UserAgent: ev.UserAgent,
	}
	if match != nil {
		songID, artistID := match.SongID, match.ArtistID
		p.SongID = &songID
		p.ArtistID = &artistID
	}
	return p
}

// ResolveSongPlay looks a play up in the catalog and builds its fact row
func ResolveSongPlay(ctx context.Context, lookup SongLookup, ev PlayEvent) (store.SongPlay, error) {
	match, err := lookup.FindSong(ctx, ev.Song, ev.Artist, ev.Length)
	if err != nil {
		return store.SongPlay{}, err
	}
	return SongPlay(ev, match), nil
}
