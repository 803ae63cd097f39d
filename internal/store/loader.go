package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	songInsert = `
		INSERT INTO songs (song_id, title, artist_id, year, duration)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (song_id) DO NOTHING`

	artistInsert = `
		INSERT INTO artists (artist_id, artist_name, artist_location, artist_latitude, artist_longitude)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (artist_id) DO NOTHING`

	timeInsert = `
		INSERT INTO time (start_time, hour, day, week, month, year, weekday)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (start_time) DO NOTHING`

	userUpsert = `
		INSERT INTO users (userId, firstName, lastName, gender, level)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (userId) DO UPDATE SET level = EXCLUDED.level`

	songPlayInsert = `
		INSERT INTO songplays (start_time, userId, level, song_id, artist_id, sessionId, location, userAgent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING songplay_id`

	songSelect = `
		SELECT songs.song_id AS song_id, artists.artist_id AS artist_id
		FROM songs
		JOIN artists ON songs.artist_id = artists.artist_id
		WHERE songs.title = ?
		AND artists.artist_name = ?
		AND songs.duration = ?
		LIMIT 1`
)

func (t *Tx) exec(ctx context.Context, what, query string, args ...any) error {
	if _, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to insert %s: %w", what, classify(err))
	}
	return nil
}

// InsertSong inserts a song; an existing row with the same id is kept as is
func (t *Tx) InsertSong(ctx context.Context, s *Song) error {
	return t.exec(ctx, "song "+s.ID, songInsert,
		s.ID, s.Title, s.ArtistID, s.Year, s.Duration)
}

// InsertArtist inserts an artist; an existing row with the same id is kept as is
func (t *Tx) InsertArtist(ctx context.Context, a *Artist) error {
	return t.exec(ctx, "artist "+a.ID, artistInsert,
		a.ID, a.Name, a.Location, a.Latitude, a.Longitude)
}

// InsertTime inserts a time entry; an existing row for the timestamp is kept as is
func (t *Tx) InsertTime(ctx context.Context, e *TimeEntry) error {
	return t.exec(ctx, "time "+e.StartTime.Format("2006-01-02T15:04:05.000"), timeInsert,
		e.StartTime, e.Hour, e.Day, e.Week, e.Month, e.Year, e.Weekday)
}

// UpsertUser inserts a user, or on conflict updates only the subscription level
func (t *Tx) UpsertUser(ctx context.Context, u *User) error {
	return t.exec(ctx, fmt.Sprintf("user %d", u.ID), userUpsert,
		u.ID, u.FirstName, u.LastName, u.Gender, u.Level)
}

// InsertSongPlay appends a fact row and sets its generated id.
// There is no conflict key: loading the same play twice stores it twice.
func (t *Tx) InsertSongPlay(ctx context.Context, p *SongPlay) error {
	err := t.tx.QueryRowxContext(ctx, t.tx.Rebind(songPlayInsert),
		p.StartTime, p.UserID, p.Level, p.SongID, p.ArtistID,
		p.SessionID, p.Location, p.UserAgent,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert songplay: %w", classify(err))
	}
	return nil
}

// FindSong looks up the song and artist ids for a play by exact title, artist
// name and duration. A nil match with a nil error means the catalog has no entry.
func (t *Tx) FindSong(ctx context.Context, title, artistName string, duration float64) (*SongMatch, error) {
	var m SongMatch
	err := t.tx.GetContext(ctx, &m, t.tx.Rebind(songSelect), title, artistName, duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up song: %w", err)
	}
	return &m, nil
}
