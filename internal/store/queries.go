package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Stats holds row counts of the star schema
type Stats struct {
	Songs             int64
	Artists           int64
	Users             int64
	TimeEntries       int64
	SongPlays         int64
	ResolvedSongPlays int64 // plays with a catalog match
}

// Count returns the number of rows in a star schema table
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	known := false
	for _, t := range Tables {
		if t == table {
			known = true
			break
		}
	}
	if !known {
		return 0, fmt.Errorf("unknown table %q", table)
	}

	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// Stats returns row counts for every table
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	counts := []struct {
		table string
		dst   *int64
	}{
		{"songs", &st.Songs},
		{"artists", &st.Artists},
		{"users", &st.Users},
		{"time", &st.TimeEntries},
		{"songplays", &st.SongPlays},
	}
	for _, c := range counts {
		n, err := s.Count(ctx, c.table)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}

	err := s.db.GetContext(ctx, &st.ResolvedSongPlays,
		"SELECT COUNT(*) FROM songplays WHERE song_id IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("failed to count resolved songplays: %w", err)
	}

	return st, nil
}

// GetUser retrieves a user by id, or nil if absent
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`
		SELECT userId AS user_id, firstName AS first_name, lastName AS last_name,
		       COALESCE(gender, '') AS gender, COALESCE(level, '') AS level
		FROM users WHERE userId = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListSongPlays returns every fact row in insertion order
func (s *Store) ListSongPlays(ctx context.Context) ([]SongPlay, error) {
	var plays []SongPlay
	err := s.db.SelectContext(ctx, &plays, `
		SELECT songplay_id, start_time, userId AS user_id, COALESCE(level, '') AS level,
		       song_id, artist_id, COALESCE(sessionId, 0) AS session_id,
		       COALESCE(location, '') AS location, COALESCE(userAgent, '') AS user_agent
		FROM songplays
		ORDER BY songplay_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list songplays: %w", err)
	}
	return plays, nil
}

// TopSong is a resolved song with its play count
type TopSong struct {
	Title  string `db:"title"`
	Artist string `db:"artist_name"`
	Plays  int64  `db:"plays"`
}

// TopSongs returns the most played resolved songs
func (s *Store) TopSongs(ctx context.Context, limit int) ([]TopSong, error) {
	var top []TopSong
	err := s.db.SelectContext(ctx, &top, s.db.Rebind(`
		SELECT songs.title AS title, artists.artist_name AS artist_name, COUNT(*) AS plays
		FROM songplays
		JOIN songs ON songplays.song_id = songs.song_id
		JOIN artists ON songplays.artist_id = artists.artist_id
		GROUP BY songs.title, artists.artist_name
		ORDER BY plays DESC, title
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top songs: %w", err)
	}
	return top, nil
}
