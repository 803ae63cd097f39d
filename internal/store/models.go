package store

import "time"

// Song is a row of the songs dimension
type Song struct {
	ID       string
	Title    string
	ArtistID string
	Year     *int64 // nullable
	Duration float64
}

// Artist is a row of the artists dimension
type Artist struct {
	ID        string
	Name      string
	Location  *string  // nullable
	Latitude  *float64 // nullable
	Longitude *float64 // nullable
}

// User is a row of the users dimension
type User struct {
	ID        int64  `db:"user_id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Gender    string `db:"gender"`
	Level     string `db:"level"`
}

// TimeEntry is a play timestamp broken down into calendar units
type TimeEntry struct {
	StartTime time.Time
	Hour      int
	Day       int
	Week      int // ISO-8601 week number
	Month     int
	Year      int
	Weekday   int // Monday = 0
}

// SongPlay is a row of the songplays fact table
type SongPlay struct {
	ID        int64     `db:"songplay_id"`
	StartTime time.Time `db:"start_time"`
	UserID    int64     `db:"user_id"`
	Level     string    `db:"level"`
	SongID    *string   `db:"song_id"`   // nullable, no catalog match
	ArtistID  *string   `db:"artist_id"` // nullable, no catalog match
	SessionID int64     `db:"session_id"`
	Location  string    `db:"location"`
	UserAgent string    `db:"user_agent"`
}

// SongMatch is the result of a catalog lookup
type SongMatch struct {
	SongID   string `db:"song_id"`
	ArtistID string `db:"artist_id"`
}
