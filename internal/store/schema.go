package store

import (
	"context"
	"fmt"
)

// Tables lists the star schema tables in creation order
var Tables = []string{"users", "songs", "artists", "time", "songplays"}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		userId INTEGER PRIMARY KEY,
		firstName VARCHAR,
		lastName VARCHAR,
		gender CHAR(1),
		level VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS songs (
		song_id VARCHAR PRIMARY KEY,
		title VARCHAR NOT NULL,
		artist_id VARCHAR NOT NULL,
		year INTEGER,
		duration FLOAT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS artists (
		artist_id VARCHAR PRIMARY KEY,
		artist_name VARCHAR NOT NULL,
		artist_location VARCHAR,
		artist_latitude FLOAT,
		artist_longitude FLOAT
	)`,
	`CREATE TABLE IF NOT EXISTS time (
		start_time TIMESTAMP PRIMARY KEY,
		hour INTEGER,
		day INTEGER,
		week INTEGER,
		month INTEGER,
		year INTEGER,
		weekday INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS songplays (
		songplay_id SERIAL PRIMARY KEY,
		start_time TIMESTAMP NOT NULL REFERENCES time(start_time),
		userId INTEGER NOT NULL REFERENCES users(userId),
		level VARCHAR,
		song_id VARCHAR REFERENCES songs(song_id),
		artist_id VARCHAR REFERENCES artists(artist_id),
		sessionId INTEGER,
		location VARCHAR,
		userAgent TEXT
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		userId INTEGER PRIMARY KEY,
		firstName TEXT,
		lastName TEXT,
		gender TEXT,
		level TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS songs (
		song_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		artist_id TEXT NOT NULL,
		year INTEGER,
		duration REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS artists (
		artist_id TEXT PRIMARY KEY,
		artist_name TEXT NOT NULL,
		artist_location TEXT,
		artist_latitude REAL,
		artist_longitude REAL
	)`,
	`CREATE TABLE IF NOT EXISTS time (
		start_time TIMESTAMP PRIMARY KEY,
		hour INTEGER,
		day INTEGER,
		week INTEGER,
		month INTEGER,
		year INTEGER,
		weekday INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS songplays (
		songplay_id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_time TIMESTAMP NOT NULL REFERENCES time(start_time),
		userId INTEGER NOT NULL REFERENCES users(userId),
		level TEXT,
		song_id TEXT REFERENCES songs(song_id),
		artist_id TEXT REFERENCES artists(artist_id),
		sessionId INTEGER,
		location TEXT,
		userAgent TEXT
	)`,
}

// CreateSchema creates any missing star schema tables
func (s *Store) CreateSchema(ctx context.Context) error {
	stmts := postgresSchema
	if s.driver == DriverSQLite {
		stmts = sqliteSchema
	}

	return s.Transaction(ctx, func(tx *Tx) error {
		for i, stmt := range stmts {
			if _, err := tx.tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create table %s: %w", Tables[i], err)
			}
		}
		return nil
	})
}

// DropSchema drops the star schema tables, fact table first
func (s *Store) DropSchema(ctx context.Context) error {
	return s.Transaction(ctx, func(tx *Tx) error {
		for i := len(Tables) - 1; i >= 0; i-- {
			if _, err := tx.tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+Tables[i]); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", Tables[i], err)
			}
		}
		return nil
	})
}

// TruncateSongPlays removes every fact row so a full reload does not duplicate plays
func (s *Store) TruncateSongPlays(ctx context.Context) error {
	query := "TRUNCATE songplays RESTART IDENTITY"
	if s.driver == DriverSQLite {
		query = "DELETE FROM songplays"
	}
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate songplays: %w", err)
	}
	return nil
}

// MissingTables returns the star schema tables that do not exist
func (s *Store) MissingTables(ctx context.Context) ([]string, error) {
	query := `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
	if s.driver == DriverSQLite {
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}
	query = s.db.Rebind(query)

	var missing []string
	for _, table := range Tables {
		var count int
		if err := s.db.GetContext(ctx, &count, query, table); err != nil {
			return nil, fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if count == 0 {
			missing = append(missing, table)
		}
	}
	return missing, nil
}
