// Package store loads rows into the song-play star schema.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver ("pgx")
	"github.com/jmoiron/sqlx"
	"github.com/sparkify/sparkify-etl/internal/util"
	_ "modernc.org/sqlite" // SQLite driver
)

// Driver selects the target database
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Config holds connection parameters for the target database
type Config struct {
	Driver   Driver
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	// Path is the database file when Driver is sqlite
	Path string
}

// DefaultConfig returns the connection parameters of the local development database
func DefaultConfig() Config {
	return Config{
		Driver:   DriverPostgres,
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "sparkifydb",
		User:     "student",
		Password: "student",
		SSLMode:  "disable",
		Path:     "sparkify.db",
	}
}

// DSN returns the database/sql driver name and data source name for the config
func (c Config) DSN() (string, string, error) {
	switch c.Driver {
	case DriverPostgres, "":
		if c.Host == "" || c.Name == "" {
			return "", "", fmt.Errorf("postgres requires host and database name")
		}
		port := c.Port
		if port == 0 {
			port = 5432
		}
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   net.JoinHostPort(c.Host, strconv.Itoa(port)),
			Path:   "/" + c.Name,
		}
		if c.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
		}
		return "pgx", u.String(), nil

	case DriverSQLite:
		if c.Path == "" {
			return "", "", fmt.Errorf("sqlite requires a database path")
		}
		dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", c.Path)
		return "sqlite", dsn, nil

	default:
		return "", "", fmt.Errorf("unknown driver %q", c.Driver)
	}
}

// Redacted returns a printable description of the target without the password
func (c Config) Redacted() string {
	if c.Driver == DriverSQLite {
		return "sqlite:" + c.Path
	}
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.User, c.Host, c.Port, c.Name)
}

// Store is the single session a load run holds against the target database
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// Open connects to the target database and verifies the connection
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driverName, dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer, one session for the whole run
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	err = util.Retry(ctx, util.ConnectRetryConfig(), func() error {
		return db.PingContext(ctx)
	}, "connect")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Redacted(), err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle for custom queries
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Driver returns the database driver in use
func (s *Store) Driver() Driver {
	return s.driver
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Version returns the server version string
func (s *Store) Version(ctx context.Context) (string, error) {
	query := "SELECT version()"
	if s.driver == DriverSQLite {
		query = "SELECT sqlite_version()"
	}
	var version string
	if err := s.db.GetContext(ctx, &version, query); err != nil {
		return "", fmt.Errorf("failed to query version: %w", err)
	}
	return version, nil
}

// Begin starts a transaction. All writes for one source file go through one Tx.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Transaction executes a function within a transaction
func (s *Store) Transaction(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// Tx queues writes until Commit
type Tx struct {
	tx *sqlx.Tx
}

// Commit makes the queued writes durable
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

// Rollback discards the queued writes. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}
