package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventDiscover EventType = "discover"
	EventLoad     EventType = "load"
	EventSkip     EventType = "skip"
	EventTruncate EventType = "truncate"
	EventError    EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// RowCounts holds the rows written for one source file
type RowCounts struct {
	Records     int `json:"records,omitempty"`
	Songs       int `json:"songs,omitempty"`
	Artists     int `json:"artists,omitempty"`
	TimeEntries int `json:"time,omitempty"`
	Users       int `json:"users,omitempty"`
	SongPlays   int `json:"songplays,omitempty"`
	Resolved    int `json:"resolved,omitempty"`
}

// Add accumulates other into c
func (c *RowCounts) Add(other RowCounts) {
	c.Records += other.Records
	c.Songs += other.Songs
	c.Artists += other.Artists
	c.TimeEntries += other.TimeEntries
	c.Users += other.Users
	c.SongPlays += other.SongPlays
	c.Resolved += other.Resolved
}

// Event represents a single event of a load run
type Event struct {
	Timestamp time.Time         `json:"ts"`
	RunID     string            `json:"run_id"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Kind      string            `json:"kind,omitempty"` // song or log
	SrcPath   string            `json:"src_path,omitempty"`
	Rows      *RowCounts        `json:"rows,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	runID := uuid.NewString()
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s-%s.jsonl", timestamp, runID[:8])
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    runID,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RunID = l.runID

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogDiscover logs the file listing of a source root
func (l *EventLogger) LogDiscover(kind, root string, files int) error {
	return l.Log(&Event{
		Level:   LevelInfo,
		Event:   EventDiscover,
		Kind:    kind,
		SrcPath: root,
		Extra: map[string]string{
			"files": fmt.Sprintf("%d", files),
		},
	})
}

// LogLoad logs a committed source file
func (l *EventLogger) LogLoad(kind, srcPath string, rows RowCounts, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventLoad,
		Kind:     kind,
		SrcPath:  srcPath,
		Rows:     &rows,
		Duration: duration.Milliseconds(),
	})
}

// LogSkip logs a source file that was rolled back and skipped
func (l *EventLogger) LogSkip(kind, srcPath string, err error) error {
	return l.Log(&Event{
		Level:   LevelWarning,
		Event:   EventSkip,
		Kind:    kind,
		SrcPath: srcPath,
		Error:   err.Error(),
	})
}

// LogTruncate logs the removal of existing fact rows before a load
func (l *EventLogger) LogTruncate(table string) error {
	return l.Log(&Event{
		Level: LevelWarning,
		Event: EventTruncate,
		Extra: map[string]string{
			"table": table,
		},
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(kind, srcPath string, err error) error {
	return l.Log(&Event{
		Level:   LevelError,
		Event:   EventError,
		Kind:    kind,
		SrcPath: srcPath,
		Error:   err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunID returns the identifier stamped on every event of this run
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}

// ReadEvents reads every event from a JSONL event log
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return events, nil
}
