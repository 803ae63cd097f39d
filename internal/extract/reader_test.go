package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sparkify/sparkify-etl/internal/util"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestReadAll(t *testing.T) {
	path := writeTemp(t, `{"page":"NextSong","ts":1541440000000}

{"page":"Home","ts":1541440000001}
`)

	records, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	page, err := records[1].String("page")
	if err != nil {
		t.Fatalf("String failed: %v", err)
	}
	if page != "Home" {
		t.Errorf("expected page 'Home', got %q", page)
	}
}

func TestReadAll_SingleObjectWithoutNewline(t *testing.T) {
	path := writeTemp(t, `{"song_id":"S1","duration":123.45}`)

	records, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestReadAll_MalformedLine(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"broken json", "{\"a\":1}\n{\"a\":\n"},
		{"array line", "[1,2,3]\n"},
		{"null line", "null\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAll(writeTemp(t, tt.content))
			if !errors.Is(err, util.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestRecords_StopsAtFirstError(t *testing.T) {
	path := writeTemp(t, "{\"n\":1}\nnot json\n{\"n\":3}\n")

	var good, bad int
	for _, err := range Records(path) {
		if err != nil {
			bad++
			continue
		}
		good++
	}

	if good != 1 || bad != 1 {
		t.Errorf("expected 1 record then 1 error, got %d records and %d errors", good, bad)
	}
}

func TestRecords_EarlyBreak(t *testing.T) {
	path := writeTemp(t, "{\"n\":1}\n{\"n\":2}\n{\"n\":3}\n")

	count := 0
	for _, err := range Records(path) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("expected to stop after 2 records, got %d", count)
	}
}

func TestReadAll_MissingFile(t *testing.T) {
	_, err := ReadAll(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, util.ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
}
