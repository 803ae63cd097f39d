package scan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sparkify/sparkify-etl/internal/util"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFindFiles(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "A", "B", "TRAAB01.json"))
	writeFile(t, filepath.Join(root, "A", "A", "TRAAA01.json"))
	writeFile(t, filepath.Join(root, "A", "notes.txt"))
	writeFile(t, filepath.Join(root, "UPPER.JSON"))
	writeFile(t, filepath.Join(root, ".ipynb_checkpoints", "x-checkpoint.json"))

	files, err := FindFiles(root)
	if err != nil {
		t.Fatalf("FindFiles failed: %v", err)
	}

	expected := []string{
		filepath.Join(root, ".ipynb_checkpoints", "x-checkpoint.json"),
		filepath.Join(root, "A", "A", "TRAAA01.json"),
		filepath.Join(root, "A", "B", "TRAAB01.json"),
		filepath.Join(root, "UPPER.JSON"),
	}

	if len(files) != len(expected) {
		t.Fatalf("expected %d files, got %d: %v", len(expected), len(files), files)
	}
	for i, want := range expected {
		if files[i] != want {
			t.Errorf("file %d: expected %s, got %s", i, want, files[i])
		}
		if !filepath.IsAbs(files[i]) {
			t.Errorf("expected absolute path, got %s", files[i])
		}
	}
}

func TestFindFiles_CustomExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.json"))
	writeFile(t, filepath.Join(root, "b.jsonl"))

	files, err := FindFiles(root, "jsonl")
	if err != nil {
		t.Fatalf("FindFiles failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "b.jsonl" {
		t.Errorf("expected only b.jsonl, got %v", files)
	}
}

func TestFindFiles_Empty(t *testing.T) {
	files, err := FindFiles(t.TempDir())
	if err != nil {
		t.Fatalf("FindFiles failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %v", files)
	}
}

func TestFindFiles_MissingRoot(t *testing.T) {
	_, err := FindFiles(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, util.ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
}

func TestFindFiles_RootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.json")
	writeFile(t, path)

	_, err := FindFiles(path)
	if !errors.Is(err, util.ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
}
