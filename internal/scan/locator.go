// Package scan discovers the JSON input files of a load run.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sparkify/sparkify-etl/internal/util"
)

// DefaultExtensions are the file extensions picked up when none are given
var DefaultExtensions = []string{".json"}

// FindFiles walks root recursively and returns the absolute paths of all regular
// files whose extension matches one of exts (case-insensitive). Paths are returned
// in walk order, which is lexical within each directory.
func FindFiles(root string, exts ...string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	extMap := make(map[string]bool, len(exts))
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[strings.ToLower(ext)] = true
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", util.ErrIO, root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", util.ErrIO, absRoot)
	}

	var files []string
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: access %s: %v", util.ErrIO, path, err)
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if extMap[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	util.DebugLog("Found %d files under %s", len(files), absRoot)
	return files, nil
}
