package extract

import (
	"bufio"
	"bytes"
	"fmt"
	"iter"
	"os"

	"github.com/goccy/go-json"
	"github.com/sparkify/sparkify-etl/internal/util"
)

// maxLineSize bounds a single JSON line
const maxLineSize = 4 * 1024 * 1024

// Records lazily yields one record per non-blank line of the file at path.
// The first open, read or parse error is yielded once and ends the sequence;
// no attempt is made to recover records after a malformed line.
func Records(path string) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(nil, fmt.Errorf("%w: %v", util.ErrIO, err))
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)

		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var rec Record
			if err := json.Unmarshal(line, &rec); err != nil {
				yield(nil, fmt.Errorf("%w: %s:%d: %v", util.ErrParse, path, lineNo, err))
				return
			}
			if rec == nil {
				yield(nil, fmt.Errorf("%w: %s:%d: not a JSON object", util.ErrParse, path, lineNo))
				return
			}

			if !yield(rec, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			if err == bufio.ErrTooLong {
				yield(nil, fmt.Errorf("%w: %s:%d: line exceeds %d bytes", util.ErrParse, path, lineNo+1, maxLineSize))
				return
			}
			yield(nil, fmt.Errorf("%w: reading %s: %v", util.ErrIO, path, err))
		}
	}
}

// ReadAll reads every record of the file at path
func ReadAll(path string) ([]Record, error) {
	var records []Record
	for rec, err := range Records(path) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
