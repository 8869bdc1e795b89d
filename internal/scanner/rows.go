package scanner

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Column names of the exported CSVs.
const (
	ColRepoName     = "repo_name"
	ColPath         = "path"
	ColFileContent  = "file_content"
	ColBoostVersion = "boost_version"
	ColVendored     = "contains_vendored_boost"
	ColLastCommit   = "last_commit_ts"
)

// Row is one exported source file.
type Row struct {
	RepoName              string
	Path                  string
	FileContent           string
	BoostVersion          string
	ContainsVendoredBoost bool
	LastCommit            time.Time // zero if missing or unparseable
}

// Reader decodes Rows from a CSV stream with a header line. Columns are
// matched by name; missing columns read as empty.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
}

// NewReader reads the header line from r.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty csv: missing header line")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		columns[strings.TrimSpace(name)] = i
	}
	return &Reader{csv: cr, columns: columns}, nil
}

// Next returns the next row, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (*Row, error) {
	record, err := r.csv.Read()
	if err != nil {
		return nil, err
	}
	field := func(name string) string {
		i, ok := r.columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	row := &Row{
		RepoName:              strings.TrimSpace(field(ColRepoName)),
		Path:                  strings.TrimSpace(field(ColPath)),
		FileContent:           field(ColFileContent),
		BoostVersion:          strings.TrimSpace(field(ColBoostVersion)),
		ContainsVendoredBoost: ParseBool(field(ColVendored)),
	}
	if ts, ok := ParseTimestamp(field(ColLastCommit)); ok {
		row.LastCommit = ts
	}
	return row, nil
}

// ParseBool accepts TRUE, 1, YES and T in any case; everything else is false.
func ParseBool(raw string) bool {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TRUE", "1", "YES", "T":
		return true
	}
	return false
}

// TimestampLayout is the export timestamp format, always UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// ParseTimestamp parses "YYYY-MM-DD HH:MM:SS" with an optional " UTC" suffix.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), " UTC")
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
