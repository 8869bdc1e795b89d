// Package release holds the Boost release calendar used to guess a
// repository's Boost version from its commit dates.
package release

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/boostusage/internal/logger"
	"github.com/blackwell-systems/boostusage/internal/version"
)

var namePattern = regexp.MustCompile(`boost-(\d+\.\d+(?:\.\d+)?)`)

// dateLayouts are tried in order. Month-first wins for ambiguous dates.
var dateLayouts = []string{"1/2/2006", "2/1/2006", "2006-01-02"}

// Entry is one Boost release.
type Entry struct {
	Version string
	Date    time.Time
}

// Calendar is a list of releases sorted newest first.
type Calendar struct {
	entries []Entry
	skipped int
}

// Load parses a release calendar CSV with name and release_date columns.
// Rows without a recognisable version or date are skipped and counted.
func Load(r io.Reader) (*Calendar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return &Calendar{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read release calendar header: %w", err)
	}

	nameCol, dateCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case "name":
			nameCol = i
		case "release_date":
			dateCol = i
		}
	}
	if nameCol < 0 || dateCol < 0 {
		return nil, fmt.Errorf("release calendar must have name and release_date columns")
	}

	cal := &Calendar{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read release calendar: %w", err)
		}

		name, raw := field(rec, nameCol), field(rec, dateCol)
		if name == "" || raw == "" {
			cal.skipped++
			continue
		}
		m := namePattern.FindStringSubmatch(name)
		if m == nil {
			cal.skipped++
			continue
		}
		date, ok := parseDate(raw)
		if !ok {
			cal.skipped++
			continue
		}
		cal.entries = append(cal.entries, Entry{Version: m[1], Date: date})
	}

	sort.SliceStable(cal.entries, func(i, j int) bool {
		return cal.entries[i].Date.After(cal.entries[j].Date)
	})
	return cal, nil
}

// LoadFile loads the calendar at path. A missing file yields an empty
// calendar and a warning.
func LoadFile(path string) (*Calendar, error) {
	log := logger.Named("release")

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("release calendar not found, candidate versions disabled")
		return &Calendar{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open release calendar: %w", err)
	}
	defer f.Close()

	cal, err := Load(f)
	if err != nil {
		return nil, err
	}
	if cal.skipped > 0 {
		log.Warn().Int("rows", cal.skipped).Str("path", path).Msg("skipped unparseable release rows")
	}
	log.Debug().Int("releases", cal.Len()).Msg("loaded release calendar")
	return cal, nil
}

// Len returns the number of releases.
func (c *Calendar) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Skipped returns the number of rows dropped while loading.
func (c *Calendar) Skipped() int {
	if c == nil {
		return 0
	}
	return c.skipped
}

// Entries returns the releases, newest first.
func (c *Calendar) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// CandidateVersion returns the newest release published on or before ts.
// A timestamp older than every release maps to the oldest release.
func (c *Calendar) CandidateVersion(ts time.Time) string {
	if c == nil || len(c.entries) == 0 || ts.IsZero() {
		return ""
	}
	for _, e := range c.entries {
		if !e.Date.After(ts) {
			return e.Version
		}
	}
	return c.entries[len(c.entries)-1].Version
}

// ReleaseYear returns the year v was released. An exact version match is
// preferred; otherwise the first release sharing v's major.minor is used.
func (c *Calendar) ReleaseYear(v string) (int, bool) {
	if c == nil || v == "" {
		return 0, false
	}
	for _, e := range c.entries {
		if e.Version == v {
			return e.Date.Year(), true
		}
	}
	mm := version.MajorMinor(v)
	for _, e := range c.entries {
		if version.MajorMinor(e.Version) == mm {
			return e.Date.Year(), true
		}
	}
	return 0, false
}

// Latest returns the newest release.
func (c *Calendar) Latest() (Entry, bool) {
	if c == nil || len(c.entries) == 0 {
		return Entry{}, false
	}
	return c.entries[0], true
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
