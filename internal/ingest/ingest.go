// Package ingest turns exported source-file rows into usage records and
// re-aggregates per-repository version information from them.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/boostusage/internal/logger"
	"github.com/blackwell-systems/boostusage/internal/release"
	"github.com/blackwell-systems/boostusage/internal/scanner"
	"github.com/blackwell-systems/boostusage/internal/store"
	"github.com/blackwell-systems/boostusage/internal/version"
)

// ErrEmptyCatalog is returned when no headers have been seeded, since no
// include could be resolved.
var ErrEmptyCatalog = errors.New("header catalog is empty: run 'boostusage catalog' first")

// DefaultMinCommitYear is the earliest commit year used when aggregating
// repository versions.
const DefaultMinCommitYear = 2013

// Store is the persistence the ingester needs. *store.Store implements it.
type Store interface {
	ListHeaders() ([]store.Header, error)
	IsIngested(sha string) (bool, error)
	Commit(b store.Batch) error
	ListRepositories() ([]store.Repository, error)
	ActiveUsage(fn func(store.UsageRecord) error) error
	UpdateRepositories(repos []store.Repository) error
}

// Ingester runs the two ingestion passes against a Store.
type Ingester struct {
	store Store

	// Calendar supplies candidate versions during Resolve. May be nil.
	Calendar *release.Calendar
	// MinCommitYear drops older records from version aggregation.
	MinCommitYear int
	// Force re-ingests files whose content hash is already recorded.
	Force bool
	// OnFile, when set, is called before each input file is read.
	OnFile func(path string, index, total int)

	log   *logger.Logger
	now   func() time.Time
	runID func() string
}

// New creates an Ingester backed by st.
func New(st Store) *Ingester {
	return &Ingester{
		store:         st,
		MinCommitYear: DefaultMinCommitYear,
		log:           logger.Named("ingest"),
		now:           time.Now,
		runID:         uuid.NewString,
	}
}

// Stats summarises one LoadFiles run.
type Stats struct {
	RunID        string
	Files        int
	SkippedFiles int
	Rows         int
	Includes     int
	Excluded     int
	Inserted     int
	Unmatched    map[string]struct{}
}

// UnmatchedCount returns the number of distinct unresolved headers.
func (s *Stats) UnmatchedCount() int {
	return len(s.Unmatched)
}

// UnmatchedSample returns up to n unresolved headers in sorted order.
func (s *Stats) UnmatchedSample(n int) []string {
	out := make([]string, 0, len(s.Unmatched))
	for h := range s.Unmatched {
		out = append(out, h)
	}
	sort.Strings(out)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// HeaderCache maps include names to header ids.
type HeaderCache map[string]int64

// BuildHeaderCache keys headers by full_header_name, adding header_name as a
// fallback key only when the full name is empty or identical.
func BuildHeaderCache(headers []store.Header) HeaderCache {
	cache := make(HeaderCache, len(headers))
	for _, h := range headers {
		if h.FullHeaderName != "" {
			cache[h.FullHeaderName] = h.ID
		}
	}
	for _, h := range headers {
		if h.FullHeaderName != "" && h.FullHeaderName != h.HeaderName {
			continue
		}
		if _, ok := cache[h.HeaderName]; !ok {
			cache[h.HeaderName] = h.ID
		}
	}
	return cache
}

// Excluded reports whether an include from path belongs to a vendored copy
// of Boost and must not be counted.
func Excluded(path string, vendored bool) bool {
	return vendored && strings.Contains(path, "/boost")
}

// LoadFiles reads every input file, resolves includes against the header
// catalog and writes new repositories and the resulting usage records in
// one transaction, so a failed run leaves the store untouched.
// Files whose content was already ingested are skipped unless Force is set.
func (in *Ingester) LoadFiles(paths []string) (*Stats, error) {
	headers, err := in.store.ListHeaders()
	if err != nil {
		return nil, fmt.Errorf("failed to load header catalog: %w", err)
	}
	if len(headers) == 0 {
		return nil, ErrEmptyCatalog
	}

	b := &batch{
		in:       in,
		cache:    BuildHeaderCache(headers),
		repos:    make(map[string]bool),
		seenHash: make(map[string]bool),
		stats: &Stats{
			RunID:     in.runID(),
			Unmatched: make(map[string]struct{}),
		},
	}
	in.log.Info().Str("run_id", b.stats.RunID).Int("files", len(paths)).Int("headers", len(headers)).Msg("ingest started")

	for i, p := range paths {
		if in.OnFile != nil {
			in.OnFile(p, i, len(paths))
		}
		if err := b.loadFile(p); err != nil {
			return nil, err
		}
	}

	err = in.store.Commit(store.Batch{Repositories: b.newRepos, Records: b.records, Files: b.files})
	if err != nil {
		return nil, fmt.Errorf("failed to write usage records: %w", err)
	}
	b.stats.Inserted = len(b.records)

	if n := b.stats.UnmatchedCount(); n > 0 {
		in.log.Warn().Int("headers", n).Strs("sample", b.stats.UnmatchedSample(10)).Msg("headers not found in catalog")
	}
	in.log.Info().
		Str("run_id", b.stats.RunID).
		Int("rows", b.stats.Rows).
		Int("inserted", b.stats.Inserted).
		Int("excluded", b.stats.Excluded).
		Msg("ingest finished")
	return b.stats, nil
}

// batch accumulates one LoadFiles run.
type batch struct {
	in       *Ingester
	cache    HeaderCache
	repos    map[string]bool
	newRepos []store.NewRepository
	seenHash map[string]bool
	records  []store.UsageRecord
	files    []store.IngestedFile
	stats    *Stats
}

func (b *batch) loadFile(path string) error {
	sum, err := hashFile(path)
	if err != nil {
		return err
	}
	if b.seenHash[sum] {
		b.stats.SkippedFiles++
		return nil
	}
	b.seenHash[sum] = true

	if !b.in.Force {
		done, err := b.in.store.IsIngested(sum)
		if err != nil {
			return err
		}
		if done {
			b.in.log.Debug().Str("file", path).Msg("already ingested, skipping")
			b.stats.SkippedFiles++
			return nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r, err := scanner.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	rows := 0
	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows++
		b.addRow(row)
	}

	b.stats.Files++
	b.stats.Rows += rows
	b.files = append(b.files, store.IngestedFile{
		SHA256:     sum,
		FileName:   filepath.Base(path),
		RunID:      b.stats.RunID,
		RowCount:   rows,
		IngestedAt: b.in.now().UTC(),
	})
	b.in.log.Debug().Str("file", path).Int("rows", rows).Msg("file scanned")
	return nil
}

func (b *batch) addRow(row *scanner.Row) {
	if row.RepoName == "" {
		return
	}

	// Repositories are created on commit, together with their records.
	if !b.repos[row.RepoName] {
		b.repos[row.RepoName] = true
		b.newRepos = append(b.newRepos, store.NewRepository{
			Name:            row.RepoName,
			AffectFromBoost: !row.ContainsVendoredBoost,
		})
	}

	includes := scanner.ExtractIncludes(row.FileContent)
	if len(includes) == 0 {
		return
	}

	v := version.Infer(row.BoostVersion, row.Path)
	for _, header := range includes {
		b.stats.Includes++
		if Excluded(row.Path, row.ContainsVendoredBoost) {
			b.stats.Excluded++
			continue
		}
		headerID, ok := b.cache[header]
		if !ok {
			b.stats.Unmatched[header] = struct{}{}
			continue
		}
		b.records = append(b.records, store.UsageRecord{
			RepositoryName:  row.RepoName,
			HeaderID:        headerID,
			FilePath:        row.Path,
			LastCommit:      row.LastCommit,
			BoostVersion:    v,
			AffectFromBoost: !row.ContainsVendoredBoost,
		})
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
