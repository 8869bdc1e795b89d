package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blackwell-systems/boostusage/internal/analyzer"
	"github.com/blackwell-systems/boostusage/internal/release"
	"github.com/blackwell-systems/boostusage/internal/store"
)

// openStore opens the database and creates the schema if needed.
func openStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, err
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return st, nil
}

// openExistingStore opens a database that must already hold the schema.
func openExistingStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, err
	}
	if path != ":memory:" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, store.ErrNotInitialized
		}
	}

	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	ok, err := st.Initialized()
	if err != nil {
		st.Close()
		return nil, err
	}
	if !ok {
		st.Close()
		return nil, store.ErrNotInitialized
	}
	return st, nil
}

// loadCalendar reads the configured release calendar. A missing file gives
// an empty calendar.
func loadCalendar() (*release.Calendar, error) {
	if cfg.ReleaseCalendar == "" {
		return nil, nil
	}
	cal, err := release.LoadFile(cfg.ReleaseCalendar)
	if err != nil {
		return nil, fmt.Errorf("failed to load release calendar: %w", err)
	}
	return cal, nil
}

// analyzerOptions maps the analysis config section onto analyzer.Options.
func analyzerOptions() analyzer.Options {
	a := cfg.Analysis
	return analyzer.Options{
		TopLibraries:           a.TopLibraries,
		BottomLibraries:        a.BottomLibraries,
		TopHeaders:             a.TopHeaders,
		DashboardTop:           a.DashboardTop,
		LibraryTopRepos:        a.LibraryTopRepos,
		MinDistributionVersion: a.MinDistributionVersion,
		MinPivotVersion:        a.MinPivotVersion,
		MinYear:                a.MinYear,
		MinPivotYear:           a.MinPivotYear,
		RecentYears:            a.RecentYears,
		LegacyNormalize:        a.LegacyNormalize,
	}
}

// newAnalyzer opens the existing store and returns an analyzer over it.
// The caller closes the store.
func newAnalyzer() (*analyzer.Analyzer, *store.Store, error) {
	st, err := openExistingStore()
	if err != nil {
		return nil, nil, err
	}
	cal, err := loadCalendar()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return analyzer.New(st, cal, analyzerOptions()), st, nil
}

// outputPath resolves name inside dir, creating dir.
func outputPath(dir, name string) (string, error) {
	if dir == "" {
		dir = cfg.OutputDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}
