// Package analyzer computes the grouped statistics behind the reports and
// the dashboard.
package analyzer

import (
	"time"

	"github.com/blackwell-systems/boostusage/internal/release"
	"github.com/blackwell-systems/boostusage/internal/store"
	"github.com/blackwell-systems/boostusage/internal/version"
)

// Options tunes limits and filters.
type Options struct {
	TopLibraries    int
	BottomLibraries int
	TopHeaders      int
	DashboardTop    int
	LibraryTopRepos int

	MinDistributionVersion string
	MinPivotVersion        string
	MinYear                int
	MinPivotYear           int
	RecentYears            int

	// LegacyNormalize selects version.Normalize over version.Canonical.
	LegacyNormalize bool
}

// DefaultOptions returns the limits used by the published report.
func DefaultOptions() Options {
	return Options{
		TopLibraries:           150,
		BottomLibraries:        20,
		TopHeaders:             20,
		DashboardTop:           20,
		LibraryTopRepos:        10,
		MinDistributionVersion: "1.50.0",
		MinPivotVersion:        "1.53.0",
		MinYear:                2000,
		MinPivotYear:           2014,
		RecentYears:            5,
		LegacyNormalize:        true,
	}
}

// Analyzer computes statistics from the usage store.
type Analyzer struct {
	store    *store.Store
	calendar *release.Calendar
	opts     Options
	now      func() time.Time
}

// New creates a new Analyzer. calendar may be nil, in which case release
// years are unknown.
func New(store *store.Store, calendar *release.Calendar, opts Options) *Analyzer {
	return &Analyzer{store: store, calendar: calendar, opts: opts, now: time.Now}
}

func (a *Analyzer) normalize(v string) string {
	if a.opts.LegacyNormalize {
		return version.Normalize(v)
	}
	return version.Canonical(v)
}
