package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/blackwell-systems/boostusage/internal/store"
	"github.com/blackwell-systems/boostusage/internal/version"
)

// Dashboard collects the data rendered by the HTML dashboard.
func (a *Analyzer) Dashboard() (*DashboardData, error) {
	d := &DashboardData{
		GeneratedAt: a.now().UTC(),
		Libraries:   make(map[string]LibraryDetail),
	}
	if latest, ok := a.calendar.Latest(); ok {
		d.LatestVersion = latest.Version
	}

	if err := a.repositoryCharts(d); err != nil {
		return nil, err
	}
	if err := a.libraryTables(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (a *Analyzer) repositoryCharts(d *DashboardData) error {
	repos, err := a.store.ListRepositoryActivity()
	if err != nil {
		return fmt.Errorf("failed to get repository activity: %w", err)
	}

	thisYear := a.now().Year()
	byYear := make(map[int]int)
	// Detected version first, then the calendar guess; approximate by nature.
	byVersion := make(map[string]int)
	for _, r := range repos {
		if !r.LatestCommit.IsZero() {
			if y := r.LatestCommit.Year(); y >= a.opts.MinYear && y <= thisYear {
				byYear[y]++
			}
		}
		v := r.BoostVersion
		if v == "" {
			v = r.CandidateVersion
		}
		if v != "" {
			byVersion[a.normalize(v)]++
		}
	}

	for y, n := range byYear {
		d.ReposByYear = append(d.ReposByYear, YearCount{Year: y, Count: n})
	}
	sort.Slice(d.ReposByYear, func(i, j int) bool { return d.ReposByYear[i].Year < d.ReposByYear[j].Year })

	for v, n := range byVersion {
		d.ReposByVersion = append(d.ReposByVersion, VersionCount{Version: v, Count: n})
	}
	sort.Slice(d.ReposByVersion, func(i, j int) bool {
		return version.Compare(d.ReposByVersion[i].Version, d.ReposByVersion[j].Version) < 0
	})

	// Already ordered by usage count descending.
	for _, r := range limit(repos, a.opts.DashboardTop) {
		d.TopRepositories = append(d.TopRepositories, RepositoryCount{Name: r.Name, UsageCount: r.UsageCount})
	}
	return nil
}

func (a *Analyzer) libraryTables(d *DashboardData) error {
	libs, err := a.store.ListLibraries()
	if err != nil {
		return fmt.Errorf("failed to list libraries: %w", err)
	}
	usage, err := a.store.ListLibraryUsage()
	if err != nil {
		return fmt.Errorf("failed to get library usage: %w", err)
	}
	years, err := a.store.ListLibraryYears()
	if err != nil {
		return fmt.Errorf("failed to get library years: %w", err)
	}
	headers, err := a.store.ListHeaderUsage()
	if err != nil {
		return fmt.Errorf("failed to get header usage: %w", err)
	}

	thisYear := a.now().Year()
	for _, l := range libs {
		d.AllLibraries = append(d.AllLibraries, l.Name)
		top, err := a.store.TopLibraryRepositories(l.ID, a.opts.LibraryTopRepos)
		if err != nil {
			return fmt.Errorf("failed to get repositories for %s: %w", l.Name, err)
		}
		detail := LibraryDetail{Name: l.Name}
		for _, r := range top {
			detail.TopRepositories = append(detail.TopRepositories, RepositoryCount{Name: r.Name, UsageCount: r.UsageCount})
		}
		d.Libraries[l.Name] = detail
	}

	counts := make([]LibraryCount, 0, len(usage))
	for _, u := range usage {
		counts = append(counts, LibraryCount{Name: u.Name, UsageCount: u.UsageCount})
		detail := d.Libraries[u.Name]
		detail.RepoCount = u.RepoCount
		detail.UsageCount = u.UsageCount
		d.Libraries[u.Name] = detail
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].UsageCount != counts[j].UsageCount {
			return counts[i].UsageCount > counts[j].UsageCount
		}
		return counts[i].Name < counts[j].Name
	})
	d.TopLibraries = limit(counts, a.opts.DashboardTop)

	bottom := append([]LibraryCount(nil), counts...)
	sort.SliceStable(bottom, func(i, j int) bool {
		if bottom[i].UsageCount != bottom[j].UsageCount {
			return bottom[i].UsageCount < bottom[j].UsageCount
		}
		return bottom[i].Name < bottom[j].Name
	})
	d.BottomLibraries = limit(bottom, a.opts.DashboardTop)

	for _, y := range years {
		if y.Year < a.opts.MinYear || y.Year > thisYear {
			continue
		}
		detail := d.Libraries[y.Library]
		detail.UsageByYear = append(detail.UsageByYear, YearCount{Year: y.Year, Count: y.Count})
		d.Libraries[y.Library] = detail
	}

	for _, h := range headers {
		detail := d.Libraries[h.Library]
		detail.Headers = append(detail.Headers, HeaderCount{Header: h.Header, RepoCount: h.RepoCount, UsageCount: h.UsageCount})
		d.Libraries[h.Library] = detail
	}

	d.Activity = a.activity(years)
	return nil
}

// activity ranks libraries by their share of usage in the most recent
// RecentYears years of data, weighted by total usage.
func (a *Analyzer) activity(years []store.LibraryYear) ActivitySummary {
	summary := ActivitySummary{RecentYears: a.opts.RecentYears}
	for _, y := range years {
		if y.Year > summary.ReferenceYear {
			summary.ReferenceYear = y.Year
		}
	}
	if summary.ReferenceYear == 0 {
		return summary
	}

	cutoff := summary.ReferenceYear - a.opts.RecentYears
	byLib := make(map[string]*LibraryActivity)
	var order []string
	for _, y := range years {
		la := byLib[y.Library]
		if la == nil {
			la = &LibraryActivity{Name: y.Library}
			byLib[y.Library] = la
			order = append(order, y.Library)
		}
		if y.Year > cutoff {
			la.RecentUsage += y.Count
		} else {
			la.PastUsage += y.Count
		}
		la.TotalUsage += y.Count
	}

	all := make([]LibraryActivity, 0, len(order))
	for _, name := range order {
		all = append(all, ActivityMetrics(*byLib[name]))
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].ActivityScore != all[j].ActivityScore {
			return all[i].ActivityScore > all[j].ActivityScore
		}
		return all[i].Name < all[j].Name
	})
	summary.Top = limit(all, a.opts.DashboardTop)

	bottom := append([]LibraryActivity(nil), all...)
	sort.SliceStable(bottom, func(i, j int) bool {
		if bottom[i].ActivityScore != bottom[j].ActivityScore {
			return bottom[i].ActivityScore < bottom[j].ActivityScore
		}
		return bottom[i].Name < bottom[j].Name
	})
	summary.Bottom = limit(bottom, a.opts.DashboardTop)
	return summary
}

// ActivityMetrics fills the derived ratios of la from its usage counts.
func ActivityMetrics(la LibraryActivity) LibraryActivity {
	past := la.PastUsage
	if past < 1 {
		past = 1
	}
	la.RecentActivityRatio = float64(la.RecentUsage) / float64(past)
	if la.TotalUsage > 0 {
		share := float64(la.RecentUsage) / float64(la.TotalUsage)
		la.RecentActivityPercentage = share * 100
		la.ActivityScore = share * math.Log10(1+float64(la.TotalUsage))
	}
	return la
}
