package analyzer

import (
	"fmt"
	"sort"

	"github.com/blackwell-systems/boostusage/internal/version"
)

// Statistics computes the report summary. Excepted usage records are left
// out of every figure.
func (a *Analyzer) Statistics() (*Statistics, error) {
	s := &Statistics{GeneratedAt: a.now().UTC()}

	var err error
	s.TotalRepositories, s.AffectedRepositories, s.TotalLibraries, s.TotalHeaders, s.TotalUsageRecords, err = a.store.SummaryCounts()
	if err != nil {
		return nil, err
	}

	if err := a.versionStats(s); err != nil {
		return nil, err
	}
	if err := a.libraryStats(s); err != nil {
		return nil, err
	}
	if err := a.headerStats(s); err != nil {
		return nil, err
	}
	if err := a.yearStats(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *Analyzer) versionStats(s *Statistics) error {
	counts, err := a.store.RepositoryVersionCounts()
	if err != nil {
		return fmt.Errorf("failed to get version counts: %w", err)
	}

	merged := make(map[string]int)
	for v, n := range counts {
		s.ReposWithVersion += n
		merged[a.normalize(v)] += n
	}
	s.ReposWithoutVersion = s.TotalRepositories - s.ReposWithVersion
	if s.TotalRepositories > 0 {
		s.VersionCoveragePercent = float64(s.ReposWithVersion) / float64(s.TotalRepositories) * 100
	}

	for v, n := range merged {
		if version.Compare(v, a.opts.MinDistributionVersion) >= 0 {
			s.VersionDistribution = append(s.VersionDistribution, VersionCount{Version: v, Count: n})
		}
	}
	sort.Slice(s.VersionDistribution, func(i, j int) bool {
		return version.Compare(s.VersionDistribution[i].Version, s.VersionDistribution[j].Version) > 0
	})
	return nil
}

func (a *Analyzer) libraryStats(s *Statistics) error {
	libs, err := a.store.ListLibraryUsage()
	if err != nil {
		return fmt.Errorf("failed to get library usage: %w", err)
	}

	all := make([]LibraryStat, 0, len(libs))
	for _, l := range libs {
		all = append(all, LibraryStat{
			Name:           l.Name,
			RepoCount:      l.RepoCount,
			UsageCount:     l.UsageCount,
			EarliestCommit: l.EarliestCommit,
			LatestCommit:   l.LatestCommit,
		})
	}

	// The store returns repository count descending.
	s.TopLibraries = limit(all, a.opts.TopLibraries)

	bottom := append([]LibraryStat(nil), all...)
	sort.SliceStable(bottom, func(i, j int) bool {
		if bottom[i].RepoCount != bottom[j].RepoCount {
			return bottom[i].RepoCount < bottom[j].RepoCount
		}
		return bottom[i].Name < bottom[j].Name
	})
	s.BottomLibraries = limit(bottom, a.opts.BottomLibraries)
	return nil
}

func (a *Analyzer) headerStats(s *Statistics) error {
	headers, err := a.store.ListHeaderUsage()
	if err != nil {
		return fmt.Errorf("failed to get header usage: %w", err)
	}

	top := make([]HeaderStat, 0, len(headers))
	for _, h := range headers {
		top = append(top, HeaderStat{Header: h.Header, RepoCount: h.RepoCount, UsageCount: h.UsageCount})
	}
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].RepoCount != top[j].RepoCount {
			return top[i].RepoCount > top[j].RepoCount
		}
		return top[i].Header < top[j].Header
	})
	s.TopHeaders = limit(top, a.opts.TopHeaders)
	return nil
}

func (a *Analyzer) yearStats(s *Statistics) error {
	repos, err := a.store.ListRepositoryActivity()
	if err != nil {
		return fmt.Errorf("failed to get repository activity: %w", err)
	}

	thisYear := a.now().Year()
	byYear := make(map[int]int)
	byVersion := make(map[string]map[int]int)
	for _, r := range repos {
		if r.LatestCommit.IsZero() {
			continue
		}
		year := r.LatestCommit.Year()
		if year >= a.opts.MinYear && year <= thisYear {
			byYear[year]++
		}

		if r.BoostVersion == "" || year < a.opts.MinPivotYear || year > thisYear {
			continue
		}
		v := a.normalize(r.BoostVersion)
		if ry, ok := a.calendar.ReleaseYear(v); ok && ry > year {
			year = ry
		}
		if byVersion[v] == nil {
			byVersion[v] = make(map[int]int)
		}
		byVersion[v][year]++
	}

	for y, n := range byYear {
		s.ReposByYear = append(s.ReposByYear, YearCount{Year: y, Count: n})
	}
	sort.Slice(s.ReposByYear, func(i, j int) bool { return s.ReposByYear[i].Year > s.ReposByYear[j].Year })

	for v, years := range byVersion {
		for y, n := range years {
			s.ReposByYearVersion = append(s.ReposByYearVersion, YearVersionCount{Version: v, Year: y, Count: n})
		}
	}
	sort.Slice(s.ReposByYearVersion, func(i, j int) bool {
		x, y := s.ReposByYearVersion[i], s.ReposByYearVersion[j]
		if c := version.Compare(x.Version, y.Version); c != 0 {
			return c < 0
		}
		return x.Year < y.Year
	})
	return nil
}

// Pivot arranges ReposByYearVersion as a year by version grid for versions
// at or above minVersion. Years and versions are newest first.
func (s *Statistics) Pivot(minVersion string) (years []int, versions []string, cells map[string]map[int]int) {
	cells = make(map[string]map[int]int)
	seenYear := make(map[int]bool)
	for _, c := range s.ReposByYearVersion {
		if version.Compare(c.Version, minVersion) < 0 {
			continue
		}
		if cells[c.Version] == nil {
			cells[c.Version] = make(map[int]int)
			versions = append(versions, c.Version)
		}
		cells[c.Version][c.Year] += c.Count
		if !seenYear[c.Year] {
			seenYear[c.Year] = true
			years = append(years, c.Year)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	version.SortDescending(versions)
	return years, versions, cells
}

// HeaderRows returns one statistics CSV row per used header, ordered by
// library then repository count. BoostVersion is the version held by the
// most repositories including the header; ties go to the smaller string.
func (a *Analyzer) HeaderRows() ([]HeaderRow, error) {
	headers, err := a.store.ListHeaderUsage()
	if err != nil {
		return nil, fmt.Errorf("failed to get header usage: %w", err)
	}
	versions, err := a.store.HeaderVersionCounts()
	if err != nil {
		return nil, fmt.Errorf("failed to get header versions: %w", err)
	}

	rows := make([]HeaderRow, 0, len(headers))
	for _, h := range headers {
		rows = append(rows, HeaderRow{
			Library:      h.Library,
			Header:       h.Header,
			RepoCount:    h.RepoCount,
			UsageCount:   h.UsageCount,
			LastCommit:   h.LastCommit,
			BoostVersion: mostCommon(versions[h.ID]),
		})
	}
	return rows, nil
}

func mostCommon(counts map[string]int) string {
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

func limit[T any](items []T, n int) []T {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}
