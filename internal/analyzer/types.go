package analyzer

import "time"

// Statistics is the summary behind the Markdown report.
type Statistics struct {
	GeneratedAt time.Time

	TotalRepositories    int
	AffectedRepositories int
	TotalLibraries       int
	TotalHeaders         int
	TotalUsageRecords    int

	ReposWithVersion       int
	ReposWithoutVersion    int
	VersionCoveragePercent float64

	VersionDistribution []VersionCount // newest first
	TopLibraries        []LibraryStat
	BottomLibraries     []LibraryStat
	TopHeaders          []HeaderStat
	ReposByYear         []YearCount // newest first
	ReposByYearVersion  []YearVersionCount
}

// VersionCount is a number of repositories at one version.
type VersionCount struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}

// YearCount is a number of repositories or records in one year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// YearVersionCount is a number of repositories at a version in a year.
type YearVersionCount struct {
	Version string `json:"version"`
	Year    int    `json:"year"`
	Count   int    `json:"count"`
}

// LibraryStat summarises one library's usage.
type LibraryStat struct {
	Name           string
	RepoCount      int
	UsageCount     int
	EarliestCommit time.Time
	LatestCommit   time.Time
}

// HeaderStat summarises one header's usage.
type HeaderStat struct {
	Header     string
	RepoCount  int
	UsageCount int
}

// HeaderRow is one line of the statistics CSV.
type HeaderRow struct {
	Library      string
	Header       string
	RepoCount    int
	UsageCount   int
	LastCommit   time.Time
	BoostVersion string
}

// DashboardData is everything the HTML dashboard renders. It is also
// written as dashboard_data.json.
type DashboardData struct {
	GeneratedAt     time.Time                `json:"generated_at"`
	LatestVersion   string                   `json:"latest_version"`
	ReposByYear     []YearCount              `json:"repos_by_year"`
	ReposByVersion  []VersionCount           `json:"repos_by_version"`
	TopLibraries    []LibraryCount           `json:"top_libraries"`
	BottomLibraries []LibraryCount           `json:"bottom_libraries"`
	Activity        ActivitySummary          `json:"activity_metrics"`
	TopRepositories []RepositoryCount        `json:"top_repositories"`
	AllLibraries    []string                 `json:"all_libraries"`
	Libraries       map[string]LibraryDetail `json:"libraries"`
}

// LibraryCount is a library with its usage record count.
type LibraryCount struct {
	Name       string `json:"library_name"`
	UsageCount int    `json:"usage_count"`
}

// RepositoryCount is a repository with its usage record count.
type RepositoryCount struct {
	Name       string `json:"repo_name"`
	UsageCount int    `json:"usage_count"`
}

// HeaderCount is a header with its usage counts.
type HeaderCount struct {
	Header     string `json:"header"`
	RepoCount  int    `json:"repo_count"`
	UsageCount int    `json:"usage_count"`
}

// ActivitySummary ranks libraries by recent activity.
type ActivitySummary struct {
	ReferenceYear int               `json:"reference_year"`
	RecentYears   int               `json:"recent_years"`
	Top           []LibraryActivity `json:"top"`
	Bottom        []LibraryActivity `json:"bottom"`
}

// LibraryActivity compares a library's usage in the recent window against
// the years before it.
type LibraryActivity struct {
	Name                     string  `json:"name"`
	RecentUsage              int     `json:"recent_usage"`
	PastUsage                int     `json:"past_usage"`
	TotalUsage               int     `json:"total_usage"`
	RecentActivityRatio      float64 `json:"recent_activity_ratio"`
	RecentActivityPercentage float64 `json:"recent_activity_percentage"`
	ActivityScore            float64 `json:"activity_score"`
}

// LibraryDetail is the drill-down page data for one library.
type LibraryDetail struct {
	Name            string            `json:"name"`
	RepoCount       int               `json:"repo_count"`
	UsageCount      int               `json:"usage_count"`
	UsageByYear     []YearCount       `json:"usage_by_year"`
	TopRepositories []RepositoryCount `json:"top_repos"`
	Headers         []HeaderCount     `json:"headers"`
}
