package store

import (
	"database/sql"
	"fmt"
	"time"
)

// LibraryUsage aggregates non-excepted usage per library.
type LibraryUsage struct {
	ID             int64
	Name           string
	RepoCount      int
	UsageCount     int
	EarliestCommit time.Time
	LatestCommit   time.Time
}

// HeaderUsage aggregates non-excepted usage per header.
type HeaderUsage struct {
	ID         int64
	Library    string
	Header     string
	RepoCount  int
	UsageCount int
	LastCommit time.Time
}

// RepositoryActivity describes an active repository and its usage.
type RepositoryActivity struct {
	ID               int64
	Name             string
	AffectFromBoost  bool
	BoostVersion     string
	CandidateVersion string
	UsageCount       int
	LatestCommit     time.Time
}

// LibraryYear counts usage records of a library by commit year.
type LibraryYear struct {
	Library string
	Year    int
	Count   int
}

// RepositoryUsage counts a repository's usage records for one library.
type RepositoryUsage struct {
	Name       string
	UsageCount int
}

// SummaryCounts returns repository, affected repository, library, header and
// active usage record totals. Repositories whose records are all excepted
// are not counted.
func (s *Store) SummaryCounts() (repos, affected, libraries, headers, usage int, err error) {
	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM active_repository`, &repos},
		{`SELECT COUNT(*) FROM active_repository WHERE affect_from_boost = 1`, &affected},
		{`SELECT COUNT(*) FROM boost_library`, &libraries},
		{`SELECT COUNT(*) FROM boost_header`, &headers},
		{`SELECT COUNT(*) FROM boost_usage WHERE excepted_ts IS NULL`, &usage},
	}
	for _, q := range queries {
		if err = s.db.QueryRow(q.query).Scan(q.dest); err != nil {
			err = wrap(err, "failed to compute summary counts")
			return
		}
	}
	return
}

// RepositoryVersionCounts returns the number of active repositories per
// stored boost_version, skipping NULL and empty versions.
func (s *Store) RepositoryVersionCounts() (map[string]int, error) {
	query := `
		SELECT boost_version, COUNT(*)
		FROM active_repository
		WHERE boost_version IS NOT NULL AND boost_version != ''
		GROUP BY boost_version
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrap(err, "failed to count repository versions")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var v string
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return nil, fmt.Errorf("failed to scan version row: %w", err)
		}
		counts[v] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}
	return counts, nil
}

// ListLibraryUsage returns every library with at least one active usage
// record, ordered by repository count descending then name.
func (s *Store) ListLibraryUsage() ([]LibraryUsage, error) {
	query := `
		SELECT
			bl.id,
			bl.name,
			COUNT(DISTINCT bu.repository_id) AS repo_count,
			COUNT(bu.id) AS usage_count,
			MIN(bu.last_commit_ts),
			MAX(bu.last_commit_ts)
		FROM boost_library bl
		JOIN boost_header bh ON bh.library_id = bl.id
		JOIN boost_usage bu ON bu.header_id = bh.id
		WHERE bu.excepted_ts IS NULL
		GROUP BY bl.id, bl.name
		ORDER BY repo_count DESC, bl.name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrap(err, "failed to aggregate library usage")
	}
	defer rows.Close()

	var out []LibraryUsage
	for rows.Next() {
		var l LibraryUsage
		var earliest, latest sql.NullString
		if err := rows.Scan(&l.ID, &l.Name, &l.RepoCount, &l.UsageCount, &earliest, &latest); err != nil {
			return nil, fmt.Errorf("failed to scan library usage row: %w", err)
		}
		l.EarliestCommit = parseTime(earliest)
		l.LatestCommit = parseTime(latest)
		out = append(out, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating library usage: %w", err)
	}
	return out, nil
}

// ListHeaderUsage returns every header with at least one active usage
// record, ordered by library name then repository count descending.
func (s *Store) ListHeaderUsage() ([]HeaderUsage, error) {
	query := `
		SELECT
			bh.id,
			bl.name,
			bh.header_name,
			COUNT(DISTINCT bu.repository_id) AS repo_count,
			COUNT(bu.id) AS usage_count,
			MAX(bu.last_commit_ts)
		FROM boost_header bh
		JOIN boost_library bl ON bl.id = bh.library_id
		JOIN boost_usage bu ON bu.header_id = bh.id
		WHERE bu.excepted_ts IS NULL
		GROUP BY bh.id, bh.header_name, bl.name
		ORDER BY bl.name, repo_count DESC, bh.header_name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrap(err, "failed to aggregate header usage")
	}
	defer rows.Close()

	var out []HeaderUsage
	for rows.Next() {
		var h HeaderUsage
		var last sql.NullString
		if err := rows.Scan(&h.ID, &h.Library, &h.Header, &h.RepoCount, &h.UsageCount, &last); err != nil {
			return nil, fmt.Errorf("failed to scan header usage row: %w", err)
		}
		h.LastCommit = parseTime(last)
		out = append(out, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating header usage: %w", err)
	}
	return out, nil
}

// HeaderVersionCounts returns, per header id, how many distinct active
// repositories with each non-empty boost_version include the header.
func (s *Store) HeaderVersionCounts() (map[int64]map[string]int, error) {
	query := `
		SELECT bu.header_id, r.boost_version, COUNT(DISTINCT r.id)
		FROM boost_usage bu
		JOIN repository r ON r.id = bu.repository_id
		WHERE bu.excepted_ts IS NULL
		  AND r.boost_version IS NOT NULL
		  AND r.boost_version != ''
		GROUP BY bu.header_id, r.boost_version
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrap(err, "failed to count header versions")
	}
	defer rows.Close()

	out := make(map[int64]map[string]int)
	for rows.Next() {
		var id int64
		var v string
		var n int
		if err := rows.Scan(&id, &v, &n); err != nil {
			return nil, fmt.Errorf("failed to scan header version row: %w", err)
		}
		if out[id] == nil {
			out[id] = make(map[string]int)
		}
		out[id][v] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating header versions: %w", err)
	}
	return out, nil
}

// ListRepositoryActivity returns every repository with active usage
// records, with its usage count and latest commit, ordered by usage count
// descending then name.
func (s *Store) ListRepositoryActivity() ([]RepositoryActivity, error) {
	query := `
		SELECT
			r.id,
			r.repo_name,
			r.affect_from_boost,
			r.boost_version,
			r.candidate_version,
			COUNT(bu.id) AS usage_count,
			MAX(bu.last_commit_ts)
		FROM repository r
		JOIN boost_usage bu ON bu.repository_id = r.id
		WHERE bu.excepted_ts IS NULL
		GROUP BY r.id
		ORDER BY usage_count DESC, r.repo_name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrap(err, "failed to aggregate repository activity")
	}
	defer rows.Close()

	var out []RepositoryActivity
	for rows.Next() {
		var a RepositoryActivity
		var affect int
		var bv, cv, last sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &affect, &bv, &cv, &a.UsageCount, &last); err != nil {
			return nil, fmt.Errorf("failed to scan repository activity row: %w", err)
		}
		a.AffectFromBoost = affect != 0
		a.BoostVersion = bv.String
		a.CandidateVersion = cv.String
		a.LatestCommit = parseTime(last)
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repository activity: %w", err)
	}
	return out, nil
}

// ListLibraryYears counts active usage records per library and commit
// year. Records without a commit timestamp are skipped.
func (s *Store) ListLibraryYears() ([]LibraryYear, error) {
	query := `
		SELECT
			bl.name,
			CAST(SUBSTR(bu.last_commit_ts, 1, 4) AS INTEGER) AS year,
			COUNT(bu.id)
		FROM boost_usage bu
		JOIN boost_header bh ON bh.id = bu.header_id
		JOIN boost_library bl ON bl.id = bh.library_id
		WHERE bu.excepted_ts IS NULL
		  AND bu.last_commit_ts IS NOT NULL
		  AND LENGTH(bu.last_commit_ts) >= 4
		GROUP BY bl.name, year
		ORDER BY bl.name, year
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrap(err, "failed to aggregate library years")
	}
	defer rows.Close()

	var out []LibraryYear
	for rows.Next() {
		var ly LibraryYear
		if err := rows.Scan(&ly.Library, &ly.Year, &ly.Count); err != nil {
			return nil, fmt.Errorf("failed to scan library year row: %w", err)
		}
		out = append(out, ly)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating library years: %w", err)
	}
	return out, nil
}

// TopLibraryRepositories returns the repositories with the most active
// usage records of the given library.
func (s *Store) TopLibraryRepositories(libraryID int64, limit int) ([]RepositoryUsage, error) {
	query := `
		SELECT r.repo_name, COUNT(bu.id) AS usage_count
		FROM boost_usage bu
		JOIN boost_header bh ON bh.id = bu.header_id
		JOIN repository r ON r.id = bu.repository_id
		WHERE bh.library_id = ?
		  AND bu.excepted_ts IS NULL
		GROUP BY r.id
		ORDER BY usage_count DESC, r.repo_name
		LIMIT ?
	`

	rows, err := s.db.Query(query, libraryID, limit)
	if err != nil {
		return nil, wrap(err, "failed to list library repositories")
	}
	defer rows.Close()

	var out []RepositoryUsage
	for rows.Next() {
		var ru RepositoryUsage
		if err := rows.Scan(&ru.Name, &ru.UsageCount); err != nil {
			return nil, fmt.Errorf("failed to scan library repository row: %w", err)
		}
		out = append(out, ru)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating library repositories: %w", err)
	}
	return out, nil
}
