package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Catalog operations

// UpsertCatalog inserts libraries and headers that are not yet present.
// Existing rows are left untouched. It returns the number of headers added.
func (s *Store) UpsertCatalog(entries []CatalogEntry) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin catalog transaction: %w", err)
	}

	libStmt, err := tx.Prepare(`INSERT OR IGNORE INTO boost_library (name) VALUES (?)`)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, wrap(err, "failed to prepare library insert")
	}
	defer libStmt.Close()

	hdrStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO boost_header (library_id, header_name, full_header_name)
		SELECT id, ?, ? FROM boost_library WHERE name = ?
	`)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, wrap(err, "failed to prepare header insert")
	}
	defer hdrStmt.Close()

	added := 0
	for _, e := range entries {
		if e.Library == "" || e.HeaderName == "" {
			continue
		}
		if _, err := libStmt.Exec(e.Library); err != nil {
			tx.Rollback() //nolint:errcheck
			return 0, fmt.Errorf("failed to insert library %s: %w", e.Library, err)
		}
		res, err := hdrStmt.Exec(e.HeaderName, nullString(e.FullHeaderName), e.Library)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return 0, fmt.Errorf("failed to insert header %s: %w", e.HeaderName, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit catalog: %w", err)
	}
	return added, nil
}

// ListHeaders returns every header with its library name.
func (s *Store) ListHeaders() ([]Header, error) {
	query := `
		SELECT bh.id, bh.library_id, bl.name, bh.header_name, bh.full_header_name
		FROM boost_header bh
		JOIN boost_library bl ON bl.id = bh.library_id
		ORDER BY bh.id
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrap(err, "failed to list headers")
	}
	defer rows.Close()

	var headers []Header
	for rows.Next() {
		var h Header
		var full sql.NullString
		if err := rows.Scan(&h.ID, &h.LibraryID, &h.LibraryName, &h.HeaderName, &full); err != nil {
			return nil, fmt.Errorf("failed to scan header row: %w", err)
		}
		h.FullHeaderName = full.String
		headers = append(headers, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating headers: %w", err)
	}
	return headers, nil
}

// ListLibraries returns all libraries ordered by name.
func (s *Store) ListLibraries() ([]Library, error) {
	rows, err := s.db.Query(`SELECT id, name FROM boost_library ORDER BY name`)
	if err != nil {
		return nil, wrap(err, "failed to list libraries")
	}
	defer rows.Close()

	var libs []Library
	for rows.Next() {
		var l Library
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, fmt.Errorf("failed to scan library row: %w", err)
		}
		libs = append(libs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating libraries: %w", err)
	}
	return libs, nil
}

// CountHeaders returns the size of the header catalog.
func (s *Store) CountHeaders() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM boost_header`).Scan(&n); err != nil {
		return 0, wrap(err, "failed to count headers")
	}
	return n, nil
}

// Repository operations

// EnsureRepository returns the id of the named repository, creating it with
// the given flag when it does not exist. An existing row is not modified.
func (s *Store) EnsureRepository(name string, affect bool) (int64, error) {
	return ensureRepository(s.db, name, affect)
}

// execQuerier is satisfied by *sql.DB and *sql.Tx.
type execQuerier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func ensureRepository(q execQuerier, name string, affect bool) (int64, error) {
	_, err := q.Exec(
		`INSERT OR IGNORE INTO repository (repo_name, affect_from_boost) VALUES (?, ?)`,
		name, boolInt(affect),
	)
	if err != nil {
		return 0, wrap(err, fmt.Sprintf("failed to insert repository %s", name))
	}

	var id int64
	if err := q.QueryRow(`SELECT id FROM repository WHERE repo_name = ?`, name).Scan(&id); err != nil {
		return 0, wrap(err, fmt.Sprintf("failed to get repository %s", name))
	}
	return id, nil
}

// GetRepository retrieves a repository by name.
func (s *Store) GetRepository(name string) (*Repository, error) {
	query := `
		SELECT id, repo_name, affect_from_boost, boost_version, candidate_version
		FROM repository
		WHERE repo_name = ?
	`

	r, err := scanRepository(s.db.QueryRow(query, name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("repository %s not found", name)
	}
	if err != nil {
		return nil, wrap(err, fmt.Sprintf("failed to get repository %s", name))
	}
	return r, nil
}

// ListRepositories returns all repositories ordered by id.
func (s *Store) ListRepositories() ([]Repository, error) {
	query := `
		SELECT id, repo_name, affect_from_boost, boost_version, candidate_version
		FROM repository
		ORDER BY id
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrap(err, "failed to list repositories")
	}
	defer rows.Close()

	var repos []Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repository row: %w", err)
		}
		repos = append(repos, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repositories: %w", err)
	}
	return repos, nil
}

// UpdateRepositories writes the version and flag columns of every given
// repository in one transaction.
func (s *Store) UpdateRepositories(repos []Repository) error {
	if len(repos) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin repository update: %w", err)
	}

	stmt, err := tx.Prepare(`
		UPDATE repository
		SET boost_version = ?, candidate_version = ?, affect_from_boost = ?
		WHERE id = ?
	`)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return wrap(err, "failed to prepare repository update")
	}
	defer stmt.Close()

	for _, r := range repos {
		_, err := stmt.Exec(nullString(r.BoostVersion), nullString(r.CandidateVersion), boolInt(r.AffectFromBoost), r.ID)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("failed to update repository %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit repository update: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepository(row rowScanner) (*Repository, error) {
	var r Repository
	var affect int
	var bv, cv sql.NullString
	if err := row.Scan(&r.ID, &r.Name, &affect, &bv, &cv); err != nil {
		return nil, err
	}
	r.AffectFromBoost = affect != 0
	r.BoostVersion = bv.String
	r.CandidateVersion = cv.String
	return &r, nil
}

// Usage operations

// CommitBatch inserts usage records and ingested-file markers in a single
// transaction. Either everything is written or nothing is.
func (s *Store) CommitBatch(records []UsageRecord, files []IngestedFile) error {
	return s.Commit(Batch{Records: records, Files: files})
}

// Commit writes a whole ingest batch in one transaction: missing
// repositories first, then usage records, then ingested-file markers.
// Records with a zero RepositoryID are matched by RepositoryName against
// the batch's repositories. On any error nothing is written.
func (s *Store) Commit(b Batch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	repoIDs := make(map[string]int64, len(b.Repositories))
	for _, r := range b.Repositories {
		id, err := ensureRepository(tx, r.Name, r.AffectFromBoost)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return err
		}
		repoIDs[r.Name] = id
	}
	records, files := b.Records, b.Files

	stmt, err := tx.Prepare(`
		INSERT INTO boost_usage
		(repository_id, file_path, header_id, last_commit_ts, boost_version, affect_from_boost, excepted_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return wrap(err, "failed to prepare usage insert")
	}
	defer stmt.Close()

	for _, r := range records {
		repoID := r.RepositoryID
		if repoID == 0 {
			id, ok := repoIDs[r.RepositoryName]
			if !ok {
				tx.Rollback() //nolint:errcheck
				return fmt.Errorf("usage for %s refers to unknown repository %q", r.FilePath, r.RepositoryName)
			}
			repoID = id
		}
		_, err := stmt.Exec(
			repoID,
			r.FilePath,
			r.HeaderID,
			formatTime(r.LastCommit),
			nullString(r.BoostVersion),
			boolInt(r.AffectFromBoost),
			formatTimePtr(r.ExceptedAt),
		)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("failed to insert usage for %s: %w", r.FilePath, err)
		}
	}

	fileStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO ingested_file (sha256, file_name, run_id, row_count, ingested_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return wrap(err, "failed to prepare ingested file insert")
	}
	defer fileStmt.Close()

	for _, f := range files {
		_, err := fileStmt.Exec(f.SHA256, f.FileName, f.RunID, f.RowCount, f.IngestedAt.UTC().Format(TimeLayout))
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("failed to record ingested file %s: %w", f.FileName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// ActiveUsage calls fn for every non-excepted usage record, ordered by
// repository and insertion. fn must not call back into the store.
func (s *Store) ActiveUsage(fn func(UsageRecord) error) error {
	query := `
		SELECT id, repository_id, header_id, file_path, last_commit_ts, boost_version, affect_from_boost
		FROM boost_usage
		WHERE excepted_ts IS NULL
		ORDER BY repository_id, id
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return wrap(err, "failed to query usage")
	}
	defer rows.Close()

	for rows.Next() {
		var r UsageRecord
		var ts, bv sql.NullString
		var affect int
		if err := rows.Scan(&r.ID, &r.RepositoryID, &r.HeaderID, &r.FilePath, &ts, &bv, &affect); err != nil {
			return fmt.Errorf("failed to scan usage row: %w", err)
		}
		r.LastCommit = parseTime(ts)
		r.BoostVersion = bv.String
		r.AffectFromBoost = affect != 0
		if err := fn(r); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating usage: %w", err)
	}
	return nil
}

// ListUsage returns a repository's usage records, excepted ones included.
func (s *Store) ListUsage(repositoryID int64) ([]UsageRecord, error) {
	query := `
		SELECT id, repository_id, header_id, file_path, last_commit_ts, boost_version, affect_from_boost, excepted_ts
		FROM boost_usage
		WHERE repository_id = ?
		ORDER BY id
	`

	rows, err := s.db.Query(query, repositoryID)
	if err != nil {
		return nil, wrap(err, "failed to list usage")
	}
	defer rows.Close()

	var out []UsageRecord
	for rows.Next() {
		var r UsageRecord
		var ts, bv, ex sql.NullString
		var affect int
		if err := rows.Scan(&r.ID, &r.RepositoryID, &r.HeaderID, &r.FilePath, &ts, &bv, &affect, &ex); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		r.LastCommit = parseTime(ts)
		r.BoostVersion = bv.String
		r.AffectFromBoost = affect != 0
		r.ExceptedAt = parseTimePtr(ex)
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage: %w", err)
	}
	return out, nil
}

// Soft delete operations

// ExceptRepository marks every active usage record of the named repository
// as excepted at the given time. It returns the number of records changed.
func (s *Store) ExceptRepository(name string, at time.Time) (int64, error) {
	repo, err := s.GetRepository(name)
	if err != nil {
		return 0, err
	}

	res, err := s.db.Exec(
		`UPDATE boost_usage SET excepted_ts = ? WHERE repository_id = ? AND excepted_ts IS NULL`,
		formatTime(at), repo.ID,
	)
	if err != nil {
		return 0, wrap(err, fmt.Sprintf("failed to except repository %s", name))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// RestoreRepository clears the excepted marker on the named repository's
// usage records. It returns the number of records changed.
func (s *Store) RestoreRepository(name string) (int64, error) {
	repo, err := s.GetRepository(name)
	if err != nil {
		return 0, err
	}

	res, err := s.db.Exec(
		`UPDATE boost_usage SET excepted_ts = NULL WHERE repository_id = ? AND excepted_ts IS NOT NULL`,
		repo.ID,
	)
	if err != nil {
		return 0, wrap(err, fmt.Sprintf("failed to restore repository %s", name))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Ingested file operations

// IsIngested reports whether a file with the given content hash has been
// consumed by an earlier run.
func (s *Store) IsIngested(sha string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM ingested_file WHERE sha256 = ?`, sha).Scan(&n)
	if err != nil {
		return false, wrap(err, "failed to check ingested file")
	}
	return n > 0, nil
}

// ListIngestedFiles returns ingested files, newest first.
func (s *Store) ListIngestedFiles() ([]IngestedFile, error) {
	query := `
		SELECT sha256, file_name, run_id, row_count, ingested_at
		FROM ingested_file
		ORDER BY ingested_at DESC, file_name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrap(err, "failed to list ingested files")
	}
	defer rows.Close()

	var files []IngestedFile
	for rows.Next() {
		var f IngestedFile
		var at sql.NullString
		if err := rows.Scan(&f.SHA256, &f.FileName, &f.RunID, &f.RowCount, &at); err != nil {
			return nil, fmt.Errorf("failed to scan ingested file row: %w", err)
		}
		f.IngestedAt = parseTime(at)
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingested files: %w", err)
	}
	return files, nil
}

// GetCounts returns table sizes for status output.
func (s *Store) GetCounts() (*Counts, error) {
	var c Counts
	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM boost_library`, &c.Libraries},
		{`SELECT COUNT(*) FROM boost_header`, &c.Headers},
		{`SELECT COUNT(*) FROM repository`, &c.Repositories},
		{`SELECT COUNT(*) FROM boost_usage`, &c.UsageRecords},
		{`SELECT COUNT(*) FROM boost_usage WHERE excepted_ts IS NOT NULL`, &c.ExceptedRecords},
		{`SELECT COUNT(*) FROM ingested_file`, &c.IngestedFiles},
	}
	for _, q := range queries {
		if err := s.db.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, wrap(err, "failed to count rows")
		}
	}

	var last sql.NullString
	if err := s.db.QueryRow(`SELECT MAX(ingested_at) FROM ingested_file`).Scan(&last); err != nil {
		return nil, wrap(err, "failed to get last ingest time")
	}
	c.LastIngest = parseTimePtr(last)
	return &c, nil
}
