package store

const schema = `
CREATE TABLE IF NOT EXISTS boost_library (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS boost_header (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    library_id INTEGER NOT NULL,
    header_name TEXT NOT NULL UNIQUE,
    full_header_name TEXT,
    max_commit_ts TEXT,
    FOREIGN KEY (library_id) REFERENCES boost_library(id)
);

CREATE TABLE IF NOT EXISTS repository (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    repo_name TEXT NOT NULL UNIQUE,
    affect_from_boost INTEGER NOT NULL DEFAULT 0,
    boost_version TEXT,
    candidate_version TEXT
);

CREATE TABLE IF NOT EXISTS boost_usage (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    repository_id INTEGER NOT NULL,
    file_path TEXT NOT NULL,
    header_id INTEGER NOT NULL,
    last_commit_ts TEXT,
    boost_version TEXT,
    affect_from_boost INTEGER NOT NULL DEFAULT 0,
    excepted_ts TEXT,
    FOREIGN KEY (repository_id) REFERENCES repository(id),
    FOREIGN KEY (header_id) REFERENCES boost_header(id)
);

CREATE TABLE IF NOT EXISTS ingested_file (
    sha256 TEXT PRIMARY KEY,
    file_name TEXT NOT NULL,
    run_id TEXT NOT NULL,
    row_count INTEGER NOT NULL DEFAULT 0,
    ingested_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_header_library ON boost_header(library_id);
CREATE INDEX IF NOT EXISTS idx_usage_repository ON boost_usage(repository_id);
CREATE INDEX IF NOT EXISTS idx_usage_header ON boost_usage(header_id);
CREATE INDEX IF NOT EXISTS idx_usage_excepted ON boost_usage(excepted_ts);

-- A repository is active unless every one of its usage records is excepted.
CREATE VIEW IF NOT EXISTS active_repository AS
SELECT r.*
FROM repository r
WHERE EXISTS (
        SELECT 1 FROM boost_usage bu
        WHERE bu.repository_id = r.id AND bu.excepted_ts IS NULL
    )
   OR NOT EXISTS (
        SELECT 1 FROM boost_usage bu WHERE bu.repository_id = r.id
    );
`
