package store

import "time"

// Library is a Boost library such as "asio" or "filesystem".
type Library struct {
	ID   int64
	Name string
}

// Header is a public header belonging to exactly one library.
type Header struct {
	ID             int64
	LibraryID      int64
	LibraryName    string
	HeaderName     string
	FullHeaderName string // empty when NULL
}

// CatalogEntry is one header to seed, keyed by library name.
type CatalogEntry struct {
	Library        string
	HeaderName     string
	FullHeaderName string
}

// Repository is a source repository that includes Boost headers.
// Empty version strings correspond to NULL columns.
type Repository struct {
	ID               int64
	Name             string
	AffectFromBoost  bool
	BoostVersion     string
	CandidateVersion string
}

// UsageRecord is one observed inclusion of a header by a repository.
type UsageRecord struct {
	ID              int64
	RepositoryID    int64
	// RepositoryName resolves RepositoryID on commit when the id is zero.
	RepositoryName  string
	HeaderID        int64
	FilePath        string
	LastCommit      time.Time // zero when unknown
	BoostVersion    string
	AffectFromBoost bool
	ExceptedAt      *time.Time
}

// NewRepository is created, if missing, in the same transaction as the
// usage records that refer to it.
type NewRepository struct {
	Name            string
	AffectFromBoost bool
}

// Batch is everything one ingest run writes.
type Batch struct {
	Repositories []NewRepository
	Records      []UsageRecord
	Files        []IngestedFile
}

// IngestedFile marks an input file as consumed by a run.
type IngestedFile struct {
	SHA256     string
	FileName   string
	RunID      string
	RowCount   int
	IngestedAt time.Time
}

// Counts summarises table sizes for status output.
type Counts struct {
	Libraries       int
	Headers         int
	Repositories    int
	UsageRecords    int
	ExceptedRecords int
	IngestedFiles   int
	LastIngest      *time.Time
}
