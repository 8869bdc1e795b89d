package ingest

import (
	"errors"
	"sort"

	"github.com/blackwell-systems/boostusage/internal/store"
)

// memStore is an in-memory Store.
type memStore struct {
	headers  []store.Header
	repos    map[string]*store.Repository
	nextID   int64
	usage    []store.UsageRecord
	ingested map[string]store.IngestedFile
	commits  int
	failNext error
}

func newMemStore(headers ...store.Header) *memStore {
	return &memStore{
		headers:  headers,
		repos:    make(map[string]*store.Repository),
		ingested: make(map[string]store.IngestedFile),
	}
}

func (m *memStore) ListHeaders() ([]store.Header, error) {
	return m.headers, nil
}

func (m *memStore) EnsureRepository(name string, affect bool) (int64, error) {
	if r, ok := m.repos[name]; ok {
		return r.ID, nil
	}
	m.nextID++
	m.repos[name] = &store.Repository{ID: m.nextID, Name: name, AffectFromBoost: affect}
	return m.nextID, nil
}

func (m *memStore) IsIngested(sha string) (bool, error) {
	_, ok := m.ingested[sha]
	return ok, nil
}

func (m *memStore) Commit(b store.Batch) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.commits++
	for _, r := range b.Repositories {
		m.EnsureRepository(r.Name, r.AffectFromBoost) //nolint:errcheck
	}
	for i, r := range b.Records {
		if r.RepositoryID == 0 {
			repo, ok := m.repos[r.RepositoryName]
			if !ok {
				return errors.New("unknown repository " + r.RepositoryName)
			}
			r.RepositoryID = repo.ID
		}
		r.ID = int64(len(m.usage) + i + 1)
		m.usage = append(m.usage, r)
	}
	for _, f := range b.Files {
		m.ingested[f.SHA256] = f
	}
	return nil
}

func (m *memStore) ListRepositories() ([]store.Repository, error) {
	out := make([]store.Repository, 0, len(m.repos))
	for _, r := range m.repos {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ActiveUsage(fn func(store.UsageRecord) error) error {
	recs := append([]store.UsageRecord(nil), m.usage...)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].RepositoryID < recs[j].RepositoryID })
	for _, r := range recs {
		if r.ExceptedAt != nil {
			continue
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) UpdateRepositories(repos []store.Repository) error {
	for _, r := range repos {
		existing, ok := m.repos[r.Name]
		if !ok || existing.ID != r.ID {
			return errors.New("unknown repository")
		}
		*existing = r
	}
	return nil
}

func (m *memStore) repo(name string) store.Repository {
	if r, ok := m.repos[name]; ok {
		return *r
	}
	return store.Repository{}
}
