package ingest

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/boostusage/internal/store"
	"github.com/blackwell-systems/boostusage/internal/version"
)

// ResolveStats summarises one Resolve run.
type ResolveStats struct {
	Repositories  int
	WithRecords   int
	Updated       int
	WithVersion   int
	WithCandidate int
	Affected      int
}

// MergeRepository applies coalesce-on-write: a version already stored is
// never replaced, a missing one takes the new value. The affect flag is
// always recomputed, so it comes from next.
func MergeRepository(old, next store.Repository) store.Repository {
	merged := old
	if merged.ID == 0 {
		merged.ID = next.ID
	}
	if merged.Name == "" {
		merged.Name = next.Name
	}
	if merged.BoostVersion == "" {
		merged.BoostVersion = next.BoostVersion
	}
	if merged.CandidateVersion == "" {
		merged.CandidateVersion = next.CandidateVersion
	}
	merged.AffectFromBoost = next.AffectFromBoost
	return merged
}

// aggregate collects one repository's active usage records.
type aggregate struct {
	records     int
	affect      bool
	counts      map[string]int
	order       []string
	pathVersion string
	latest      time.Time
}

func (a *aggregate) add(r store.UsageRecord, minYear int) {
	a.records++
	if r.AffectFromBoost {
		a.affect = true
	}
	if !r.LastCommit.IsZero() && r.LastCommit.Year() < minYear {
		return
	}

	if a.pathVersion == "" {
		a.pathVersion = version.FromPath(r.FilePath)
	}
	if r.BoostVersion != "" {
		if a.counts[r.BoostVersion] == 0 {
			a.order = append(a.order, r.BoostVersion)
		}
		a.counts[r.BoostVersion]++
	}
	if r.LastCommit.After(a.latest) {
		a.latest = r.LastCommit
	}
}

// mostCommon returns the most frequent record version; ties go to the
// version seen first.
func (a *aggregate) mostCommon() string {
	best, bestN := "", 0
	for _, v := range a.order {
		if n := a.counts[v]; n > bestN {
			best, bestN = v, n
		}
	}
	return best
}

// Resolve recomputes every repository's version, candidate version and
// affect flag from its non-excepted usage records and writes the changes in
// one transaction.
func (in *Ingester) Resolve() (*ResolveStats, error) {
	repos, err := in.store.ListRepositories()
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	minYear := in.MinCommitYear
	aggs := make(map[int64]*aggregate)
	err = in.store.ActiveUsage(func(r store.UsageRecord) error {
		a := aggs[r.RepositoryID]
		if a == nil {
			a = &aggregate{counts: make(map[string]int)}
			aggs[r.RepositoryID] = a
		}
		a.add(r, minYear)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}

	stats := &ResolveStats{Repositories: len(repos)}
	var updates []store.Repository
	for _, old := range repos {
		next := store.Repository{ID: old.ID, Name: old.Name}
		if a := aggs[old.ID]; a != nil {
			stats.WithRecords++
			next.AffectFromBoost = a.affect
			next.BoostVersion = a.mostCommon()
			if next.BoostVersion == "" {
				next.BoostVersion = a.pathVersion
			}
			next.CandidateVersion = in.Calendar.CandidateVersion(a.latest)
		}

		merged := MergeRepository(old, next)
		if merged != old {
			updates = append(updates, merged)
		}
		if merged.BoostVersion != "" {
			stats.WithVersion++
		}
		if merged.CandidateVersion != "" {
			stats.WithCandidate++
		}
		if merged.AffectFromBoost {
			stats.Affected++
		}
	}

	if err := in.store.UpdateRepositories(updates); err != nil {
		return nil, fmt.Errorf("failed to update repositories: %w", err)
	}
	stats.Updated = len(updates)

	in.log.Info().
		Int("repositories", stats.Repositories).
		Int("updated", stats.Updated).
		Int("with_version", stats.WithVersion).
		Msg("repositories resolved")
	return stats, nil
}
