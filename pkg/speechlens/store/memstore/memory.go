package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/speechlens/pkg/speechlens/internalerr"
	"github.com/cognicore/speechlens/pkg/speechlens/store"
	"github.com/cognicore/speechlens/pkg/speechlens/tfidf"
	"github.com/cognicore/speechlens/pkg/speechlens/vectors"
)

type groupKey struct {
	run, group string
}

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu       sync.RWMutex
	runs     map[string]store.Run
	tfidf    map[groupKey][]tfidf.Record
	vectors  map[groupKey]*vectors.Table
	rankings map[groupKey]map[string]vectors.Ranking
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:     make(map[string]store.Run),
		tfidf:    make(map[groupKey][]tfidf.Record),
		vectors:  make(map[groupKey]*vectors.Table),
		rankings: make(map[groupKey]map[string]vectors.Ranking),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveRun implements store.Store.
func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is required", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Groups = append([]string(nil), r.Groups...)
	s.runs[r.ID] = r
	return nil
}

// GetRun implements store.Store.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("%w: run %s", internalerr.ErrNotFound, id)
	}
	return r, nil
}

// ListRuns implements store.Store.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID > runs[j].ID
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// SaveTFIDF implements store.Store.
func (s *Store) SaveTFIDF(ctx context.Context, runID string, records []tfidf.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("%w: run %s", internalerr.ErrNotFound, runID)
	}
	// Saving a group replaces its previous records.
	fresh := make(map[groupKey][]tfidf.Record)
	for _, r := range records {
		k := groupKey{run: runID, group: r.Group}
		fresh[k] = append(fresh[k], r)
	}
	for k, recs := range fresh {
		s.tfidf[k] = recs
	}
	return nil
}

// GetTFIDF implements store.Store.
func (s *Store) GetTFIDF(ctx context.Context, runID, group string) ([]tfidf.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]tfidf.Record(nil), s.tfidf[groupKey{run: runID, group: group}]...), nil
}

// SaveVectors implements store.Store. Tables are immutable, so the pointer
// is kept as is.
func (s *Store) SaveVectors(ctx context.Context, runID string, t *vectors.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("%w: run %s", internalerr.ErrNotFound, runID)
	}
	s.vectors[groupKey{run: runID, group: t.Group()}] = t
	return nil
}

// LoadVectors implements store.Store.
func (s *Store) LoadVectors(ctx context.Context, runID, group string) (*vectors.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.vectors[groupKey{run: runID, group: group}]
	if !ok {
		return nil, fmt.Errorf("%w: vectors for run %s group %s", internalerr.ErrNotFound, runID, group)
	}
	return t, nil
}

// SaveRanking implements store.Store.
func (s *Store) SaveRanking(ctx context.Context, runID, group string, r vectors.Ranking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("%w: run %s", internalerr.ErrNotFound, runID)
	}
	k := groupKey{run: runID, group: group}
	if s.rankings[k] == nil {
		s.rankings[k] = make(map[string]vectors.Ranking)
	}
	s.rankings[k][r.Query] = r
	return nil
}

// GetRankings implements store.Store.
func (s *Store) GetRankings(ctx context.Context, runID, group string) ([]vectors.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byQuery := s.rankings[groupKey{run: runID, group: group}]
	out := make([]vectors.Ranking, 0, len(byQuery))
	for _, r := range byQuery {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Query < out[j].Query })
	return out, nil
}

var _ store.Store = (*Store)(nil)
