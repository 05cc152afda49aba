package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/noeunkim/black-white-siseon/internal/model"
	"github.com/noeunkim/black-white-siseon/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store keeps results in a mutex-guarded map. Used by tests and db-less
// deployments; contents do not survive a restart.
type Store struct {
	mu      sync.RWMutex
	results map[string]*model.AnalysisResult
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{results: make(map[string]*model.AnalysisResult)}
}

// SaveResult stores a deep copy of result, keeping the caller's value
// exclusively owned by its run.
func (s *Store) SaveResult(ctx context.Context, result *model.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ID] = copyResult(result)
	return nil
}

// GetResult returns a deep copy, so repeated reads are identical and callers
// cannot mutate the stored record.
func (s *Store) GetResult(ctx context.Context, id string) (*model.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyResult(r), nil
}

// ListResults returns summaries newest-first, at most limit.
func (s *Store) ListResults(ctx context.Context, limit int) ([]*model.ResultSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]*model.ResultSummary, 0, len(s.results))
	for _, r := range s.results {
		summaries = append(summaries, &model.ResultSummary{
			ID:             r.ID,
			Query:          r.Query,
			OriginalStance: r.OriginalAnalysis.Stance,
			CreatedAt:      r.CreatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// DeleteResult removes the record and its articles.
func (s *Store) DeleteResult(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.results, id)
	return nil
}

// Close implements storage.Store.
func (s *Store) Close() error { return nil }

func copyResult(r *model.AnalysisResult) *model.AnalysisResult {
	cp := *r
	cp.ProArticles = append([]model.AnalyzedArticle(nil), r.ProArticles...)
	cp.ConArticles = append([]model.AnalyzedArticle(nil), r.ConArticles...)
	cp.OriginalAnalysis.KeyPoints = append([]string(nil), r.OriginalAnalysis.KeyPoints...)
	return &cp
}
