package api

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/pregelrank/pregelrank/pagerank"
)

// Store keeps the most recently published PageRank result in memory. It
// implements ranker.ScoreSink.
type Store struct {
	clk clock.Clock

	mu          sync.RWMutex
	res         *pagerank.Result
	ranking     []pagerank.Score
	publishedAt time.Time
}

// NewStore creates an empty store. If clk is nil the wall clock is used for
// stamping published results.
func NewStore(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Store{clk: clk}
}

// Publish replaces the stored result with res.
func (s *Store) Publish(_ context.Context, res *pagerank.Result) error {
	ranking := pagerank.Ranking(res.Scores)

	s.mu.Lock()
	s.res = res
	s.ranking = ranking
	s.publishedAt = s.clk.Now()
	s.mu.Unlock()
	return nil
}

// Score returns the score of vertex id in the latest result.
func (s *Store) Score(id string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.res == nil {
		return 0, false
	}
	score, ok := s.res.Scores[id]
	return score, ok
}

// Ranking returns up to limit entries of the latest ranking in descending
// score order. A non-positive limit returns the full ranking.
func (s *Store) Ranking(limit int) []pagerank.Score {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.ranking) {
		limit = len(s.ranking)
	}
	out := make([]pagerank.Score, limit)
	copy(out, s.ranking[:limit])
	return out
}

// Latest returns the latest published result and the time it was
// published at. The result is nil if nothing has been published yet.
func (s *Store) Latest() (*pagerank.Result, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.res, s.publishedAt
}
