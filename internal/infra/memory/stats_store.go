package memory

import (
	"context"
	"sync"

	"pledgeboard/internal/app"
	"pledgeboard/internal/domain"
)

// StatsStore keeps the platform counters and activity log in process.
type StatsStore struct {
	mu           sync.RWMutex
	students     map[string]struct{}
	linkRequests int
	totalImpact  int
	activity     []domain.ActivityEntry // newest first
}

var _ app.StatsStore = (*StatsStore)(nil)

func NewStatsStore() *StatsStore {
	return &StatsStore{students: make(map[string]struct{})}
}

func (s *StatsStore) RecordStudent(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[email] = struct{}{}
	return nil
}

func (s *StatsStore) RecordLinkRequest(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linkRequests++
	return nil
}

func (s *StatsStore) AddImpact(_ context.Context, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalImpact += points
	return nil
}

func (s *StatsStore) RecordActivity(_ context.Context, entry domain.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append([]domain.ActivityEntry{entry}, s.activity...)
	if len(s.activity) > retain {
		s.activity = s.activity[:retain]
	}
	return nil
}

func (s *StatsStore) Summary(context.Context) (domain.StatsSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.StatsSummary{
		StudentCount: len(s.students),
		LinkRequests: s.linkRequests,
		TotalImpact:  s.totalImpact,
	}, nil
}

func (s *StatsStore) Activity(_ context.Context, limit int) ([]domain.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.activity)
	if limit < n {
		n = limit
	}
	out := make([]domain.ActivityEntry, n)
	copy(out, s.activity[:n])
	return out, nil
}
