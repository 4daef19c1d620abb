package memory

import (
	"context"
	"sync"

	"pledgeboard/internal/app"
	"pledgeboard/internal/domain"
)

// PledgeStore is an in-memory implementation of app.PledgeStore. Records are
// kept newest first; the slice is bounded at a small multiple of the feed
// limit since nothing ever reads past it.
type PledgeStore struct {
	mu      sync.RWMutex
	records []domain.PledgeRecord
}

var _ app.PledgeStore = (*PledgeStore)(nil)

const retain = 2 * domain.FeedLimit

func NewPledgeStore() *PledgeStore {
	return &PledgeStore{}
}

func (s *PledgeStore) Add(_ context.Context, record domain.PledgeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]domain.PledgeRecord{record}, s.records...)
	if len(s.records) > retain {
		s.records = s.records[:retain]
	}
	return nil
}

func (s *PledgeStore) Recent(_ context.Context, limit int) ([]domain.PledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.records)
	if limit < n {
		n = limit
	}
	out := make([]domain.PledgeRecord, n)
	copy(out, s.records[:n])
	return out, nil
}
