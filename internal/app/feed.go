package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"pledgeboard/internal/domain"
)

// PledgeStore abstracts where pledge records live (in-memory, Postgres).
// Records are append-only; Recent returns them newest first, at most limit.
type PledgeStore interface {
	Add(ctx context.Context, record domain.PledgeRecord) error
	Recent(ctx context.Context, limit int) ([]domain.PledgeRecord, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// FeedService is the write path for pledge records and the push source for
// dashboard snapshots. Every accepted write re-reads the bounded recent
// window, re-aggregates, and fans the result out to subscribers.
type FeedService struct {
	store PledgeStore
	log   *zap.Logger
	now   func() time.Time

	mu          sync.RWMutex
	primed      bool
	records     []domain.PledgeRecord // last good snapshot of the store
	subscribers map[chan domain.Snapshot]string
}

func NewFeedService(store PledgeStore, log *zap.Logger) *FeedService {
	return &FeedService{
		store:       store,
		log:         log,
		now:         time.Now,
		subscribers: make(map[chan domain.Snapshot]string),
	}
}

// Publish appends a record and pushes fresh snapshots to all subscribers.
func (f *FeedService) Publish(ctx context.Context, record domain.PledgeRecord) error {
	if err := f.store.Add(ctx, record); err != nil {
		return err
	}
	f.Refresh(ctx)
	return nil
}

// Add makes the service usable wherever a PledgeStore is expected, so
// writers routed through it trigger the fan-out.
func (f *FeedService) Add(ctx context.Context, record domain.PledgeRecord) error {
	return f.Publish(ctx, record)
}

// Recent delegates to the underlying store so the service satisfies
// PledgeStore in full.
func (f *FeedService) Recent(ctx context.Context, limit int) ([]domain.PledgeRecord, error) {
	return f.store.Recent(ctx, limit)
}

// Volunteer records a one-click volunteer pledge for user and returns the
// persisted record.
func (f *FeedService) Volunteer(ctx context.Context, userID, fullName, department string) (domain.PledgeRecord, error) {
	ts := f.now()
	record := domain.PledgeRecord{
		UserID:     userID,
		FullName:   fullName,
		Department: department,
		Volunteer:  domain.VolunteerYes,
		Type:       domain.TypeVolunteer,
		Status:     domain.StatusVolunteered,
		Timestamp:  &ts,
	}
	if err := f.Publish(ctx, record); err != nil {
		return domain.PledgeRecord{}, err
	}
	return record, nil
}

// Refresh re-reads the recent window and broadcasts. A read failure is
// logged and the previous records stand, so subscribers keep their last
// good view instead of going blank.
func (f *FeedService) Refresh(ctx context.Context) {
	records, err := f.store.Recent(ctx, domain.FeedLimit)
	if err != nil {
		f.log.Warn("feed refresh failed, keeping last snapshot", zap.Error(err))
		return
	}

	f.mu.Lock()
	f.records = records
	f.primed = true
	now := f.now()
	for ch, userID := range f.subscribers {
		snap := Aggregate(records, userID, now)
		select {
		case ch <- snap:
		default:
			// Slow subscriber: drop its stale snapshot so the broadcast
			// never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	f.mu.Unlock()
}

// Subscribe registers a dashboard view personalized for userID. The first
// delivery is the current snapshot. The caller must invoke cancel when the
// view is torn down; subscriptions do not outlive their connection.
func (f *FeedService) Subscribe(ctx context.Context, userID string) (<-chan domain.Snapshot, func(), error) {
	f.mu.Lock()
	if !f.primed {
		// First subscriber primes the window from the store.
		f.mu.Unlock()
		records, err := f.store.Recent(ctx, domain.FeedLimit)
		f.mu.Lock()
		if err != nil {
			f.mu.Unlock()
			return nil, nil, err
		}
		if !f.primed {
			f.records = records
			f.primed = true
		}
	}

	ch := make(chan domain.Snapshot, 8)
	f.subscribers[ch] = userID
	initial := Aggregate(f.records, userID, f.now())
	f.mu.Unlock()

	ch <- initial

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel, nil
}

// SnapshotFor aggregates the current window for a one-shot (non-push) read.
func (f *FeedService) SnapshotFor(ctx context.Context, userID string) (domain.Snapshot, error) {
	f.mu.RLock()
	primed := f.primed
	records := f.records
	f.mu.RUnlock()
	if !primed {
		var err error
		records, err = f.store.Recent(ctx, domain.FeedLimit)
		if err != nil {
			return domain.Snapshot{}, err
		}
	}
	return Aggregate(records, userID, f.now()), nil
}
