package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pledgeboard/internal/app"
	"pledgeboard/internal/domain"
)

const (
	keyStudents     = "stats:students"      // SET of addresses
	keyLinkRequests = "stats:link_requests" // counter
	keyTotalImpact  = "stats:total_impact"  // counter
	keyActivity     = "stats:activity"      // LIST of JSON entries, newest first
)

const activityRetain = 500

// StatsStore keeps the platform counters in Redis so they survive restarts
// and are shared across instances.
type StatsStore struct {
	client *redis.Client
}

var _ app.StatsStore = (*StatsStore)(nil)

func NewStatsStore(client *redis.Client) *StatsStore {
	return &StatsStore{client: client}
}

func (s *StatsStore) RecordStudent(ctx context.Context, email string) error {
	return s.client.SAdd(ctx, keyStudents, email).Err()
}

func (s *StatsStore) RecordLinkRequest(ctx context.Context) error {
	return s.client.Incr(ctx, keyLinkRequests).Err()
}

func (s *StatsStore) AddImpact(ctx context.Context, points int) error {
	return s.client.IncrBy(ctx, keyTotalImpact, int64(points)).Err()
}

func (s *StatsStore) RecordActivity(ctx context.Context, entry domain.ActivityEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, keyActivity, data)
	pipe.LTrim(ctx, keyActivity, 0, activityRetain-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *StatsStore) Summary(ctx context.Context) (domain.StatsSummary, error) {
	students, err := s.client.SCard(ctx, keyStudents).Result()
	if err != nil {
		return domain.StatsSummary{}, err
	}
	links, err := s.client.Get(ctx, keyLinkRequests).Int()
	if err != nil && err != redis.Nil {
		return domain.StatsSummary{}, err
	}
	impact, err := s.client.Get(ctx, keyTotalImpact).Int()
	if err != nil && err != redis.Nil {
		return domain.StatsSummary{}, err
	}
	return domain.StatsSummary{
		StudentCount: int(students),
		LinkRequests: links,
		TotalImpact:  impact,
	}, nil
}

func (s *StatsStore) Activity(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	raw, err := s.client.LRange(ctx, keyActivity, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.ActivityEntry, 0, len(raw))
	for _, item := range raw {
		var e domain.ActivityEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			// skip rows we cannot decode; the log is diagnostics only
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
