package app

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"go.uber.org/zap"

	"pledgeboard/internal/domain"
)

// StatsStore keeps the platform-wide counters and the activity log (memory
// or Redis).
type StatsStore interface {
	RecordStudent(ctx context.Context, email string) error
	RecordLinkRequest(ctx context.Context) error
	AddImpact(ctx context.Context, points int) error
	RecordActivity(ctx context.Context, entry domain.ActivityEntry) error
	Summary(ctx context.Context) (domain.StatsSummary, error)
	Activity(ctx context.Context, limit int) ([]domain.ActivityEntry, error)
}

const activityLimit = 200

// StatsService owns the read-only aggregate counters behind /stats. Counter
// write failures are logged and swallowed: stats are diagnostics, never a
// reason to fail the user action that produced them.
type StatsService struct {
	store StatsStore
	log   *zap.Logger
	now   func() time.Time
}

func NewStatsService(store StatsStore, log *zap.Logger) *StatsService {
	return &StatsService{store: store, log: log, now: time.Now}
}

// NoteLinkRequest records one sign-in-link dispatch for email.
func (s *StatsService) NoteLinkRequest(ctx context.Context, email, name string) {
	if err := s.store.RecordStudent(ctx, email); err != nil {
		s.log.Debug("stats: record student", zap.Error(err))
	}
	if err := s.store.RecordLinkRequest(ctx); err != nil {
		s.log.Debug("stats: record link request", zap.Error(err))
	}
	if err := s.store.RecordActivity(ctx, domain.ActivityEntry{
		Name:      name,
		Email:     email,
		Purpose:   "login",
		CreatedAt: s.now(),
	}); err != nil {
		s.log.Debug("stats: record activity", zap.Error(err))
	}
}

// NoteSubmission feeds a persisted pledge into the impact counters.
func (s *StatsService) NoteSubmission(ctx context.Context, record domain.PledgeRecord) {
	if err := s.store.AddImpact(ctx, int(record.Score)); err != nil {
		s.log.Debug("stats: add impact", zap.Error(err))
	}
	purpose := "submission"
	if record.IsVolunteer() {
		purpose = "volunteer"
	}
	if err := s.store.RecordActivity(ctx, domain.ActivityEntry{
		Name:      record.DisplayName(),
		Purpose:   purpose,
		CreatedAt: s.now(),
	}); err != nil {
		s.log.Debug("stats: record activity", zap.Error(err))
	}
}

func (s *StatsService) Summary(ctx context.Context) (domain.StatsSummary, error) {
	return s.store.Summary(ctx)
}

func (s *StatsService) Activity(ctx context.Context) ([]domain.ActivityEntry, error) {
	return s.store.Activity(ctx, activityLimit)
}

// WriteActivityCSV streams the activity log as CSV.
func (s *StatsService) WriteActivityCSV(ctx context.Context, w io.Writer) error {
	entries, err := s.Activity(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Time", "Student Name", "Roll Number", "Email", "Action"}); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.Name,
			e.Roll,
			e.Email,
			e.Purpose,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
