package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"pledgeboard/internal/app"
	"pledgeboard/internal/domain"
)

// PledgeStore persists pledge records in Postgres. Inserts are append-only;
// created_at is assigned by the server, never taken from the client.
type PledgeStore struct {
	pool *pgxpool.Pool
}

var _ app.PledgeStore = (*PledgeStore)(nil)

func NewPledgeStore(pool *pgxpool.Pool) *PledgeStore {
	return &PledgeStore{pool: pool}
}

func (s *PledgeStore) Add(ctx context.Context, record domain.PledgeRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pledges (user_id, full_name, department, score, volunteer, kind, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.UserID, record.FullName, record.Department, int(record.Score),
		record.Volunteer, record.Type, record.Status,
	)
	if err != nil {
		return fmt.Errorf("insert pledge: %w", err)
	}
	return nil
}

func (s *PledgeStore) Recent(ctx context.Context, limit int) ([]domain.PledgeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, full_name, department, score, volunteer, kind, status, created_at
		FROM pledges
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pledges: %w", err)
	}
	defer rows.Close()

	var records []domain.PledgeRecord
	for rows.Next() {
		var (
			r         domain.PledgeRecord
			score     int
			createdAt time.Time
		)
		if err := rows.Scan(&r.UserID, &r.FullName, &r.Department, &score,
			&r.Volunteer, &r.Type, &r.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pledge: %w", err)
		}
		r.Score = domain.FlexInt(score)
		r.CreatedAt = &createdAt
		records = append(records, r)
	}
	return records, rows.Err()
}
