package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// StatsRepository recomputes rolling participant stats straight from
// the projects table. Recomputing from source instead of incrementing
// keeps the numbers correct even after retries or replays.
type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// RecomputeDoer refreshes a doer's completed count, earnings, on-time
// delivery rate and success rate.
func (r *StatsRepository) RecomputeDoer(ctx context.Context, doerID string) error {
	const q = `
UPDATE profiles SET
	total_projects_completed = agg.completed,
	total_earnings_cents = agg.earnings,
	on_time_delivery_rate = agg.on_time_rate,
	success_rate = agg.success_rate,
	updated_at = now()
FROM (
	SELECT
		COUNT(*) FILTER (WHERE status IN ('completed', 'auto_approved')) AS completed,
		COALESCE(SUM(doer_payout_cents) FILTER (WHERE status IN ('completed', 'auto_approved')), 0) AS earnings,
		COALESCE(
			COUNT(*) FILTER (WHERE status IN ('completed', 'auto_approved')
				AND delivered_at IS NOT NULL AND deadline IS NOT NULL
				AND delivered_at <= deadline)::float
			/ NULLIF(COUNT(*) FILTER (WHERE status IN ('completed', 'auto_approved')
				AND delivered_at IS NOT NULL AND deadline IS NOT NULL), 0),
		0) AS on_time_rate,
		COALESCE(
			COUNT(*) FILTER (WHERE status IN ('completed', 'auto_approved'))::float
			/ NULLIF(COUNT(*) FILTER (WHERE status IN ('completed', 'auto_approved', 'cancelled', 'refunded')), 0),
		0) AS success_rate
	FROM projects
	WHERE doer_id = $1
) AS agg
WHERE profiles.id = $1;
`
	if _, err := r.db.ExecContext(ctx, q, doerID); err != nil {
		return fmt.Errorf("recompute doer stats: %w", err)
	}
	return nil
}

// RecomputeSupervisor refreshes a supervisor's completed count and
// commission earnings.
func (r *StatsRepository) RecomputeSupervisor(ctx context.Context, supervisorID string) error {
	const q = `
UPDATE profiles SET
	total_projects_completed = agg.completed,
	total_earnings_cents = agg.earnings,
	success_rate = agg.success_rate,
	updated_at = now()
FROM (
	SELECT
		COUNT(*) FILTER (WHERE status IN ('completed', 'auto_approved')) AS completed,
		COALESCE(SUM(supervisor_commission_cents) FILTER (WHERE status IN ('completed', 'auto_approved')), 0) AS earnings,
		COALESCE(
			COUNT(*) FILTER (WHERE status IN ('completed', 'auto_approved'))::float
			/ NULLIF(COUNT(*) FILTER (WHERE status IN ('completed', 'auto_approved', 'cancelled', 'refunded')), 0),
		0) AS success_rate
	FROM projects
	WHERE supervisor_id = $1
) AS agg
WHERE profiles.id = $1;
`
	if _, err := r.db.ExecContext(ctx, q, supervisorID); err != nil {
		return fmt.Errorf("recompute supervisor stats: %w", err)
	}
	return nil
}
