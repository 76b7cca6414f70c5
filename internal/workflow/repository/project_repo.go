package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/doerdesk/doerdesk-backend/internal/workflow/domain"
	"github.com/doerdesk/doerdesk-backend/internal/workflow/utils"
)

// ProjectRepository persists projects and applies status transitions.
// A transition is one database transaction: the conditional status
// update (the optimistic-concurrency claim) plus the history row.
type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, code, owner_id, status, supervisor_id, doer_id,
	service_type, subject, title,
	user_quote_cents, doer_payout_cents, supervisor_commission_cents, platform_fee_cents,
	is_paid, deadline, auto_approve_at, paid_at, delivered_at, completed_at,
	created_at, updated_at`

// Create inserts a new draft project for the given owner.
func (r *ProjectRepository) Create(ctx context.Context, ownerID, serviceType, subject, title string, deadline *time.Time) (*domain.Project, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id required")
	}

	for i := 0; i < 5; i++ {
		code, err := utils.NewProjectCode()
		if err != nil {
			return nil, err
		}

		q := fmt.Sprintf(`
INSERT INTO projects (id, code, owner_id, status, service_type, subject, title, deadline)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING %s;`, projectColumns)

		p, err := scanProject(r.db.QueryRowContext(ctx, q,
			uuid.New().String(), code, ownerID, domain.StatusDraft,
			serviceType, subject, title, deadline))
		if err == nil {
			return p, nil
		}

		// unique violation on code -> retry with a fresh one
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to generate unique project code")
}

func (r *ProjectRepository) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	q := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1;`, projectColumns)
	return scanProject(r.db.QueryRowContext(ctx, q, projectID))
}

// ApplyTransition commits a status change and its audit row atomically.
// The WHERE clause on the expected from-status is the concurrency
// guard: if another writer got there first, zero rows match and the
// caller sees ErrConcurrentModification. A failed history insert rolls
// the status change back.
func (r *ProjectRepository) ApplyTransition(ctx context.Context, projectID string, from, to domain.Status, stamp domain.StatusStamp, entry *domain.StatusHistoryEntry) (*domain.Project, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	q := fmt.Sprintf(`
UPDATE projects
SET status = $3,
    is_paid = COALESCE($4, is_paid),
    paid_at = COALESCE($5, paid_at),
    delivered_at = COALESCE($6, delivered_at),
    completed_at = COALESCE($7, completed_at),
    auto_approve_at = COALESCE($8, auto_approve_at),
    supervisor_id = COALESCE($9, supervisor_id),
    doer_id = COALESCE($10, doer_id),
    updated_at = now()
WHERE id = $1 AND status = $2
RETURNING %s;`, projectColumns)

	p, err := scanProject(tx.QueryRowContext(ctx, q, projectID, from, to,
		stamp.IsPaid, stamp.PaidAt, stamp.DeliveredAt, stamp.CompletedAt,
		stamp.AutoApproveAt, stamp.SupervisorID, stamp.DoerID))
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return nil, domain.ErrConcurrentModification
		}
		return nil, err
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuditWriteFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return p, nil
}

// SetQuote finalizes the monetary split on a project once its quote is
// accepted. Only the money columns move; status stays with the state
// machine.
func (r *ProjectRepository) SetQuote(ctx context.Context, projectID string, userCents, doerCents, supervisorCents, platformCents int64) error {
	const q = `
UPDATE projects
SET user_quote_cents = $2, doer_payout_cents = $3,
    supervisor_commission_cents = $4, platform_fee_cents = $5,
    updated_at = now()
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, projectID, userCents, doerCents, supervisorCents, platformCents)
	if err != nil {
		return fmt.Errorf("set quote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

// DueForAutoApproval lists delivered projects whose grace deadline has
// passed. The sweep acts on each through the state machine, whose
// conditional update is the claim that keeps concurrent sweepers from
// double-processing a project.
func (r *ProjectRepository) DueForAutoApproval(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const q = `
SELECT id FROM projects
WHERE status = $1 AND auto_approve_at IS NOT NULL AND auto_approve_at <= $2
ORDER BY auto_approve_at
LIMIT $3;
`
	rows, err := r.db.QueryContext(ctx, q, domain.StatusDelivered, now, limit)
	if err != nil {
		return nil, fmt.Errorf("due for auto approval: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, entry *domain.StatusHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	meta, err := json.Marshal(entry.Metadata)
	if err != nil {
		meta = []byte("{}")
	}

	const q = `
INSERT INTO project_status_history (id, project_id, from_status, to_status, actor_type, actor_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at;
`
	return tx.QueryRowContext(ctx, q, entry.ID, entry.ProjectID,
		entry.FromStatus, entry.ToStatus, entry.ActorType, entry.ActorID, meta).
		Scan(&entry.CreatedAt)
}

func scanProject(row interface{ Scan(dest ...any) error }) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.Code, &p.OwnerID, &p.Status, &p.SupervisorID, &p.DoerID,
		&p.ServiceType, &p.Subject, &p.Title,
		&p.UserQuoteCents, &p.DoerPayoutCents, &p.SupervisorCommissionCents, &p.PlatformFeeCents,
		&p.IsPaid, &p.Deadline, &p.AutoApproveAt, &p.PaidAt, &p.DeliveredAt, &p.CompletedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}
