package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/doerdesk/doerdesk-backend/internal/quotes/domain"
)

// QuoteRepository persists project quotes. A project carries at most
// one pending quote; issuing a new one expires the previous in the same
// transaction.
type QuoteRepository struct {
	db *sql.DB
}

func NewQuoteRepository(db *sql.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

const quoteColumns = `id, project_id, status, base_cents, urgency_fee_cents,
	complexity_fee_cents, discount_cents, user_cents, doer_cents,
	supervisor_cents, platform_cents, created_at, updated_at`

// Issue stores a new pending quote, expiring any currently pending one.
func (r *QuoteRepository) Issue(ctx context.Context, projectID string, b domain.Breakdown) (*domain.ProjectQuote, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin issue quote: %w", err)
	}
	defer tx.Rollback()

	const expire = `
UPDATE project_quotes SET status = $2, updated_at = now()
WHERE project_id = $1 AND status = $3;
`
	if _, err := tx.ExecContext(ctx, expire, projectID, domain.QuoteExpired, domain.QuotePending); err != nil {
		return nil, fmt.Errorf("expire previous quote: %w", err)
	}

	q := fmt.Sprintf(`
INSERT INTO project_quotes (id, project_id, status, base_cents, urgency_fee_cents,
	complexity_fee_cents, discount_cents, user_cents, doer_cents,
	supervisor_cents, platform_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING %s;`, quoteColumns)

	quote, err := scanQuote(tx.QueryRowContext(ctx, q,
		uuid.New().String(), projectID, domain.QuotePending,
		b.BaseCents, b.UrgencyFeeCents, b.ComplexityCents, b.DiscountCents,
		b.UserCents, b.DoerCents, b.SupervisorCents, b.PlatformCents))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit issue quote: %w", err)
	}
	return quote, nil
}

func (r *QuoteRepository) Get(ctx context.Context, quoteID string) (*domain.ProjectQuote, error) {
	q := fmt.Sprintf(`SELECT %s FROM project_quotes WHERE id = $1;`, quoteColumns)
	return scanQuote(r.db.QueryRowContext(ctx, q, quoteID))
}

// GetActive returns the project's pending quote, if any.
func (r *QuoteRepository) GetActive(ctx context.Context, projectID string) (*domain.ProjectQuote, error) {
	q := fmt.Sprintf(`
SELECT %s FROM project_quotes
WHERE project_id = $1 AND status = $2
ORDER BY created_at DESC
LIMIT 1;`, quoteColumns)
	return scanQuote(r.db.QueryRowContext(ctx, q, projectID, domain.QuotePending))
}

// Resolve moves a pending quote to accepted/rejected/expired. The
// conditional update guarantees only one resolution wins.
func (r *QuoteRepository) Resolve(ctx context.Context, quoteID string, to domain.QuoteStatus) (*domain.ProjectQuote, error) {
	q := fmt.Sprintf(`
UPDATE project_quotes SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING %s;`, quoteColumns)

	quote, err := scanQuote(r.db.QueryRowContext(ctx, q, quoteID, to, domain.QuotePending))
	if err != nil {
		if errors.Is(err, domain.ErrQuoteNotFound) {
			return nil, domain.ErrQuoteNotPending
		}
		return nil, err
	}
	return quote, nil
}

func scanQuote(row interface{ Scan(dest ...any) error }) (*domain.ProjectQuote, error) {
	var q domain.ProjectQuote
	err := row.Scan(&q.ID, &q.ProjectID, &q.Status,
		&q.BaseCents, &q.UrgencyFeeCents, &q.ComplexityCents, &q.DiscountCents,
		&q.UserCents, &q.DoerCents, &q.SupervisorCents, &q.PlatformCents,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrQuoteNotFound
		}
		return nil, fmt.Errorf("scan quote: %w", err)
	}
	return &q, nil
}
