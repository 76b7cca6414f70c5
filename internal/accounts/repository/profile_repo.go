package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/doerdesk/doerdesk-backend/internal/accounts/domain"
)

// ProfileRepository persists participant profiles. Creation also writes
// the profile's zero-balance wallet: the two rows commit together so a
// profile without a wallet is never observable.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, role, display_name, email,
	total_projects_completed, total_earnings_cents,
	on_time_delivery_rate, success_rate, created_at, updated_at`

// Create inserts a profile and its wallet in one transaction.
func (r *ProfileRepository) Create(ctx context.Context, role domain.Role, displayName, email string) (*domain.Profile, error) {
	switch role {
	case domain.RoleClient, domain.RoleSupervisor, domain.RoleDoer:
	default:
		return nil, domain.ErrInvalidRole
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create profile: %w", err)
	}
	defer tx.Rollback()

	q := fmt.Sprintf(`
INSERT INTO profiles (id, role, display_name, email)
VALUES ($1, $2, $3, $4)
RETURNING %s;`, profileColumns)

	p, err := scanProfile(tx.QueryRowContext(ctx, q, uuid.New().String(), role, displayName, email))
	if err != nil {
		return nil, err
	}

	const walletQ = `
INSERT INTO wallets (id, owner_id, balance_cents, locked_cents,
	total_credited_cents, total_debited_cents, total_withdrawn_cents)
VALUES ($1, $2, 0, 0, 0, 0, 0);
`
	if _, err := tx.ExecContext(ctx, walletQ, uuid.New().String(), p.ID); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) Get(ctx context.Context, profileID string) (*domain.Profile, error) {
	q := fmt.Sprintf(`SELECT %s FROM profiles WHERE id = $1;`, profileColumns)
	return scanProfile(r.db.QueryRowContext(ctx, q, profileID))
}

func scanProfile(row interface{ Scan(dest ...any) error }) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.Role, &p.DisplayName, &p.Email,
		&p.TotalProjectsCompleted, &p.TotalEarningsCents,
		&p.OnTimeDeliveryRate, &p.SuccessRate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}
