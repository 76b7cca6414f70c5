package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/doerdesk/doerdesk-backend/internal/ledger/domain"
)

// WalletRepository persists wallets and their append-only transaction
// log. Every balance mutation locks the wallet row (SELECT ... FOR
// UPDATE) and writes the wallet update plus the log row in a single
// database transaction, so per-wallet application is serialized and a
// partial write is never observable.
type WalletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

const walletColumns = `id, owner_id, balance_cents, locked_cents,
	total_credited_cents, total_debited_cents, total_withdrawn_cents,
	created_at, updated_at`

const txColumns = `id, wallet_id, type, status, amount_cents,
	balance_before_cents, balance_after_cents, reference_type,
	reference_id, note, created_at`

// Apply posts one transaction against a wallet. Internal types commit
// as completed and move the balance; gateway-sourced types are inserted
// pending and leave the balance untouched until CompletePending.
func (r *WalletRepository) Apply(ctx context.Context, walletID string, typ domain.TransactionType, amountCents int64, refType, refID, note string) (*domain.WalletTransaction, error) {
	return r.apply(ctx, walletID, typ, amountCents, refType, refID, note, false)
}

// ApplyOnce posts like Apply but refuses a second completed transaction
// of the same type against the same reference. The existence check runs
// inside the same database transaction as the insert, after the wallet
// row lock, so concurrent posts for one reference serialize and the
// loser gets ErrDuplicateReference.
func (r *WalletRepository) ApplyOnce(ctx context.Context, walletID string, typ domain.TransactionType, amountCents int64, refType, refID, note string) (*domain.WalletTransaction, error) {
	return r.apply(ctx, walletID, typ, amountCents, refType, refID, note, true)
}

func (r *WalletRepository) apply(ctx context.Context, walletID string, typ domain.TransactionType, amountCents int64, refType, refID, note string, once bool) (*domain.WalletTransaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin apply: %w", err)
	}
	defer tx.Rollback()

	w, err := lockWallet(ctx, tx, walletID)
	if err != nil {
		return nil, err
	}

	if once {
		const q = `
SELECT EXISTS (
	SELECT 1 FROM wallet_transactions
	WHERE reference_type = $1 AND reference_id = $2 AND type = $3 AND status = $4
);`
		var exists bool
		if err := tx.QueryRowContext(ctx, q, refType, refID, typ, domain.TxCompleted).Scan(&exists); err != nil {
			return nil, fmt.Errorf("reference lookup: %w", err)
		}
		if exists {
			return nil, domain.ErrDuplicateReference
		}
	}

	status := domain.TxPending
	if typ.IsInternal() {
		status = domain.TxCompleted
	}

	entry := &domain.WalletTransaction{
		ID:            uuid.New().String(),
		WalletID:      walletID,
		Type:          typ,
		Status:        status,
		AmountCents:   amountCents,
		BalanceBefore: w.BalanceCents,
		BalanceAfter:  w.BalanceCents,
		ReferenceType: refType,
		ReferenceID:   refID,
		Note:          note,
	}

	if status == domain.TxCompleted {
		after, err := settle(w, typ, amountCents)
		if err != nil {
			return nil, err
		}
		entry.BalanceAfter = after

		if err := updateWallet(ctx, tx, w); err != nil {
			return nil, err
		}
	}

	if err := insertTransaction(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit apply: %w", err)
	}
	return entry, nil
}

// CompletePending moves a pending transaction to completed, applying
// its balance effect with fresh before/after snapshots.
func (r *WalletRepository) CompletePending(ctx context.Context, txID string) (*domain.WalletTransaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin complete: %w", err)
	}
	defer tx.Rollback()

	entry, err := lockTransaction(ctx, tx, txID)
	if err != nil {
		return nil, err
	}
	if entry.Status != domain.TxPending {
		return nil, domain.ErrNotPending
	}

	w, err := lockWallet(ctx, tx, entry.WalletID)
	if err != nil {
		return nil, err
	}

	entry.BalanceBefore = w.BalanceCents
	after, err := settle(w, entry.Type, entry.AmountCents)
	if err != nil {
		return nil, err
	}
	entry.BalanceAfter = after
	entry.Status = domain.TxCompleted

	const q = `
UPDATE wallet_transactions
SET status = $2, balance_before_cents = $3, balance_after_cents = $4
WHERE id = $1;
`
	if _, err := tx.ExecContext(ctx, q, entry.ID, entry.Status, entry.BalanceBefore, entry.BalanceAfter); err != nil {
		return nil, fmt.Errorf("complete transaction: %w", err)
	}

	if err := updateWallet(ctx, tx, w); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit complete: %w", err)
	}
	return entry, nil
}

// FailPending marks a pending transaction failed with no balance effect.
func (r *WalletRepository) FailPending(ctx context.Context, txID string) error {
	const q = `
UPDATE wallet_transactions
SET status = $2
WHERE id = $1 AND status = $3;
`
	res, err := r.db.ExecContext(ctx, q, txID, domain.TxFailed, domain.TxPending)
	if err != nil {
		return fmt.Errorf("fail transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotPending
	}
	return nil
}

// Reverse posts a compensating reversal row of equal magnitude and
// opposite direction, and flags the original as reversed. The original
// row's amounts and snapshots are never edited.
func (r *WalletRepository) Reverse(ctx context.Context, txID, note string) (*domain.WalletTransaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reverse: %w", err)
	}
	defer tx.Rollback()

	orig, err := lockTransaction(ctx, tx, txID)
	if err != nil {
		return nil, err
	}
	// A reversal row has no direction of its own; un-reversing is done
	// by posting the original movement again, not by reversing twice.
	if orig.Type == domain.TxReversal {
		return nil, domain.ErrInvalidType
	}
	if orig.Status == domain.TxReversed {
		return nil, domain.ErrAlreadyReversed
	}
	if orig.Status != domain.TxCompleted {
		return nil, domain.ErrNotPending
	}

	w, err := lockWallet(ctx, tx, orig.WalletID)
	if err != nil {
		return nil, err
	}

	entry := &domain.WalletTransaction{
		ID:            uuid.New().String(),
		WalletID:      orig.WalletID,
		Type:          domain.TxReversal,
		Status:        domain.TxCompleted,
		AmountCents:   orig.AmountCents,
		BalanceBefore: w.BalanceCents,
		ReferenceType: orig.ReferenceType,
		ReferenceID:   orig.ReferenceID,
		Note:          note,
	}

	// A reversal moves the balance the opposite way of the original.
	if orig.Type.IsDebit() {
		w.BalanceCents += orig.AmountCents
		w.TotalCredited += orig.AmountCents
	} else {
		if w.BalanceCents-orig.AmountCents < w.LockedCents {
			return nil, domain.ErrInsufficientFunds
		}
		w.BalanceCents -= orig.AmountCents
		w.TotalDebited += orig.AmountCents
	}
	entry.BalanceAfter = w.BalanceCents

	const q = `
UPDATE wallet_transactions
SET status = $2
WHERE id = $1;
`
	if _, err := tx.ExecContext(ctx, q, orig.ID, domain.TxReversed); err != nil {
		return nil, fmt.Errorf("flag reversed: %w", err)
	}

	if err := insertTransaction(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := updateWallet(ctx, tx, w); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reverse: %w", err)
	}
	return entry, nil
}

// Lock earmarks funds for a pending payout request.
func (r *WalletRepository) Lock(ctx context.Context, walletID string, amountCents int64) error {
	return r.adjustLock(ctx, walletID, amountCents)
}

// Release frees a previous earmark after the payout completes or is
// cancelled.
func (r *WalletRepository) Release(ctx context.Context, walletID string, amountCents int64) error {
	return r.adjustLock(ctx, walletID, -amountCents)
}

func (r *WalletRepository) adjustLock(ctx context.Context, walletID string, deltaCents int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lock: %w", err)
	}
	defer tx.Rollback()

	w, err := lockWallet(ctx, tx, walletID)
	if err != nil {
		return err
	}

	next := w.LockedCents + deltaCents
	if next < 0 || next > w.BalanceCents {
		return domain.ErrInvalidLock
	}
	w.LockedCents = next

	if err := updateWallet(ctx, tx, w); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit lock: %w", err)
	}
	return nil
}

func (r *WalletRepository) GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error) {
	q := fmt.Sprintf(`SELECT %s FROM wallets WHERE id = $1;`, walletColumns)
	return scanWallet(r.db.QueryRowContext(ctx, q, walletID))
}

func (r *WalletRepository) GetWalletByOwner(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	q := fmt.Sprintf(`SELECT %s FROM wallets WHERE owner_id = $1;`, walletColumns)
	return scanWallet(r.db.QueryRowContext(ctx, q, ownerID))
}

func (r *WalletRepository) GetTransaction(ctx context.Context, txID string) (*domain.WalletTransaction, error) {
	q := fmt.Sprintf(`SELECT %s FROM wallet_transactions WHERE id = $1;`, txColumns)
	return scanTransaction(r.db.QueryRowContext(ctx, q, txID))
}

// Statement lists the most recent transactions for a wallet.
func (r *WalletRepository) Statement(ctx context.Context, walletID string, limit int) ([]domain.WalletTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`
SELECT %s FROM wallet_transactions
WHERE wallet_id = $1
ORDER BY created_at DESC
LIMIT $2;`, txColumns)

	rows, err := r.db.QueryContext(ctx, q, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("statement: %w", err)
	}
	defer rows.Close()

	out := make([]domain.WalletTransaction, 0, limit)
	for rows.Next() {
		var t domain.WalletTransaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Type, &t.Status, &t.AmountCents,
			&t.BalanceBefore, &t.BalanceAfter, &t.ReferenceType, &t.ReferenceID,
			&t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// HasCompletedForReference reports whether a completed transaction of
// the given type exists against the reference. The state machine uses
// this to verify mandatory money movement before committing a status.
func (r *WalletRepository) HasCompletedForReference(ctx context.Context, refType, refID string, typ domain.TransactionType) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1 FROM wallet_transactions
	WHERE reference_type = $1 AND reference_id = $2 AND type = $3 AND status = $4
);`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, refType, refID, typ, domain.TxCompleted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("side effect lookup: %w", err)
	}
	return exists, nil
}

// settle applies a completed transaction's balance effect to the
// in-memory wallet and returns the new balance. Debits may not touch
// earmarked funds, so the floor is locked_cents, not zero.
func settle(w *domain.Wallet, typ domain.TransactionType, amountCents int64) (int64, error) {
	switch {
	case typ.IsDebit():
		if w.BalanceCents-amountCents < w.LockedCents {
			return 0, domain.ErrInsufficientFunds
		}
		w.BalanceCents -= amountCents
		w.TotalDebited += amountCents
		if typ == domain.TxWithdrawal {
			w.TotalWithdrawn += amountCents
		}
	case typ.IsCredit():
		w.BalanceCents += amountCents
		w.TotalCredited += amountCents
	default:
		return 0, domain.ErrInvalidType
	}
	return w.BalanceCents, nil
}

func lockWallet(ctx context.Context, tx *sql.Tx, walletID string) (*domain.Wallet, error) {
	q := fmt.Sprintf(`SELECT %s FROM wallets WHERE id = $1 FOR UPDATE;`, walletColumns)
	return scanWallet(tx.QueryRowContext(ctx, q, walletID))
}

func lockTransaction(ctx context.Context, tx *sql.Tx, txID string) (*domain.WalletTransaction, error) {
	q := fmt.Sprintf(`SELECT %s FROM wallet_transactions WHERE id = $1 FOR UPDATE;`, txColumns)
	return scanTransaction(tx.QueryRowContext(ctx, q, txID))
}

func updateWallet(ctx context.Context, tx *sql.Tx, w *domain.Wallet) error {
	const q = `
UPDATE wallets
SET balance_cents = $2, locked_cents = $3, total_credited_cents = $4,
    total_debited_cents = $5, total_withdrawn_cents = $6, updated_at = now()
WHERE id = $1;
`
	if _, err := tx.ExecContext(ctx, q, w.ID, w.BalanceCents, w.LockedCents,
		w.TotalCredited, w.TotalDebited, w.TotalWithdrawn); err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	return nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t *domain.WalletTransaction) error {
	const q = `
INSERT INTO wallet_transactions (id, wallet_id, type, status, amount_cents,
	balance_before_cents, balance_after_cents, reference_type, reference_id, note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at;
`
	err := tx.QueryRowContext(ctx, q, t.ID, t.WalletID, t.Type, t.Status,
		t.AmountCents, t.BalanceBefore, t.BalanceAfter,
		t.ReferenceType, t.ReferenceID, t.Note).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(&w.ID, &w.OwnerID, &w.BalanceCents, &w.LockedCents,
		&w.TotalCredited, &w.TotalDebited, &w.TotalWithdrawn,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return &w, nil
}

func scanTransaction(row rowScanner) (*domain.WalletTransaction, error) {
	var t domain.WalletTransaction
	err := row.Scan(&t.ID, &t.WalletID, &t.Type, &t.Status, &t.AmountCents,
		&t.BalanceBefore, &t.BalanceAfter, &t.ReferenceType, &t.ReferenceID,
		&t.Note, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return &t, nil
}
