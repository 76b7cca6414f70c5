package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/doerdesk/doerdesk-backend/internal/events"
	"github.com/doerdesk/doerdesk-backend/internal/ledger/domain"
	"github.com/doerdesk/doerdesk-backend/internal/metrics"
)

// WalletStore is the persistence contract the ledger service runs on.
type WalletStore interface {
	Apply(ctx context.Context, walletID string, typ domain.TransactionType, amountCents int64, refType, refID, note string) (*domain.WalletTransaction, error)
	ApplyOnce(ctx context.Context, walletID string, typ domain.TransactionType, amountCents int64, refType, refID, note string) (*domain.WalletTransaction, error)
	CompletePending(ctx context.Context, txID string) (*domain.WalletTransaction, error)
	FailPending(ctx context.Context, txID string) error
	Reverse(ctx context.Context, txID, note string) (*domain.WalletTransaction, error)
	Lock(ctx context.Context, walletID string, amountCents int64) error
	Release(ctx context.Context, walletID string, amountCents int64) error
	GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error)
	GetWalletByOwner(ctx context.Context, ownerID string) (*domain.Wallet, error)
	GetTransaction(ctx context.Context, txID string) (*domain.WalletTransaction, error)
	Statement(ctx context.Context, walletID string, limit int) ([]domain.WalletTransaction, error)
	HasCompletedForReference(ctx context.Context, refType, refID string, typ domain.TransactionType) (bool, error)
}

// EventSink receives ledger_posted events after a commit.
type EventSink interface {
	LedgerPosted(ctx context.Context, e events.LedgerPosted)
}

// LedgerService is the only mutator of wallet balances.
type LedgerService struct {
	store WalletStore
	sink  EventSink
	log   *zap.Logger
}

func NewLedgerService(store WalletStore, sink EventSink, log *zap.Logger) *LedgerService {
	return &LedgerService{store: store, sink: sink, log: log}
}

// Apply validates and posts one transaction against a wallet.
func (s *LedgerService) Apply(ctx context.Context, walletID string, typ domain.TransactionType, amountCents int64, refType, refID, note string) (*domain.WalletTransaction, error) {
	return s.post(ctx, walletID, typ, amountCents, refType, refID, note, s.store.Apply)
}

// ApplyOnce posts a transaction unless a completed one of the same type
// already exists against the reference, in which case it returns
// ErrDuplicateReference. The check and the insert commit atomically.
func (s *LedgerService) ApplyOnce(ctx context.Context, walletID string, typ domain.TransactionType, amountCents int64, refType, refID, note string) (*domain.WalletTransaction, error) {
	return s.post(ctx, walletID, typ, amountCents, refType, refID, note, s.store.ApplyOnce)
}

type postFunc func(ctx context.Context, walletID string, typ domain.TransactionType, amountCents int64, refType, refID, note string) (*domain.WalletTransaction, error)

func (s *LedgerService) post(ctx context.Context, walletID string, typ domain.TransactionType, amountCents int64, refType, refID, note string, write postFunc) (*domain.WalletTransaction, error) {
	if amountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !typ.IsValid() || typ == domain.TxReversal {
		return nil, domain.ErrInvalidType
	}

	entry, err := write(ctx, walletID, typ, amountCents, refType, refID, note)
	if err != nil {
		return nil, err
	}

	metrics.LedgerTransactionsTotal.WithLabelValues(string(typ)).Inc()
	s.log.Info("ledger transaction posted",
		zap.String("wallet_id", walletID),
		zap.String("type", string(typ)),
		zap.String("status", string(entry.Status)),
		zap.Int64("amount_cents", amountCents),
		zap.String("reference", refType+":"+refID),
	)
	s.emit(ctx, entry)
	return entry, nil
}

// CompletePending settles a gateway-sourced transaction.
func (s *LedgerService) CompletePending(ctx context.Context, txID string) (*domain.WalletTransaction, error) {
	entry, err := s.store.CompletePending(ctx, txID)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, entry)
	return entry, nil
}

// FailPending voids a gateway-sourced transaction without balance effect.
func (s *LedgerService) FailPending(ctx context.Context, txID string) error {
	return s.store.FailPending(ctx, txID)
}

// Reverse posts the compensating transaction for a completed row.
func (s *LedgerService) Reverse(ctx context.Context, txID, note string) (*domain.WalletTransaction, error) {
	entry, err := s.store.Reverse(ctx, txID, note)
	if err != nil {
		return nil, err
	}
	metrics.LedgerTransactionsTotal.WithLabelValues(string(domain.TxReversal)).Inc()
	s.emit(ctx, entry)
	return entry, nil
}

// Lock earmarks funds for a pending payout request.
func (s *LedgerService) Lock(ctx context.Context, walletID string, amountCents int64) error {
	if amountCents <= 0 {
		return domain.ErrInvalidAmount
	}
	return s.store.Lock(ctx, walletID, amountCents)
}

// Release frees an earmark once the payout completes or is cancelled.
func (s *LedgerService) Release(ctx context.Context, walletID string, amountCents int64) error {
	if amountCents <= 0 {
		return domain.ErrInvalidAmount
	}
	return s.store.Release(ctx, walletID, amountCents)
}

func (s *LedgerService) Balance(ctx context.Context, walletID string) (*domain.Wallet, error) {
	return s.store.GetWallet(ctx, walletID)
}

func (s *LedgerService) BalanceByOwner(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	return s.store.GetWalletByOwner(ctx, ownerID)
}

func (s *LedgerService) Statement(ctx context.Context, walletID string, limit int) ([]domain.WalletTransaction, error) {
	return s.store.Statement(ctx, walletID, limit)
}

// HasCompletedForProject reports whether a completed transaction of the
// given type exists for a project. The state machine's side-effect
// checks go through here.
func (s *LedgerService) HasCompletedForProject(ctx context.Context, projectID string, typ domain.TransactionType) (bool, error) {
	return s.store.HasCompletedForReference(ctx, domain.RefProject, projectID, typ)
}

func (s *LedgerService) emit(ctx context.Context, entry *domain.WalletTransaction) {
	if s.sink == nil {
		return
	}
	s.sink.LedgerPosted(ctx, events.LedgerPosted{
		WalletID:      entry.WalletID,
		TransactionID: entry.ID,
		Type:          string(entry.Type),
		Status:        string(entry.Status),
		AmountCents:   entry.AmountCents,
		ReferenceType: entry.ReferenceType,
		ReferenceID:   entry.ReferenceID,
		OccurredAt:    time.Now().UTC(),
	})
}
