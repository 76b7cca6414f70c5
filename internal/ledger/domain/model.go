package domain

import "time"

// TransactionType classifies a wallet transaction. The class (debit or
// credit) decides the direction the balance moves.
type TransactionType string

const (
	TxCredit         TransactionType = "credit"
	TxDebit          TransactionType = "debit"
	TxTopUp          TransactionType = "top_up"
	TxWithdrawal     TransactionType = "withdrawal"
	TxProjectPayment TransactionType = "project_payment"
	TxProjectEarning TransactionType = "project_earning"
	TxCommission     TransactionType = "commission"
	TxRefund         TransactionType = "refund"
	TxPenalty        TransactionType = "penalty"
	TxBonus          TransactionType = "bonus"
	TxReversal       TransactionType = "reversal"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxReversed  TransactionStatus = "reversed"
)

var debitTypes = map[TransactionType]bool{
	TxDebit:          true,
	TxWithdrawal:     true,
	TxProjectPayment: true,
	TxPenalty:        true,
}

var creditTypes = map[TransactionType]bool{
	TxCredit:         true,
	TxRefund:         true,
	TxTopUp:          true,
	TxProjectEarning: true,
	TxCommission:     true,
	TxBonus:          true,
}

// Types generated by the engine itself are written already completed;
// gateway-sourced types start pending and move the balance on completion.
var internalTypes = map[TransactionType]bool{
	TxProjectPayment: true,
	TxProjectEarning: true,
	TxCommission:     true,
	TxRefund:         true,
	TxPenalty:        true,
	TxBonus:          true,
}

func (t TransactionType) IsDebit() bool    { return debitTypes[t] }
func (t TransactionType) IsCredit() bool   { return creditTypes[t] }
func (t TransactionType) IsInternal() bool { return internalTypes[t] }
func (t TransactionType) IsValid() bool {
	return debitTypes[t] || creditTypes[t] || t == TxReversal
}

// Wallet is the per-owner money aggregate. Balance is only ever mutated
// through the ledger store; all amounts are integer cents.
type Wallet struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	BalanceCents   int64     `json:"balance_cents"`
	LockedCents    int64     `json:"locked_cents"`
	TotalCredited  int64     `json:"total_credited_cents"`
	TotalDebited   int64     `json:"total_debited_cents"`
	TotalWithdrawn int64     `json:"total_withdrawn_cents"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WalletTransaction is one append-only ledger row. Completed rows are
// immutable; a reversal is a new compensating row, never an edit.
type WalletTransaction struct {
	ID            string            `json:"id"`
	WalletID      string            `json:"wallet_id"`
	Type          TransactionType   `json:"type"`
	Status        TransactionStatus `json:"status"`
	AmountCents   int64             `json:"amount_cents"`
	BalanceBefore int64             `json:"balance_before_cents"`
	BalanceAfter  int64             `json:"balance_after_cents"`
	// Reference ties the row to the entity that caused it
	// (project id, payout request id, gateway reference, ...).
	ReferenceType string    `json:"reference_type"`
	ReferenceID   string    `json:"reference_id"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	RefProject = "project"
	RefPayout  = "payout_request"
	RefGateway = "gateway"
	RefManual  = "manual"
)
