package domain

import "errors"

var (
	ErrInvalidAmount          = errors.New("transaction amount must be positive")
	ErrInvalidType            = errors.New("unknown transaction type")
	ErrInsufficientFunds      = errors.New("insufficient wallet balance")
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrTransactionNotFound    = errors.New("wallet transaction not found")
	ErrNotPending             = errors.New("transaction is not pending")
	ErrDuplicateReference     = errors.New("completed transaction already exists for reference")
	ErrAlreadyReversed        = errors.New("transaction already reversed")
	ErrInvalidLock            = errors.New("locked amount out of range")
	ErrConcurrentModification = errors.New("wallet modified concurrently")
)
