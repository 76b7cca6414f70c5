package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProjectNotFound        = errors.New("project not found")
	ErrInvalidEdge            = errors.New("transition not allowed")
	ErrSideEffectMissing      = errors.New("required ledger side effect missing")
	ErrConcurrentModification = errors.New("project modified concurrently")
	ErrAuditWriteFailed       = errors.New("status history write failed")
	ErrUnknownStatus          = errors.New("unknown project status")
)

// TransitionError is the structured rejection surfaced to callers so the
// UI can explain what went wrong. It unwraps to one of the sentinel
// errors above.
type TransitionError struct {
	ProjectID string
	From      Status
	To        Status
	Reason    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s on project %s: %v", e.From, e.To, e.ProjectID, e.Reason)
}

func (e *TransitionError) Unwrap() error { return e.Reason }
