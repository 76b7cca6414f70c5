package domain

import ledger "github.com/doerdesk/doerdesk-backend/internal/ledger/domain"

// Status is the closed set of project lifecycle states. Projects only
// ever move along whitelisted edges, via the state machine.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusSubmitted         Status = "submitted"
	StatusAnalyzing         Status = "analyzing"
	StatusQuoted            Status = "quoted"
	StatusPaymentPending    Status = "payment_pending"
	StatusPaid              Status = "paid"
	StatusAssigning         Status = "assigning"
	StatusAssigned          Status = "assigned"
	StatusInProgress        Status = "in_progress"
	StatusSubmittedForQC    Status = "submitted_for_qc"
	StatusQCInProgress      Status = "qc_in_progress"
	StatusQCApproved        Status = "qc_approved"
	StatusQCRejected        Status = "qc_rejected"
	StatusDelivered         Status = "delivered"
	StatusRevisionRequested Status = "revision_requested"
	StatusInRevision        Status = "in_revision"
	StatusCompleted         Status = "completed"
	StatusAutoApproved      Status = "auto_approved"
	StatusCancelled         Status = "cancelled"
	StatusRefunded          Status = "refunded"
)

// AllStatuses lists every valid status, in rough lifecycle order.
var AllStatuses = []Status{
	StatusDraft, StatusSubmitted, StatusAnalyzing, StatusQuoted,
	StatusPaymentPending, StatusPaid, StatusAssigning, StatusAssigned,
	StatusInProgress, StatusSubmittedForQC, StatusQCInProgress,
	StatusQCApproved, StatusQCRejected, StatusDelivered,
	StatusRevisionRequested, StatusInRevision, StatusCompleted,
	StatusAutoApproved, StatusCancelled, StatusRefunded,
}

// transitions is the whitelist of legal (from -> to) edges.
//
// Cancellation before payment is always available; after payment money
// has moved, so the only way out is refunded (backed by a completed
// refund transaction). Direct cancelled after paid is not an edge.
var transitions = map[Status][]Status{
	StatusDraft:             {StatusSubmitted, StatusCancelled},
	StatusSubmitted:         {StatusAnalyzing, StatusCancelled},
	StatusAnalyzing:         {StatusQuoted, StatusCancelled},
	StatusQuoted:            {StatusPaymentPending, StatusCancelled},
	StatusPaymentPending:    {StatusPaid, StatusCancelled},
	StatusPaid:              {StatusAssigning, StatusRefunded},
	StatusAssigning:         {StatusAssigned, StatusRefunded},
	StatusAssigned:          {StatusInProgress, StatusRefunded},
	StatusInProgress:        {StatusSubmittedForQC, StatusRefunded},
	StatusSubmittedForQC:    {StatusQCInProgress, StatusRefunded},
	StatusQCInProgress:      {StatusQCApproved, StatusQCRejected, StatusRefunded},
	StatusQCApproved:        {StatusDelivered},
	StatusQCRejected:        {StatusInRevision, StatusRefunded},
	StatusDelivered:         {StatusCompleted, StatusRevisionRequested, StatusAutoApproved, StatusRefunded},
	StatusRevisionRequested: {StatusInRevision, StatusRefunded},
	StatusInRevision:        {StatusSubmittedForQC, StatusDelivered, StatusRefunded},
	StatusAutoApproved:      {StatusCompleted},
	// completed, cancelled, refunded are terminal
}

// requiredSideEffects maps a target status to the completed ledger
// transaction types that must already exist for the project before the
// transition may commit. This is what keeps the status machine and the
// ledger from drifting apart.
var requiredSideEffects = map[Status][]ledger.TransactionType{
	StatusPaid:      {ledger.TxProjectPayment},
	StatusCompleted: {ledger.TxProjectEarning, ledger.TxCommission},
	StatusRefunded:  {ledger.TxRefund},
}

func (s Status) IsValid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

// CanTransition reports whether from -> to is a whitelisted edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequiredSideEffects returns the ledger transaction types that must be
// completed before a project may enter the target status.
func RequiredSideEffects(to Status) []ledger.TransactionType {
	return requiredSideEffects[to]
}
