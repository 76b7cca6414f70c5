package domain

import "time"

// ActorType identifies who asked for a transition, for the audit trail.
type ActorType string

const (
	ActorClient     ActorType = "client"
	ActorSupervisor ActorType = "supervisor"
	ActorDoer       ActorType = "doer"
	ActorSystem     ActorType = "system"
)

// Project is the lifecycle aggregate. Status is only mutated through
// the state machine; monetary fields are finalized when a quote is
// accepted and must satisfy
// user_quote == doer_payout + supervisor_commission + platform_fee.
type Project struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	OwnerID      string  `json:"owner_id"`
	Status       Status  `json:"status"`
	SupervisorID *string `json:"supervisor_id,omitempty"`
	DoerID       *string `json:"doer_id,omitempty"`

	ServiceType string `json:"service_type"`
	Subject     string `json:"subject"`
	Title       string `json:"title"`

	UserQuoteCents            int64 `json:"user_quote_cents"`
	DoerPayoutCents           int64 `json:"doer_payout_cents"`
	SupervisorCommissionCents int64 `json:"supervisor_commission_cents"`
	PlatformFeeCents          int64 `json:"platform_fee_cents"`

	IsPaid        bool       `json:"is_paid"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	AutoApproveAt *time.Time `json:"auto_approve_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusHistoryEntry is one append-only audit row per status mutation,
// including system-triggered ones.
type StatusHistoryEntry struct {
	ID         string            `json:"id"`
	ProjectID  string            `json:"project_id"`
	FromStatus Status            `json:"from_status"`
	ToStatus   Status            `json:"to_status"`
	ActorType  ActorType         `json:"actor_type"`
	ActorID    string            `json:"actor_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Actor carries the authenticated identity a transition runs under.
type Actor struct {
	Type ActorType
	ID   string
}

var SystemActor = Actor{Type: ActorSystem}

// StatusStamp carries the timestamp/assignment fields written together
// with a status change. Nil fields are left untouched.
type StatusStamp struct {
	IsPaid        *bool
	PaidAt        *time.Time
	DeliveredAt   *time.Time
	CompletedAt   *time.Time
	AutoApproveAt *time.Time
	SupervisorID  *string
	DoerID        *string
}
