package domain

import "time"

type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
	QuoteExpired  QuoteStatus = "expired"
)

type Complexity string

const (
	ComplexityBasic    Complexity = "basic"
	ComplexityMedium   Complexity = "medium"
	ComplexityAdvanced Complexity = "advanced"
)

// Request is the input to the quote calculator.
type Request struct {
	ServiceType  string
	Subject      string
	Quantity     int
	UrgencyHours int
	Complexity   Complexity
	// DiscountCents is subtracted from the total, floor-clamped at 0.
	DiscountCents int64
}

// Breakdown is the priced result. The three split parts always sum
// exactly to UserCents: supervisor and platform are rounded half-up,
// the doer share is the residual.
type Breakdown struct {
	BaseCents       int64 `json:"base_cents"`
	UrgencyFeeCents int64 `json:"urgency_fee_cents"`
	ComplexityCents int64 `json:"complexity_fee_cents"`
	DiscountCents   int64 `json:"discount_cents"`

	UserCents       int64 `json:"user_amount_cents"`
	DoerCents       int64 `json:"doer_amount_cents"`
	SupervisorCents int64 `json:"supervisor_amount_cents"`
	PlatformCents   int64 `json:"platform_amount_cents"`
}

// ProjectQuote is the persisted quote offer. A project has at most one
// active (pending) quote; issuing a new one expires the previous.
type ProjectQuote struct {
	ID        string      `json:"id"`
	ProjectID string      `json:"project_id"`
	Status    QuoteStatus `json:"status"`
	Breakdown
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
