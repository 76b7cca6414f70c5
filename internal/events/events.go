package events

import "time"

// Channels for the one-way domain-event stream. Notification, chat and
// analytics collaborators subscribe; the engine never calls into them.
const (
	ChannelStatusChanged = "engine:events:status_changed"
	ChannelLedgerPosted  = "engine:events:ledger_posted"
)

type StatusChanged struct {
	ProjectID  string    `json:"project_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorType  string    `json:"actor_type"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type LedgerPosted struct {
	WalletID      string    `json:"wallet_id"`
	TransactionID string    `json:"transaction_id"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	AmountCents   int64     `json:"amount_cents"`
	ReferenceType string    `json:"reference_type,omitempty"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
