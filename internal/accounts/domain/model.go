package domain

import (
	"errors"
	"time"
)

type Role string

const (
	RoleClient     Role = "client"
	RoleSupervisor Role = "supervisor"
	RoleDoer       Role = "doer"
)

// Profile is a platform participant. Every profile owns exactly one
// wallet, created in the same transaction as the profile itself. The
// rolling stats columns are maintained by the stats aggregator.
type Profile struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`

	TotalProjectsCompleted int     `json:"total_projects_completed"`
	TotalEarningsCents     int64   `json:"total_earnings_cents"`
	OnTimeDeliveryRate     float64 `json:"on_time_delivery_rate"`
	SuccessRate            float64 `json:"success_rate"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidRole     = errors.New("invalid profile role")
)
