package service

import (
	"math"

	"github.com/doerdesk/doerdesk-backend/internal/quotes/domain"
	"github.com/doerdesk/doerdesk-backend/internal/quotes/pricing"
)

// Split holds the commission percentages taken off the user amount.
type Split struct {
	SupervisorPct float64
	PlatformPct   float64
}

// Calculator derives a quote breakdown from the pricing guide. Calculate
// is pure: same inputs, same breakdown.
type Calculator struct {
	guide *pricing.Guide
	split Split
}

func NewCalculator(guide *pricing.Guide, split Split) *Calculator {
	return &Calculator{guide: guide, split: split}
}

// urgencyMultiplier picks the nearest deadline bucket.
func urgencyMultiplier(hours int) float64 {
	switch {
	case hours <= 24:
		return 1.5
	case hours <= 48:
		return 1.3
	case hours <= 72:
		return 1.15
	default:
		return 1.0
	}
}

func complexityMultiplier(c domain.Complexity) (float64, bool) {
	switch c {
	case domain.ComplexityBasic, "":
		return 1.0, true
	case domain.ComplexityMedium:
		return 1.2, true
	case domain.ComplexityAdvanced:
		return 1.5, true
	default:
		return 0, false
	}
}

// Calculate prices a request. Fees stack multiplicatively: the urgency
// fee is taken on the base, the complexity fee on base plus urgency.
// The discount is subtractive and the total never goes below zero.
//
// Split rounding: supervisor and platform shares round half-up at whole
// cents; the doer share is the residual, so the three parts always sum
// exactly to the user amount.
func (c *Calculator) Calculate(req domain.Request) (domain.Breakdown, error) {
	if req.Quantity <= 0 || req.UrgencyHours < 0 || req.DiscountCents < 0 {
		return domain.Breakdown{}, domain.ErrInvalidInputRange
	}
	cm, ok := complexityMultiplier(req.Complexity)
	if !ok {
		return domain.Breakdown{}, domain.ErrInvalidInputRange
	}

	base, err := c.guide.Base(req.ServiceType, req.Subject, req.Quantity)
	if err != nil {
		return domain.Breakdown{}, err
	}

	um := urgencyMultiplier(req.UrgencyHours)
	urgencyFee := roundHalfUp(float64(base) * (um - 1))
	complexityFee := roundHalfUp(float64(base+urgencyFee) * (cm - 1))

	user := base + urgencyFee + complexityFee - req.DiscountCents
	discount := req.DiscountCents
	if user < 0 {
		discount += user // clamp: only the part actually applied
		user = 0
	}

	supervisor := roundHalfUp(float64(user) * c.split.SupervisorPct)
	platform := roundHalfUp(float64(user) * c.split.PlatformPct)
	doer := user - supervisor - platform

	return domain.Breakdown{
		BaseCents:       base,
		UrgencyFeeCents: urgencyFee,
		ComplexityCents: complexityFee,
		DiscountCents:   discount,
		UserCents:       user,
		DoerCents:       doer,
		SupervisorCents: supervisor,
		PlatformCents:   platform,
	}, nil
}

func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}
