package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doerdesk/doerdesk-backend/internal/quotes/domain"
	"github.com/doerdesk/doerdesk-backend/internal/quotes/pricing"
)

func testCalculator() *Calculator {
	return NewCalculator(pricing.Default(), Split{SupervisorPct: 0.15, PlatformPct: 0.10})
}

func TestCalculatorCalculate(t *testing.T) {
	calc := testCalculator()

	t.Run("no multipliers", func(t *testing.T) {
		b, err := calc.Calculate(domain.Request{
			ServiceType:  "writing",
			Subject:      "general",
			Quantity:     10,
			UrgencyHours: 120,
			Complexity:   domain.ComplexityBasic,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4000), b.BaseCents)
		assert.Equal(t, int64(0), b.UrgencyFeeCents)
		assert.Equal(t, int64(0), b.ComplexityCents)
		assert.Equal(t, int64(4000), b.UserCents)
	})

	t.Run("urgency and complexity stack multiplicatively", func(t *testing.T) {
		// base 2000, x1.5 urgency, then x1.2 complexity on the result
		b, err := calc.Calculate(domain.Request{
			ServiceType:  "writing",
			Subject:      "general",
			Quantity:     5,
			UrgencyHours: 24,
			Complexity:   domain.ComplexityMedium,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2000), b.BaseCents)
		assert.Equal(t, int64(1000), b.UrgencyFeeCents)
		assert.Equal(t, int64(600), b.ComplexityCents)
		assert.Equal(t, int64(3600), b.UserCents)
		assert.Equal(t, int64(540), b.SupervisorCents)
		assert.Equal(t, int64(360), b.PlatformCents)
		assert.Equal(t, int64(2700), b.DoerCents)
	})

	t.Run("urgency buckets", func(t *testing.T) {
		cases := []struct {
			hours int
			fee   int64
		}{
			{12, 1000}, {24, 1000}, {25, 600}, {48, 600}, {49, 300}, {72, 300}, {73, 0},
		}
		for _, tc := range cases {
			b, err := calc.Calculate(domain.Request{
				ServiceType: "writing", Subject: "general", Quantity: 5,
				UrgencyHours: tc.hours,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.fee, b.UrgencyFeeCents, "hours=%d", tc.hours)
		}
	})

	t.Run("discount clamps at zero", func(t *testing.T) {
		b, err := calc.Calculate(domain.Request{
			ServiceType: "proofreading", Subject: "general", Quantity: 2,
			UrgencyHours: 100, DiscountCents: 10000,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(0), b.UserCents)
		assert.Equal(t, int64(300), b.DiscountCents) // only the applied part
		assert.Equal(t, int64(0), b.DoerCents)
		assert.Equal(t, int64(0), b.SupervisorCents)
		assert.Equal(t, int64(0), b.PlatformCents)
	})

	t.Run("flat rate ignores quantity", func(t *testing.T) {
		b1, err := calc.Calculate(domain.Request{ServiceType: "data_analysis", Subject: "general", Quantity: 1, UrgencyHours: 200})
		require.NoError(t, err)
		b2, err := calc.Calculate(domain.Request{ServiceType: "data_analysis", Subject: "general", Quantity: 9, UrgencyHours: 200})
		require.NoError(t, err)
		assert.Equal(t, b1.BaseCents, b2.BaseCents)
		assert.Equal(t, int64(6000), b1.BaseCents)
	})

	t.Run("unknown subject falls back to service default", func(t *testing.T) {
		b, err := calc.Calculate(domain.Request{ServiceType: "writing", Subject: "archaeology", Quantity: 3, UrgencyHours: 100})
		require.NoError(t, err)
		assert.Equal(t, int64(1200), b.BaseCents)
	})

	t.Run("unknown service", func(t *testing.T) {
		_, err := calc.Calculate(domain.Request{ServiceType: "tarot", Subject: "general", Quantity: 1, UrgencyHours: 100})
		assert.ErrorIs(t, err, domain.ErrNoPricingRule)
	})

	t.Run("input validation", func(t *testing.T) {
		_, err := calc.Calculate(domain.Request{ServiceType: "writing", Subject: "general", Quantity: 0, UrgencyHours: 24})
		assert.ErrorIs(t, err, domain.ErrInvalidInputRange)

		_, err = calc.Calculate(domain.Request{ServiceType: "writing", Subject: "general", Quantity: 1, UrgencyHours: -1})
		assert.ErrorIs(t, err, domain.ErrInvalidInputRange)

		_, err = calc.Calculate(domain.Request{ServiceType: "writing", Subject: "general", Quantity: 1, UrgencyHours: 24, DiscountCents: -5})
		assert.ErrorIs(t, err, domain.ErrInvalidInputRange)

		_, err = calc.Calculate(domain.Request{ServiceType: "writing", Subject: "general", Quantity: 1, UrgencyHours: 24, Complexity: "extreme"})
		assert.ErrorIs(t, err, domain.ErrInvalidInputRange)
	})
}

// The split parts must always sum exactly to the user amount, whatever
// rounding does to the individual shares.
func TestCalculatorSplitSumsExactly(t *testing.T) {
	calc := testCalculator()

	for qty := 1; qty <= 40; qty++ {
		for _, hours := range []int{6, 30, 60, 96} {
			for _, cx := range []domain.Complexity{domain.ComplexityBasic, domain.ComplexityMedium, domain.ComplexityAdvanced} {
				b, err := calc.Calculate(domain.Request{
					ServiceType: "assignment", Subject: "statistics",
					Quantity: qty, UrgencyHours: hours, Complexity: cx,
				})
				require.NoError(t, err)
				assert.Equal(t, b.UserCents, b.DoerCents+b.SupervisorCents+b.PlatformCents,
					"qty=%d hours=%d cx=%s", qty, hours, cx)
				assert.GreaterOrEqual(t, b.DoerCents, int64(0))
			}
		}
	}
}

func TestCalculatorIsDeterministic(t *testing.T) {
	calc := testCalculator()
	req := domain.Request{ServiceType: "programming", Subject: "data", Quantity: 7, UrgencyHours: 36, Complexity: domain.ComplexityAdvanced}

	first, err := calc.Calculate(req)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := calc.Calculate(req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
