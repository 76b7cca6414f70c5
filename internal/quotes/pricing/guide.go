package pricing

import "github.com/doerdesk/doerdesk-backend/internal/quotes/domain"

// Rule prices one (service type, subject) pair. PerUnitCents is applied
// per quantity unit; FlatCents-only rules ignore quantity.
type Rule struct {
	PerUnitCents int64
	FlatCents    int64
}

// Guide is the pricing lookup table. Kept in code: rates change rarely
// and ship with a release.
type Guide struct {
	rules map[string]Rule
}

func key(serviceType, subject string) string { return serviceType + "/" + subject }

// Default returns the standard pricing guide.
func Default() *Guide {
	return &Guide{rules: map[string]Rule{
		key("writing", "general"):          {PerUnitCents: 400},
		key("writing", "literature"):       {PerUnitCents: 450},
		key("writing", "business"):         {PerUnitCents: 500},
		key("assignment", "mathematics"):   {PerUnitCents: 500},
		key("assignment", "statistics"):    {PerUnitCents: 550},
		key("assignment", "physics"):       {PerUnitCents: 550},
		key("assignment", "chemistry"):     {PerUnitCents: 525},
		key("assignment", "economics"):     {PerUnitCents: 475},
		key("programming", "general"):      {PerUnitCents: 800},
		key("programming", "data"):         {PerUnitCents: 900},
		key("presentation", "general"):     {PerUnitCents: 300},
		key("proofreading", "general"):     {PerUnitCents: 150},
		key("data_analysis", "general"):    {FlatCents: 6000},
		key("data_analysis", "spss"):       {FlatCents: 7500},
		key("plagiarism_check", "general"): {FlatCents: 1500},
	}}
}

// NewGuide builds a guide from explicit rules, for tests and overrides.
func NewGuide(rules map[string]Rule) *Guide {
	return &Guide{rules: rules}
}

// Base returns the base amount for a request, before multipliers.
func (g *Guide) Base(serviceType, subject string, quantity int) (int64, error) {
	rule, ok := g.rules[key(serviceType, subject)]
	if !ok {
		// subject-specific rule missing: fall back to the service default
		rule, ok = g.rules[key(serviceType, "general")]
		if !ok {
			return 0, domain.ErrNoPricingRule
		}
	}
	if rule.FlatCents > 0 {
		return rule.FlatCents, nil
	}
	return rule.PerUnitCents * int64(quantity), nil
}
