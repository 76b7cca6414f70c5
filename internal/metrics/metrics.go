package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_transitions_total",
		Help: "Successful project status transitions by target status.",
	}, []string{"to_status"})

	TransitionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_transition_errors_total",
		Help: "Rejected project status transitions by reason.",
	}, []string{"reason"})

	LedgerTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_ledger_transactions_total",
		Help: "Posted wallet transactions by type.",
	}, []string{"type"})

	AutoApprovalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_auto_approvals_total",
		Help: "Projects force-approved by the sweep.",
	})

	SweepClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_sweep_claims_total",
		Help: "Delivered projects claimed by the auto-approval sweep.",
	})
)
