package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsStartedTotal counts redeem jobs created, by policy.
	JobsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gibens_redeem_jobs_started_total",
			Help: "Total number of redeem jobs started",
		},
		[]string{"policy"},
	)

	// StepStatusTotal counts step status derivations by step type and
	// resulting state.
	StepStatusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gibens_step_status_total",
			Help: "Total number of step status derivations",
		},
		[]string{"step", "state"},
	)

	// UserOpsBuilt counts sponsored user operations assembled, by step type.
	UserOpsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gibens_userops_built_total",
			Help: "Total number of sponsored user operations built",
		},
		[]string{"step"},
	)

	// RelayerRequestsTotal counts sponsorship relayer round-trips by outcome.
	RelayerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gibens_relayer_requests_total",
			Help: "Total number of gas sponsorship requests to the relayer",
		},
		[]string{"outcome"},
	)

	// VouchersSigned counts redemption payload signatures produced. Each
	// signature is single-use, so this also bounds strandable vouchers.
	VouchersSigned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gibens_vouchers_signed_total",
			Help: "Total number of redemption vouchers signed",
		},
	)
)
