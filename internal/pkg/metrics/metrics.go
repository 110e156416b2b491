package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CodeRedemptions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lion_code_redemptions_total",
		Help: "Code redemption attempts by code type and outcome.",
	}, []string{"type", "outcome"})

	CommissionTriggers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lion_commission_triggers_total",
		Help: "process_team_commission invocations by outcome.",
	}, []string{"outcome"})

	RankPromotions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lion_rank_promotions_total",
		Help: "Rank recomputations by outcome (updated, unchanged, error).",
	}, []string{"outcome"})

	CommissionRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lion_commission_refreshes_total",
		Help: "Live commission summary refreshes by outcome.",
	}, []string{"outcome"})
)

// Outcome labels shared by the counters above.
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
)

func init() {
	prometheus.MustRegister(CodeRedemptions, CommissionTriggers, RankPromotions, CommissionRefreshes)
}
