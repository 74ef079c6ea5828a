// Package metrics provides Prometheus metrics for the consensus engine:
// counters and gauges for votes, trust deltas, reviews, elections, and bans.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Trust ──────────────────────────────────────────────────────────────────

// TrustActionsApplied counts applied trust actions by kind.
var TrustActionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "purfacted",
	Name:      "trust_actions_applied_total",
	Help:      "Total trust actions applied, by action kind.",
}, []string{"kind"})

// TrustPointsDelta tracks the net trust points issued across all actors.
var TrustPointsDelta = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "purfacted",
	Name:      "trust_points_net_total",
	Help:      "Net trust points issued (credits minus penalties).",
})

// ─── Votes ──────────────────────────────────────────────────────────────────

// VotesCast counts recorded votes by entity kind.
var VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "purfacted",
	Name:      "votes_cast_total",
	Help:      "Total votes recorded, by entity kind.",
}, []string{"kind"})

// VotesRemoved counts removed votes by entity kind.
var VotesRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "purfacted",
	Name:      "votes_removed_total",
	Help:      "Total votes removed, by entity kind.",
}, []string{"kind"})

// StatusTransitions counts entity status transitions.
var StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "purfacted",
	Name:      "status_transitions_total",
	Help:      "Entity status transitions, by kind and new status.",
}, []string{"kind", "status"})

// ─── Reviews ────────────────────────────────────────────────────────────────

// ReviewsSubmitted counts quorum reviews by verdict.
var ReviewsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "purfacted",
	Name:      "reviews_submitted_total",
	Help:      "Verification reviews submitted, by verdict.",
}, []string{"verdict"})

// ─── Elections ──────────────────────────────────────────────────────────────

// ElectionsRun counts completed election passes.
var ElectionsRun = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "purfacted",
	Name:      "elections_run_total",
	Help:      "Total election passes completed.",
})

// ModeratorsPromoted counts moderator promotions.
var ModeratorsPromoted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "purfacted",
	Name:      "moderators_promoted_total",
	Help:      "Total moderator promotions.",
})

// ModeratorsDemoted counts moderator demotions.
var ModeratorsDemoted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "purfacted",
	Name:      "moderators_demoted_total",
	Help:      "Total moderator demotions.",
})

// ─── Escalation ─────────────────────────────────────────────────────────────

// BansEscalated counts ban escalations by resulting level.
var BansEscalated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "purfacted",
	Name:      "bans_escalated_total",
	Help:      "Ban escalations, by resulting level.",
}, []string{"level"})

// FlagsOpened counts auto-created account flags.
var FlagsOpened = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "purfacted",
	Name:      "flags_opened_total",
	Help:      "Account flags opened.",
})
