// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the gamification ledger.
var (
	// Counters.
	AwardsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_awards_applied_total",
			Help: "Total number of committed point awards",
		},
		[]string{"action"},
	)

	PointsEarnedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_points_earned_total",
			Help: "Total points credited across all users",
		},
		[]string{"action"},
	)

	AwardsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_awards_rejected_total",
			Help: "Awards rejected by the guard (duplicate or capped)",
		},
		[]string{"action", "reason"},
	)

	SpendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_spends_total",
			Help: "Spend attempts by outcome",
		},
		[]string{"status"},
	)

	PointsSpentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_points_spent_total",
			Help: "Total points debited across all users",
		},
	)

	StreakUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streak_updates_total",
			Help: "Streak tracker updates by transition",
		},
		[]string{"transition"},
	)

	StreakMilestonesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streak_milestones_total",
			Help: "Streak milestone bonuses awarded",
		},
		[]string{"milestone"},
	)

	BadgesUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_unlocked_total",
			Help: "Total number of badges unlocked",
		},
		[]string{"badge_code"},
	)

	BadgeSweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_sweep_runs_total",
			Help: "Badge sweep job executions",
		},
		[]string{"status"},
	)

	LeaderboardRefreshRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_refresh_runs_total",
			Help: "Leaderboard rebuild executions",
		},
		[]string{"status"},
	)

	// Gauges.
	LeaderboardSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leaderboard_size",
			Help: "Number of entries in the last leaderboard rebuild",
		},
	)

	// Histograms.
	BadgeSweepDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "badge_sweep_duration_seconds",
			Help:    "Time taken to evaluate badges for all users",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
	)

	LeaderboardRefreshDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leaderboard_refresh_duration_seconds",
			Help:    "Time taken to rebuild the leaderboard",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)
)

// RecordAwardApplied records a committed award and its point value.
func RecordAwardApplied(action string, points int) {
	AwardsAppliedTotal.WithLabelValues(action).Inc()
	PointsEarnedTotal.WithLabelValues(action).Add(float64(points))
}

// RecordAwardRejected records a guard rejection.
func RecordAwardRejected(action, reason string) {
	AwardsRejectedTotal.WithLabelValues(action, reason).Inc()
}

// RecordSpend records a spend attempt outcome.
func RecordSpend(status string, points int) {
	SpendsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		PointsSpentTotal.Add(float64(points))
	}
}

// RecordStreakUpdate records a streak state transition.
func RecordStreakUpdate(transition string) {
	StreakUpdatesTotal.WithLabelValues(transition).Inc()
}

// RecordStreakMilestone records a milestone bonus payout.
func RecordStreakMilestone(milestone string) {
	StreakMilestonesTotal.WithLabelValues(milestone).Inc()
}

// RecordBadgeUnlocked records a badge unlock event.
func RecordBadgeUnlocked(badgeCode string) {
	BadgesUnlockedTotal.WithLabelValues(badgeCode).Inc()
}

// RecordBadgeSweepRun records a badge sweep job execution.
func RecordBadgeSweepRun(status string) {
	BadgeSweepRunsTotal.WithLabelValues(status).Inc()
}

// ObserveBadgeSweepDuration observes the duration of a badge sweep job.
func ObserveBadgeSweepDuration(seconds float64) {
	BadgeSweepDurationSeconds.Observe(seconds)
}

// RecordLeaderboardRefresh records a leaderboard rebuild execution.
func RecordLeaderboardRefresh(status string) {
	LeaderboardRefreshRunsTotal.WithLabelValues(status).Inc()
}

// SetLeaderboardSize sets the entry count of the last rebuild.
func SetLeaderboardSize(n int) {
	LeaderboardSize.Set(float64(n))
}

// ObserveLeaderboardRefreshDuration observes the duration of a rebuild.
func ObserveLeaderboardRefreshDuration(seconds float64) {
	LeaderboardRefreshDurationSeconds.Observe(seconds)
}
