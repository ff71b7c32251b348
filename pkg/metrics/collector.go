// Package metrics exposes Prometheus instrumentation for the economy engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_mutations_total",
			Help: "Total number of balance mutations labeled by operation and status",
		},
		[]string{"operation", "status"},
	)
	mutationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "economy_mutation_duration_seconds",
			Help:    "Duration of balance mutations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	versionConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_version_conflicts_total",
			Help: "Optimistic-concurrency conflicts observed per operation",
		},
		[]string{"operation"},
	)
	compensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_compensations_total",
			Help: "Compensating rollbacks performed per composite operation",
		},
		[]string{"operation"},
	)
	claimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_claims_total",
			Help: "Claim attempts labeled by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	minigamePlaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_minigame_plays_total",
			Help: "Minigame plays labeled by game and outcome",
		},
		[]string{"game", "outcome"},
	)
	minigameWageredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_minigame_wagered_total",
			Help: "Total amount wagered per game",
		},
		[]string{"game"},
	)
	auditEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_audit_entries_total",
			Help: "Audit entries appended per operation type",
		},
		[]string{"operation"},
	)
	sectorBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "economy_sector_balance",
			Help: "Last observed guild treasury sector balance",
		},
		[]string{"guild", "sector"},
	)
)

// RecordMutation increments mutation counters and records duration.
func RecordMutation(operation, status string, duration time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	mutationsTotal.WithLabelValues(operation, status).Inc()
	mutationDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordVersionConflict counts an optimistic-concurrency retry.
func RecordVersionConflict(operation string) {
	versionConflictsTotal.WithLabelValues(operation).Inc()
}

// RecordCompensation counts a compensating rollback.
func RecordCompensation(operation string) {
	compensationsTotal.WithLabelValues(operation).Inc()
}

// RecordClaim counts one claim attempt outcome.
func RecordClaim(kind, outcome string) {
	claimsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordMinigame counts one play and the wagered amount.
func RecordMinigame(game, outcome string, wager int64) {
	minigamePlaysTotal.WithLabelValues(game, outcome).Inc()
	if wager > 0 {
		minigameWageredTotal.WithLabelValues(game).Add(float64(wager))
	}
}

// RecordAuditEntry counts an appended audit entry.
func RecordAuditEntry(operation string) {
	auditEntriesTotal.WithLabelValues(operation).Inc()
}

// SetSectorBalance publishes the last observed sector balance.
func SetSectorBalance(guildID, sector string, balance int64) {
	sectorBalance.WithLabelValues(guildID, sector).Set(float64(balance))
}
