package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pass outcomes recorded by the scheduler
const (
	OutcomeSkippedIdle   = "skipped_idle"
	OutcomeLockHeld      = "lock_held"
	OutcomeInsufficient  = "insufficient"
	OutcomeClaimConflict = "claim_conflict"
	OutcomeBalanceFailed = "balance_failed"
	OutcomeAborted       = "aborted"
	OutcomeFailed        = "failed"
	OutcomeCreated       = "created"
)

// Ghost correction kinds
const (
	CorrectionState     = "state"
	CorrectionOwnership = "ownership"
	CorrectionClaim     = "claim"
)

// QueueMetrics records matchmaking activity
type QueueMetrics interface {
	AddPass(outcome string, elapsed time.Duration)
	AddGhostCorrection(kind string)
	SetQueueSize(size int)
	AddMatchCreated()
}

// NewMetrics registers the prometheus collectors on registry
func NewMetrics(registry *prometheus.Registry) QueueMetrics {
	return setupPrometheusMetrics(registry)
}
