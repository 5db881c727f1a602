// Package metrics defines and registers all custom Prometheus metrics for the
// journey dashboard service. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics register with the default Prometheus registry at import time via
// promauto; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "journey"

// ── Session metrics ───────────────────────────────────────────────────────────

// AuthResolutionsTotal counts entry resolutions.
// Labels:
//   - path: the entry path taken ("sso", "app_proxy", "existing_session")
//   - outcome: "authenticated" or "error"
var AuthResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_resolutions_total",
		Help:      "Total number of session entry resolutions, by path and outcome.",
	},
	[]string{"path", "outcome"},
)

// ── Flow metrics ──────────────────────────────────────────────────────────────

// FlowRunsStartedTotal counts started flow runs.
// Label:
//   - flow_id: the flow identifier (e.g. "device_setup_flow")
var FlowRunsStartedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flow_runs_started_total",
		Help:      "Total number of flow runs started, by flow id.",
	},
	[]string{"flow_id"},
)

// FlowStepTransitionsTotal counts step transitions within a run.
// Labels:
//   - flow_id: the flow identifier
//   - direction: "forward" or "back"
var FlowStepTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flow_step_transitions_total",
		Help:      "Total number of flow step transitions, by flow and direction.",
	},
	[]string{"flow_id", "direction"},
)

// FlowCompletionsTotal counts runs that reached their terminal step.
// Label:
//   - flow_id: the flow identifier
var FlowCompletionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flow_completions_total",
		Help:      "Total number of completed flow runs, by flow id.",
	},
	[]string{"flow_id"},
)

// SurrenderValidationsTotal counts surrender recording validations.
// Label:
//   - verdict: "approved" or "rejected"
var SurrenderValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "surrender_validations_total",
		Help:      "Total number of surrender recording validations, by verdict.",
	},
	[]string{"verdict"},
)

// ── Device metrics ────────────────────────────────────────────────────────────

// DirectUnlocksTotal counts direct dashboard unlocks.
// Label:
//   - result: "ok" or "error"
var DirectUnlocksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "direct_unlocks_total",
		Help:      "Total number of direct (non-surrender) unlock attempts, by result.",
	},
	[]string{"result"},
)

// ── Backend metrics ───────────────────────────────────────────────────────────

// BackendRequestDuration measures round-trip time of upstream backend calls.
// Labels:
//   - operation: short backend operation name (e.g. "list_devices")
//   - code: HTTP status class ("2xx", "4xx", "5xx") or "error"
var BackendRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Duration of upstream backend requests.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"operation", "code"},
)
