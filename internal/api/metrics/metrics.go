// Package metrics defines and registers all custom Prometheus metrics for the
// PropSpace marketplace API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "propspace"

// ── Identity metrics ──────────────────────────────────────────────────────────

// IdentityResolutionsTotal counts identity resolutions by outcome.
// Label:
//   - outcome: "existing", "created", "degraded", "unresolved" or "error"
var IdentityResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_resolutions_total",
		Help:      "Total number of identity resolutions, by outcome.",
	},
	[]string{"outcome"},
)

// IdentityResolutionDuration measures principal-to-session resolution time.
// Label:
//   - outcome: same values as IdentityResolutionsTotal
var IdentityResolutionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "identity_resolution_duration_seconds",
		Help:      "Duration of identity resolution including profile lookup and creation.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// ProfilesCreatedTotal counts profiles actually inserted (not idempotent replays).
// Label:
//   - role: "landlord" or "tenant"
var ProfilesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profiles_created_total",
		Help:      "Total number of profiles created, by role.",
	},
	[]string{"role"},
)

// ProfileCacheTotal counts profile cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var ProfileCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_cache_total",
		Help:      "Total number of profile cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthOperationsTotal counts hosted auth provider calls.
// Labels:
//   - operation: "signup", "signin", "refresh" or "signout"
//   - result: "ok" or "rejected"
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of auth provider operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// ProfileEventsPublishedTotal counts profile events delivered to the bus.
// Label:
//   - type: event type (e.g. "profile.created")
var ProfileEventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_events_published_total",
		Help:      "Total number of profile events published.",
	},
	[]string{"type"},
)

// ProfileEventsErrorsTotal counts profile events that could not be delivered.
// Label:
//   - reason: "encode", "publish" or "queue_full"
var ProfileEventsErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_events_errors_total",
		Help:      "Total number of profile events that failed delivery.",
	},
	[]string{"reason"},
)

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Listing metrics ───────────────────────────────────────────────────────────

// PropertiesCreatedTotal counts newly created listings.
var PropertiesCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "properties_created_total",
		Help:      "Total number of property listings created.",
	},
)
