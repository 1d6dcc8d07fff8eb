// Package metrics exposes the Prometheus registry used by blamebot.
// All metrics are defined in their respective packages (retry, idempotency,
// pagination, discord) to maintain modularity and avoid circular dependencies.
//
// This package provides the scrape handler and a reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by blamebot.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry the scrape handler reads from.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Data-Access Metrics (pkg/retry):
//   - blamebot_db_retries_total{category} (Counter): Retry attempts by failure category
//   - blamebot_db_retry_backoff_seconds{category} (Histogram): Backoff before retries
//   - blamebot_db_retry_exhausted_total{category} (Counter): Operations that exhausted their retries
//   - blamebot_db_operation_duration_seconds{operation} (Histogram): Duration including retries
//
// Idempotency Metrics (pkg/idempotency):
//   - blamebot_events_admitted_total (Counter): Events admitted by the guard
//   - blamebot_events_rejected_total{reason} (Counter): Events rejected (duplicate, expired, invalid, claimed)
//   - blamebot_event_record_size (Gauge): Ids currently held by the guard
//   - blamebot_event_claim_errors_total (Counter): Redis claim failures (guard fails open)
//
// Pagination Metrics (pkg/pagination):
//   - blamebot_page_renders_total{command} (Counter): Rendered pages
//   - blamebot_page_fetches_total{command} (Counter): Page fetches, including clamp re-fetches
//   - blamebot_page_failures_total{command} (Counter): Requests answered with a failure message
//   - blamebot_components_ignored_total{command} (Counter): Undecodable controls
//   - blamebot_replies_discarded_total (Counter): Replies dropped for expired interactions
//   - blamebot_reply_failures_total (Counter): Terminal reply failures
//
// Interaction Metrics (pkg/discord):
//   - blamebot_interactions_total{kind, outcome} (Counter): Inbound interactions by outcome
//   - blamebot_interaction_duration_seconds{kind} (Histogram): Handler duration
//   - blamebot_blames_recorded_total (Counter): Recorded blames
//
// Example Prometheus Queries:
//
//   # Duplicate Delivery Rate
//   rate(blamebot_events_rejected_total{reason="duplicate"}[5m])
//
//   # Database Retry Rate
//   sum(rate(blamebot_db_retries_total[5m])) by (category)
//
//   # Fetches Per Render (navigation cost)
//   sum(rate(blamebot_page_fetches_total[5m])) / sum(rate(blamebot_page_renders_total[5m]))
//
//   # P95 Interaction Latency
//   histogram_quantile(0.95, rate(blamebot_interaction_duration_seconds_bucket[5m]))
