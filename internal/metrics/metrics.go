// Package metrics defines and registers the Prometheus metrics of the lead
// client. It is the single source of truth for metric names, labels and help
// strings. All metrics live in the default registry through promauto.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/leadflow/leadctl/internal/core/domain"
)

const namespace = "leadctl"

// ── HTTP client metrics ───────────────────────────────────────────────────────

// RequestsTotal counts backend requests.
// Labels:
//   - method: HTTP method
//   - endpoint: route template (e.g. "leads/leads/:id")
//   - code: response status, or "error" when no response arrived
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Total number of requests sent to the lead backend.",
	},
	[]string{"method", "endpoint", "code"},
)

// RequestDuration measures backend round trips.
var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Duration of requests to the lead backend.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "endpoint"},
)

// ── Store metrics ─────────────────────────────────────────────────────────────

// StoreEventsTotal counts settled store operations.
// Labels:
//   - op: e.g. "lead.list", "session.login"
//   - outcome: "success" or "failure"
//   - failure: failure kind, empty on success
var StoreEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_events_total",
		Help:      "Total number of store operations, by outcome.",
	},
	[]string{"op", "outcome", "failure"},
)

// StaleResponsesTotal counts list responses discarded because a newer list was issued.
var StaleResponsesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_responses_total",
		Help:      "Total number of list responses discarded as superseded.",
	},
)

// ObserveRequest records one backend round trip. status 0 means no response.
func ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	RequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// Subscriber counts store events. It satisfies notify.Subscriber.
type Subscriber struct{}

func (Subscriber) Notify(e domain.Event) {
	StoreEventsTotal.WithLabelValues(string(e.Op), string(e.Outcome), string(e.Failure)).Inc()
	if e.Failure == domain.FailureStale {
		StaleResponsesTotal.Inc()
	}
}

// Push sends the default registry to a Prometheus Pushgateway under job.
func Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
