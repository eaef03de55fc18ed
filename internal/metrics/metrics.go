// Package metrics exposes Prometheus collectors for the edgeaudit client.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels 2xx responses.
	OutcomeSuccess = "success"
	// OutcomeError labels non-2xx responses.
	OutcomeError = "error"
	// OutcomeTransport labels requests that never got a response.
	OutcomeTransport = "transport"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeaudit_client",
			Name:      "requests_total",
			Help:      "Remote service requests, partitioned by operation, outcome and status code.",
		},
		[]string{"operation", "outcome", "code"},
	)

	requestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgeaudit_client",
			Name:      "request_seconds",
			Help:      "Remote service request latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	staleResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeaudit_client",
			Name:      "stale_results_total",
			Help:      "Completed loads discarded because a newer request superseded them or the view was torn down.",
		},
		[]string{"loader", "cause"},
	)

	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeaudit_client",
			Name:      "submissions_total",
			Help:      "Wizard submissions, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches the client collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		requestsTotal,
		requestDurationSeconds,
		staleResultsTotal,
		submissionsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRequest records one remote call. status is 0 when no response arrived.
func ObserveRequest(operation string, status int, err error, duration time.Duration) {
	outcome := OutcomeSuccess
	switch {
	case status == 0 && err != nil:
		outcome = OutcomeTransport
	case err != nil:
		outcome = OutcomeError
	}
	requestsTotal.WithLabelValues(operation, outcome, strconv.Itoa(status)).Inc()
	requestDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveStale records a discarded load result. cause is "superseded" or "torn_down".
func ObserveStale(loader, cause string) {
	staleResultsTotal.WithLabelValues(loader, cause).Inc()
}

// ObserveSubmission records a wizard submit outcome.
func ObserveSubmission(success bool) {
	if success {
		submissionsTotal.WithLabelValues(OutcomeSuccess).Inc()
		return
	}
	submissionsTotal.WithLabelValues(OutcomeError).Inc()
}
