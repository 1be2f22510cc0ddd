// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

// Package metrics collects and exposes Prometheus metrics for the gate
// and the download pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records gate and download observations. It satisfies the
// metrics interfaces of the dispatch, gate, and executor packages.
type Collector struct {
	gateEvaluations    *prometheus.CounterVec
	membershipFailures prometheus.Counter
	requestsFinished   *prometheus.CounterVec
	downloads          *prometheus.CounterVec
	cacheHits          prometheus.Counter
	downloadDuration   prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gateEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidgate_gate_evaluations_total",
			Help: "Subscription gate evaluations by result.",
		}, []string{"result"}),
		membershipFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidgate_membership_check_failures_total",
			Help: "Membership checks that failed and were treated as unsubscribed.",
		}),
		requestsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidgate_requests_finished_total",
			Help: "Download requests reaching a terminal state, by platform and outcome.",
		}, []string{"platform", "outcome"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidgate_downloads_total",
			Help: "Executor download attempts by platform and outcome.",
		}, []string{"platform", "outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidgate_video_cache_hits_total",
			Help: "Downloads served from the video cache.",
		}),
		downloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vidgate_download_duration_seconds",
			Help:    "Wall-clock duration of download jobs in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}

	reg.MustRegister(
		c.gateEvaluations,
		c.membershipFailures,
		c.requestsFinished,
		c.downloads,
		c.cacheHits,
		c.downloadDuration,
	)

	return c
}

// GateEvaluated records the outcome of one gate evaluation.
func (c *Collector) GateEvaluated(passed bool, missing int) {
	result := "passed"
	if !passed {
		result = "blocked"
	}
	c.gateEvaluations.WithLabelValues(result).Inc()
}

// MembershipCheckFailed records a membership query that errored.
func (c *Collector) MembershipCheckFailed() {
	c.membershipFailures.Inc()
}

// RequestFinished records a request reaching DELIVERED or FAILED.
func (c *Collector) RequestFinished(platform string, delivered bool) {
	outcome := "delivered"
	if !delivered {
		outcome = "failed"
	}
	c.requestsFinished.WithLabelValues(platform, outcome).Inc()
}

// DownloadFinished records one executor job, including cache hits.
func (c *Collector) DownloadFinished(platform string, cacheHit bool, seconds float64, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.downloads.WithLabelValues(platform, outcome).Inc()
	if cacheHit {
		c.cacheHits.Inc()
	}
	c.downloadDuration.Observe(seconds)
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
