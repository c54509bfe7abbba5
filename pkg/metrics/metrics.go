// Copyright 2025 AUTHORS
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics holds the process's Prometheus collectors: request
// volume and latency, container-driver call outcomes, and background
// sweeper activity (spec.md §9 ambient observability).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcpemu_http_requests_total",
		Help: "HTTP requests handled, by route and status class.",
	}, []string{"route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gcpemu_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	ContainerDriverCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcpemu_container_driver_calls_total",
		Help: "Container Driver calls, by operation and outcome.",
	}, []string{"operation", "outcome"})

	SweeperRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcpemu_sweeper_runs_total",
		Help: "Background sweeper passes, by sweeper name.",
	}, []string{"sweeper"})

	SweeperItemsRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcpemu_sweeper_items_removed_total",
		Help: "Items removed by a background sweeper, by sweeper name.",
	}, []string{"sweeper"})
)

// Handler exposes the registered collectors at /metrics.
func Handler() http.Handler { return promhttp.Handler() }

// InstrumentRoute wraps h so every request increments RequestsTotal and
// records RequestDuration under the given route label; route should be a
// low-cardinality name (the registered pattern), never the raw path.
func InstrumentRoute(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)
		RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(route, statusClass(sw.status)).Inc()
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
