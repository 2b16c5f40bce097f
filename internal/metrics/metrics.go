/*
Copyright 2025 The rime-sim Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes prometheus collectors for the solver runtime:
// byte accounting gauges, chunk planning counters and per-stage lifecycle
// timings.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	// BytesRequired tracks the total byte cost of the registered arrays,
	// labelled by storage kind (all, host, device).
	BytesRequired = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rime_bytes_required",
		Help: "Bytes required by all registered arrays, by storage kind.",
	}, []string{"kind"})

	// ChunksPlanned counts sub-problems produced by the budget planner.
	ChunksPlanned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rime_chunks_planned_total",
		Help: "Number of sub-problems produced by budget planning.",
	})

	// StageDuration observes how long each stage spends in each lifecycle
	// phase.
	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rime_stage_duration_seconds",
		Help:    "Time spent per pipeline stage and lifecycle phase.",
		Buckets: prometheus.ExponentialBuckets(1e-4, 4, 10),
	}, []string{"stage", "phase"})

	// LifecycleFailures counts stage failures by lifecycle phase.
	LifecycleFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rime_lifecycle_failures_total",
		Help: "Pipeline stage failures by lifecycle phase.",
	}, []string{"phase"})
)

func init() {
	registry.MustRegister(BytesRequired, ChunksPlanned, StageDuration, LifecycleFailures)
}

// Handler serves the runtime's metrics in prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
