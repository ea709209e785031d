// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability holds the prometheus instrumentation of the daily
// planner. Metrics register against the default registry and are served by
// the /metrics endpoint in serve mode.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Phase label values.
const (
	PhaseCarryOver = "carryover"
	PhasePeriodic  = "periodic"
	PhaseAlerts    = "alerts"
)

var (
	// PlanRuns counts full daily plan runs by outcome (success, failure).
	PlanRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autonotion_plan_runs_total",
		Help: "Full daily plan runs by outcome.",
	}, []string{"outcome"})

	// PagesCreated counts registry pages created per phase.
	PagesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autonotion_pages_created_total",
		Help: "Registry pages created, by phase.",
	}, []string{"phase"})

	// ItemsSkipped counts per-item skips per phase and reason
	// (duplicate, no_name, no_date, not_due).
	ItemsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autonotion_items_skipped_total",
		Help: "Candidate items skipped, by phase and reason.",
	}, []string{"phase", "reason"})

	// PhaseDuration observes wall-clock time per phase, successful or not.
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autonotion_phase_duration_seconds",
		Help:    "Phase execution time in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"phase"})
)
