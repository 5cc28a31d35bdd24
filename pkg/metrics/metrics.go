/*
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

// Package metrics exposes in-process prometheus metrics and an optional
// CloudWatch reporter for per-target operational counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "instance_scheduler"

var (
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "actions_total",
			Help:      "Scheduling actions taken, by service and action.",
		},
		[]string{"service", "action"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decisions_total",
			Help:      "Decisions evaluated, by service and requested action.",
		},
		[]string{"service", "action"},
	)
	ResourceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resource_errors_total",
			Help:      "Per-resource scheduling failures, by service and kind.",
		},
		[]string{"service", "kind"},
	)
	TargetDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "target_duration_seconds",
			Help:      "Wall time spent scheduling one target.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"service"},
	)
	ManagedResources = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "managed_resources",
			Help:      "Registered resources per target at the last cycle.",
		},
		[]string{"service", "account", "region"},
	)
	DispatchedTargets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dispatched_targets_total",
			Help:      "Targets dispatched by the orchestrator.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ActionsTotal,
		DecisionsTotal,
		ResourceErrorsTotal,
		TargetDuration,
		ManagedResources,
		DispatchedTargets,
	)
}
