// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rulesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "normalize",
		Subsystem: "rules",
		Name:      "evaluated_total",
		Help:      "Rule files evaluated to fixpoint.",
	})
	ruleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "normalize",
		Subsystem: "rules",
		Name:      "failures_total",
		Help:      "Rule evaluations that did not complete, by cause.",
	}, []string{"cause"})
	diagnosticsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "normalize",
		Subsystem: "rules",
		Name:      "diagnostics_total",
		Help:      "Diagnostics produced by rule evaluation.",
	})
	ruleEvalSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "normalize",
		Subsystem: "rules",
		Name:      "eval_seconds",
		Help:      "Wall time spent evaluating one rule file.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)
