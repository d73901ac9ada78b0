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

package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fileUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "normalize",
		Subsystem: "index",
		Name:      "file_updates_total",
		Help:      "update_file outcomes, by change kind.",
	}, []string{"change"})
	updateSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "normalize",
		Subsystem: "index",
		Name:      "update_seconds",
		Help:      "Wall time of one update_file call, extraction included.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 9),
	})
)
