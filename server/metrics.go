// Copyright 2026 cinerecs Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cinerecs",
		Subsystem: "server",
		Name:      "request_seconds",
	}, []string{"route"})
	CacheHitCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinerecs",
		Subsystem: "server",
		Name:      "cache_hit_total",
	}, []string{"route"})
	CacheMissCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinerecs",
		Subsystem: "server",
		Name:      "cache_miss_total",
	}, []string{"route"})
	RejectedRequestsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cinerecs",
		Subsystem: "server",
		Name:      "rejected_requests_total",
	})
	SnapshotLoadTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cinerecs",
		Subsystem: "server",
		Name:      "snapshot_load_time_seconds",
		Help:      "Unix time when the serving models were loaded.",
	})
	SnapshotItems = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cinerecs",
		Subsystem: "server",
		Name:      "snapshot_items",
	})
	SnapshotUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cinerecs",
		Subsystem: "server",
		Name:      "snapshot_users",
	})
)
