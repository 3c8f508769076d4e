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

package data

import (
	"context"
	"time"

	"github.com/cinerecs/cinerecs/dataset"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchInsertRatingsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinerecs",
		Subsystem: "database",
		Name:      "batch_insert_ratings_seconds",
	})
	BatchInsertItemsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinerecs",
		Subsystem: "database",
		Name:      "batch_insert_items_seconds",
	})
	GetRatingsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinerecs",
		Subsystem: "database",
		Name:      "get_ratings_seconds",
	})
	GetUserRatingsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinerecs",
		Subsystem: "database",
		Name:      "get_user_ratings_seconds",
	})
	GetItemsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinerecs",
		Subsystem: "database",
		Name:      "get_items_seconds",
	})
	GetItemSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cinerecs",
		Subsystem: "database",
		Name:      "get_item_seconds",
	})
)

// metricsDatabase records the latency of every query.
type metricsDatabase struct {
	Database
}

func withMetrics(database Database) Database {
	return &metricsDatabase{Database: database}
}

func (m *metricsDatabase) BatchInsertRatings(ctx context.Context, ratings []dataset.Rating) error {
	defer observe(BatchInsertRatingsSeconds, time.Now())
	return m.Database.BatchInsertRatings(ctx, ratings)
}

func (m *metricsDatabase) BatchInsertItems(ctx context.Context, items []dataset.Item) error {
	defer observe(BatchInsertItemsSeconds, time.Now())
	return m.Database.BatchInsertItems(ctx, items)
}

func (m *metricsDatabase) GetRatings(ctx context.Context) ([]dataset.Rating, error) {
	defer observe(GetRatingsSeconds, time.Now())
	return m.Database.GetRatings(ctx)
}

func (m *metricsDatabase) GetUserRatings(ctx context.Context, userId int64) ([]dataset.Rating, error) {
	defer observe(GetUserRatingsSeconds, time.Now())
	return m.Database.GetUserRatings(ctx, userId)
}

func (m *metricsDatabase) GetItems(ctx context.Context) ([]dataset.Item, error) {
	defer observe(GetItemsSeconds, time.Now())
	return m.Database.GetItems(ctx)
}

func (m *metricsDatabase) GetItem(ctx context.Context, itemId int64) (dataset.Item, error) {
	defer observe(GetItemSeconds, time.Now())
	return m.Database.GetItem(ctx, itemId)
}

func observe(histogram prometheus.Histogram, start time.Time) {
	histogram.Observe(time.Since(start).Seconds())
}
