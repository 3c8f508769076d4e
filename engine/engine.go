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

// Package engine trains, persists and loads the models behind recommendations.
package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cinerecs/cinerecs/base/log"
	"github.com/cinerecs/cinerecs/base/progress"
	"github.com/cinerecs/cinerecs/config"
	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/storage"
	"github.com/cinerecs/cinerecs/storage/blob"
	"github.com/cinerecs/cinerecs/storage/cache"
	"github.com/cinerecs/cinerecs/storage/data"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Engine owns the connections to the data store, the result cache and the artifact store.
type Engine struct {
	Config      *config.Config
	DataClient  data.Database
	CacheClient cache.Database
	BlobStore   blob.Store
	Tracer      *progress.Tracer

	// ConnectTimeout bounds the retries of Open.
	ConnectTimeout time.Duration
}

func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		Config:         cfg,
		DataClient:     data.NoDatabase{},
		CacheClient:    cache.NoDatabase{},
		Tracer:         progress.NewTracer("engine"),
		ConnectTimeout: time.Minute,
	}
}

// Open connects to the stores. Connecting to the data store is retried with exponential backoff
// since it might start after cinerecs.
func (e *Engine) Open(ctx context.Context) error {
	var err error
	e.DataClient, err = backoff.Retry(ctx, func() (data.Database, error) {
		database, err := data.Open(e.Config.Database.DataStore, e.Config.Database.TablePrefix,
			storage.WithIsolationLevel(e.Config.Database.IsolationLevel),
			storage.WithMaxOpenConns(e.Config.Database.MaxOpenConns),
			storage.WithMaxIdleConns(e.Config.Database.MaxIdleConns),
			storage.WithConnMaxLifetime(e.Config.Database.ConnMaxLifetime))
		if errors.Is(err, errors.NotSupported) {
			return nil, backoff.Permanent(err)
		} else if err != nil {
			return nil, err
		}
		if err = database.Ping(); err != nil {
			_ = database.Close()
			return nil, err
		}
		return database, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(e.ConnectTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Logger().Warn("failed to connect data store",
				zap.String("data_store", log.RedactDBURL(e.Config.Database.DataStore)),
				zap.Duration("retry_after", next), zap.Error(err))
		}))
	if err != nil {
		e.DataClient = data.NoDatabase{}
		return errors.Annotate(err, "failed to connect data store")
	}
	if err = e.DataClient.Init(); err != nil {
		return errors.Annotate(err, "failed to init data store")
	}
	log.Logger().Info("connect data store",
		zap.String("data_store", log.RedactDBURL(e.Config.Database.DataStore)))

	if e.Config.Database.CacheStore != "" {
		if e.CacheClient, err = cache.Open(e.Config.Database.CacheStore, e.Config.Database.TablePrefix); err != nil {
			e.CacheClient = cache.NoDatabase{}
			return errors.Annotate(err, "failed to connect cache store")
		}
		log.Logger().Info("connect cache store",
			zap.String("cache_store", log.RedactDBURL(e.Config.Database.CacheStore)))
	}

	if e.BlobStore, err = blob.Open(e.Config.Blob); err != nil {
		return errors.Annotate(err, "failed to open blob store")
	}
	return nil
}

// Close releases connections. Errors are logged.
func (e *Engine) Close() {
	if err := e.DataClient.Close(); err != nil && !errors.Is(err, data.ErrNoDatabase) {
		log.Logger().Error("failed to close data store", zap.Error(err))
	}
	if err := e.CacheClient.Close(); err != nil && !errors.Is(err, cache.ErrNoDatabase) {
		log.Logger().Error("failed to close cache store", zap.Error(err))
	}
}

// LoadCorpora reads ratings and items from the data store.
func (e *Engine) LoadCorpora(ctx context.Context) (*dataset.RatingCorpus, *dataset.ItemCorpus, error) {
	ratings, err := e.DataClient.GetRatings(ctx)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	items, err := e.DataClient.GetItems(ctx)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	ratingCorpus, err := dataset.NewRatingCorpus(ratings)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	itemCorpus, err := dataset.NewItemCorpus(items)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	log.Logger().Info("load corpora",
		zap.Int("n_ratings", ratingCorpus.Count()),
		zap.Int32("n_users", ratingCorpus.GetUserIndex().Len()),
		zap.Int("n_items", itemCorpus.Len()))
	return ratingCorpus, itemCorpus, nil
}
