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

// Package cache keeps short-lived serving results keyed by request.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/cinerecs/cinerecs/storage"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

var ErrNoDatabase = errors.NotAssignedf("cache")

// Key creates key for cache. Empty subkeys are skipped.
func Key(keys ...string) string {
	if len(keys) == 0 {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(keys[0])
	for _, key := range keys[1:] {
		if key != "" {
			builder.WriteRune('/')
			builder.WriteString(key)
		}
	}
	return builder.String()
}

// Database is a key-value store with expiration. Get returns a NotFound error for missing or
// expired keys. A zero ttl means the value never expires.
type Database interface {
	Close() error
	Ping(ctx context.Context) error
	Purge(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Open a connection to a cache store. Keys are namespaced by tablePrefix.
func Open(path, tablePrefix string) (Database, error) {
	prefix := storage.TablePrefix(tablePrefix)
	if strings.HasPrefix(path, storage.RedisPrefix) || strings.HasPrefix(path, storage.RedissPrefix) {
		opt, err := redis.ParseURL(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		database := new(Redis)
		database.client = redis.NewClient(opt)
		database.TablePrefix = prefix
		if err = redisotel.InstrumentTracing(database.client); err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.RedisClusterPrefix) {
		opt, err := redis.ParseClusterURL(strings.Replace(path, storage.RedisClusterPrefix, storage.RedisPrefix, 1))
		if err != nil {
			return nil, errors.Trace(err)
		}
		database := new(Redis)
		database.client = redis.NewClusterClient(opt)
		database.TablePrefix = prefix
		if err = redisotel.InstrumentTracing(database.client); err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.MemoryPrefix) {
		database := new(Memory)
		database.TablePrefix = prefix
		database.cache = ttlcache.New[string, string](ttlcache.WithDisableTouchOnHit[string, string]())
		go database.cache.Start()
		return database, nil
	}
	return nil, errors.NotSupportedf("cache store %q", path)
}
