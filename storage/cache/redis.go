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

package cache

import (
	"context"
	"time"

	"github.com/cinerecs/cinerecs/storage"
	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
)

// Redis cache storage. The client is either a single node or a cluster.
type Redis struct {
	storage.TablePrefix
	client redis.UniversalClient
}

// Close redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Purge deletes keys under the table prefix.
func (r *Redis) Purge(ctx context.Context) error {
	pattern := r.Key("*")
	if cluster, ok := r.client.(*redis.ClusterClient); ok {
		return cluster.ForEachMaster(ctx, func(ctx context.Context, client *redis.Client) error {
			return purge(ctx, client, pattern)
		})
	}
	return purge(ctx, r.client, pattern)
}

func purge(ctx context.Context, client redis.Cmdable, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return errors.Trace(err)
		}
		for _, key := range keys {
			// keys of a cluster may live in different slots
			if err = client.Del(ctx, key).Err(); err != nil {
				return errors.Trace(err)
			}
		}
		if cursor = next; cursor == 0 {
			return nil
		}
	}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.Key(key)).Result()
	if err == redis.Nil {
		return "", errors.NotFoundf("key %q", key)
	} else if err != nil {
		return "", errors.Trace(err)
	}
	return val, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.Trace(r.client.Set(ctx, r.Key(key), value, ttl).Err())
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return errors.Trace(r.client.Del(ctx, r.Key(key)).Err())
}
