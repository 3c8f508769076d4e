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
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
)

// Memory keeps values in process. It is lost on restart and not shared between replicas.
type Memory struct {
	storage.TablePrefix
	cache *ttlcache.Cache[string, string]
}

func (m *Memory) Close() error {
	m.cache.Stop()
	return nil
}

func (m *Memory) Ping(_ context.Context) error {
	return nil
}

func (m *Memory) Purge(_ context.Context) error {
	m.cache.DeleteAll()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	item := m.cache.Get(m.Key(key))
	if item == nil || item.IsExpired() {
		return "", errors.NotFoundf("key %q", key)
	}
	return item.Value(), nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	m.cache.Set(m.Key(key), value, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.cache.Delete(m.Key(key))
	return nil
}
