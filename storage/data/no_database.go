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

	"github.com/cinerecs/cinerecs/dataset"
)

// NoDatabase is used when no data store is configured. Every operation fails with ErrNoDatabase.
type NoDatabase struct{}

func (NoDatabase) Init() error {
	return ErrNoDatabase
}

func (NoDatabase) Ping() error {
	return ErrNoDatabase
}

func (NoDatabase) Close() error {
	return ErrNoDatabase
}

func (NoDatabase) Purge() error {
	return ErrNoDatabase
}

func (NoDatabase) BatchInsertRatings(_ context.Context, _ []dataset.Rating) error {
	return ErrNoDatabase
}

func (NoDatabase) BatchInsertItems(_ context.Context, _ []dataset.Item) error {
	return ErrNoDatabase
}

func (NoDatabase) GetRatings(_ context.Context) ([]dataset.Rating, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetUserRatings(_ context.Context, _ int64) ([]dataset.Rating, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetItems(_ context.Context) ([]dataset.Item, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetItem(_ context.Context, _ int64) (dataset.Item, error) {
	return dataset.Item{}, ErrNoDatabase
}
