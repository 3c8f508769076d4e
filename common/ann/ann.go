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

// Package ann holds vector indices used for retrieval. Results are pairs of vector index and score,
// best first.
package ann

import "github.com/samber/lo"

// Index is implemented by exact and approximate vector indices.
type Index interface {
	Add(v []float32) (int, error)
	Len() int
	SearchIndex(q, k int, exclude func(int) bool) ([]lo.Tuple2[int, float32], error)
	SearchVector(q []float32, k int, exclude func(int) bool) ([]lo.Tuple2[int, float32], error)
}

var _ Index = (*Bruteforce)(nil)
