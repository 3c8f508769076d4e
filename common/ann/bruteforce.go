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

package ann

import (
	"github.com/cinerecs/cinerecs/common/heap"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Bruteforce is the exact vector index: every search scans all vectors. Scores are computed
// by scoreFunc and larger scores rank first. Ties go to the smaller index.
type Bruteforce struct {
	scoreFunc func(a, b []float32) float32
	dimension int
	vectors   [][]float32
}

// NewBruteforce creates an exact index ranking by scoreFunc.
func NewBruteforce(scoreFunc func(a, b []float32) float32) *Bruteforce {
	return &Bruteforce{scoreFunc: scoreFunc}
}

// Add appends a vector and returns its index.
func (b *Bruteforce) Add(v []float32) (int, error) {
	if b.dimension == 0 && len(b.vectors) == 0 {
		b.dimension = len(v)
	} else if b.dimension != len(v) {
		return 0, errors.Errorf("dimension mismatch: %v != %v", b.dimension, len(v))
	}
	b.vectors = append(b.vectors, v)
	return len(b.vectors) - 1, nil
}

func (b *Bruteforce) Len() int {
	return len(b.vectors)
}

// SearchIndex finds the k nearest neighbors of the q-th vector, excluding itself.
func (b *Bruteforce) SearchIndex(q, k int, exclude func(int) bool) ([]lo.Tuple2[int, float32], error) {
	if q < 0 || q >= len(b.vectors) {
		return nil, errors.Errorf("index out of range: %v", q)
	}
	return b.search(b.vectors[q], k, func(i int) bool {
		return i == q || (exclude != nil && exclude(i))
	})
}

// SearchVector finds the k vectors scoring highest against q.
func (b *Bruteforce) SearchVector(q []float32, k int, exclude func(int) bool) ([]lo.Tuple2[int, float32], error) {
	if len(b.vectors) > 0 && len(q) != b.dimension {
		return nil, errors.Errorf("dimension mismatch: %v != %v", b.dimension, len(q))
	}
	return b.search(q, k, exclude)
}

func (b *Bruteforce) search(q []float32, k int, exclude func(int) bool) ([]lo.Tuple2[int, float32], error) {
	filter := heap.NewTopKFilter[int, float32](k)
	for i, vec := range b.vectors {
		if exclude != nil && exclude(i) {
			continue
		}
		filter.Push(i, b.scoreFunc(q, vec))
	}
	elems := filter.PopAll()
	scores := make([]lo.Tuple2[int, float32], len(elems))
	for i, elem := range elems {
		scores[i] = lo.Tuple2[int, float32]{A: elem.Value, B: elem.Weight}
	}
	return scores, nil
}
