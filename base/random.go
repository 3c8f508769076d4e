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

package base

import (
	"math/rand"

	mapset "github.com/deckarep/golang-set/v2"
)

// RandomGenerator is a seeded random source. Two generators created with the same
// seed produce the same sequence, which is what makes training reproducible.
type RandomGenerator struct {
	*rand.Rand
}

// NewRandomGenerator creates a RandomGenerator.
func NewRandomGenerator(seed int64) RandomGenerator {
	return RandomGenerator{rand.New(rand.NewSource(seed))}
}

// NormalVector makes a vector filled with normal random floats.
func (rng RandomGenerator) NormalVector(size int, mean, stdDev float32) []float32 {
	ret := make([]float32, size)
	for i := 0; i < len(ret); i++ {
		ret[i] = float32(rng.NormFloat64())*stdDev + mean
	}
	return ret
}

// NormalMatrix makes a matrix filled with normal random floats.
func (rng RandomGenerator) NormalMatrix(row, col int, mean, stdDev float32) [][]float32 {
	ret := make([][]float32, row)
	for i := range ret {
		ret[i] = rng.NormalVector(col, mean, stdDev)
	}
	return ret
}

// Sample n distinct values in [low, high). All values are returned when n covers the interval.
func (rng RandomGenerator) Sample(low, high, n int) []int {
	intervalLength := high - low
	sampled := make([]int, 0, n)
	if n >= intervalLength {
		for i := low; i < high; i++ {
			sampled = append(sampled, i)
		}
		return sampled
	}
	picked := mapset.NewThreadUnsafeSet[int]()
	for len(sampled) < n {
		v := rng.Intn(intervalLength) + low
		if !picked.Contains(v) {
			sampled = append(sampled, v)
			picked.Add(v)
		}
	}
	return sampled
}
