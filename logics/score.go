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

// Package logics holds the serving-time pipeline: candidate generation, hybrid re-ranking and
// item-to-item similarity. Every type is immutable after construction and safe for concurrent use.
package logics

import (
	"sort"

	"github.com/juju/errors"
)

// ErrDataIntegrity is returned when a rating references an item missing from the catalogue.
const ErrDataIntegrity = errors.ConstError("data integrity violation")

// Score is a ranked item.
type Score struct {
	ItemId int64   `json:"item_id"`
	Score  float32 `json:"score"`
}

// SortScores sorts scores by descending score, ties by ascending item id.
func SortScores(scores []Score) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].ItemId < scores[j].ItemId
	})
}

func top(scores []Score, n int) []Score {
	if n < 0 {
		n = 0
	}
	if len(scores) > n {
		return scores[:n]
	}
	return scores
}
