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

package logics

import (
	"context"

	"github.com/cinerecs/cinerecs/common/floats"
	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/model/cf"
	"github.com/cinerecs/cinerecs/model/content"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

type HybridConfig struct {
	// BlendWeight is the weight of the latent score, the content score gets the rest.
	BlendWeight float32
	// LikeThreshold is the minimal rating of a liked item.
	LikeThreshold int
	// NormalizeProfile scales the user profile to unit norm, turning the content score into a cosine.
	NormalizeProfile bool
}

func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		BlendWeight:   0.5,
		LikeThreshold: 4,
	}
}

// HybridRanker re-ranks latent candidates by blending in the content similarity between each
// candidate and the profile of items the user liked.
type HybridRanker struct {
	space  *content.VectorSpace
	config HybridConfig
}

func NewHybridRanker(space *content.VectorSpace, config HybridConfig) *HybridRanker {
	return &HybridRanker{space: space, config: config}
}

// Profile returns the mean content vector of liked items, or nil when nothing is liked.
func (r *HybridRanker) Profile(history []dataset.Rating) ([]float32, error) {
	var (
		profile []float32
		count   int
	)
	for _, rating := range history {
		row, ok := r.space.Row(rating.ItemId)
		if !ok {
			return nil, errors.Annotatef(ErrDataIntegrity, "item %d rated by user %d is not in the catalogue", rating.ItemId, rating.UserId)
		}
		if rating.Rating < r.config.LikeThreshold {
			continue
		}
		if profile == nil {
			profile = make([]float32, r.space.Dimension())
		}
		floats.Add(profile, row)
		count++
	}
	if count == 0 {
		return nil, nil
	}
	floats.MulConst(profile, 1/float32(count))
	if r.config.NormalizeProfile {
		floats.Normalize(profile)
	}
	return profile, nil
}

// Rank returns the top n candidates by hybrid score. Without liked items the candidates are
// returned in their original order.
func (r *HybridRanker) Rank(ctx context.Context, candidates []cf.Prediction, history []dataset.Rating, n int) ([]Score, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	profile, err := r.Profile(history)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if profile == nil {
		return top(lo.Map(candidates, func(c cf.Prediction, _ int) Score {
			return Score{ItemId: c.ItemId, Score: c.Score}
		}), n), nil
	}
	scores := make([]Score, len(candidates))
	for i, candidate := range candidates {
		var similarity float32
		if row, ok := r.space.Row(candidate.ItemId); ok {
			similarity = floats.Dot(profile, row)
		}
		scores[i] = Score{
			ItemId: candidate.ItemId,
			Score:  r.config.BlendWeight*candidate.Score + (1-r.config.BlendWeight)*similarity,
		}
	}
	SortScores(scores)
	return top(scores, n), nil
}
