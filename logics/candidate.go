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

	"github.com/bits-and-blooms/bitset"
	"github.com/cinerecs/cinerecs/common/ann"
	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/model/cf"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// CandidateGenerator ranks catalogue items a user has not rated by predicted rating. Item vectors
// [q_i, b_i] are scored against the user query [p_u, GlobalBias + b_u] by cf.ScoreQuery, so the
// top-k cut is made on the full prediction.
type CandidateGenerator struct {
	model   *cf.LatentFactorModel
	ratings *dataset.RatingCorpus
	items   *dataset.Index
	index   ann.Index
}

// NewCandidateGenerator indexes every catalogue item. Items unknown to the model get a zero vector
// and are scored by the global and user biases only.
func NewCandidateGenerator(model *cf.LatentFactorModel, ratings *dataset.RatingCorpus, items *dataset.Index) (*CandidateGenerator, error) {
	index := ann.NewBruteforce(cf.ScoreQuery)
	for _, itemId := range items.GetIds() {
		if _, err := index.Add(model.ItemVector(itemId)); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return &CandidateGenerator{
		model:   model,
		ratings: ratings,
		items:   items,
		index:   index,
	}, nil
}

// Generate returns the top n unrated items of a user by predicted rating. Items rated in the corpus
// or in history are excluded. A user unknown to the model is scored by the item biases.
func (g *CandidateGenerator) Generate(ctx context.Context, userId int64, history []dataset.Rating, n int) ([]cf.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	if n <= 0 || g.items.Len() == 0 {
		return []cf.Prediction{}, nil
	}
	excluded := bitset.New(uint(g.items.Len()))
	for _, rating := range append(g.ratings.GetUserRatings(userId), history...) {
		if i := g.items.ToNumber(rating.ItemId); i != dataset.NotId {
			excluded.Set(uint(i))
		}
	}
	results, err := g.index.SearchVector(g.model.UserQuery(userId), n, func(i int) bool {
		return excluded.Test(uint(i))
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	scores := lo.Map(results, func(result lo.Tuple2[int, float32], _ int) Score {
		return Score{
			ItemId: g.items.ToId(int32(result.A)),
			Score:  result.B,
		}
	})
	SortScores(scores)
	return lo.Map(scores, func(score Score, _ int) cf.Prediction {
		return cf.Prediction{UserId: userId, ItemId: score.ItemId, Score: score.Score}
	}), nil
}
