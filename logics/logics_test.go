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
	"math"
	"testing"

	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/model"
	"github.com/cinerecs/cinerecs/model/cf"
	"github.com/cinerecs/cinerecs/model/content"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type LogicsTestSuite struct {
	suite.Suite
	ratings *dataset.RatingCorpus
	items   *dataset.ItemCorpus
	model   *cf.LatentFactorModel
	space   *content.VectorSpace
}

func (suite *LogicsTestSuite) SetupTest() {
	var err error
	suite.ratings, err = dataset.NewRatingCorpus([]dataset.Rating{
		{UserId: 1, ItemId: 10, Rating: 5},
	})
	suite.NoError(err)
	suite.items, err = dataset.NewItemCorpus([]dataset.Item{
		{ItemId: 10, Genres: []string{"Action"}},
		{ItemId: 11, Genres: []string{"Drama"}},
		{ItemId: 12, Genres: []string{"Action", "Drama"}},
		{ItemId: 13},
	})
	suite.NoError(err)
	// item 13 is unknown to the latent model
	suite.model = &cf.LatentFactorModel{
		GlobalBias: 3,
		UserBias:   []float32{0.5},
		ItemBias:   []float32{0, 0.25, -0.25},
		UserFactor: [][]float32{{1, 0}},
		ItemFactor: [][]float32{{1, 1}, {0, 1}, {0.5, 0}},
		UserIndex:  dataset.NewSortedIndex([]int64{1}),
		ItemIndex:  dataset.NewSortedIndex([]int64{10, 11, 12}),
	}
	suite.space, err = content.NewVectorizer(content.TagTokenizer).Fit(suite.items)
	suite.NoError(err)
}

func (suite *LogicsTestSuite) TestGenerate() {
	ctx := context.Background()
	generator, err := NewCandidateGenerator(suite.model, suite.ratings, suite.items.GetIndex())
	suite.NoError(err)

	// ties are broken by ascending item id
	candidates, err := generator.Generate(ctx, 1, nil, 10)
	suite.NoError(err)
	suite.Equal([]cf.Prediction{
		{UserId: 1, ItemId: 11, Score: 3.75},
		{UserId: 1, ItemId: 12, Score: 3.75},
		{UserId: 1, ItemId: 13, Score: 3.5},
	}, candidates)
	for _, candidate := range candidates {
		suite.Equal(suite.model.Predict(1, candidate.ItemId), candidate.Score)
	}
	candidates, err = generator.Generate(ctx, 1, nil, 1)
	suite.NoError(err)
	suite.Equal([]cf.Prediction{{UserId: 1, ItemId: 11, Score: 3.75}}, candidates)

	// unknown user falls back to item biases
	candidates, err = generator.Generate(ctx, 2, nil, 10)
	suite.NoError(err)
	suite.Equal([]cf.Prediction{
		{UserId: 2, ItemId: 11, Score: 3.25},
		{UserId: 2, ItemId: 10, Score: 3},
		{UserId: 2, ItemId: 13, Score: 3},
		{UserId: 2, ItemId: 12, Score: 2.75},
	}, candidates)

	// history is excluded as well
	candidates, err = generator.Generate(ctx, 2, []dataset.Rating{{UserId: 2, ItemId: 13, Rating: 1}, {UserId: 2, ItemId: 99, Rating: 3}}, 10)
	suite.NoError(err)
	suite.Equal([]int64{11, 10, 12}, lo.Map(candidates, func(p cf.Prediction, _ int) int64 { return p.ItemId }))

	candidates, err = generator.Generate(ctx, 1, nil, 0)
	suite.NoError(err)
	suite.Empty(candidates)

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = generator.Generate(cancelCtx, 1, nil, 10)
	suite.ErrorIs(err, context.Canceled)
}

func TestGenerate_RoundedTie(t *testing.T) {
	// item 2 has a larger bias, but both predictions round to 3.5 in float32
	model := &cf.LatentFactorModel{
		GlobalBias: 3.5,
		UserBias:   []float32{0},
		ItemBias:   []float32{0, 1e-7},
		UserFactor: [][]float32{{0}},
		ItemFactor: [][]float32{{0}, {0}},
		UserIndex:  dataset.NewSortedIndex([]int64{1}),
		ItemIndex:  dataset.NewSortedIndex([]int64{1, 2}),
	}
	assert.Equal(t, model.Predict(1, 1), model.Predict(1, 2))
	ratings, err := dataset.NewRatingCorpus(nil)
	assert.NoError(t, err)
	generator, err := NewCandidateGenerator(model, ratings, dataset.NewSortedIndex([]int64{1, 2}))
	assert.NoError(t, err)
	candidates, err := generator.Generate(context.Background(), 1, nil, 1)
	assert.NoError(t, err)
	assert.Equal(t, []cf.Prediction{{UserId: 1, ItemId: 1, Score: 3.5}}, candidates)
}

func (suite *LogicsTestSuite) TestRank() {
	ctx := context.Background()
	candidates := []cf.Prediction{
		{UserId: 1, ItemId: 11, Score: 3},
		{UserId: 1, ItemId: 12, Score: 2.9},
		{UserId: 1, ItemId: 13, Score: 2.5},
	}
	liked := []dataset.Rating{{UserId: 1, ItemId: 10, Rating: 5}, {UserId: 1, ItemId: 11, Rating: 1}}

	ranker := NewHybridRanker(suite.space, DefaultHybridConfig())
	scores, err := ranker.Rank(ctx, candidates, liked, 10)
	suite.NoError(err)
	suite.Equal([]int64{12, 11, 13}, lo.Map(scores, func(s Score, _ int) int64 { return s.ItemId }))
	suite.InDelta(0.5*2.9+0.5*math.Sqrt(0.5), scores[0].Score, 1e-6)
	suite.InDelta(1.5, scores[1].Score, 1e-6)
	suite.InDelta(1.25, scores[2].Score, 1e-6)

	scores, err = ranker.Rank(ctx, candidates, liked, 1)
	suite.NoError(err)
	suite.Len(scores, 1)

	// cold start keeps latent order and scores
	for _, history := range [][]dataset.Rating{nil, {{UserId: 1, ItemId: 10, Rating: 3}}} {
		scores, err = ranker.Rank(ctx, candidates, history, 2)
		suite.NoError(err)
		suite.Equal([]Score{{ItemId: 11, Score: 3}, {ItemId: 12, Score: 2.9}}, scores)
	}

	// latent only
	config := DefaultHybridConfig()
	config.BlendWeight = 1
	scores, err = NewHybridRanker(suite.space, config).Rank(ctx, candidates, liked, 10)
	suite.NoError(err)
	suite.Equal([]int64{11, 12, 13}, lo.Map(scores, func(s Score, _ int) int64 { return s.ItemId }))

	// content only, zero similarities tie by item id
	config.BlendWeight = 0
	scores, err = NewHybridRanker(suite.space, config).Rank(ctx, candidates, liked, 10)
	suite.NoError(err)
	suite.Equal([]int64{12, 11, 13}, lo.Map(scores, func(s Score, _ int) int64 { return s.ItemId }))

	// rated item missing from the catalogue
	_, err = ranker.Rank(ctx, candidates, []dataset.Rating{{UserId: 1, ItemId: 99, Rating: 2}}, 10)
	suite.ErrorIs(err, ErrDataIntegrity)
}

func (suite *LogicsTestSuite) TestProfile() {
	history := []dataset.Rating{
		{UserId: 1, ItemId: 10, Rating: 4},
		{UserId: 1, ItemId: 11, Rating: 5},
		{UserId: 1, ItemId: 12, Rating: 3},
	}
	profile, err := NewHybridRanker(suite.space, DefaultHybridConfig()).Profile(history)
	suite.NoError(err)
	suite.InDeltaSlice([]float32{0.5, 0.5}, profile, 1e-6)

	config := DefaultHybridConfig()
	config.NormalizeProfile = true
	profile, err = NewHybridRanker(suite.space, config).Profile(history)
	suite.NoError(err)
	suite.InDeltaSlice([]float32{float32(math.Sqrt(0.5)), float32(math.Sqrt(0.5))}, profile, 1e-6)

	config.LikeThreshold = 5
	profile, err = NewHybridRanker(suite.space, config).Profile(history)
	suite.NoError(err)
	suite.InDeltaSlice([]float32{0, 1}, profile, 1e-6)

	profile, err = NewHybridRanker(suite.space, DefaultHybridConfig()).Profile(nil)
	suite.NoError(err)
	suite.Nil(profile)
}

func (suite *LogicsTestSuite) TestItemToItem() {
	ctx := context.Background()
	itemToItem, err := NewItemToItem(suite.space)
	suite.NoError(err)

	scores, err := itemToItem.Search(ctx, 10, 1)
	suite.NoError(err)
	suite.Equal([]int64{12}, lo.Map(scores, func(s Score, _ int) int64 { return s.ItemId }))
	suite.InDelta(math.Sqrt(0.5), scores[0].Score, 1e-6)

	scores, err = itemToItem.Search(ctx, 10, 10)
	suite.NoError(err)
	suite.Equal([]int64{12, 11, 13}, lo.Map(scores, func(s Score, _ int) int64 { return s.ItemId }))
	suite.Zero(scores[1].Score)
	suite.Zero(scores[2].Score)

	// items without tags are similar to nothing
	scores, err = itemToItem.Search(ctx, 13, 2)
	suite.NoError(err)
	suite.Equal([]Score{{ItemId: 10}, {ItemId: 11}}, scores)

	_, err = itemToItem.Search(ctx, 99, 10)
	suite.True(errors.Is(err, errors.NotFound))

	scores, err = itemToItem.Search(ctx, 10, 0)
	suite.NoError(err)
	suite.Empty(scores)
}

func TestLogics(t *testing.T) {
	suite.Run(t, new(LogicsTestSuite))
}

func TestSortScores(t *testing.T) {
	scores := []Score{{3, 1}, {1, 2}, {2, 1}, {4, 0}}
	SortScores(scores)
	assert.Equal(t, []Score{{1, 2}, {2, 1}, {3, 1}, {4, 0}}, scores)
	assert.Equal(t, []Score{{1, 2}}, top(scores, 1))
	assert.Empty(t, top(scores, -1))
	assert.Len(t, top(scores, 10), 4)
}

func TestRecommendScenario(t *testing.T) {
	ctx := context.Background()
	ratings, err := dataset.NewRatingCorpus([]dataset.Rating{
		{UserId: 1, ItemId: 10, Rating: 5},
		{UserId: 1, ItemId: 11, Rating: 2},
		{UserId: 2, ItemId: 10, Rating: 4},
		{UserId: 2, ItemId: 12, Rating: 5},
	})
	assert.NoError(t, err)
	items, err := dataset.NewItemCorpus([]dataset.Item{
		{ItemId: 10, Genres: []string{"Action"}},
		{ItemId: 11, Genres: []string{"Drama"}},
		{ItemId: 12, Genres: []string{"Action", "Drama"}},
	})
	assert.NoError(t, err)
	m, err := cf.NewSVD(model.Params{model.NFactors: 4, model.RandomState: 42}).Fit(ctx, ratings, nil)
	assert.NoError(t, err)
	space, err := content.NewVectorizer(content.TagTokenizer).Fit(items)
	assert.NoError(t, err)

	generator, err := NewCandidateGenerator(m, ratings, items.GetIndex())
	assert.NoError(t, err)
	candidates, err := generator.Generate(ctx, 1, nil, 50)
	assert.NoError(t, err)
	scores, err := NewHybridRanker(space, DefaultHybridConfig()).Rank(ctx, candidates, ratings.GetUserRatings(1), 2)
	assert.NoError(t, err)
	assert.Equal(t, []int64{12}, lo.Map(scores, func(s Score, _ int) int64 { return s.ItemId }))
	assert.InDelta(t, 0.5*m.Predict(1, 12)+0.5*space.Similarity(10, 12), scores[0].Score, 1e-5)

	itemToItem, err := NewItemToItem(space)
	assert.NoError(t, err)
	neighbors, err := itemToItem.Search(ctx, 10, 1)
	assert.NoError(t, err)
	assert.Equal(t, []int64{12}, lo.Map(neighbors, func(s Score, _ int) int64 { return s.ItemId }))
}
