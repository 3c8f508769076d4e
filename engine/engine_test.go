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

package engine

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/cinerecs/cinerecs/config"
	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/logics"
	"github.com/cinerecs/cinerecs/model"
	"github.com/cinerecs/cinerecs/storage/blob"
	"github.com/jaswdr/faker"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

var genres = []string{"Action", "Adventure", "Animation", "Comedy", "Crime", "Drama", "Horror", "Romance", "Sci-Fi", "Thriller"}

// fakeCorpora generates a catalogue where users prefer a few genres and rate them higher.
func fakeCorpora(t *testing.T, nUsers, nItems, nRatingsPerUser int) ([]dataset.Rating, []dataset.Item) {
	fake := faker.NewWithSeed(rand.NewSource(42))
	items := make([]dataset.Item, nItems)
	for i := range items {
		items[i] = dataset.Item{
			ItemId: int64(i + 1),
			Title:  fake.Lorem().Sentence(3),
			Genres: lo.Uniq([]string{
				genres[fake.IntBetween(0, len(genres)-1)],
				genres[fake.IntBetween(0, len(genres)-1)],
			}),
		}
	}
	var ratings []dataset.Rating
	for u := 1; u <= nUsers; u++ {
		favorite := genres[u%len(genres)]
		rated := make(map[int64]struct{})
		for len(rated) < nRatingsPerUser {
			item := items[fake.IntBetween(0, nItems-1)]
			if _, exist := rated[item.ItemId]; exist {
				continue
			}
			rated[item.ItemId] = struct{}{}
			rating := fake.IntBetween(1, 3)
			if lo.Contains(item.Genres, favorite) {
				rating += 2
			}
			ratings = append(ratings, dataset.Rating{
				UserId:    int64(u),
				ItemId:    item.ItemId,
				Rating:    rating,
				Timestamp: int64(fake.IntBetween(874724710, 893286638)),
			})
		}
	}
	assert.NotEmpty(t, ratings)
	return ratings, items
}

func newTestConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Training.NFactors = 4
	cfg.Training.NEpochs = 10
	cfg.Training.RandomState = 42
	cfg.Training.Verbose = 0
	return cfg
}

func scenarioCorpora(t *testing.T) (*dataset.RatingCorpus, *dataset.ItemCorpus) {
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
	return ratings, items
}

func TestTrain_Deterministic(t *testing.T) {
	ratings, items := fakeCorpora(t, 30, 40, 10)
	ratingCorpus, err := dataset.NewRatingCorpus(ratings)
	assert.NoError(t, err)
	itemCorpus, err := dataset.NewItemCorpus(items)
	assert.NoError(t, err)
	cfg := newTestConfig()
	model1, space1, err := Train(context.Background(), ratingCorpus, itemCorpus, cfg)
	assert.NoError(t, err)
	model2, space2, err := Train(context.Background(), ratingCorpus, itemCorpus, cfg)
	assert.NoError(t, err)
	assert.Equal(t, model1, model2)
	assert.Equal(t, space1, space2)
	assert.Equal(t, 4, model1.NFactors())
	assert.Equal(t, 40, space1.Len())

	// invalid tokenizer
	cfg.Content.Tokenizer = "stems"
	_, _, err = Train(context.Background(), ratingCorpus, itemCorpus, cfg)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestArtifacts(t *testing.T) {
	ratings, items := scenarioCorpora(t)
	model, space, err := Train(context.Background(), ratings, items, newTestConfig())
	assert.NoError(t, err)
	store := blob.NewPOSIX(t.TempDir())
	ctx := context.Background()

	// missing artifacts
	_, _, err = LoadModel(ctx, store)
	assert.True(t, errors.Is(err, errors.NotFound))
	_, _, err = LoadVectorSpace(ctx, store)
	assert.True(t, errors.Is(err, errors.NotFound))

	generation, err := SaveArtifacts(ctx, store, model, space)
	assert.NoError(t, err)
	assert.NotEmpty(t, generation)
	names, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{ModelName, VectorSpaceName}, names)

	loadedModel, loadedSpace, loadedGeneration, err := LoadArtifacts(ctx, store)
	assert.NoError(t, err)
	assert.Equal(t, generation, loadedGeneration)
	assert.Equal(t, model, loadedModel)
	assert.Equal(t, space.Vocabulary, loadedSpace.Vocabulary)
	assert.Equal(t, space.IDF, loadedSpace.IDF)
	assert.Equal(t, space.Vectors, loadedSpace.Vectors)
	assert.Equal(t, space.Index.GetIds(), loadedSpace.Index.GetIds())
	assert.Equal(t, model.Predict(1, 12), loadedModel.Predict(1, 12))
}

func TestArtifacts_MixedGenerations(t *testing.T) {
	ratings, items := scenarioCorpora(t)
	model, space, err := Train(context.Background(), ratings, items, newTestConfig())
	assert.NoError(t, err)
	store := blob.NewPOSIX(t.TempDir())
	ctx := context.Background()
	generation, err := SaveArtifacts(ctx, store, model, space)
	assert.NoError(t, err)

	// the next run has replaced the model but not yet the vector space
	assert.NoError(t, SaveModel(ctx, store, "next", model))
	_, modelGeneration, err := LoadModel(ctx, store)
	assert.NoError(t, err)
	assert.Equal(t, "next", modelGeneration)
	_, spaceGeneration, err := LoadVectorSpace(ctx, store)
	assert.NoError(t, err)
	assert.Equal(t, generation, spaceGeneration)
	_, _, _, err = LoadArtifacts(ctx, store)
	assert.True(t, errors.Is(err, errors.NotValid))

	// the pair is consistent again once the run finishes
	assert.NoError(t, SaveVectorSpace(ctx, store, "next", space))
	_, _, loadedGeneration, err := LoadArtifacts(ctx, store)
	assert.NoError(t, err)
	assert.Equal(t, "next", loadedGeneration)
}

func TestSnapshot_Scenario(t *testing.T) {
	ratings, items := scenarioCorpora(t)
	cfg := newTestConfig()
	model, space, err := Train(context.Background(), ratings, items, cfg)
	assert.NoError(t, err)
	snapshot, err := NewSnapshot(model, space, ratings, cfg.Recommend, nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, snapshot.Version)
	ctx := context.Background()

	recommendations, err := snapshot.GetRecommendations(ctx, 1, 2)
	assert.NoError(t, err)
	assert.Equal(t, []int64{12}, lo.Map(recommendations, func(s logics.Score, _ int) int64 { return s.ItemId }))

	// an unknown user has no history and gets every item
	recommendations, err = snapshot.GetRecommendations(ctx, 3, 10)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int64{10, 11, 12}, lo.Map(recommendations, func(s logics.Score, _ int) int64 { return s.ItemId }))

	recommendations, err = snapshot.GetRecommendations(ctx, 1, 0)
	assert.NoError(t, err)
	assert.Empty(t, recommendations)

	neighbors, err := snapshot.GetSimilarItems(ctx, 10, 1)
	assert.NoError(t, err)
	assert.Equal(t, []int64{12}, lo.Map(neighbors, func(s logics.Score, _ int) int64 { return s.ItemId }))

	_, err = snapshot.GetSimilarItems(ctx, 99, 1)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestSnapshot_Warmup(t *testing.T) {
	ratings, items := fakeCorpora(t, 30, 40, 10)
	ratingCorpus, err := dataset.NewRatingCorpus(ratings)
	assert.NoError(t, err)
	itemCorpus, err := dataset.NewItemCorpus(items)
	assert.NoError(t, err)
	cfg := newTestConfig()
	model, space, err := Train(context.Background(), ratingCorpus, itemCorpus, cfg)
	assert.NoError(t, err)
	snapshot, err := NewSnapshot(model, space, ratingCorpus, cfg.Recommend, nil)
	assert.NoError(t, err)

	userIds := ratingCorpus.GetUserIndex().GetIds()
	results, err := snapshot.Warmup(context.Background(), userIds, 10, 4)
	assert.NoError(t, err)
	assert.Len(t, results, len(userIds))
	for i, userId := range userIds {
		expected, err := snapshot.GetRecommendations(context.Background(), userId, 10)
		assert.NoError(t, err)
		assert.Equal(t, expected, results[i])
		rated := ratingCorpus.GetRatedItems(userId)
		for _, score := range results[i] {
			assert.False(t, rated.Contains(score.ItemId), fmt.Sprintf("user %d rated item %d", userId, score.ItemId))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = snapshot.Warmup(ctx, userIds, 10, 4)
	assert.Error(t, err)
}

func TestTune(t *testing.T) {
	ratings, _ := fakeCorpora(t, 30, 40, 10)
	corpus, err := dataset.NewRatingCorpus(ratings)
	assert.NoError(t, err)
	cfg := newTestConfig()
	cfg.Tuning.NTrials = 3
	result, err := Tune(context.Background(), corpus, cfg)
	assert.NoError(t, err)
	assert.NotNil(t, result.Model)
	assert.Less(t, result.Score.RMSE, float32(5))
	assert.Contains(t, result.Params, model.NFactors)
}

type EngineTestSuite struct {
	suite.Suite
	engine *Engine
}

func (suite *EngineTestSuite) SetupTest() {
	dir := suite.T().TempDir()
	cfg := newTestConfig()
	cfg.Database.DataStore = "sqlite://" + filepath.Join(dir, "data.db")
	cfg.Database.CacheStore = "memory://"
	cfg.Blob.URI = filepath.Join(dir, "models")
	suite.engine = NewEngine(cfg)
	suite.NoError(suite.engine.Open(context.Background()))
}

func (suite *EngineTestSuite) TearDownTest() {
	suite.engine.Close()
}

func (suite *EngineTestSuite) TestTrainAndLoad() {
	ctx := context.Background()
	ratings, items := fakeCorpora(suite.T(), 20, 30, 8)
	suite.NoError(suite.engine.DataClient.BatchInsertRatings(ctx, ratings))
	suite.NoError(suite.engine.DataClient.BatchInsertItems(ctx, items))

	model, space, err := suite.engine.Train(ctx)
	suite.NoError(err)
	suite.Equal(30, space.Len())

	snapshot, err := suite.engine.Load(ctx)
	suite.NoError(err)
	suite.Equal(model, snapshot.Model)
	recommendations, err := snapshot.GetRecommendations(ctx, 1, 5)
	suite.NoError(err)
	suite.Len(recommendations, 5)
	neighbors, err := snapshot.GetSimilarItems(ctx, 1, 5)
	suite.NoError(err)
	suite.Len(neighbors, 5)

	progress := suite.engine.Tracer.List()
	suite.NotEmpty(progress)
	suite.Equal("Train", progress[0].Name)
}

func (suite *EngineTestSuite) TestLiveHistory() {
	ctx := context.Background()
	ratings, items := fakeCorpora(suite.T(), 20, 30, 8)
	suite.NoError(suite.engine.DataClient.BatchInsertRatings(ctx, ratings))
	suite.NoError(suite.engine.DataClient.BatchInsertItems(ctx, items))
	_, _, err := suite.engine.Train(ctx)
	suite.NoError(err)

	suite.engine.Config.Recommend.LiveHistory = true
	snapshot, err := suite.engine.Load(ctx)
	suite.NoError(err)
	before, err := snapshot.GetRecommendations(ctx, 1, 1)
	suite.NoError(err)
	suite.Len(before, 1)

	// a rating given after loading is excluded right away
	suite.NoError(suite.engine.DataClient.BatchInsertRatings(ctx, []dataset.Rating{
		{UserId: 1, ItemId: before[0].ItemId, Rating: 1},
	}))
	after, err := snapshot.GetRecommendations(ctx, 1, 1)
	suite.NoError(err)
	suite.Len(after, 1)
	suite.NotEqual(before[0].ItemId, after[0].ItemId)
}

func (suite *EngineTestSuite) TestLoadWithoutModels() {
	_, err := suite.engine.Load(context.Background())
	suite.True(errors.Is(err, errors.NotFound))
}

func (suite *EngineTestSuite) TestLoadMixedGenerations() {
	ctx := context.Background()
	ratings, items := fakeCorpora(suite.T(), 20, 30, 8)
	suite.NoError(suite.engine.DataClient.BatchInsertRatings(ctx, ratings))
	suite.NoError(suite.engine.DataClient.BatchInsertItems(ctx, items))
	model, space, err := suite.engine.Train(ctx)
	suite.NoError(err)
	loaded, err := suite.engine.Load(ctx)
	suite.NoError(err)
	suite.NotEmpty(loaded.Generation)

	suite.NoError(SaveModel(ctx, suite.engine.BlobStore, "uploading", model))
	_, err = suite.engine.Load(ctx)
	suite.True(errors.Is(err, errors.NotValid))

	suite.NoError(SaveVectorSpace(ctx, suite.engine.BlobStore, "uploading", space))
	loaded, err = suite.engine.Load(ctx)
	suite.NoError(err)
	suite.Equal("uploading", loaded.Generation)
}

func (suite *EngineTestSuite) TestTrainWithoutRatings() {
	_, _, err := suite.engine.Train(context.Background())
	suite.Error(err)
}

func TestEngine(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func TestEngine_OpenUnsupported(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Database.DataStore = "cassandra://localhost:9042"
	engine := NewEngine(cfg)
	err := engine.Open(context.Background())
	assert.True(t, errors.Is(err, errors.NotSupported))
	engine.Close()
}
