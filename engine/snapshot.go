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

	"github.com/cinerecs/cinerecs/common/parallel"
	"github.com/cinerecs/cinerecs/config"
	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/logics"
	"github.com/cinerecs/cinerecs/model/cf"
	"github.com/cinerecs/cinerecs/model/content"
	"github.com/google/uuid"
	"github.com/juju/errors"
)

// HistoryFunc returns the ratings of a user.
type HistoryFunc func(ctx context.Context, userId int64) ([]dataset.Rating, error)

// Snapshot serves recommendations from one generation of models. It is immutable and safe for
// concurrent use.
type Snapshot struct {
	Version string
	// Generation of the training run whose artifacts were loaded. Empty for in-memory models.
	Generation string
	Model      *cf.LatentFactorModel
	Space      *content.VectorSpace
	Ratings    *dataset.RatingCorpus

	config     config.RecommendConfig
	history    HistoryFunc
	candidates *logics.CandidateGenerator
	ranker     *logics.HybridRanker
	neighbors  *logics.ItemToItem
}

// NewSnapshot assembles the serving pipeline. The catalogue is the item index of the vector space.
// Histories come from ratings unless history is given.
func NewSnapshot(model *cf.LatentFactorModel, space *content.VectorSpace, ratings *dataset.RatingCorpus,
	cfg config.RecommendConfig, history HistoryFunc) (*Snapshot, error) {
	candidates, err := logics.NewCandidateGenerator(model, ratings, space.Index)
	if err != nil {
		return nil, errors.Trace(err)
	}
	neighbors, err := logics.NewItemToItem(space)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if history == nil {
		history = func(_ context.Context, userId int64) ([]dataset.Rating, error) {
			return ratings.GetUserRatings(userId), nil
		}
	}
	return &Snapshot{
		Version:    uuid.NewString(),
		Model:      model,
		Space:      space,
		Ratings:    ratings,
		config:     cfg,
		history:    history,
		candidates: candidates,
		ranker: logics.NewHybridRanker(space, logics.HybridConfig{
			BlendWeight:      cfg.BlendWeight,
			LikeThreshold:    cfg.LikeThreshold,
			NormalizeProfile: cfg.NormalizeProfile,
		}),
		neighbors: neighbors,
	}, nil
}

// GetRecommendations returns the top n items for a user. Candidates are generated by the latent
// factor model and re-ranked with the genre profile of the user. Users without liked items get the
// candidates as they are.
func (s *Snapshot) GetRecommendations(ctx context.Context, userId int64, n int) ([]logics.Score, error) {
	if n <= 0 {
		return []logics.Score{}, nil
	}
	history, err := s.history(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	candidates, err := s.candidates.Generate(ctx, userId, history, max(s.config.CandidateCount, n))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return s.ranker.Rank(ctx, candidates, history, n)
}

// GetSimilarItems returns the n items with the most similar genres.
func (s *Snapshot) GetSimilarItems(ctx context.Context, itemId int64, n int) ([]logics.Score, error) {
	return s.neighbors.Search(ctx, itemId, n)
}

// Warmup computes recommendations for many users on nJobs goroutines. Results follow the order of
// userIds.
func (s *Snapshot) Warmup(ctx context.Context, userIds []int64, n, nJobs int) ([][]logics.Score, error) {
	results := make([][]logics.Score, len(userIds))
	err := parallel.Parallel(ctx, len(userIds), nJobs, func(_, jobId int) error {
		scores, err := s.GetRecommendations(ctx, userIds[jobId], n)
		if err != nil {
			return errors.Annotatef(err, "user %d", userIds[jobId])
		}
		results[jobId] = scores
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return results, nil
}

// Load reads models from the blob store and ratings from the data store.
func (e *Engine) Load(ctx context.Context) (*Snapshot, error) {
	ctx, span := e.Tracer.Start(ctx, "Load", 3)
	defer span.End()
	model, space, generation, err := LoadArtifacts(ctx, e.BlobStore)
	if err != nil {
		span.Fail(err)
		return nil, errors.Trace(err)
	}
	span.Add(2)
	ratings, err := e.DataClient.GetRatings(ctx)
	if err != nil {
		span.Fail(err)
		return nil, errors.Trace(err)
	}
	corpus, err := dataset.NewRatingCorpus(ratings)
	if err != nil {
		span.Fail(err)
		return nil, errors.Trace(err)
	}
	var history HistoryFunc
	if e.Config.Recommend.LiveHistory {
		history = e.DataClient.GetUserRatings
	}
	snapshot, err := NewSnapshot(model, space, corpus, e.Config.Recommend, history)
	if err != nil {
		span.Fail(err)
		return nil, errors.Trace(err)
	}
	snapshot.Generation = generation
	return snapshot, nil
}
