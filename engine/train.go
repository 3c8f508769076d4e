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

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/cinerecs/cinerecs/base/log"
	"github.com/cinerecs/cinerecs/base/progress"
	"github.com/cinerecs/cinerecs/config"
	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/model/cf"
	"github.com/cinerecs/cinerecs/model/content"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Train fits the latent factor model on ratings and the genre vector space on items. The result
// only depends on the corpora and the configuration.
func Train(ctx context.Context, ratings *dataset.RatingCorpus, items *dataset.ItemCorpus, cfg *config.Config) (*cf.LatentFactorModel, *content.VectorSpace, error) {
	ctx, span := progress.Start(ctx, "Train", 2)
	tokenizer, err := content.ParseTokenizer(cfg.Content.Tokenizer)
	if err != nil {
		span.Fail(err)
		return nil, nil, errors.Trace(err)
	}
	var trainer cf.Trainer = cf.NewSVD(cfg.Training.Params())
	model, err := trainer.Fit(ctx, ratings, cf.NewFitConfig().SetVerbose(cfg.Training.Verbose))
	if err != nil {
		span.Fail(err)
		return nil, nil, errors.Trace(err)
	}
	span.Add(1)
	space, err := content.NewVectorizer(tokenizer).Fit(items)
	if err != nil {
		span.Fail(err)
		return nil, nil, errors.Trace(err)
	}
	span.End()
	return model, space, nil
}

// Train fits models on the data store and saves them to the blob store.
func (e *Engine) Train(ctx context.Context) (*cf.LatentFactorModel, *content.VectorSpace, error) {
	ctx, span := e.Tracer.Start(ctx, "Train", 3)
	defer span.End()
	ratings, items, err := e.LoadCorpora(ctx)
	if err != nil {
		span.Fail(err)
		return nil, nil, errors.Trace(err)
	}
	span.Add(1)
	model, space, err := Train(ctx, ratings, items, e.Config)
	if err != nil {
		span.Fail(err)
		return nil, nil, errors.Trace(err)
	}
	span.Add(1)
	generation, err := SaveArtifacts(ctx, e.BlobStore, model, space)
	if err != nil {
		span.Fail(err)
		return nil, nil, errors.Trace(err)
	}
	log.Logger().Info("save models",
		zap.String("generation", generation),
		zap.String("model", ModelName),
		zap.String("vector_space", VectorSpaceName))
	return model, space, nil
}

// Tune searches hyper-parameters of the latent factor model. Ratings are split into a training
// set and a held-out set scored by RMSE.
func Tune(ctx context.Context, ratings *dataset.RatingCorpus, cfg *config.Config) (cf.SearchResult, error) {
	trainSet, testSet, err := ratings.Split(cfg.Tuning.TestRatio, cfg.Training.RandomState)
	if err != nil {
		return cf.SearchResult{}, errors.Trace(err)
	}
	search := cf.NewModelSearch(ctx, cfg.Training.Params(), trainSet, testSet, cf.NewFitConfig().SetVerbose(0))
	study, err := goptuna.CreateStudy("cinerecs",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMinimize),
		goptuna.StudyOptionSampler(tpe.NewSampler(tpe.SamplerOptionSeed(cfg.Training.RandomState))))
	if err != nil {
		return cf.SearchResult{}, errors.Trace(err)
	}
	if err = study.Optimize(search.Objective, cfg.Tuning.NTrials); err != nil {
		return cf.SearchResult{}, errors.Trace(err)
	}
	result := search.Result()
	log.Logger().Info("complete hyper-parameter search",
		append([]zap.Field{zap.Float32("rmse", result.Score.RMSE)}, result.Params.ZapFields()...)...)
	return result, nil
}
