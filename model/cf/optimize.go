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

package cf

import (
	"context"
	"math"
	"sync"

	"github.com/c-bata/goptuna"
	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// SuggestParams draws SVD hyper-parameters from a trial.
func SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NFactors:   lo.Must(trial.SuggestInt(string(model.NFactors), 8, 128)),
		model.Lr:         lo.Must(trial.SuggestLogFloat(string(model.Lr), 0.001, 0.05)),
		model.Reg:        lo.Must(trial.SuggestLogFloat(string(model.Reg), 0.001, 0.2)),
		model.InitStdDev: lo.Must(trial.SuggestLogFloat(string(model.InitStdDev), 0.01, 0.5)),
	}
}

// SearchResult is the best model found by a search.
type SearchResult struct {
	Params model.Params
	Score  Score
	Model  *LatentFactorModel
}

// ModelSearch is the objective of a hyper-parameter study: fit SVD on the training set and
// minimize RMSE on the test set. Parameters not suggested by the trial come from base.
type ModelSearch struct {
	ctx      context.Context
	base     model.Params
	trainSet *dataset.RatingCorpus
	testSet  *dataset.RatingCorpus
	config   *FitConfig

	mu     sync.Mutex
	result SearchResult
}

func NewModelSearch(ctx context.Context, base model.Params, trainSet, testSet *dataset.RatingCorpus, config *FitConfig) *ModelSearch {
	return &ModelSearch{
		ctx:      ctx,
		base:     base,
		trainSet: trainSet,
		testSet:  testSet,
		config:   config,
		result:   SearchResult{Score: Score{RMSE: math.MaxFloat32}},
	}
}

func (ms *ModelSearch) Objective(trial goptuna.Trial) (float64, error) {
	params := ms.base.Overwrite(SuggestParams(trial))
	svd := NewSVD(params)
	m, err := svd.Fit(ms.ctx, ms.trainSet, ms.config)
	if err != nil {
		return 0, errors.Trace(err)
	}
	score := Evaluate(m, ms.testSet)
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if score.RMSE < ms.result.Score.RMSE {
		ms.result = SearchResult{Params: svd.GetParams(), Score: score, Model: m}
	}
	return float64(score.RMSE), nil
}

func (ms *ModelSearch) Result() SearchResult {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.result
}
