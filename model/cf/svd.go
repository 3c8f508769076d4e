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
	"fmt"
	"time"

	"github.com/cinerecs/cinerecs/base"
	"github.com/cinerecs/cinerecs/base/log"
	"github.com/cinerecs/cinerecs/base/progress"
	"github.com/cinerecs/cinerecs/common/floats"
	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/model"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// FitConfig controls the side effects of training.
type FitConfig struct {
	// Verbose is the number of epochs between two evaluation logs. Zero disables them.
	Verbose int
	// TestSet is evaluated along with the training set when not nil.
	TestSet *dataset.RatingCorpus
}

func NewFitConfig() *FitConfig {
	return &FitConfig{Verbose: 10}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetTestSet(testSet *dataset.RatingCorpus) *FitConfig {
	config.TestSet = testSet
	return config
}

// Trainer fits a LatentFactorModel on a rating corpus.
type Trainer interface {
	GetParams() model.Params
	SetParams(params model.Params)
	Fit(ctx context.Context, trainSet *dataset.RatingCorpus, config *FitConfig) (*LatentFactorModel, error)
}

// SVD is the biased matrix factorization trained by stochastic gradient descent. For each rating
// r(u,i) with error e = r(u,i) - predict(u,i) the parameters are updated by:
//
//	b_u += lr * (e - reg * b_u)
//	b_i += lr * (e - reg * b_i)
//	p_u += lr * (e * q_i - reg * p_u)
//	q_i += lr * (e * p_u - reg * q_i)
//
// Hyper-parameters:
//
//	NFactors    - The number of latent factors. Default is 100.
//	NEpochs     - The number of passes over the ratings. Default is 20.
//	Lr          - The learning rate of SGD. Default is 0.005.
//	Reg         - The regularization strength. Default is 0.02.
//	InitMean    - The mean of initial latent factors. Default is 0.
//	InitStdDev  - The standard deviation of initial latent factors. Default is 0.1.
//	RandomState - The seed of initialization and shuffling. Default is 0.
type SVD struct {
	params      model.Params
	nFactors    int
	nEpochs     int
	lr          float32
	reg         float32
	initMean    float32
	initStdDev  float32
	randomState int64
}

// NewSVD creates a SVD trainer.
func NewSVD(params model.Params) *SVD {
	svd := new(SVD)
	svd.SetParams(params)
	return svd
}

func (svd *SVD) SetParams(params model.Params) {
	svd.params = params.Copy()
	svd.nFactors = svd.params.GetInt(model.NFactors, 100)
	svd.nEpochs = svd.params.GetInt(model.NEpochs, 20)
	svd.lr = svd.params.GetFloat32(model.Lr, 0.005)
	svd.reg = svd.params.GetFloat32(model.Reg, 0.02)
	svd.initMean = svd.params.GetFloat32(model.InitMean, 0)
	svd.initStdDev = svd.params.GetFloat32(model.InitStdDev, 0.1)
	svd.randomState = svd.params.GetInt64(model.RandomState, 0)
}

// GetParams returns the effective hyper-parameters, defaults included.
func (svd *SVD) GetParams() model.Params {
	return model.Params{
		model.NFactors:    svd.nFactors,
		model.NEpochs:     svd.nEpochs,
		model.Lr:          svd.lr,
		model.Reg:         svd.reg,
		model.InitMean:    svd.initMean,
		model.InitStdDev:  svd.initStdDev,
		model.RandomState: svd.randomState,
	}
}

// Fit trains a model. The result is a pure function of the corpus and the hyper-parameters.
func (svd *SVD) Fit(ctx context.Context, trainSet *dataset.RatingCorpus, config *FitConfig) (*LatentFactorModel, error) {
	if config == nil {
		config = NewFitConfig()
	}
	nUsers := int(trainSet.GetUserIndex().Len())
	nItems := int(trainSet.GetItemIndex().Len())
	if nUsers < 2 || nItems < 2 {
		return nil, errors.Annotatef(ErrInsufficientData, "%d distinct users and %d distinct items", nUsers, nItems)
	}
	log.Logger().Info("fit svd",
		append([]zap.Field{
			zap.Int("n_ratings", trainSet.Count()),
			zap.Int("n_users", nUsers),
			zap.Int("n_items", nItems),
		}, svd.GetParams().ZapFields()...)...)

	m := &LatentFactorModel{
		Params:     svd.GetParams(),
		GlobalBias: trainSet.GlobalMean(),
		UserBias:   make([]float32, nUsers),
		ItemBias:   make([]float32, nItems),
		UserIndex:  trainSet.GetUserIndex(),
		ItemIndex:  trainSet.GetItemIndex(),
	}
	rng := base.NewRandomGenerator(svd.randomState)
	m.UserFactor = rng.NormalMatrix(nUsers, svd.nFactors, svd.initMean, svd.initStdDev)
	m.ItemFactor = rng.NormalMatrix(nItems, svd.nFactors, svd.initMean, svd.initStdDev)

	_, span := progress.Start(ctx, "SVD.Fit", svd.nEpochs)
	userFactor := make([]float32, svd.nFactors)
	shrink := 1 - svd.lr*svd.reg
	for epoch := 1; epoch <= svd.nEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			span.Fail(err)
			return nil, errors.Trace(err)
		}
		fitStart := time.Now()
		for _, i := range rng.Perm(trainSet.Count()) {
			u, it, r := trainSet.Get(i)
			diff := r - m.internalPredict(u, it)
			m.UserBias[u] += svd.lr * (diff - svd.reg*m.UserBias[u])
			m.ItemBias[it] += svd.lr * (diff - svd.reg*m.ItemBias[it])
			// q_i is updated with the previous p_u
			copy(userFactor, m.UserFactor[u])
			floats.MulConst(m.UserFactor[u], shrink)
			floats.MulConstAdd(m.ItemFactor[it], svd.lr*diff, m.UserFactor[u])
			floats.MulConst(m.ItemFactor[it], shrink)
			floats.MulConstAdd(userFactor, svd.lr*diff, m.ItemFactor[it])
		}
		span.Add(1)
		if config.Verbose > 0 && epoch%config.Verbose == 0 {
			fields := []zap.Field{
				zap.String("fit_time", time.Since(fitStart).String()),
				zap.Float32("train_rmse", Evaluate(m, trainSet).RMSE),
			}
			if config.TestSet != nil {
				score := Evaluate(m, config.TestSet)
				fields = append(fields, zap.Float32("test_rmse", score.RMSE), zap.Float32("test_mae", score.MAE))
			}
			log.Logger().Info(fmt.Sprintf("fit svd %v/%v", epoch, svd.nEpochs), fields...)
		}
	}
	span.End()
	log.Logger().Info("fit svd complete", zap.Float32("train_rmse", Evaluate(m, trainSet).RMSE))
	return m, nil
}
