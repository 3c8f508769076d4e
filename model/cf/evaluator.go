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
	"github.com/chewxy/math32"
	"github.com/cinerecs/cinerecs/dataset"
)

// Score is the accuracy of rating prediction.
type Score struct {
	RMSE float32
	MAE  float32
}

// Evaluate computes RMSE and MAE of a model on a rating corpus. Ratings of users or items unknown
// to the model are predicted with the fallback biases.
func Evaluate(m *LatentFactorModel, testSet *dataset.RatingCorpus) Score {
	if testSet.Count() == 0 {
		return Score{}
	}
	var sumSquare, sumAbs float32
	for _, rating := range testSet.GetRatings() {
		diff := float32(rating.Rating) - m.Predict(rating.UserId, rating.ItemId)
		sumSquare += diff * diff
		sumAbs += math32.Abs(diff)
	}
	n := float32(testSet.Count())
	return Score{
		RMSE: math32.Sqrt(sumSquare / n),
		MAE:  sumAbs / n,
	}
}
