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
	"encoding/binary"
	"io"

	"github.com/cinerecs/cinerecs/base/encoding"
	"github.com/cinerecs/cinerecs/common/floats"
	"github.com/cinerecs/cinerecs/dataset"
	"github.com/cinerecs/cinerecs/model"
	"github.com/juju/errors"
)

// ErrInsufficientData is returned when a corpus is too small to train a latent factor model.
const ErrInsufficientData = errors.ConstError("insufficient training data")

// Prediction is the output of a latent factor model, decoupled from the estimator producing it.
type Prediction struct {
	UserId int64
	ItemId int64
	Score  float32
}

// LatentFactorModel is a trained biased matrix factorization:
//
//	r(u,i) = GlobalBias + UserBias[u] + ItemBias[i] + <UserFactor[u], ItemFactor[i]>
//
// Rows of user parameters follow UserIndex and rows of item parameters follow ItemIndex.
// A model is immutable once returned by a trainer.
type LatentFactorModel struct {
	Params     model.Params
	GlobalBias float32
	UserBias   []float32
	ItemBias   []float32
	UserFactor [][]float32
	ItemFactor [][]float32
	UserIndex  *dataset.Index
	ItemIndex  *dataset.Index
}

// NFactors returns the number of latent factors.
func (m *LatentFactorModel) NFactors() int {
	if len(m.ItemFactor) > 0 {
		return len(m.ItemFactor[0])
	}
	if len(m.UserFactor) > 0 {
		return len(m.UserFactor[0])
	}
	return 0
}

// IsUserKnown returns true if the user took part in training.
func (m *LatentFactorModel) IsUserKnown(userId int64) bool {
	return m.UserIndex.ToNumber(userId) != dataset.NotId
}

// Predict the rating of a user on an item. Unknown users and items contribute neither bias
// nor factors, so an unknown user gets GlobalBias + ItemBias.
func (m *LatentFactorModel) Predict(userId, itemId int64) float32 {
	return m.internalPredict(m.UserIndex.ToNumber(userId), m.ItemIndex.ToNumber(itemId))
}

func (m *LatentFactorModel) internalPredict(userIndex, itemIndex int32) float32 {
	ret := m.GlobalBias
	if userIndex != dataset.NotId {
		ret += m.UserBias[userIndex]
	}
	if itemIndex != dataset.NotId {
		ret += m.ItemBias[itemIndex]
	}
	if userIndex != dataset.NotId && itemIndex != dataset.NotId {
		ret += floats.Dot(m.UserFactor[userIndex], m.ItemFactor[itemIndex])
	}
	return ret
}

// UserQuery returns the query vector [p_u, GlobalBias + b_u]. Unknown users get a zero factor and
// GlobalBias alone.
func (m *LatentFactorModel) UserQuery(userId int64) []float32 {
	query := make([]float32, m.NFactors()+1)
	query[len(query)-1] = m.GlobalBias
	if u := m.UserIndex.ToNumber(userId); u != dataset.NotId {
		copy(query, m.UserFactor[u])
		query[len(query)-1] += m.UserBias[u]
	}
	return query
}

// ScoreQuery scores a UserQuery against an ItemVector. Terms are added in the order Predict adds
// them, so the result equals Predict bit for bit.
func ScoreQuery(query, item []float32) float32 {
	k := len(query) - 1
	ret := query[k] + item[k]
	return ret + floats.Dot(query[:k], item[:k])
}

// ItemVector returns [q_i, b_i]. Items unknown to the model get a zero vector.
func (m *LatentFactorModel) ItemVector(itemId int64) []float32 {
	vec := make([]float32, m.NFactors()+1)
	if i := m.ItemIndex.ToNumber(itemId); i != dataset.NotId {
		copy(vec, m.ItemFactor[i])
		vec[len(vec)-1] = m.ItemBias[i]
	}
	return vec
}

// Marshal model into byte stream.
func (m *LatentFactorModel) Marshal(w io.Writer) error {
	if err := encoding.WriteGob(w, m.Params); err != nil {
		return errors.Trace(err)
	}
	if err := m.UserIndex.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := m.ItemIndex.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(m.NFactors())); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.GlobalBias); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.UserBias); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.ItemBias); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, m.UserFactor); err != nil {
		return errors.Trace(err)
	}
	return encoding.WriteMatrix(w, m.ItemFactor)
}

// Unmarshal model from byte stream.
func (m *LatentFactorModel) Unmarshal(r io.Reader) error {
	if err := encoding.ReadGob(r, &m.Params); err != nil {
		return errors.Trace(err)
	}
	var err error
	if m.UserIndex, err = dataset.UnmarshalIndex(r); err != nil {
		return errors.Trace(err)
	}
	if m.ItemIndex, err = dataset.UnmarshalIndex(r); err != nil {
		return errors.Trace(err)
	}
	var nFactors int32
	if err = binary.Read(r, binary.LittleEndian, &nFactors); err != nil {
		return errors.Trace(err)
	}
	if nFactors < 0 {
		return errors.NotValidf("number of factors %d", nFactors)
	}
	if err = binary.Read(r, binary.LittleEndian, &m.GlobalBias); err != nil {
		return errors.Trace(err)
	}
	m.UserBias = make([]float32, m.UserIndex.Len())
	if err = binary.Read(r, binary.LittleEndian, m.UserBias); err != nil {
		return errors.Trace(err)
	}
	m.ItemBias = make([]float32, m.ItemIndex.Len())
	if err = binary.Read(r, binary.LittleEndian, m.ItemBias); err != nil {
		return errors.Trace(err)
	}
	m.UserFactor = newMatrix(int(m.UserIndex.Len()), int(nFactors))
	if err = encoding.ReadMatrix(r, m.UserFactor); err != nil {
		return errors.Trace(err)
	}
	m.ItemFactor = newMatrix(int(m.ItemIndex.Len()), int(nFactors))
	return errors.Trace(encoding.ReadMatrix(r, m.ItemFactor))
}

func newMatrix(row, col int) [][]float32 {
	m := make([][]float32, row)
	for i := range m {
		m[i] = make([]float32, col)
	}
	return m
}

const modelName = "svd"

// MarshalModel writes a model with its format name.
func MarshalModel(w io.Writer, m *LatentFactorModel) error {
	if err := encoding.WriteString(w, modelName); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(m.Marshal(w))
}

// UnmarshalModel reads a model written by MarshalModel.
func UnmarshalModel(r io.Reader) (*LatentFactorModel, error) {
	name, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if name != modelName {
		return nil, errors.NotValidf("model %q", name)
	}
	var m LatentFactorModel
	if err = m.Unmarshal(r); err != nil {
		return nil, errors.Trace(err)
	}
	return &m, nil
}
