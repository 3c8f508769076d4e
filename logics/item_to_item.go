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

	"github.com/cinerecs/cinerecs/common/ann"
	"github.com/cinerecs/cinerecs/common/floats"
	"github.com/cinerecs/cinerecs/model/content"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// ItemToItem finds the catalogue items closest to an item in the content vector space. Rows are
// unit vectors, so the inner product is the cosine similarity.
type ItemToItem struct {
	space *content.VectorSpace
	index ann.Index
}

func NewItemToItem(space *content.VectorSpace) (*ItemToItem, error) {
	index := ann.NewBruteforce(floats.Dot)
	for _, vec := range space.Vectors {
		if _, err := index.Add(vec); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return &ItemToItem{space: space, index: index}, nil
}

// Search returns the n most similar items, the item itself excluded. Unknown items are NotFound.
func (i *ItemToItem) Search(ctx context.Context, itemId int64, n int) ([]Score, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	q := i.space.Index.ToNumber(itemId)
	if q < 0 {
		return nil, errors.NotFoundf("item %d", itemId)
	}
	if n <= 0 {
		return []Score{}, nil
	}
	results, err := i.index.SearchIndex(int(q), n, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	scores := lo.Map(results, func(result lo.Tuple2[int, float32], _ int) Score {
		return Score{ItemId: i.space.Index.ToId(int32(result.A)), Score: result.B}
	})
	SortScores(scores)
	return scores, nil
}
