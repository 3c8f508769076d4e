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

package dataset

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/juju/errors"
)

// NotId represents an ID doesn't exist.
const NotId = int32(-1)

// Index manages the map between sparse ids and dense indices. A sparse id is a user id or an
// item id. The dense index is the row of the id in every matrix built from the same corpus.
type Index struct {
	Numbers map[int64]int32 // sparse id -> dense index
	Ids     []int64         // dense index -> sparse id
}

// NewIndex creates an empty Index. Ids added later are numbered in arrival order.
func NewIndex() *Index {
	return &Index{
		Numbers: make(map[int64]int32),
		Ids:     make([]int64, 0),
	}
}

// NewSortedIndex creates an Index whose dense order follows ascending ids. Duplicates are merged.
func NewSortedIndex(ids []int64) *Index {
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := NewIndex()
	for _, id := range sorted {
		index.Add(id)
	}
	return index
}

// Len returns the number of indexed ids.
func (idx *Index) Len() int32 {
	if idx == nil {
		return 0
	}
	return int32(len(idx.Ids))
}

// Add adds a new id to the index.
func (idx *Index) Add(id int64) {
	if _, exist := idx.Numbers[id]; !exist {
		idx.Numbers[id] = int32(len(idx.Ids))
		idx.Ids = append(idx.Ids, id)
	}
}

// ToNumber converts a sparse id to a dense index.
func (idx *Index) ToNumber(id int64) int32 {
	if denseId, exist := idx.Numbers[id]; exist {
		return denseId
	}
	return NotId
}

// ToId converts a dense index to a sparse id.
func (idx *Index) ToId(index int32) int64 {
	return idx.Ids[index]
}

// GetIds returns all ids in dense order.
func (idx *Index) GetIds() []int64 {
	return idx.Ids
}

// Marshal index into byte stream.
func (idx *Index) Marshal(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(idx.Ids))); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(binary.Write(w, binary.LittleEndian, idx.Ids))
}

// Unmarshal index from byte stream.
func (idx *Index) Unmarshal(r io.Reader) error {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return errors.Trace(err)
	}
	if n < 0 {
		return errors.NotValidf("index length %d", n)
	}
	ids := make([]int64, n)
	if err := binary.Read(r, binary.LittleEndian, ids); err != nil {
		return errors.Trace(err)
	}
	idx.Ids = make([]int64, 0, n)
	idx.Numbers = make(map[int64]int32, n)
	for _, id := range ids {
		idx.Add(id)
	}
	if idx.Len() != n {
		return errors.NotValidf("duplicated ids in index")
	}
	return nil
}

// UnmarshalIndex unmarshal index from byte stream.
func UnmarshalIndex(r io.Reader) (*Index, error) {
	index := NewIndex()
	if err := index.Unmarshal(r); err != nil {
		return nil, errors.Trace(err)
	}
	return index, nil
}
