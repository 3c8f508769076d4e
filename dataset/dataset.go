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

// Package dataset holds the in-memory rating and item corpora every model is trained on.
package dataset

import (
	"sort"
	"strings"

	"github.com/cinerecs/cinerecs/base"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Rating is an explicit rating given by a user to an item.
type Rating struct {
	UserId    int64 `json:"user_id"`
	ItemId    int64 `json:"item_id"`
	Rating    int   `json:"rating"`
	Timestamp int64 `json:"timestamp"`
}

// Item is a catalogue entry with its genre tags.
type Item struct {
	ItemId int64    `json:"item_id"`
	Title  string   `json:"title"`
	Genres []string `json:"genres"`
}

// RatingCorpus is the full rating history. Duplicated (user, item) pairs are kept as they are.
type RatingCorpus struct {
	ratings     []Rating
	userIndex   *Index
	itemIndex   *Index
	users       []int32
	items       []int32
	values      []float32
	userRatings [][]int
}

// NewRatingCorpus validates ratings and builds dense user and item indices in arrival order.
func NewRatingCorpus(ratings []Rating) (*RatingCorpus, error) {
	corpus := &RatingCorpus{
		ratings:   ratings,
		userIndex: NewIndex(),
		itemIndex: NewIndex(),
		users:     make([]int32, len(ratings)),
		items:     make([]int32, len(ratings)),
		values:    make([]float32, len(ratings)),
	}
	for i, rating := range ratings {
		if rating.Rating < MinRating || rating.Rating > MaxRating {
			return nil, errors.NotValidf("rating %d of user %d on item %d", rating.Rating, rating.UserId, rating.ItemId)
		}
		corpus.userIndex.Add(rating.UserId)
		corpus.itemIndex.Add(rating.ItemId)
		corpus.users[i] = corpus.userIndex.ToNumber(rating.UserId)
		corpus.items[i] = corpus.itemIndex.ToNumber(rating.ItemId)
		corpus.values[i] = float32(rating.Rating)
	}
	corpus.userRatings = make([][]int, corpus.userIndex.Len())
	for i, u := range corpus.users {
		corpus.userRatings[u] = append(corpus.userRatings[u], i)
	}
	return corpus, nil
}

// Count returns the number of ratings.
func (c *RatingCorpus) Count() int {
	return len(c.ratings)
}

func (c *RatingCorpus) GetRatings() []Rating {
	return c.ratings
}

func (c *RatingCorpus) GetUserIndex() *Index {
	return c.userIndex
}

func (c *RatingCorpus) GetItemIndex() *Index {
	return c.itemIndex
}

// Get returns the dense user, dense item and value of the i-th rating.
func (c *RatingCorpus) Get(i int) (int32, int32, float32) {
	return c.users[i], c.items[i], c.values[i]
}

// GlobalMean returns the mean of all ratings. It is 0 for an empty corpus.
func (c *RatingCorpus) GlobalMean() float32 {
	if len(c.values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range c.values {
		sum += float64(v)
	}
	return float32(sum / float64(len(c.values)))
}

// GetUserRatings returns ratings given by a user. It is empty for an unknown user.
func (c *RatingCorpus) GetUserRatings(userId int64) []Rating {
	u := c.userIndex.ToNumber(userId)
	if u == NotId {
		return nil
	}
	return lo.Map(c.userRatings[u], func(i int, _ int) Rating {
		return c.ratings[i]
	})
}

// GetRatedItems returns ids of items rated by a user.
func (c *RatingCorpus) GetRatedItems(userId int64) mapset.Set[int64] {
	rated := mapset.NewThreadUnsafeSet[int64]()
	for _, rating := range c.GetUserRatings(userId) {
		rated.Add(rating.ItemId)
	}
	return rated
}

// Subset returns a corpus made of the ratings at the given positions.
func (c *RatingCorpus) Subset(indices []int) (*RatingCorpus, error) {
	ratings := make([]Rating, len(indices))
	for i, j := range indices {
		ratings[i] = c.ratings[j]
	}
	return NewRatingCorpus(ratings)
}

// Split holds out a random ratio of ratings as the test set. The split is a pure function of seed.
func (c *RatingCorpus) Split(ratio float32, seed int64) (*RatingCorpus, *RatingCorpus, error) {
	rng := base.NewRandomGenerator(seed)
	testSize := int(float32(c.Count()) * ratio)
	testIndices := rng.Sample(0, c.Count(), testSize)
	sort.Ints(testIndices)
	held := mapset.NewThreadUnsafeSet(testIndices...)
	trainIndices := make([]int, 0, c.Count()-len(testIndices))
	for i := 0; i < c.Count(); i++ {
		if !held.Contains(i) {
			trainIndices = append(trainIndices, i)
		}
	}
	trainSet, err := c.Subset(trainIndices)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	testSet, err := c.Subset(testIndices)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return trainSet, testSet, nil
}

// ItemCorpus is the item catalogue. Its index enumerates items by ascending id, the row of an
// item in every content matrix is its position in this index.
type ItemCorpus struct {
	items []Item
	index *Index
}

// NewItemCorpus normalizes genre tags and rejects duplicated item ids.
func NewItemCorpus(items []Item) (*ItemCorpus, error) {
	index := NewSortedIndex(lo.Map(items, func(item Item, _ int) int64 { return item.ItemId }))
	if int(index.Len()) != len(items) {
		dup := lo.FindDuplicates(lo.Map(items, func(item Item, _ int) int64 { return item.ItemId }))
		return nil, errors.NotValidf("duplicated item ids %v", dup)
	}
	sorted := make([]Item, len(items))
	for _, item := range items {
		sorted[index.ToNumber(item.ItemId)] = Item{
			ItemId: item.ItemId,
			Title:  item.Title,
			Genres: NormalizeTags(item.Genres),
		}
	}
	return &ItemCorpus{items: sorted, index: index}, nil
}

func (c *ItemCorpus) Len() int {
	return len(c.items)
}

// GetItems returns items ordered by ascending id.
func (c *ItemCorpus) GetItems() []Item {
	return c.items
}

func (c *ItemCorpus) GetIndex() *Index {
	return c.index
}

// GetItem returns an item by id.
func (c *ItemCorpus) GetItem(itemId int64) (Item, bool) {
	i := c.index.ToNumber(itemId)
	if i == NotId {
		return Item{}, false
	}
	return c.items[i], true
}

// NormalizeTags trims and lower-cases tags, dropping empty ones. Order is kept.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			normalized = append(normalized, tag)
		}
	}
	return normalized
}
