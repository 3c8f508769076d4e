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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestRatingCorpus(t *testing.T) {
	corpus, err := NewRatingCorpus([]Rating{
		{UserId: 1, ItemId: 10, Rating: 5},
		{UserId: 1, ItemId: 11, Rating: 2},
		{UserId: 2, ItemId: 10, Rating: 4},
		{UserId: 2, ItemId: 12, Rating: 5},
	})
	assert.NoError(t, err)
	assert.Equal(t, 4, corpus.Count())
	assert.Equal(t, int32(2), corpus.GetUserIndex().Len())
	assert.Equal(t, int32(3), corpus.GetItemIndex().Len())
	assert.Equal(t, float32(4), corpus.GlobalMean())
	u, i, r := corpus.Get(3)
	assert.Equal(t, int32(1), u)
	assert.Equal(t, int32(2), i)
	assert.Equal(t, float32(5), r)
	assert.Equal(t, []Rating{{UserId: 2, ItemId: 10, Rating: 4}, {UserId: 2, ItemId: 12, Rating: 5}}, corpus.GetUserRatings(2))
	assert.Empty(t, corpus.GetUserRatings(3))
	assert.ElementsMatch(t, []int64{10, 11}, corpus.GetRatedItems(1).ToSlice())

	subset, err := corpus.Subset([]int{0, 2})
	assert.NoError(t, err)
	assert.Equal(t, 2, subset.Count())
	assert.Equal(t, float32(4.5), subset.GlobalMean())
}

func TestRatingCorpusSplit(t *testing.T) {
	var ratings []Rating
	for i := 0; i < 100; i++ {
		ratings = append(ratings, Rating{UserId: int64(i % 7), ItemId: int64(i % 11), Rating: i%5 + 1})
	}
	corpus, err := NewRatingCorpus(ratings)
	assert.NoError(t, err)
	trainSet, testSet, err := corpus.Split(0.2, 0)
	assert.NoError(t, err)
	assert.Equal(t, 80, trainSet.Count())
	assert.Equal(t, 20, testSet.Count())
	trainSet2, testSet2, err := corpus.Split(0.2, 0)
	assert.NoError(t, err)
	assert.Equal(t, trainSet.GetRatings(), trainSet2.GetRatings())
	assert.Equal(t, testSet.GetRatings(), testSet2.GetRatings())
}

func TestRatingCorpusDuplicates(t *testing.T) {
	corpus, err := NewRatingCorpus([]Rating{
		{UserId: 1, ItemId: 10, Rating: 5},
		{UserId: 1, ItemId: 10, Rating: 3},
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, corpus.Count())
	assert.Equal(t, float32(4), corpus.GlobalMean())
}

func TestRatingCorpusInvalid(t *testing.T) {
	_, err := NewRatingCorpus([]Rating{{UserId: 1, ItemId: 10, Rating: 6}})
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = NewRatingCorpus([]Rating{{UserId: 1, ItemId: 10, Rating: 0}})
	assert.True(t, errors.Is(err, errors.NotValid))
	empty, err := NewRatingCorpus(nil)
	assert.NoError(t, err)
	assert.Zero(t, empty.GlobalMean())
}

func TestItemCorpus(t *testing.T) {
	corpus, err := NewItemCorpus([]Item{
		{ItemId: 12, Title: "C", Genres: []string{" Action", "Drama "}},
		{ItemId: 10, Title: "A", Genres: []string{"Action"}},
		{ItemId: 11, Title: "B", Genres: []string{"", "Drama"}},
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, corpus.Len())
	assert.Equal(t, []int64{10, 11, 12}, corpus.GetIndex().GetIds())
	item, ok := corpus.GetItem(12)
	assert.True(t, ok)
	assert.Equal(t, []string{"action", "drama"}, item.Genres)
	item, ok = corpus.GetItem(11)
	assert.True(t, ok)
	assert.Equal(t, []string{"drama"}, item.Genres)
	_, ok = corpus.GetItem(13)
	assert.False(t, ok)

	_, err = NewItemCorpus([]Item{{ItemId: 1}, {ItemId: 1}})
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestStripYear(t *testing.T) {
	assert.Equal(t, "Toy Story", StripYear("Toy Story (1995)"))
	assert.Equal(t, "Twelve Monkeys (Twelve)", StripYear("Twelve Monkeys (Twelve)"))
	assert.Equal(t, "Heat", StripYear("Heat"))
}

func TestLoadMovieLensRatings(t *testing.T) {
	ratings, err := LoadMovieLensRatings(strings.NewReader("196\t242\t3\t881250949\n186\t302\t3\t891717742\n\n"))
	assert.NoError(t, err)
	assert.Equal(t, []Rating{
		{UserId: 196, ItemId: 242, Rating: 3, Timestamp: 881250949},
		{UserId: 186, ItemId: 302, Rating: 3, Timestamp: 891717742},
	}, ratings)

	_, err = LoadMovieLensRatings(strings.NewReader("196\t242\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = LoadMovieLensRatings(strings.NewReader("a\t242\t3\t0\n"))
	assert.Error(t, err)
}

const movieLensItems = "1|Toy Story (1995)|01-Jan-1995||http://us.imdb.com/M/title-exact?Toy%20Story%20(1995)|0|0|0|1|1|1|0|0|0|0|0|0|0|0|0|0|0|0|0\n" +
	"2|Caf\xe9 au lait (1993)|01-Jan-1993||url|1|0|0|0|0|0|0|0|0|0|0|0|0|0|0|0|0|0|0\n"

func TestLoadMovieLensItems(t *testing.T) {
	items, err := LoadMovieLensItems(strings.NewReader(movieLensItems))
	assert.NoError(t, err)
	assert.Equal(t, []Item{
		{ItemId: 1, Title: "Toy Story", Genres: []string{"Animation", "Childrens", "Comedy"}},
		{ItemId: 2, Title: "Café au lait", Genres: []string{}},
	}, items)

	_, err = LoadMovieLensItems(strings.NewReader("1|Toy Story (1995)|0|0\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestLoadMovieLens(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "u.data"), []byte("1\t1\t5\t0\n"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "u.item"), []byte(movieLensItems), 0644))
	ratings, items, err := LoadMovieLens(dir)
	assert.NoError(t, err)
	assert.Len(t, ratings, 1)
	assert.Len(t, items, 2)

	_, _, err = LoadMovieLens(t.TempDir())
	assert.Error(t, err)
}
