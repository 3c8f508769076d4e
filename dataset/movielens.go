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
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"golang.org/x/text/encoding/charmap"
)

// MovieLensGenres are the genre flag columns of u.item, in file order.
var MovieLensGenres = []string{
	"unknown", "Action", "Adventure", "Animation", "Childrens", "Comedy", "Crime", "Documentary",
	"Drama", "Fantasy", "Film-Noir", "Horror", "Musical", "Mystery", "Romance", "Sci-Fi", "Thriller",
	"War", "Western",
}

const movieLensItemColumns = 5

var yearSuffix = regexp.MustCompile(`\s*\(\d{4}\)$`)

// StripYear removes the trailing release year, e.g. "Toy Story (1995)" becomes "Toy Story".
func StripYear(title string) string {
	return yearSuffix.ReplaceAllString(title, "")
}

// LoadMovieLensRatings parses u.data: tab separated user id, item id, rating and timestamp.
func LoadMovieLensRatings(r io.Reader) ([]Rating, error) {
	var ratings []Rating
	scanner := bufio.NewScanner(r)
	lineCount := 0
	for scanner.Scan() {
		lineCount++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, errors.NotValidf("line %d of ratings: %q", lineCount, line)
		}
		var (
			rating Rating
			err    error
		)
		if rating.UserId, err = strconv.ParseInt(fields[0], 10, 64); err != nil {
			return nil, errors.Annotatef(err, "line %d of ratings", lineCount)
		}
		if rating.ItemId, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
			return nil, errors.Annotatef(err, "line %d of ratings", lineCount)
		}
		if rating.Rating, err = strconv.Atoi(fields[2]); err != nil {
			return nil, errors.Annotatef(err, "line %d of ratings", lineCount)
		}
		if len(fields) > 3 {
			if rating.Timestamp, err = strconv.ParseInt(fields[3], 10, 64); err != nil {
				return nil, errors.Annotatef(err, "line %d of ratings", lineCount)
			}
		}
		ratings = append(ratings, rating)
	}
	return ratings, errors.Trace(scanner.Err())
}

// LoadMovieLensItems parses u.item: pipe separated, latin-1 encoded, with one flag per genre
// after the first five columns. The "unknown" genre is not kept as a tag.
func LoadMovieLensItems(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	lineCount := 0
	for scanner.Scan() {
		lineCount++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < movieLensItemColumns+len(MovieLensGenres) {
			return nil, errors.NotValidf("line %d of items has %d columns", lineCount, len(fields))
		}
		itemId, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, errors.Annotatef(err, "line %d of items", lineCount)
		}
		item := Item{ItemId: itemId, Title: StripYear(fields[1]), Genres: []string{}}
		for i, genre := range MovieLensGenres {
			if i == 0 {
				continue
			}
			if fields[movieLensItemColumns+i] == "1" {
				item.Genres = append(item.Genres, genre)
			}
		}
		items = append(items, item)
	}
	return items, errors.Trace(scanner.Err())
}

// LoadMovieLens loads u.data and u.item from a MovieLens 100K directory.
func LoadMovieLens(dir string) ([]Rating, []Item, error) {
	ratingFile, err := os.Open(filepath.Join(dir, "u.data"))
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	defer ratingFile.Close()
	ratings, err := LoadMovieLensRatings(ratingFile)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	itemFile, err := os.Open(filepath.Join(dir, "u.item"))
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	defer itemFile.Close()
	items, err := LoadMovieLensItems(itemFile)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return ratings, items, nil
}
