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

// Package content builds the term-weighted vector space of item genre tags.
package content

import (
	"encoding/binary"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/chewxy/math32"
	"github.com/cinerecs/cinerecs/base/encoding"
	"github.com/cinerecs/cinerecs/base/log"
	"github.com/cinerecs/cinerecs/common/floats"
	"github.com/cinerecs/cinerecs/dataset"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Tokenizer decides how genre tags become terms.
type Tokenizer string

const (
	// TagTokenizer keeps each tag as one term.
	TagTokenizer Tokenizer = "tags"
	// WordTokenizer splits tags on runs of non-alphanumeric characters, "sci-fi" becomes "sci" and "fi".
	WordTokenizer Tokenizer = "words"
)

// ParseTokenizer converts a configuration value into a Tokenizer. Empty means TagTokenizer.
func ParseTokenizer(name string) (Tokenizer, error) {
	switch Tokenizer(name) {
	case "", TagTokenizer:
		return TagTokenizer, nil
	case WordTokenizer:
		return WordTokenizer, nil
	default:
		return "", errors.NotValidf("tokenizer %q", name)
	}
}

// Tokenize converts tags to terms. Tags are normalized first.
func (t Tokenizer) Tokenize(tags []string) []string {
	tags = dataset.NormalizeTags(tags)
	if t != WordTokenizer {
		return tags
	}
	var terms []string
	for _, tag := range tags {
		terms = append(terms, strings.FieldsFunc(tag, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})...)
	}
	return terms
}

// Vectorizer fits a TF-IDF vector space over an item catalogue. The weight of term t in item d is
//
//	tf(t,d) * (ln((1+N)/(1+df(t))) + 1)
//
// where tf is the raw count of t among the terms of d, N is the number of items and df(t) is the
// number of items containing t. Every row is then scaled to unit L2 norm, items without terms keep
// a zero row.
type Vectorizer struct {
	tokenizer Tokenizer
}

// NewVectorizer creates a Vectorizer.
func NewVectorizer(tokenizer Tokenizer) *Vectorizer {
	if tokenizer == "" {
		tokenizer = TagTokenizer
	}
	return &Vectorizer{tokenizer: tokenizer}
}

// Fit builds the vector space of a catalogue. Rows follow the item index of the catalogue.
func (v *Vectorizer) Fit(items *dataset.ItemCorpus) (*VectorSpace, error) {
	if items == nil || items.Len() == 0 {
		return nil, errors.NotValidf("empty item corpus")
	}
	terms := make([][]string, items.Len())
	vocabulary := mapset.NewThreadUnsafeSet[string]()
	docFreq := make(map[string]int)
	for i, item := range items.GetItems() {
		terms[i] = v.tokenizer.Tokenize(item.Genres)
		for _, term := range lo.Uniq(terms[i]) {
			vocabulary.Add(term)
			docFreq[term]++
		}
	}
	space := &VectorSpace{
		Tokenizer:  v.tokenizer,
		Vocabulary: vocabulary.ToSlice(),
		Index:      items.GetIndex(),
	}
	sort.Strings(space.Vocabulary)
	space.buildTerms()
	n := float32(items.Len())
	space.IDF = lo.Map(space.Vocabulary, func(term string, _ int) float32 {
		return math32.Log((1+n)/(1+float32(docFreq[term]))) + 1
	})
	space.Vectors = lo.Map(terms, func(t []string, _ int) []float32 {
		return space.weight(t)
	})
	log.Logger().Info("fit content vector space",
		zap.Int("n_items", items.Len()),
		zap.Int("n_terms", len(space.Vocabulary)),
		zap.String("tokenizer", string(v.tokenizer)))
	return space, nil
}

// VectorSpace is the fitted TF-IDF matrix. Row i belongs to the item at position i of Index.
// A VectorSpace is immutable once built and safe for concurrent reads.
type VectorSpace struct {
	Tokenizer  Tokenizer
	Vocabulary []string
	IDF        []float32
	Index      *dataset.Index
	Vectors    [][]float32

	terms map[string]int
}

func (vs *VectorSpace) buildTerms() {
	vs.terms = make(map[string]int, len(vs.Vocabulary))
	for i, term := range vs.Vocabulary {
		vs.terms[term] = i
	}
}

func (vs *VectorSpace) weight(terms []string) []float32 {
	vec := make([]float32, len(vs.Vocabulary))
	for _, term := range terms {
		if j, ok := vs.terms[term]; ok {
			vec[j] += vs.IDF[j]
		}
	}
	floats.Normalize(vec)
	return vec
}

// Dimension returns the size of the vocabulary.
func (vs *VectorSpace) Dimension() int {
	return len(vs.Vocabulary)
}

// Len returns the number of rows.
func (vs *VectorSpace) Len() int {
	return len(vs.Vectors)
}

// Row returns the vector of an item. The second result is false for items outside the catalogue.
func (vs *VectorSpace) Row(itemId int64) ([]float32, bool) {
	i := vs.Index.ToNumber(itemId)
	if i == dataset.NotId {
		return nil, false
	}
	return vs.Vectors[i], true
}

// Transform weights tags of an item outside the catalogue with the fitted vocabulary. Unknown
// terms are ignored.
func (vs *VectorSpace) Transform(tags []string) []float32 {
	return vs.weight(vs.Tokenizer.Tokenize(tags))
}

// Similarity returns the cosine similarity between two items. Rows are unit vectors, so it is
// their dot product. It is 0 if either item is unknown or has no terms.
func (vs *VectorSpace) Similarity(a, b int64) float32 {
	rowA, okA := vs.Row(a)
	rowB, okB := vs.Row(b)
	if !okA || !okB {
		return 0
	}
	return floats.Dot(rowA, rowB)
}

// Marshal vector space into byte stream.
func (vs *VectorSpace) Marshal(w io.Writer) error {
	if err := encoding.WriteString(w, string(vs.Tokenizer)); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(vs.Vocabulary))); err != nil {
		return errors.Trace(err)
	}
	for _, term := range vs.Vocabulary {
		if err := encoding.WriteString(w, term); err != nil {
			return errors.Trace(err)
		}
	}
	if err := encoding.WriteVector(w, vs.IDF); err != nil {
		return errors.Trace(err)
	}
	if err := vs.Index.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return encoding.WriteMatrix(w, vs.Vectors)
}

// Unmarshal vector space from byte stream.
func (vs *VectorSpace) Unmarshal(r io.Reader) error {
	tokenizer, err := encoding.ReadString(r)
	if err != nil {
		return errors.Trace(err)
	}
	if vs.Tokenizer, err = ParseTokenizer(tokenizer); err != nil {
		return errors.Trace(err)
	}
	var n int32
	if err = binary.Read(r, binary.LittleEndian, &n); err != nil {
		return errors.Trace(err)
	}
	if n < 0 {
		return errors.NotValidf("vocabulary size %d", n)
	}
	vs.Vocabulary = make([]string, n)
	for i := range vs.Vocabulary {
		if vs.Vocabulary[i], err = encoding.ReadString(r); err != nil {
			return errors.Trace(err)
		}
	}
	if vs.IDF, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if len(vs.IDF) != len(vs.Vocabulary) {
		return errors.NotValidf("%d idf weights for %d terms", len(vs.IDF), len(vs.Vocabulary))
	}
	if vs.Index, err = dataset.UnmarshalIndex(r); err != nil {
		return errors.Trace(err)
	}
	vs.Vectors = make([][]float32, vs.Index.Len())
	for i := range vs.Vectors {
		vs.Vectors[i] = make([]float32, n)
	}
	if err = encoding.ReadMatrix(r, vs.Vectors); err != nil {
		return errors.Trace(err)
	}
	vs.buildTerms()
	return nil
}

const vectorSpaceName = "tfidf"

// MarshalVectorSpace writes a vector space with its format name.
func MarshalVectorSpace(w io.Writer, vs *VectorSpace) error {
	if err := encoding.WriteString(w, vectorSpaceName); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(vs.Marshal(w))
}

// UnmarshalVectorSpace reads a vector space written by MarshalVectorSpace.
func UnmarshalVectorSpace(r io.Reader) (*VectorSpace, error) {
	name, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if name != vectorSpaceName {
		return nil, errors.NotValidf("vector space %q", name)
	}
	var vs VectorSpace
	if err = vs.Unmarshal(r); err != nil {
		return nil, errors.Trace(err)
	}
	return &vs, nil
}
