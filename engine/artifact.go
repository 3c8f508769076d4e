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

package engine

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/cinerecs/cinerecs/base/encoding"
	"github.com/cinerecs/cinerecs/model/cf"
	"github.com/cinerecs/cinerecs/model/content"
	"github.com/cinerecs/cinerecs/storage/blob"
	"github.com/google/uuid"
	"github.com/juju/errors"
)

const (
	ModelName       = "model.svd"
	VectorSpaceName = "vectors.tfidf"
)

// Every artifact starts with the generation of the training run that produced it. Artifacts of a
// run share one generation, so a reader can tell a complete pair from a pair caught mid-upload.

// SaveArtifacts writes both models under a new generation and returns it.
func SaveArtifacts(ctx context.Context, store blob.Store, model *cf.LatentFactorModel, space *content.VectorSpace) (string, error) {
	generation := uuid.NewString()
	if err := SaveModel(ctx, store, generation, model); err != nil {
		return "", errors.Trace(err)
	}
	if err := SaveVectorSpace(ctx, store, generation, space); err != nil {
		return "", errors.Trace(err)
	}
	return generation, nil
}

// LoadArtifacts reads both models. Models of different generations are rejected with NotValid,
// which happens when a training run is still uploading.
func LoadArtifacts(ctx context.Context, store blob.Store) (*cf.LatentFactorModel, *content.VectorSpace, string, error) {
	model, modelGeneration, err := LoadModel(ctx, store)
	if err != nil {
		return nil, nil, "", errors.Trace(err)
	}
	space, spaceGeneration, err := LoadVectorSpace(ctx, store)
	if err != nil {
		return nil, nil, "", errors.Trace(err)
	}
	if modelGeneration != spaceGeneration {
		return nil, nil, "", errors.NotValidf("generation %s of %s and generation %s of %s",
			modelGeneration, ModelName, spaceGeneration, VectorSpaceName)
	}
	return model, space, modelGeneration, nil
}

// SaveModel writes the latent factor model to the blob store.
func SaveModel(ctx context.Context, store blob.Store, generation string, model *cf.LatentFactorModel) error {
	buf := new(bytes.Buffer)
	if err := encoding.WriteString(buf, generation); err != nil {
		return errors.Trace(err)
	}
	if err := cf.MarshalModel(buf, model); err != nil {
		return errors.Trace(err)
	}
	return write(ctx, store, ModelName, buf)
}

// LoadModel reads the latent factor model and its generation from the blob store.
func LoadModel(ctx context.Context, store blob.Store) (*cf.LatentFactorModel, string, error) {
	r, err := store.Open(ctx, ModelName)
	if err != nil {
		return nil, "", errors.Trace(err)
	}
	defer r.Close()
	reader := bufio.NewReader(r)
	generation, err := encoding.ReadString(reader)
	if err != nil {
		return nil, "", errors.Annotatef(err, "failed to load %s", ModelName)
	}
	model, err := cf.UnmarshalModel(reader)
	if err != nil {
		return nil, "", errors.Annotatef(err, "failed to load %s", ModelName)
	}
	return model, generation, nil
}

// SaveVectorSpace writes the genre vector space to the blob store.
func SaveVectorSpace(ctx context.Context, store blob.Store, generation string, space *content.VectorSpace) error {
	buf := new(bytes.Buffer)
	if err := encoding.WriteString(buf, generation); err != nil {
		return errors.Trace(err)
	}
	if err := content.MarshalVectorSpace(buf, space); err != nil {
		return errors.Trace(err)
	}
	return write(ctx, store, VectorSpaceName, buf)
}

// LoadVectorSpace reads the genre vector space and its generation from the blob store.
func LoadVectorSpace(ctx context.Context, store blob.Store) (*content.VectorSpace, string, error) {
	r, err := store.Open(ctx, VectorSpaceName)
	if err != nil {
		return nil, "", errors.Trace(err)
	}
	defer r.Close()
	reader := bufio.NewReader(r)
	generation, err := encoding.ReadString(reader)
	if err != nil {
		return nil, "", errors.Annotatef(err, "failed to load %s", VectorSpaceName)
	}
	space, err := content.UnmarshalVectorSpace(reader)
	if err != nil {
		return nil, "", errors.Annotatef(err, "failed to load %s", VectorSpaceName)
	}
	return space, generation, nil
}

// write uploads a fully encoded artifact so that a failed encoding never replaces a good one.
func write(ctx context.Context, store blob.Store, name string, r io.Reader) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return errors.Trace(err)
	}
	if _, err = io.Copy(w, r); err != nil {
		_ = w.Close()
		return errors.Trace(err)
	}
	return errors.Trace(w.Close())
}
