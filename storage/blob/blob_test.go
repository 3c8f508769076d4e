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

package blob

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/cinerecs/cinerecs/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(config.BlobConfig{URI: dir})
	assert.NoError(t, err)
	assert.Equal(t, &POSIX{dir: dir}, store)
	store, err = Open(config.BlobConfig{URI: "file://" + dir})
	assert.NoError(t, err)
	assert.Equal(t, &POSIX{dir: dir}, store)

	store, err = Open(config.BlobConfig{URI: "s3://cinerecs/models/v1/", S3: config.S3Config{Endpoint: "localhost:9000"}})
	assert.NoError(t, err)
	assert.Equal(t, "cinerecs", store.(*S3).bucket)
	assert.Equal(t, "models/v1", store.(*S3).prefix)

	_, err = Open(config.BlobConfig{URI: "ftp://localhost/models"})
	assert.True(t, errors.Is(err, errors.NotSupported))
	_, err = Open(config.BlobConfig{})
	assert.True(t, errors.Is(err, errors.NotSupported))
	_, err = Open(config.BlobConfig{URI: "azblob://models"})
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestSplitBucket(t *testing.T) {
	bucket, prefix := splitBucket("bucket")
	assert.Equal(t, "bucket", bucket)
	assert.Empty(t, prefix)
	bucket, prefix = splitBucket("bucket/a/b/")
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a/b", prefix)
}

func TestPipeWriter(t *testing.T) {
	var received []byte
	w := newPipeWriter(func(r io.Reader) error {
		var err error
		received, err = io.ReadAll(r)
		return err
	})
	_, err := w.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.Equal(t, "hello", string(received))

	// upload failures are reported by Write and Close
	w = newPipeWriter(func(r io.Reader) error {
		return errors.New("connection reset")
	})
	<-w.done
	_, err = w.Write([]byte("hello"))
	assert.ErrorContains(t, err, "connection reset")
	assert.ErrorContains(t, w.Close(), "connection reset")
}

func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	// write files
	for _, name := range []string{"model.svd", "space/vectors.tfidf"} {
		w, err := store.Create(ctx, name)
		assert.NoError(t, err)
		_, err = w.Write([]byte("hello " + name))
		assert.NoError(t, err)
		assert.NoError(t, w.Close())
	}

	// list files
	names, err := store.List(ctx)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"model.svd", "space/vectors.tfidf"}, names)

	// read files
	r, err := store.Open(ctx, "space/vectors.tfidf")
	assert.NoError(t, err)
	data, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "hello space/vectors.tfidf", string(data))
	assert.NoError(t, r.Close())

	// overwrite
	w, err := store.Create(ctx, "model.svd")
	assert.NoError(t, err)
	_, err = w.Write([]byte("bye"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	r, err = store.Open(ctx, "model.svd")
	assert.NoError(t, err)
	data, err = io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "bye", string(data))
	assert.NoError(t, r.Close())

	// missing file
	_, err = store.Open(ctx, "missing")
	assert.True(t, errors.Is(err, errors.NotFound), err)

	// remove files
	assert.NoError(t, store.Remove(ctx, "model.svd"))
	assert.NoError(t, store.Remove(ctx, "space/vectors.tfidf"))
	names, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, names)
}

func TestPOSIX(t *testing.T) {
	store := NewPOSIX(filepath.Join(t.TempDir(), "blob"))
	names, err := store.List(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, names)
	testStore(t, store)
	assert.True(t, errors.Is(store.Remove(context.Background(), "missing"), errors.NotFound))
}
