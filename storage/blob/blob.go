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

// Package blob stores model artifacts. A store is chosen by the scheme of its URI:
//
//	/var/lib/cinerecs or file:///var/lib/cinerecs  local directory
//	s3://bucket/prefix                              S3 compatible object storage
//	gcs://bucket/prefix                             Google Cloud Storage
//	azblob://container/prefix                       Azure Blob Storage
package blob

import (
	"context"
	"io"
	"strings"

	"github.com/cinerecs/cinerecs/config"
	"github.com/juju/errors"
)

const (
	filePrefix   = "file://"
	s3Prefix     = "s3://"
	gcsPrefix    = "gcs://"
	gsPrefix     = "gs://"
	azblobPrefix = "azblob://"
)

// Store is a flat namespace of blobs. Writers returned by Create must be closed, Close blocks
// until the blob is persisted and reports the upload error. Open returns a NotFound error for
// missing blobs.
type Store interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	List(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, name string) error
}

// Open creates the store addressed by cfg.URI.
func Open(cfg config.BlobConfig) (Store, error) {
	uri := cfg.URI
	switch {
	case strings.HasPrefix(uri, s3Prefix):
		bucket, prefix := splitBucket(uri[len(s3Prefix):])
		return NewS3(cfg.S3, bucket, prefix)
	case strings.HasPrefix(uri, gcsPrefix):
		bucket, prefix := splitBucket(uri[len(gcsPrefix):])
		return NewGCS(cfg.GCS, bucket, prefix)
	case strings.HasPrefix(uri, gsPrefix):
		bucket, prefix := splitBucket(uri[len(gsPrefix):])
		return NewGCS(cfg.GCS, bucket, prefix)
	case strings.HasPrefix(uri, azblobPrefix):
		container, prefix := splitBucket(uri[len(azblobPrefix):])
		return NewAzureBlob(cfg.Azure, container, prefix)
	case strings.HasPrefix(uri, filePrefix):
		return NewPOSIX(uri[len(filePrefix):]), nil
	case uri == "" || strings.Contains(uri, "://"):
		return nil, errors.NotSupportedf("blob store %q", uri)
	default:
		return NewPOSIX(uri), nil
	}
}

func splitBucket(path string) (string, string) {
	bucket, prefix, _ := strings.Cut(path, "/")
	return bucket, strings.Trim(prefix, "/")
}

// pipeWriter streams written bytes to an upload running in another goroutine.
type pipeWriter struct {
	*io.PipeWriter
	done chan struct{}
	err  error
}

func newPipeWriter(upload func(r io.Reader) error) *pipeWriter {
	pr, pw := io.Pipe()
	w := &pipeWriter{PipeWriter: pw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		w.err = upload(pr)
		// unblock the writer if the upload stopped early
		_ = pr.CloseWithError(errors.Annotate(w.err, "upload stopped"))
	}()
	return w
}

// Close finishes the stream and waits for the upload.
func (w *pipeWriter) Close() error {
	if err := w.PipeWriter.Close(); err != nil {
		return errors.Trace(err)
	}
	<-w.done
	return errors.Trace(w.err)
}
