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

// Package server exposes recommendations over REST.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cinerecs/cinerecs/base/log"
	"github.com/cinerecs/cinerecs/common/parallel"
	"github.com/cinerecs/cinerecs/config"
	"github.com/cinerecs/cinerecs/engine"
	"github.com/emicklei/go-restful/v3"
	"github.com/juju/errors"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Server serves the latest snapshot. Snapshots are swapped atomically so requests in flight keep
// the snapshot they started with.
type Server struct {
	Config         *config.Config
	Engine         *engine.Engine
	TracerProvider trace.TracerProvider

	snapshot  *atomic.Pointer[engine.Snapshot]
	reload    *parallel.ConditionChannel
	limiter   parallel.RateLimiter
	container *restful.Container
}

func NewServer(e *engine.Engine) *Server {
	s := &Server{
		Config:         e.Config,
		Engine:         e,
		TracerProvider: noop.NewTracerProvider(),
		snapshot:       atomic.NewPointer[engine.Snapshot](nil),
		reload:         parallel.NewConditionChannel(),
		limiter:        parallel.NewRateLimiter(e.Config.Server.RateLimit),
	}
	return s
}

// Snapshot returns the snapshot being served, nil before the first load.
func (s *Server) Snapshot() *engine.Snapshot {
	return s.snapshot.Load()
}

// SetSnapshot replaces the snapshot being served.
func (s *Server) SetSnapshot(snapshot *engine.Snapshot) {
	s.snapshot.Store(snapshot)
	SnapshotLoadTime.SetToCurrentTime()
	SnapshotItems.Set(float64(snapshot.Space.Len()))
	SnapshotUsers.Set(float64(snapshot.Ratings.GetUserIndex().Len()))
	log.Logger().Info("serve snapshot",
		zap.String("version", snapshot.Version),
		zap.String("generation", snapshot.Generation),
		zap.Int("n_items", snapshot.Space.Len()),
		zap.Int("n_factors", snapshot.Model.NFactors()))
}

// Reload loads models from the blob store and serves them.
func (s *Server) Reload(ctx context.Context) error {
	snapshot, err := s.Engine.Load(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	s.SetSnapshot(snapshot)
	return nil
}

// RequestReload asks the reload loop to load models again. Requests made during a reload are merged.
func (s *Server) RequestReload() {
	s.reload.Signal()
}

// RunReloader reloads models on request until ctx is done.
func (s *Server) RunReloader(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.reload.C:
			if err := s.Reload(ctx); err != nil {
				log.Logger().Error("failed to reload models", zap.Error(err))
			}
		}
	}
}

// Handler returns the HTTP handler of the server. Web services are created on the first call.
func (s *Server) Handler() http.Handler {
	if s.container == nil {
		s.container = s.CreateContainer()
	}
	return s.container
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.RunReloader(ctx)
	errCh := make(chan error, 1)
	go func() {
		log.Logger().Info("start http server", zap.String("url", "http://"+addr))
		errCh <- httpServer.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return errors.Trace(err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Trace(httpServer.Shutdown(shutdownCtx))
	}
}
