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

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cinerecs/cinerecs/base/log"
	"github.com/cinerecs/cinerecs/logics"
	"github.com/cinerecs/cinerecs/storage/cache"
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
	"go.opentelemetry.io/contrib/instrumentation/github.com/emicklei/go-restful/otelrestful"
	"go.uber.org/zap"
)

const (
	apiDocsPath = "/apidocs.json"
	apiUIPath   = "/apidocs/"
)

// CreateContainer creates the REST container with API docs and metrics.
func (s *Server) CreateContainer() *restful.Container {
	container := restful.NewContainer()
	container.Add(s.CreateWebService())
	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       apiDocsPath,
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}))
	container.Handle(apiUIPath, v5emb.New("cinerecs", apiDocsPath, apiUIPath))
	container.Handle("/metrics", promhttp.Handler())
	return container
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "cinerecs",
			Description: "Hybrid movie recommendations.",
		},
	}
}

// CreateWebService creates the web service of recommendations.
func (s *Server) CreateWebService() *restful.WebService {
	ws := new(restful.WebService)
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(otelrestful.OTelFilter("cinerecs", otelrestful.WithTracerProvider(s.TracerProvider)))
	ws.Filter(RequestIdFilter)
	ws.Filter(LogFilter)
	ws.Filter(s.RateLimitFilter)
	ws.Filter(s.TimeoutFilter)

	ws.Route(ws.GET("/recommend/{user-id}").To(s.getRecommend).
		Doc("Get recommended items for a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned items").DataType("integer")).
		Returns(http.StatusOK, "OK", []logics.Score{}).
		Returns(http.StatusServiceUnavailable, "models are not loaded", nil).
		Writes([]logics.Score{}))
	ws.Route(ws.GET("/item/{item-id}/neighbors").To(s.getNeighbors).
		Doc("Get items with similar genres.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.PathParameter("item-id", "identifier of the item").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned items").DataType("integer")).
		Returns(http.StatusOK, "OK", []logics.Score{}).
		Returns(http.StatusNotFound, "item not found", nil).
		Writes([]logics.Score{}))
	ws.Route(ws.GET("/health").To(s.getHealth).
		Doc("Get the status of the server.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(HealthStatus{}))
	ws.Route(ws.POST("/reload").To(s.reloadModels).
		Doc("Load the latest models from the blob store.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Returns(http.StatusAccepted, "Accepted", Success{}).
		Writes(Success{}))
	return ws
}

type HealthStatus struct {
	Ready               bool   `json:"ready"`
	Version             string `json:"version,omitempty"`
	DataStoreConnected  bool   `json:"data_store_connected"`
	DataStoreError      string `json:"data_store_error,omitempty"`
	CacheStoreConnected bool   `json:"cache_store_connected"`
	CacheStoreError     string `json:"cache_store_error,omitempty"`
}

type Success struct {
	Message string `json:"message"`
}

// RequestIdFilter propagates the request id or assigns a new one.
func RequestIdFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter("X-Request-ID")
	if requestId == "" {
		requestId = uuid.NewString()
	}
	resp.Header().Set("X-Request-ID", requestId)
	chain.ProcessFilter(req, resp)
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	RequestSeconds.WithLabelValues(req.SelectedRoutePath()).Observe(time.Since(start).Seconds())
	if req.Request.URL.Path != "/api/health" {
		log.ResponseLogger(resp).Info(req.Request.Method+" "+req.Request.URL.String(),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// RateLimitFilter rejects requests beyond the configured rate.
func (s *Server) RateLimitFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	if s.limiter.TakeAvailable(1) == 0 {
		RejectedRequestsCounter.Inc()
		resp.Header().Set("Retry-After", "1")
		writeError(resp, http.StatusTooManyRequests, errors.New("too many requests"))
		return
	}
	chain.ProcessFilter(req, resp)
}

// TimeoutFilter bounds the context of a request.
func (s *Server) TimeoutFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	if s.Config.Server.RequestTimeout > 0 {
		ctx, cancel := context.WithTimeout(req.Request.Context(), s.Config.Server.RequestTimeout)
		defer cancel()
		req.Request = req.Request.WithContext(ctx)
	}
	chain.ProcessFilter(req, resp)
}

// ParseInt parses integers from the query parameter.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

func parseRequest(request *restful.Request, pathParam string, fallback int) (int64, int, error) {
	id, err := strconv.ParseInt(request.PathParameter(pathParam), 10, 64)
	if err != nil {
		return 0, 0, errors.NotValidf("%s %q", pathParam, request.PathParameter(pathParam))
	}
	n, err := ParseInt(request, "n", fallback)
	if err != nil || n < 0 {
		return 0, 0, errors.NotValidf("n %q", request.QueryParameter("n"))
	}
	return id, n, nil
}

func (s *Server) getRecommend(request *restful.Request, response *restful.Response) {
	userId, n, err := parseRequest(request, "user-id", s.Config.Recommend.ResultCount)
	if err != nil {
		BadRequest(response, err)
		return
	}
	snapshot := s.Snapshot()
	if snapshot == nil {
		ServiceUnavailable(response, errors.New("models are not loaded"))
		return
	}
	ctx := request.Request.Context()
	compute := func() ([]logics.Score, error) {
		return snapshot.GetRecommendations(ctx, userId, n)
	}
	var scores []logics.Score
	if s.Config.Recommend.LiveHistory {
		// histories change between requests
		scores, err = compute()
	} else {
		key := cache.Key("recommend", snapshot.Version, strconv.FormatInt(userId, 10), strconv.Itoa(n))
		scores, err = s.cached(ctx, "recommend", key, compute)
	}
	if err != nil {
		s.handleError(response, err)
		return
	}
	Ok(response, scores)
}

func (s *Server) getNeighbors(request *restful.Request, response *restful.Response) {
	itemId, n, err := parseRequest(request, "item-id", s.Config.Recommend.NeighborCount)
	if err != nil {
		BadRequest(response, err)
		return
	}
	snapshot := s.Snapshot()
	if snapshot == nil {
		ServiceUnavailable(response, errors.New("models are not loaded"))
		return
	}
	ctx := request.Request.Context()
	key := cache.Key("neighbors", snapshot.Version, strconv.FormatInt(itemId, 10), strconv.Itoa(n))
	scores, err := s.cached(ctx, "neighbors", key, func() ([]logics.Score, error) {
		return snapshot.GetSimilarItems(ctx, itemId, n)
	})
	if err != nil {
		s.handleError(response, err)
		return
	}
	Ok(response, scores)
}

// cached returns scores from the cache store or computes and stores them. Cache failures only
// cost a recomputation.
func (s *Server) cached(ctx context.Context, route, key string, compute func() ([]logics.Score, error)) ([]logics.Score, error) {
	if value, err := s.Engine.CacheClient.Get(ctx, key); err == nil {
		var scores []logics.Score
		if err = json.Unmarshal([]byte(value), &scores); err == nil {
			CacheHitCounter.WithLabelValues(route).Inc()
			return scores, nil
		}
		log.Logger().Warn("failed to decode cached scores", zap.String("key", key), zap.Error(err))
	} else if !errors.Is(err, errors.NotFound) && !errors.Is(err, cache.ErrNoDatabase) {
		log.Logger().Warn("failed to read cache", zap.String("key", key), zap.Error(err))
	}
	CacheMissCounter.WithLabelValues(route).Inc()
	scores, err := compute()
	if err != nil {
		return nil, errors.Trace(err)
	}
	value, err := json.Marshal(scores)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = s.Engine.CacheClient.Set(ctx, key, string(value), s.Config.Database.CacheTTL); err != nil &&
		!errors.Is(err, cache.ErrNoDatabase) {
		log.Logger().Warn("failed to write cache", zap.String("key", key), zap.Error(err))
	}
	return scores, nil
}

func (s *Server) getHealth(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	var status HealthStatus
	if snapshot := s.Snapshot(); snapshot != nil {
		status.Version = snapshot.Version
	}
	if err := s.Engine.DataClient.Ping(); err != nil {
		status.DataStoreError = err.Error()
	} else {
		status.DataStoreConnected = true
	}
	if err := s.Engine.CacheClient.Ping(ctx); err != nil {
		status.CacheStoreError = err.Error()
	} else {
		status.CacheStoreConnected = true
	}
	status.Ready = status.Version != "" && status.DataStoreConnected
	Ok(response, status)
}

func (s *Server) reloadModels(_ *restful.Request, response *restful.Response) {
	s.RequestReload()
	if err := response.WriteHeaderAndJson(http.StatusAccepted, Success{Message: "reload requested"}, restful.MIME_JSON); err != nil {
		log.Logger().Error("failed to write json", zap.Error(err))
	}
}

func (s *Server) handleError(response *restful.Response, err error) {
	switch {
	case errors.Is(err, errors.NotFound):
		PageNotFound(response, err)
	case errors.Is(err, context.DeadlineExceeded):
		ServiceUnavailable(response, err)
	default:
		InternalServerError(response, err)
	}
}

func writeError(response *restful.Response, status int, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err = response.WriteError(status, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	log.ResponseLogger(response).Warn("bad request", zap.Error(err))
	writeError(response, http.StatusBadRequest, err)
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	writeError(response, http.StatusInternalServerError, err)
}

// ServiceUnavailable returns a service unavailable error.
func ServiceUnavailable(response *restful.Response, err error) {
	log.ResponseLogger(response).Warn("service unavailable", zap.Error(err))
	writeError(response, http.StatusServiceUnavailable, err)
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	writeError(response, http.StatusNotFound, err)
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.Logger().Error("failed to write json", zap.Error(err))
	}
}
