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

package config

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cinerecs/cinerecs/model"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config is the configuration for cinerecs.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Blob      BlobConfig      `mapstructure:"blob"`
	Training  TrainingConfig  `mapstructure:"training"`
	Content   ContentConfig   `mapstructure:"content"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Tuning    TuningConfig    `mapstructure:"tuning"`
	Server    ServerConfig    `mapstructure:"server"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// DatabaseConfig is the configuration for the data store and the result cache.
type DatabaseConfig struct {
	DataStore       string        `mapstructure:"data_store" validate:"required,data_store"`
	CacheStore      string        `mapstructure:"cache_store" validate:"omitempty,cache_store"`
	TablePrefix     string        `mapstructure:"table_prefix"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	IsolationLevel  string        `mapstructure:"isolation_level" validate:"oneof=READ-UNCOMMITTED READ-COMMITTED REPEATABLE-READ SERIALIZABLE"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// BlobConfig is the configuration for the artifact store.
type BlobConfig struct {
	URI   string          `mapstructure:"uri" validate:"required"`
	S3    S3Config        `mapstructure:"s3"`
	GCS   GCSConfig       `mapstructure:"gcs"`
	Azure AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureBlobConfig struct {
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	Endpoint         string `mapstructure:"endpoint"`
	ConnectionString string `mapstructure:"connection_string"`
}

// TrainingConfig holds hyper-parameters of the latent factor model.
type TrainingConfig struct {
	NFactors    int     `mapstructure:"n_factors" validate:"gt=0"`
	NEpochs     int     `mapstructure:"n_epochs" validate:"gt=0"`
	Lr          float32 `mapstructure:"lr" validate:"gt=0"`
	Reg         float32 `mapstructure:"reg" validate:"gte=0"`
	InitMean    float32 `mapstructure:"init_mean"`
	InitStdDev  float32 `mapstructure:"init_std" validate:"gte=0"`
	RandomState int64   `mapstructure:"random_state"`
	Verbose     int     `mapstructure:"verbose" validate:"gte=0"`
}

// Params converts the section into model parameters.
func (config *TrainingConfig) Params() model.Params {
	return model.Params{
		model.NFactors:    config.NFactors,
		model.NEpochs:     config.NEpochs,
		model.Lr:          config.Lr,
		model.Reg:         config.Reg,
		model.InitMean:    config.InitMean,
		model.InitStdDev:  config.InitStdDev,
		model.RandomState: config.RandomState,
	}
}

type ContentConfig struct {
	Tokenizer string `mapstructure:"tokenizer" validate:"oneof=tags words"`
}

type RecommendConfig struct {
	CandidateCount   int     `mapstructure:"candidate_count" validate:"gt=0"`
	ResultCount      int     `mapstructure:"result_count" validate:"gt=0"`
	NeighborCount    int     `mapstructure:"neighbor_count" validate:"gt=0"`
	BlendWeight      float32 `mapstructure:"blend_weight" validate:"gte=0,lte=1"`
	LikeThreshold    int     `mapstructure:"like_threshold"`
	NormalizeProfile bool    `mapstructure:"normalize_profile"`
	// LiveHistory reads the history of a user from the data store on every request instead of the
	// ratings the model was trained on.
	LiveHistory bool `mapstructure:"live_history"`
}

type TuningConfig struct {
	NTrials   int     `mapstructure:"n_trials" validate:"gt=0"`
	TestRatio float32 `mapstructure:"test_ratio" validate:"gt=0,lt=1"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
	// RateLimit is the number of requests per second accepted by the server, zero means unlimited.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
}

type TracingConfig struct {
	EnableTracing     bool    `mapstructure:"enable_tracing"`
	Exporter          string  `mapstructure:"exporter" validate:"oneof=zipkin otlp otlphttp"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	Sampler           string  `mapstructure:"sampler" validate:"oneof=always never ratio"`
	Ratio             float64 `mapstructure:"ratio" validate:"gte=0,lte=1"`
}

// NewTracerProvider creates a tracer provider. A no-op provider is returned when tracing is disabled.
func (config *TracingConfig) NewTracerProvider(name string) (trace.TracerProvider, error) {
	if !config.EnableTracing {
		return noop.NewTracerProvider(), nil
	}

	var exporter tracesdk.SpanExporter
	var err error
	switch config.Exporter {
	case "zipkin":
		exporter, err = zipkin.New(config.CollectorEndpoint)
	case "otlp":
		client := otlptracegrpc.NewClient(otlptracegrpc.WithInsecure(), otlptracegrpc.WithEndpoint(config.CollectorEndpoint))
		exporter, err = otlptrace.New(context.Background(), client)
	case "otlphttp":
		client := otlptracehttp.NewClient(otlptracehttp.WithInsecure(), otlptracehttp.WithEndpoint(config.CollectorEndpoint))
		exporter, err = otlptrace.New(context.Background(), client)
	default:
		return nil, errors.NotSupportedf("exporter %s", config.Exporter)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}

	var sampler tracesdk.Sampler
	switch config.Sampler {
	case "always":
		sampler = tracesdk.AlwaysSample()
	case "never":
		sampler = tracesdk.NeverSample()
	case "ratio":
		sampler = tracesdk.TraceIDRatioBased(config.Ratio)
	default:
		return nil, errors.NotSupportedf("sampler %s", config.Sampler)
	}

	return tracesdk.NewTracerProvider(
		tracesdk.WithSampler(sampler),
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	), nil
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataStore:      "sqlite://cinerecs.db",
			CacheStore:     "memory://",
			CacheTTL:       10 * time.Minute,
			IsolationLevel: "READ-UNCOMMITTED",
		},
		Blob: BlobConfig{
			URI: "models",
		},
		Training: TrainingConfig{
			NFactors:   100,
			NEpochs:    20,
			Lr:         0.005,
			Reg:        0.02,
			InitStdDev: 0.1,
			Verbose:    10,
		},
		Content: ContentConfig{
			Tokenizer: "tags",
		},
		Recommend: RecommendConfig{
			CandidateCount: 50,
			ResultCount:    10,
			NeighborCount:  10,
			BlendWeight:    0.5,
			LikeThreshold:  4,
		},
		Tuning: TuningConfig{
			NTrials:   10,
			TestRatio: 0.2,
		},
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8087,
			RequestTimeout: 5 * time.Second,
		},
		Tracing: TracingConfig{
			Exporter: "otlp",
			Sampler:  "always",
			Ratio:    1,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [database]
	v.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	v.SetDefault("database.cache_store", defaultConfig.Database.CacheStore)
	v.SetDefault("database.cache_ttl", defaultConfig.Database.CacheTTL)
	v.SetDefault("database.isolation_level", defaultConfig.Database.IsolationLevel)
	// [blob]
	v.SetDefault("blob.uri", defaultConfig.Blob.URI)
	// [training]
	v.SetDefault("training.n_factors", defaultConfig.Training.NFactors)
	v.SetDefault("training.n_epochs", defaultConfig.Training.NEpochs)
	v.SetDefault("training.lr", defaultConfig.Training.Lr)
	v.SetDefault("training.reg", defaultConfig.Training.Reg)
	v.SetDefault("training.init_mean", defaultConfig.Training.InitMean)
	v.SetDefault("training.init_std", defaultConfig.Training.InitStdDev)
	v.SetDefault("training.random_state", defaultConfig.Training.RandomState)
	v.SetDefault("training.verbose", defaultConfig.Training.Verbose)
	// [content]
	v.SetDefault("content.tokenizer", defaultConfig.Content.Tokenizer)
	// [recommend]
	v.SetDefault("recommend.candidate_count", defaultConfig.Recommend.CandidateCount)
	v.SetDefault("recommend.result_count", defaultConfig.Recommend.ResultCount)
	v.SetDefault("recommend.neighbor_count", defaultConfig.Recommend.NeighborCount)
	v.SetDefault("recommend.blend_weight", defaultConfig.Recommend.BlendWeight)
	v.SetDefault("recommend.like_threshold", defaultConfig.Recommend.LikeThreshold)
	v.SetDefault("recommend.normalize_profile", defaultConfig.Recommend.NormalizeProfile)
	v.SetDefault("recommend.live_history", defaultConfig.Recommend.LiveHistory)
	// [tuning]
	v.SetDefault("tuning.n_trials", defaultConfig.Tuning.NTrials)
	v.SetDefault("tuning.test_ratio", defaultConfig.Tuning.TestRatio)
	// [server]
	v.SetDefault("server.host", defaultConfig.Server.Host)
	v.SetDefault("server.port", defaultConfig.Server.Port)
	v.SetDefault("server.request_timeout", defaultConfig.Server.RequestTimeout)
	v.SetDefault("server.rate_limit", defaultConfig.Server.RateLimit)
	// [tracing]
	v.SetDefault("tracing.exporter", defaultConfig.Tracing.Exporter)
	v.SetDefault("tracing.sampler", defaultConfig.Tracing.Sampler)
	v.SetDefault("tracing.ratio", defaultConfig.Tracing.Ratio)
}

var decodeHook = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
	mapstructure.StringToTimeDurationHookFunc(),
	mapstructure.StringToSliceHookFunc(","),
))

type configBinding struct {
	key string
	env string
}

var bindings = []configBinding{
	{"database.data_store", "CINERECS_DATA_STORE"},
	{"database.cache_store", "CINERECS_CACHE_STORE"},
	{"database.table_prefix", "CINERECS_TABLE_PREFIX"},
	{"blob.uri", "CINERECS_BLOB_URI"},
	{"blob.s3.endpoint", "CINERECS_S3_ENDPOINT"},
	{"blob.s3.access_key_id", "CINERECS_S3_ACCESS_KEY_ID"},
	{"blob.s3.secret_access_key", "CINERECS_S3_SECRET_ACCESS_KEY"},
	{"blob.gcs.credentials_file", "CINERECS_GCS_CREDENTIALS_FILE"},
	{"blob.azure.connection_string", "CINERECS_AZURE_CONNECTION_STRING"},
	{"server.host", "CINERECS_SERVER_HOST"},
	{"server.port", "CINERECS_SERVER_PORT"},
}

// LoadConfig loads configuration from a toml file. Environment variables take precedence over the
// file, missing keys fall back to defaults. An empty path loads defaults and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefault(v)
	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf, decodeHook); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks values against their constraints. Messages of all failed fields are joined.
func (config *Config) Validate() error {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	validate := validator.New()
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return errors.Trace(err)
	}
	if err := validate.RegisterValidation("data_store", func(fl validator.FieldLevel) bool {
		return hasAnyPrefix(fl.Field().String(), "mysql://", "postgres://", "postgresql://",
			"mongodb://", "mongodb+srv://", "sqlite://")
	}); err != nil {
		return errors.Trace(err)
	}
	if err := validate.RegisterValidation("cache_store", func(fl validator.FieldLevel) bool {
		return hasAnyPrefix(fl.Field().String(), "redis://", "rediss://", "redis+cluster://", "memory://")
	}); err != nil {
		return errors.Trace(err)
	}
	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errors.Trace(err)
	}
	translations := validationErrors.Translate(trans)
	keys := lo.Keys(translations)
	sort.Strings(keys)
	messages := lo.Map(keys, func(key string, _ int) string {
		return translations[key]
	})
	return errors.NotValidf("%s", strings.Join(messages, "; "))
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	return lo.SomeBy(prefixes, func(prefix string) bool {
		return strings.HasPrefix(s, prefix)
	})
}
