// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"planet-ai/internal/model/llm"
	"planet-ai/internal/pipeline/ingest"
	"planet-ai/internal/pipeline/query"
	"planet-ai/internal/storage/cache"
	"planet-ai/internal/storage/metadata"
	"planet-ai/internal/storage/object"
	"planet-ai/internal/storage/pool"
	"planet-ai/pkg/config"
	"planet-ai/pkg/log"
	"planet-ai/pkg/metrics"
	"planet-ai/pkg/secrets"
)

const (
	defaultCacheTTL      = 10 * time.Minute
	defaultObjectTimeout = 30 * time.Second
)

// Bootstrap 统一初始化：供 api 与 cli 复用，避免在 cmd 内写业务与 pipeline
type Bootstrap struct {
	Config        *config.Config
	Logger        *log.Logger
	Pool          *pool.Pool // 元数据为 memory 时为 nil
	MetadataStore metadata.Store
	ObjectStore   object.Store // 未配置对象存储时为 nil
	AnswerCache   cache.Store  // 未配置缓存时为 nil
	Documents     DocumentService
	Pipeline      *ingest.Pipeline
	Generator     *query.Generator
}

// Options NewBootstrap 的可替换依赖，测试中注入假实现
type Options struct {
	Connector pool.Connector
	LLMClient llm.Client
	// StorageOnly 只初始化存储（运维命令用），不要求补全服务 API Key
	StorageOnly bool
}

// NewBootstrap 根据配置创建 Bootstrap（Secrets/Pool/Storage/Models）；连接池在此完成初始化
func NewBootstrap(ctx context.Context, cfg *config.Config, opts Options) (*Bootstrap, error) {
	if cfg == nil {
		return nil, errors.New("配置为空")
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	secretStore, err := secrets.NewStore(cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("初始化 secret store 失败: %w", err)
	}
	if err := secrets.ResolveConfig(ctx, secretStore, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil && !(opts.StorageOnly && errors.Is(err, config.ErrMissingAPIKey)) {
		return nil, err
	}

	b := &Bootstrap{Config: cfg, Logger: logger}
	if err := b.initStores(ctx, opts); err != nil {
		_ = b.Close()
		return nil, err
	}
	if opts.StorageOnly {
		return b, nil
	}
	if err := b.initModels(opts); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

func newLogger(cfg *config.Config) (*log.Logger, error) {
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return logger, nil
}

func (b *Bootstrap) initStores(ctx context.Context, opts Options) error {
	cfg := b.Config
	var err error

	if cfg.Storage.Metadata.Type == "" || cfg.Storage.Metadata.Type == "postgres" {
		b.Pool = pool.New(pool.Options{Connect: opts.Connector, Logger: b.Logger})
		err = b.Pool.Init(ctx, pool.InitConfig{
			DSN:            cfg.Database.DSN,
			MinSize:        cfg.Database.MinConns,
			MaxSize:        cfg.Database.MaxConns,
			AcquireTimeout: config.ParseDuration(cfg.Database.AcquireTimeout, 0),
			ConnectTimeout: config.ParseDuration(cfg.Database.ConnectTimeout, 0),
			SSLMode:        cfg.Database.SSLMode,
		})
		if err != nil {
			return fmt.Errorf("初始化数据库连接池失败: %w", err)
		}
		registerCollector(b.Pool.Collector(), b.Logger)
		b.MetadataStore, err = metadata.NewStore(cfg.Storage.Metadata, b.Pool)
	} else {
		b.MetadataStore, err = metadata.NewStore(cfg.Storage.Metadata, nil)
	}
	if err != nil {
		return fmt.Errorf("初始化元数据存储失败: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := b.MetadataStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("初始化 pdf_metadata 表失败: %w", err)
		}
	}
	b.Documents = NewDocumentService(b.MetadataStore)

	b.ObjectStore, err = object.NewStore(ctx, cfg.Storage.Object)
	if err != nil {
		return fmt.Errorf("初始化对象存储失败: %w", err)
	}
	b.AnswerCache, err = cache.NewCache(cfg.Storage.Cache)
	if err != nil {
		return fmt.Errorf("初始化回答缓存失败: %w", err)
	}

	extractor, err := ingest.NewExtractor(cfg.Ingest.Extractor)
	if err != nil {
		return fmt.Errorf("初始化文本抽取器失败: %w", err)
	}
	pipelineOpts := []ingest.Option{
		ingest.WithLogger(b.Logger),
		ingest.WithPersistTimeout(config.ParseDuration(cfg.Ingest.PersistTimeout, 0)),
	}
	if b.ObjectStore != nil {
		pipelineOpts = append(pipelineOpts, ingest.WithObjectStore(b.ObjectStore,
			cfg.Storage.Object.Prefix, config.ParseDuration(cfg.Storage.Object.Timeout, defaultObjectTimeout)))
	}
	b.Pipeline = ingest.New(extractor, b.MetadataStore, pipelineOpts...)
	return nil
}

func (b *Bootstrap) initModels(opts Options) error {
	client := opts.LLMClient
	if client == nil {
		var err error
		client, err = NewLLMClientFromConfig(b.Config)
		if err != nil {
			return fmt.Errorf("初始化补全客户端失败: %w", err)
		}
	}
	genOpts := []query.Option{query.WithLogger(b.Logger)}
	if b.AnswerCache != nil {
		genOpts = append(genOpts, query.WithCache(b.AnswerCache, config.ParseDuration(b.Config.Storage.Cache.TTL, defaultCacheTTL)))
	}
	b.Generator = query.NewGenerator(client, GenerateOptionsFromConfig(b.Config), genOpts...)
	return nil
}

// registerCollector 连接池 Collector 只注册一次；重复注册（测试中多次 bootstrap）时忽略
func registerCollector(c prometheus.Collector, logger *log.Logger) {
	if err := metrics.DefaultRegistry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			logger.Warn("注册连接池指标失败", "error", err)
		}
	}
}

// Close 按依赖反序释放：缓存、对象存储、元数据存储，最后是连接池
func (b *Bootstrap) Close() error {
	var errs []error
	if b.AnswerCache != nil {
		errs = append(errs, b.AnswerCache.Close())
	}
	if b.ObjectStore != nil {
		errs = append(errs, b.ObjectStore.Close())
	}
	if b.MetadataStore != nil {
		errs = append(errs, b.MetadataStore.Close())
	}
	if b.Pool != nil {
		errs = append(errs, b.Pool.Close())
	}
	return errors.Join(errs...)
}
