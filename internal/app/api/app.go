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

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"planet-ai/internal/api/http"
	"planet-ai/internal/api/http/middleware"
	"planet-ai/internal/app"
	"planet-ai/pkg/log"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用（装配 HTTP Router、Handler、Middleware；业务依赖全部来自 Bootstrap）
type App struct {
	config       *app.Bootstrap
	handler      *http.Handler
	router       *http.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 创建 API 应用（由 cmd/api 调用）
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	if bootstrap == nil || bootstrap.Config == nil {
		return nil, errors.New("bootstrap 未初始化")
	}
	cfg := bootstrap.Config

	handler := http.NewHandler(bootstrap.Pipeline, bootstrap.Generator, bootstrap.Documents, bootstrap.Logger)
	if bootstrap.Pool != nil {
		handler.SetPool(bootstrap.Pool)
	}

	mw := middleware.NewMiddleware(middleware.Config{
		AllowOrigins: cfg.API.CORS.AllowOrigins,
		RateLimitRPS: cfg.API.Middleware.RateLimitRPS,
		Logger:       bootstrap.Logger,
	})
	router := http.NewRouter(handler, mw)
	router.SetMetricsEnabled(cfg.Monitoring.Prometheus.Enable)
	router.SetRateLimit(cfg.API.Middleware.RateLimit)
	router.SetCORSEnabled(cfg.API.CORS.Enable)

	return &App{
		config:  bootstrap,
		handler: handler,
		router:  router,
	}, nil
}

// Addr 监听地址（host:port）
func (a *App) Addr() string {
	return fmt.Sprintf("%s:%d", a.config.Config.API.Host, a.config.Config.API.Port)
}

// Run 启动 HTTP 服务并阻塞，直到 Shutdown
func (a *App) Run(addr string) error {
	cfg := a.config.Config
	a.config.Logger.Info("API 服务启动", "addr", addr)

	// 使用 Hertz slog 扩展，与 bootstrap 配置对齐
	output, err := log.Output(&log.Config{File: cfg.Log.File})
	if err != nil {
		return err
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(log.ParseLevel(cfg.Log.Level))
	hertzLogger := hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	)
	hlog.SetLogger(hertzLogger)

	// 可选：启用链路追踪（OpenTelemetry）
	tracing := cfg.Monitoring.Tracing
	exportEndpoint := tracing.ExportEndpoint
	if exportEndpoint == "" {
		exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if tracing.Enable && exportEndpoint != "" {
		serviceName := tracing.ServiceName
		if serviceName == "" {
			serviceName = "planet-ai-api"
		}
		opts := []provider.Option{
			provider.WithServiceName(serviceName),
			provider.WithExportEndpoint(exportEndpoint),
		}
		if tracing.Insecure {
			opts = append(opts, provider.WithInsecure())
		}
		a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
		tracerOpt, tcfg := hertztracing.NewServerTracer()
		a.router.Use(hertztracing.ServerMiddleware(tcfg))
		a.hertz = a.router.Build(addr, tracerOpt)
		a.config.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
	} else {
		a.hertz = a.router.Build(addr)
	}
	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）：先停止接收请求，再释放存储与连接池
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.hertz != nil {
		errs = append(errs, a.hertz.Shutdown(ctx))
	}
	if a.otelProvider != nil {
		errs = append(errs, a.otelProvider.Shutdown(ctx))
	}
	errs = append(errs, a.config.Close())
	return errors.Join(errs...)
}
