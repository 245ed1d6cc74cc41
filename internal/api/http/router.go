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

package http

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"planet-ai/internal/api/http/middleware"
	"planet-ai/internal/pipeline/ingest"
)

// DefaultMaxBodySize 请求体上限：留出 multipart 开销，使超限文件仍能到达处理器并得到 400
const DefaultMaxBodySize = 2*ingest.MaxFileSize + 1<<20

// Router HTTP 路由器
type Router struct {
	handler        *Handler
	middleware     *middleware.Middleware
	metricsEnabled bool
	rateLimit      bool
	corsEnabled    bool
	maxBodySize    int
	// extra 在内置中间件之前注册，如链路追踪
	extra []app.HandlerFunc
}

// NewRouter 创建新的路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{
		handler:        handler,
		middleware:     mw,
		metricsEnabled: true,
		corsEnabled:    true,
		maxBodySize:    DefaultMaxBodySize,
	}
}

// SetMetricsEnabled 是否暴露 GET /metrics
func (r *Router) SetMetricsEnabled(enabled bool) {
	r.metricsEnabled = enabled
}

// SetRateLimit 是否启用全局限流中间件
func (r *Router) SetRateLimit(enabled bool) {
	r.rateLimit = enabled
}

// SetCORSEnabled 关闭后不注册 CORS 中间件，响应不带任何跨域头
func (r *Router) SetCORSEnabled(enabled bool) {
	r.corsEnabled = enabled
}

// Use 追加全局中间件；Hertz 在注册路由时合并处理链，必须在 Build 之前调用
func (r *Router) Use(handlers ...app.HandlerFunc) {
	r.extra = append(r.extra, handlers...)
}

// Build 构建 Hertz 服务器并注册路由；opts 追加在默认选项之后（如 tracing）
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	base := []config.Option{
		server.WithHostPorts(addr),
		server.WithMaxRequestBodySize(r.maxBodySize),
	}
	h := server.Default(append(base, opts...)...)

	if len(r.extra) > 0 {
		h.Use(r.extra...)
	}
	h.Use(r.middleware.AccessLog())
	if r.corsEnabled {
		h.Use(r.middleware.CORS())
	}
	if r.rateLimit {
		h.Use(r.middleware.RateLimit())
	}

	h.GET("/", r.handler.Root)
	h.POST("/upload", r.handler.Upload)
	h.POST("/ask", r.handler.Ask)
	h.GET("/documents", r.handler.ListDocuments)
	h.GET("/documents/:id", r.handler.GetDocument)

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)

	if r.metricsEnabled {
		h.GET("/metrics", r.handler.Metrics)
	}
	return h
}
