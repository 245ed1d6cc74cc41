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

package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"golang.org/x/time/rate"

	"planet-ai/pkg/log"
)

// Config 中间件配置
type Config struct {
	// AllowOrigins 为空或包含 "*" 时允许任意来源
	AllowOrigins []string
	// RateLimitRPS <= 0 时不限流
	RateLimitRPS int
	Logger       *log.Logger
}

// Middleware 中间件管理器
type Middleware struct {
	allowAll bool
	origins  map[string]struct{}
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewMiddleware 创建新的中间件管理器
func NewMiddleware(cfg Config) *Middleware {
	m := &Middleware{origins: make(map[string]struct{}), logger: cfg.Logger}
	if m.logger == nil {
		m.logger = log.Nop()
	}
	if len(cfg.AllowOrigins) == 0 {
		m.allowAll = true
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			m.allowAll = true
		}
		m.origins[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	if cfg.RateLimitRPS > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitRPS)
	}
	return m
}

// CORS 跨域中间件；预检请求直接返回 204
func (m *Middleware) CORS() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		origin := string(c.GetHeader("Origin"))
		switch {
		case m.allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := m.origins[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if string(c.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

// RateLimit 全局令牌桶限流；未配置时直接放行
func (m *Middleware) RateLimit() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if m.limiter != nil && !m.limiter.Allow() {
			c.AbortWithStatusJSON(consts.StatusTooManyRequests, map[string]string{
				"detail": "Too many requests, try again later",
			})
			return
		}
		c.Next(ctx)
	}
}

// AccessLog 每个请求一行访问日志
func (m *Middleware) AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		status := c.Response.StatusCode()
		args := []any{
			"method", string(c.Method()),
			"path", string(c.Path()),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if status >= consts.StatusInternalServerError {
			m.logger.Warn("http request", args...)
			return
		}
		m.logger.Info("http request", args...)
	}
}
