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

package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// LimitConfig 补全调用限流配置
type LimitConfig struct {
	RequestsPerMinute float64 // 每分钟请求数，<= 0 不限
	MaxConcurrent     int     // 最大并发请求数，<= 0 不限
}

// RateLimiter 请求速率 + 并发控制
type RateLimiter struct {
	requests  *rate.Limiter
	semaphore chan struct{}
}

// NewRateLimiter 创建限流器；两项均未配置时返回 nil
func NewRateLimiter(cfg LimitConfig) *RateLimiter {
	if cfg.RequestsPerMinute <= 0 && cfg.MaxConcurrent <= 0 {
		return nil
	}
	l := &RateLimiter{}
	if cfg.RequestsPerMinute > 0 {
		// burst = 2 秒的配额
		burst := max(int(cfg.RequestsPerMinute/60.0*2), 1)
		l.requests = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), burst)
	}
	if cfg.MaxConcurrent > 0 {
		l.semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}
	return l
}

// Wait 阻塞直到允许执行；成功后必须调用 Release
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l.requests != nil {
		if err := l.requests.Wait(ctx); err != nil {
			return fmt.Errorf("request rate limit wait failed: %w", err)
		}
	}
	if l.semaphore != nil {
		select {
		case l.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Release 释放并发 slot
func (l *RateLimiter) Release() {
	if l.semaphore == nil {
		return
	}
	select {
	case <-l.semaphore:
	default:
	}
}

// InFlight 当前占用的并发 slot 数
func (l *RateLimiter) InFlight() int {
	return len(l.semaphore)
}
