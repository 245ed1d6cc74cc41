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

// Package query 基于已抽取的文档文本回答问题：一次补全调用，可选回答缓存
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"planet-ai/internal/model/llm"
	"planet-ai/internal/storage/cache"
	"planet-ai/pkg/log"
	"planet-ai/pkg/metrics"
	"planet-ai/pkg/tracing"
)

// ErrNoCompletion 补全服务没有返回 choice
var ErrNoCompletion = llm.ErrNoCompletion

// AskRequest 一次提问
type AskRequest struct {
	ExtractedText string     `json:"extracted_text"`
	Question      string     `json:"question"`
	PreviousConvo [][]string `json:"previous_convo"` // [[说话人, 内容], ...]，按时间顺序
}

// Generator 组装提示并调用补全服务
type Generator struct {
	client   llm.Client
	options  llm.GenerateOptions
	cache    cache.Store
	cacheTTL time.Duration
	logger   *log.Logger
}

// Option Generator 选项
type Option func(*Generator)

// WithCache 启用回答缓存；store 为 nil 时不缓存
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(g *Generator) {
		g.cache = store
		g.cacheTTL = ttl
	}
}

// WithLogger 设置日志
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator 创建生成器
func NewGenerator(client llm.Client, options llm.GenerateOptions, opts ...Option) *Generator {
	g := &Generator{client: client, options: options, logger: log.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BuildMessages 按固定顺序生成三条 user 消息：Context、Question、Previous Conversation
func BuildMessages(req AskRequest) []llm.Message {
	return []llm.Message{
		{Role: "user", Content: "Context: " + req.ExtractedText},
		{Role: "user", Content: "Question: " + req.Question},
		{Role: "user", Content: "Previous Conversation: " + renderConversation(req.PreviousConvo)},
	}
}

func renderConversation(turns [][]string) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		switch len(turn) {
		case 0:
			continue
		case 1:
			lines = append(lines, turn[0])
		default:
			lines = append(lines, turn[0]+": "+strings.Join(turn[1:], " "))
		}
	}
	return strings.Join(lines, "\n")
}

// Answer 发起一次补全调用并返回第一个 choice 的内容，不重试
func (g *Generator) Answer(ctx context.Context, req AskRequest) (string, error) {
	messages := BuildMessages(req)
	key := g.cacheKey(messages)

	if g.cache != nil {
		var cached string
		err := g.cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			metrics.AnswerCacheTotal.WithLabelValues("hit").Inc()
			metrics.AskTotal.WithLabelValues("cached").Inc()
			return cached, nil
		case errors.Is(err, cache.ErrMiss):
			metrics.AnswerCacheTotal.WithLabelValues("miss").Inc()
		default:
			g.logger.Warn("读取回答缓存失败", "error", err)
		}
	}

	start := time.Now()
	ctx, span := tracing.StartAskSpan(ctx, g.client.Model())
	answer, err := g.client.ChatWithContext(ctx, messages, g.options)
	tracing.EndSpan(span, err)
	metrics.AskDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, llm.ErrNoCompletion):
		metrics.AskTotal.WithLabelValues("no_completion").Inc()
		return "", ErrNoCompletion
	case err != nil:
		metrics.AskTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("completion: %w", err)
	}
	metrics.AskTotal.WithLabelValues("ok").Inc()

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, answer, g.cacheTTL); err != nil {
			g.logger.Warn("写入回答缓存失败", "error", err)
		}
	}
	return answer, nil
}

// cacheKey 模型、生成参数与消息内容的 SHA-256
func (g *Generator) cacheKey(messages []llm.Message) string {
	h := sha256.New()
	h.Write([]byte(g.client.Provider() + "\x00" + g.client.Model() + "\x00"))
	_ = json.NewEncoder(h).Encode(g.options)
	_ = json.NewEncoder(h).Encode(messages)
	return hex.EncodeToString(h.Sum(nil))
}
