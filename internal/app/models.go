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
	"fmt"
	"time"

	"planet-ai/internal/model/llm"
	"planet-ai/pkg/config"
)

const defaultLLMTimeout = 60 * time.Second

// NewLLMClientFromConfig 根据 model.llm 与 rate_limits.llm 创建补全客户端（带限流）
func NewLLMClientFromConfig(cfg *config.Config) (llm.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置为空")
	}
	lc := cfg.Model.LLM
	if lc.APIKey == "" {
		return nil, fmt.Errorf("LLM provider %q 的 api_key 未配置", lc.Provider)
	}
	client, err := llm.NewClient(lc.Provider, lc.Model, lc.APIKey, lc.BaseURL, config.ParseDuration(lc.Timeout, defaultLLMTimeout))
	if err != nil {
		return nil, err
	}
	limiter := llm.NewRateLimiter(llm.LimitConfig{
		RequestsPerMinute: cfg.RateLimits.LLM.RequestsPerMinute,
		MaxConcurrent:     cfg.RateLimits.LLM.MaxConcurrent,
	})
	return llm.NewRateLimitedClient(client, limiter), nil
}

// GenerateOptionsFromConfig 补全参数；未配置的项沿用服务默认值
func GenerateOptionsFromConfig(cfg *config.Config) llm.GenerateOptions {
	opts := llm.GenerateOptions{Temperature: 1, MaxTokens: 1024, TopP: 1}
	if cfg == nil {
		return opts
	}
	lc := cfg.Model.LLM
	if lc.Temperature > 0 {
		opts.Temperature = lc.Temperature
	}
	if lc.MaxTokens > 0 {
		opts.MaxTokens = lc.MaxTokens
	}
	if lc.TopP > 0 {
		opts.TopP = lc.TopP
	}
	return opts
}
