package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoCompletion 补全服务没有返回任何可用的 choice
var ErrNoCompletion = errors.New("no completion returned")

// ErrRateLimited 补全服务返回 429
var ErrRateLimited = errors.New("completion service rate limit exceeded")

// Client LLM 客户端接口
type Client interface {
	// ChatWithContext 发送一次聊天补全请求，返回第一个 choice 的内容
	ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	TopP        float64  `json:"top_p"`
	Stop        []string `json:"stop,omitempty"`
}

// Message 聊天消息
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// 各 OpenAI 兼容提供商的默认端点
var defaultBaseURLs = map[string]string{
	"groq":   "https://api.groq.com/openai/v1",
	"openai": "https://api.openai.com/v1",
	"qwen":   "https://dashscope.aliyuncs.com/compatible-mode/v1",
}

// NewClient 创建 LLM 客户端；所有提供商均走 OpenAI 兼容接口，baseURL 为空时使用提供商默认端点
func NewClient(provider, model, apiKey, baseURL string, timeout time.Duration) (Client, error) {
	if provider == "" {
		provider = "groq"
	}
	if baseURL == "" {
		u, ok := defaultBaseURLs[provider]
		if !ok {
			return nil, fmt.Errorf("未知的 LLM 提供商 %q 且未配置 base_url", provider)
		}
		baseURL = u
	}
	return NewOpenAIClient(provider, model, apiKey, baseURL, timeout)
}
