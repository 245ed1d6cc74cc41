// Copyright 2026 fanjia1024
// Secret management abstraction

package secrets

import (
	"context"
	"errors"
	"fmt"

	"planet-ai/pkg/config"
)

// ErrNotFound secret 不存在
var ErrNotFound = errors.New("secret not found")

// Store Secret 存储接口
type Store interface {
	// Get 获取 secret 值；不存在时返回包装了 ErrNotFound 的错误
	Get(ctx context.Context, key string) (string, error)

	// Set 设置 secret 值
	Set(ctx context.Context, key string, value string) error

	// List 列出指定前缀的 secret keys
	List(ctx context.Context, prefix string) ([]string, error)
}

// 启动期从 secret store 读取的 key（与原部署环境变量同名）
const (
	KeyDatabaseURL = "DATABASE_URL"
	KeyLLMAPIKey   = "GROQ_API_KEY"
)

// NewStore 根据配置创建 Secret Store
func NewStore(cfg config.SecretsConfig) (Store, error) {
	switch cfg.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(), nil
	case "vault":
		return NewVaultStore(VaultConfig{
			Address:    cfg.Vault.Address,
			Token:      cfg.Vault.Token,
			PathPrefix: cfg.Vault.PathPrefix,
		})
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", cfg.Provider)
	}
}

// Resolve current 非空时原样返回，否则从 store 读取 key；secret 不存在时返回空串
func Resolve(ctx context.Context, store Store, key, current string) (string, error) {
	if current != "" || store == nil {
		return current, nil
	}
	v, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

// ResolveConfig 为未配置的 DSN 与补全服务 API Key 补齐 secret
func ResolveConfig(ctx context.Context, store Store, cfg *config.Config) error {
	dsn, err := Resolve(ctx, store, KeyDatabaseURL, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("读取 %s 失败: %w", KeyDatabaseURL, err)
	}
	cfg.Database.DSN = dsn
	apiKey, err := Resolve(ctx, store, KeyLLMAPIKey, cfg.Model.LLM.APIKey)
	if err != nil {
		return fmt.Errorf("读取 %s 失败: %w", KeyLLMAPIKey, err)
	}
	cfg.Model.LLM.APIKey = apiKey
	return nil
}
