// Copyright 2026 fanjia1024
// HashiCorp Vault secret store

package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string // Vault server address (e.g., http://vault:8200)
	Token      string // Vault token；为空时使用 VAULT_TOKEN
	PathPrefix string // "<mount>[/data]/<path>"，如 "secret/data/planet-ai"；默认挂载点 "secret"
}

type vaultStore struct {
	client *vault.Client
	mount  string
	base   string // 挂载点下的路径前缀
}

// NewVaultStore 创建 Vault secret store，secret 按 KV v2 读取：<mount>/data/<base>/<key> 的 value 字段
func NewVaultStore(config VaultConfig) (Store, error) {
	cfg := vault.DefaultConfig()
	if config.Address != "" {
		cfg.Address = config.Address
	}

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}

	mount, base := splitVaultPath(config.PathPrefix)
	return &vaultStore{client: client, mount: mount, base: base}, nil
}

// splitVaultPath 拆分挂载点与路径前缀；KV v2 API 路径中的 data/metadata 段会被去掉
func splitVaultPath(p string) (mount, base string) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "secret", ""
	}
	mount, rest, _ := strings.Cut(p, "/")
	for _, seg := range []string{"data/", "metadata/"} {
		if strings.HasPrefix(rest+"/", seg) {
			rest = strings.TrimPrefix(strings.TrimPrefix(rest, strings.TrimSuffix(seg, "/")), "/")
			break
		}
	}
	return mount, rest
}

func (v *vaultStore) path(key string) string {
	if v.base == "" {
		return key
	}
	return v.base + "/" + key
}

func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	secret, err := v.client.KVv2(v.mount).Get(ctx, v.path(key))
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if data, ok := secret.Data["value"].(string); ok {
		return data, nil
	}
	for _, val := range secret.Data {
		if str, ok := val.(string); ok {
			return str, nil
		}
	}
	return "", fmt.Errorf("%w: %s has no string value", ErrNotFound, key)
}

func (v *vaultStore) Set(ctx context.Context, key string, value string) error {
	_, err := v.client.KVv2(v.mount).Put(ctx, v.path(key), map[string]interface{}{"value": value})
	if err != nil {
		return fmt.Errorf("failed to write secret to vault: %w", err)
	}
	return nil
}

func (v *vaultStore) List(ctx context.Context, prefix string) ([]string, error) {
	secret, err := v.client.Logical().ListWithContext(ctx, fmt.Sprintf("%s/metadata/%s", v.mount, v.path(prefix)))
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets from vault: %w", err)
	}
	if secret == nil {
		return nil, nil
	}
	keys, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, nil
	}
	var result []string
	for _, k := range keys {
		if str, ok := k.(string); ok {
			result = append(result, prefix+str)
		}
	}
	return result, nil
}
