package object

import (
	"context"
	"fmt"

	"planet-ai/pkg/config"
)

// NewStore 根据配置创建对象存储；type 为空或 none 时返回 nil（不写对象，object_url 为空）
func NewStore(ctx context.Context, cfg config.ObjectConfig) (Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(cfg.Bucket), nil
	case "gcs":
		s, err := NewGCSStore(ctx, GCSConfig{Bucket: cfg.Bucket, CredentialsFile: cfg.CredentialsFile})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("不支持的对象存储类型: %s", cfg.Type)
	}
}
