package metadata

import (
	"fmt"

	"planet-ai/pkg/config"
)

// NewStore 根据配置创建元数据存储；postgres 需要连接池
func NewStore(cfg config.MetadataConfig, p Acquirer) (Store, error) {
	switch cfg.Type {
	case "", "postgres":
		if p == nil {
			return nil, fmt.Errorf("postgres 元数据存储需要连接池")
		}
		return NewPostgresStore(p), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("不支持的元数据存储类型: %s", cfg.Type)
	}
}
