package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrExists 目标键已存在；对象一经写入不会被覆盖
var ErrExists = errors.New("object already exists")

// MetaContentType Put 元数据中表示内容类型的键
const MetaContentType = "Content-Type"

// Store 对象存储接口
type Store interface {
	// Put 上传对象并返回可持久访问的地址；键已存在时返回 ErrExists
	Put(ctx context.Context, key string, data io.Reader, size int64, metadata map[string]string) (string, error)
	// Get 下载对象
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除对象
	Delete(ctx context.Context, key string) error
	// List 列出对象
	List(ctx context.Context, prefix string) ([]*ObjectInfo, error)
	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)
	// URL 返回键对应的访问地址（与 Put 返回值一致）
	URL(key string) string
	// Close 关闭存储连接
	Close() error
}

// ObjectInfo 对象信息
type ObjectInfo struct {
	Key       string            `json:"key"`        // 对象键
	URL       string            `json:"url"`        // 访问地址
	Size      int64             `json:"size"`       // 对象大小
	Metadata  map[string]string `json:"metadata"`   // 对象元数据
	CreatedAt time.Time         `json:"created_at"` // 创建时间
}
