package metadata

import (
	"context"
	"time"
)

// Store 文档元数据存储接口
type Store interface {
	// EnsureSchema 建表（幂等）
	EnsureSchema(ctx context.Context) error
	// Insert 写入一条记录；ID 与 UploadedAt 由存储端分配并回填到 doc
	Insert(ctx context.Context, doc *Document) error
	// Get 根据 ID 获取记录，不存在时返回 errors.ErrNotFound
	Get(ctx context.Context, id int64) (*Document, error)
	// List 按 ID 倒序列出记录，不含 ExtractedText
	List(ctx context.Context, pagination *Pagination) ([]*Document, error)
	// Count 统计记录数
	Count(ctx context.Context) (int64, error)
	// HasObjectURL 是否存在引用该对象地址的记录
	HasObjectURL(ctx context.Context, url string) (bool, error)
	// Close 关闭存储
	Close() error
}

// Document 一个已入库的 PDF
type Document struct {
	ID            int64     `json:"id"`
	Filename      string    `json:"filename"`       // 上传时的原始文件名，不保证唯一
	Filesize      int64     `json:"filesize"`       // 原始字节数
	ExtractedText string    `json:"extracted_text"` // 抽取出的纯文本，可为空串
	ObjectURL     *string   `json:"object_url"`     // 未配置对象存储时为 nil
	UploadedAt    time.Time `json:"uploaded_at"`    // 写入时由服务端赋值
}

// Pagination 分页参数
type Pagination struct {
	Offset int `json:"offset"` // 偏移量
	Limit  int `json:"limit"`  // 限制数量
}

// DefaultPageLimit 未指定 Limit 时的页大小
const DefaultPageLimit = 50

func (p *Pagination) normalize() (offset, limit int) {
	if p == nil {
		return 0, DefaultPageLimit
	}
	offset, limit = p.Offset, p.Limit
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return offset, limit
}
