package metadata

import (
	"context"
)

// Repository 封装 Store，提供读侧业务方法，供 app 层 DocumentService 复用
type Repository struct {
	store Store
}

// NewRepository 从 Store 创建 Repository
func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

// Page 一页文档及总数
type Page struct {
	Documents []*Document `json:"documents"`
	Total     int64       `json:"total"`
	Offset    int         `json:"offset"`
	Limit     int         `json:"limit"`
}

// ListDocuments 列出文档（默认分页）并附带总数
func (r *Repository) ListDocuments(ctx context.Context, pagination *Pagination) (*Page, error) {
	offset, limit := pagination.normalize()
	docs, err := r.store.List(ctx, &Pagination{Offset: offset, Limit: limit})
	if err != nil {
		return nil, err
	}
	total, err := r.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Page{Documents: docs, Total: total, Offset: offset, Limit: limit}, nil
}

// GetDocument 按 ID 获取文档
func (r *Repository) GetDocument(ctx context.Context, id int64) (*Document, error) {
	return r.store.Get(ctx, id)
}
