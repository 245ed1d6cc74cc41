package metadata

import (
	"context"
	"sort"
	"sync"
	"time"

	"planet-ai/pkg/errors"
)

// MemoryStore 内存元数据存储实现
type MemoryStore struct {
	docs   map[int64]*Document
	nextID int64
	mu     sync.RWMutex
}

// NewMemoryStore 创建新的内存元数据存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[int64]*Document),
	}
}

// EnsureSchema 内存实现无需建表
func (s *MemoryStore) EnsureSchema(ctx context.Context) error { return nil }

// Insert 写入记录
func (s *MemoryStore) Insert(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	doc.ID = s.nextID
	doc.UploadedAt = time.Now().UTC()

	cp := *doc
	s.docs[doc.ID] = &cp
	return nil
}

// Get 根据 ID 获取记录
func (s *MemoryStore) Get(ctx context.Context, id int64) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.docs[id]
	if !exists {
		return nil, errors.Wrapf(errors.ErrNotFound, "document %d", id)
	}
	cp := *doc
	return &cp, nil
}

// List 按 ID 倒序列出记录
func (s *MemoryStore) List(ctx context.Context, pagination *Pagination) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	offset, limit := pagination.normalize()
	if offset >= len(ids) {
		return []*Document{}, nil
	}
	end := min(offset+limit, len(ids))

	results := make([]*Document, 0, end-offset)
	for _, id := range ids[offset:end] {
		cp := *s.docs[id]
		cp.ExtractedText = ""
		results = append(results, &cp)
	}
	return results, nil
}

// Count 统计记录数
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}

// HasObjectURL 是否存在引用该对象地址的记录
func (s *MemoryStore) HasObjectURL(ctx context.Context, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc.ObjectURL != nil && *doc.ObjectURL == url {
			return true, nil
		}
	}
	return false, nil
}

// Close 关闭存储
func (s *MemoryStore) Close() error {
	return nil
}
