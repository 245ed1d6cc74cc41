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

package object

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"planet-ai/pkg/errors"
)

// MemoryStore 内存对象存储实现
type MemoryStore struct {
	bucket  string
	objects map[string]*object
	mu      sync.RWMutex
}

// object 内存对象实现
type object struct {
	data      []byte
	metadata  map[string]string
	createdAt time.Time
}

// NewMemoryStore 创建新的内存对象存储
func NewMemoryStore(bucket string) *MemoryStore {
	if bucket == "" {
		bucket = "local"
	}
	return &MemoryStore{
		bucket:  bucket,
		objects: make(map[string]*object),
	}
}

// URL 返回 memory://<bucket>/<key>
func (s *MemoryStore) URL(key string) string {
	return "memory://" + s.bucket + "/" + key
}

// Put 上传对象
func (s *MemoryStore) Put(ctx context.Context, key string, data io.Reader, size int64, metadata map[string]string) (string, error) {
	// 读取数据
	buffer := &bytes.Buffer{}
	if size > 0 {
		buffer.Grow(int(size))
	}
	if _, err := io.Copy(buffer, data); err != nil {
		return "", fmt.Errorf("failed to read object data: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return "", fmt.Errorf("%w: %s", ErrExists, key)
	}
	s.objects[key] = &object{
		data:      buffer.Bytes(),
		metadata:  metadata,
		createdAt: time.Now(),
	}
	return s.URL(key), nil
}

// Get 下载对象
func (s *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, exists := s.objects[key]
	if !exists {
		return nil, errors.Wrapf(errors.ErrNotFound, "object %s", key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete 删除对象
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; !exists {
		return errors.Wrapf(errors.ErrNotFound, "object %s", key)
	}
	delete(s.objects, key)
	return nil
}

// List 按键排序列出对象
func (s *MemoryStore) List(ctx context.Context, prefix string) ([]*ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*ObjectInfo
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			results = append(results, &ObjectInfo{
				Key:       key,
				URL:       s.URL(key),
				Size:      int64(len(obj.data)),
				Metadata:  obj.metadata,
				CreatedAt: obj.createdAt,
			})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results, nil
}

// Exists 检查对象是否存在
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.objects[key]
	return exists, nil
}

// Close 关闭存储连接
func (s *MemoryStore) Close() error {
	return nil
}
