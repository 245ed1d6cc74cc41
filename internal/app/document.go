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

package app

import (
	"context"

	"planet-ai/internal/storage/metadata"
	pkgerrors "planet-ai/pkg/errors"
)

// MaxPageLimit 单页最多返回的文档数
const MaxPageLimit = 200

// DocumentService 文档门面：API 层仅依赖此接口，不直接调用 storage
type DocumentService interface {
	ListDocuments(ctx context.Context, pagination *metadata.Pagination) (*metadata.Page, error)
	GetDocument(ctx context.Context, id int64) (*metadata.Document, error)
}

// documentService 使用 metadata.Repository 实现 DocumentService
type documentService struct {
	repo *metadata.Repository
}

// NewDocumentService 创建文档门面（由 bootstrap 装配时调用）
func NewDocumentService(store metadata.Store) DocumentService {
	return &documentService{repo: metadata.NewRepository(store)}
}

func (s *documentService) ListDocuments(ctx context.Context, pagination *metadata.Pagination) (*metadata.Page, error) {
	if pagination != nil && pagination.Limit > MaxPageLimit {
		p := *pagination
		p.Limit = MaxPageLimit
		pagination = &p
	}
	return s.repo.ListDocuments(ctx, pagination)
}

func (s *documentService) GetDocument(ctx context.Context, id int64) (*metadata.Document, error) {
	if id <= 0 {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrInvalidArg, "document id %d", id)
	}
	return s.repo.GetDocument(ctx, id)
}
