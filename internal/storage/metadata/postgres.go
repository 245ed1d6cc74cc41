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

package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"planet-ai/internal/storage/pool"
	pkgerrors "planet-ai/pkg/errors"
)

// Acquirer 提供池化连接，*pool.Pool 满足该接口
type Acquirer interface {
	Acquire(ctx context.Context) (*pool.Conn, error)
}

const (
	sqlInsert = `INSERT INTO pdf_metadata (filename, filesize, filecontent, s3_url, uploaddate)
VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
RETURNING id, uploaddate`
	sqlGet = `SELECT id, filename, filesize, filecontent, s3_url, uploaddate
FROM pdf_metadata WHERE id = $1`
	sqlList = `SELECT id, filename, filesize, s3_url, uploaddate
FROM pdf_metadata ORDER BY id DESC LIMIT $1 OFFSET $2`
	sqlCount        = `SELECT count(*) FROM pdf_metadata`
	sqlHasObjectURL = `SELECT EXISTS (SELECT 1 FROM pdf_metadata WHERE s3_url = $1)`
)

// PostgresStore 基于连接池的 pdf_metadata 表存储；每次操作借出一条连接并在返回前归还
type PostgresStore struct {
	pool Acquirer
}

// NewPostgresStore 创建 Postgres 元数据存储
func NewPostgresStore(p Acquirer) *PostgresStore {
	return &PostgresStore{pool: p}
}

// EnsureSchema 执行建表 DDL
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, SchemaDDL); err != nil {
		return fmt.Errorf("metadata: ensure schema: %w", err)
	}
	return nil
}

// Insert 执行唯一一条 INSERT，uploaddate 取数据库时间
func (s *PostgresStore) Insert(ctx context.Context, doc *Document) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	err = conn.QueryRow(ctx, sqlInsert,
		doc.Filename, doc.Filesize, doc.ExtractedText, doc.ObjectURL,
	).Scan(&doc.ID, &doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("metadata: insert: %w", err)
	}
	return nil
}

// Get 根据 ID 获取记录
func (s *PostgresStore) Get(ctx context.Context, id int64) (*Document, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	var doc Document
	err = conn.QueryRow(ctx, sqlGet, id).Scan(
		&doc.ID, &doc.Filename, &doc.Filesize, &doc.ExtractedText, &doc.ObjectURL, &doc.UploadedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrNotFound, "document %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("metadata: get %d: %w", id, err)
	}
	return &doc, nil
}

// List 按 ID 倒序列出记录，不读取 filecontent
func (s *PostgresStore) List(ctx context.Context, pagination *Pagination) ([]*Document, error) {
	offset, limit := pagination.normalize()
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sqlList, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("metadata: list: %w", err)
	}
	defer rows.Close()

	docs := make([]*Document, 0, limit)
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.Filesize, &doc.ObjectURL, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("metadata: list scan: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadata: list: %w", err)
	}
	return docs, nil
}

// Count 统计记录数
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	var n int64
	if err := conn.QueryRow(ctx, sqlCount).Scan(&n); err != nil {
		return 0, fmt.Errorf("metadata: count: %w", err)
	}
	return n, nil
}

// HasObjectURL 是否存在引用该对象地址的记录
func (s *PostgresStore) HasObjectURL(ctx context.Context, url string) (bool, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	var ok bool
	if err := conn.QueryRow(ctx, sqlHasObjectURL, url).Scan(&ok); err != nil {
		return false, fmt.Errorf("metadata: lookup object url: %w", err)
	}
	return ok, nil
}

// Close 连接池由调用方持有，这里不关闭
func (s *PostgresStore) Close() error {
	return nil
}
