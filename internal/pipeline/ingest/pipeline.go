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

// Package ingest 实现 PDF 入库管线：校验 → 抽取 → 写对象 → 写元数据
package ingest

import (
	"bytes"
	"context"
	"errors"
	"time"

	"planet-ai/internal/storage/metadata"
	"planet-ai/internal/storage/object"
	"planet-ai/pkg/log"
	"planet-ai/pkg/metrics"
	"planet-ai/pkg/tracing"
)

const (
	// PDFContentType 唯一接受的声明类型
	PDFContentType = "application/pdf"
	// MaxFileSize 上传大小上限（4 MiB）
	MaxFileSize = 4 * 1024 * 1024

	defaultStoreTimeout   = 30 * time.Second
	defaultPersistTimeout = 10 * time.Second
	defaultKeyPrefix      = "uploads"
)

// Upload 一次提交
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Result 入库成功的返回
type Result struct {
	Document *metadata.Document
	Report   *Report
}

// KeyFunc 由文件名派生对象键
type KeyFunc func(prefix, filename string, now time.Time) string

// Pipeline 入库管线；各步骤为硬闸门，不重试也不回滚
type Pipeline struct {
	extractor Extractor
	docs      metadata.Store
	objects   object.Store
	logger    *log.Logger

	maxFileSize    int
	keyPrefix      string
	keyFunc        KeyFunc
	storeTimeout   time.Duration
	persistTimeout time.Duration
}

// Option 管线选项
type Option func(*Pipeline)

// WithObjectStore 启用对象存储步骤；s 为 nil 时跳过该步骤，object_url 为空
func WithObjectStore(s object.Store, prefix string, timeout time.Duration) Option {
	return func(p *Pipeline) {
		p.objects = s
		if prefix != "" {
			p.keyPrefix = prefix
		}
		if timeout > 0 {
			p.storeTimeout = timeout
		}
	}
}

// WithPersistTimeout 元数据写入超时
func WithPersistTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.persistTimeout = d
		}
	}
}

// WithLogger 设置日志
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithKeyFunc 替换对象键派生函数
func WithKeyFunc(f KeyFunc) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.keyFunc = f
		}
	}
}

// withMaxFileSize 仅供测试调小上限
func withMaxFileSize(n int) Option {
	return func(p *Pipeline) { p.maxFileSize = n }
}

// New 创建入库管线
func New(extractor Extractor, docs metadata.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:      extractor,
		docs:           docs,
		logger:         log.Nop(),
		maxFileSize:    MaxFileSize,
		keyPrefix:      defaultKeyPrefix,
		keyFunc:        object.DeriveKey,
		storeTimeout:   defaultStoreTimeout,
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest 处理一次提交。写对象与写元数据两步不受调用方取消影响，超时各自独立
func (p *Pipeline) Ingest(ctx context.Context, up Upload) (*Result, error) {
	start := time.Now()
	ctx, span := tracing.StartIngestSpan(ctx, up.Filename, len(up.Data))
	report := &Report{}

	res, err := p.run(ctx, up, report)
	tracing.EndSpan(span, err)

	outcome := "ok"
	var ierr *IngestError
	if errors.As(err, &ierr) {
		outcome = ierr.outcome()
	}
	metrics.IngestTotal.WithLabelValues(outcome).Inc()
	metrics.IngestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	logger := p.logger.With("filename", up.Filename, "size", len(up.Data), "steps", report)
	switch {
	case err == nil:
		metrics.IngestBytes.Add(float64(len(up.Data)))
		logger.Info("文档入库完成", "id", res.Document.ID, "object_url", report.ObjectURL)
	case report.Orphaned():
		logger.Warn("元数据写入失败，对象已成为孤儿", "object_key", report.ObjectKey, "error", err)
	case isClientError(ierr):
		logger.Info("拒绝入库", "reason", outcome)
	default:
		logger.Error("文档入库失败", "stage", ierr.Stage, "error", err)
	}
	return res, err
}

func isClientError(e *IngestError) bool {
	return e != nil && (e.Kind == ErrUnsupportedType || e.Kind == ErrTooLarge)
}

func (p *Pipeline) run(ctx context.Context, up Upload, report *Report) (*Result, error) {
	fail := func(kind error, stage Step, cause error) (*Result, error) {
		return nil, &IngestError{Kind: kind, Stage: stage, Err: cause, Report: report}
	}

	// 1-2. 类型与大小校验，先于任何下游调用
	t := time.Now()
	if up.ContentType != PDFContentType {
		report.record(StepValidate, t, ErrUnsupportedType)
		return fail(ErrUnsupportedType, StepValidate, nil)
	}
	if len(up.Data) > p.maxFileSize {
		report.record(StepValidate, t, ErrTooLarge)
		return fail(ErrTooLarge, StepValidate, nil)
	}
	report.record(StepValidate, t, nil)

	// 3. 抽取文本
	text, err := p.step(ctx, report, StepExtract, func(ctx context.Context) (string, error) {
		return p.extractor.Extract(ctx, up.Data)
	})
	if err != nil {
		return fail(ErrExtractionFailed, StepExtract, err)
	}

	// 调用方断开后仍让写入完整执行，结果被丢弃
	writeCtx := context.WithoutCancel(ctx)

	// 4. 写对象（可选）
	var objectURL *string
	if p.objects != nil {
		key := p.keyFunc(p.keyPrefix, up.Filename, time.Now())
		url, err := p.step(writeCtx, report, StepStoreObject, func(ctx context.Context) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
			defer cancel()
			return p.objects.Put(ctx, key, bytes.NewReader(up.Data), int64(len(up.Data)),
				map[string]string{object.MetaContentType: PDFContentType, "filename": up.Filename})
		})
		if err != nil {
			return fail(ErrStorageFailed, StepStoreObject, err)
		}
		report.ObjectKey, report.ObjectURL = key, url
		objectURL = &url
	}

	// 5. 写元数据：唯一一次 INSERT，连接只在这一步持有
	doc := &metadata.Document{
		Filename:      up.Filename,
		Filesize:      int64(len(up.Data)),
		ExtractedText: text,
		ObjectURL:     objectURL,
	}
	_, err = p.step(writeCtx, report, StepPersist, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, p.persistTimeout)
		defer cancel()
		return "", p.docs.Insert(ctx, doc)
	})
	if err != nil {
		return fail(ErrPersistFailed, StepPersist, err)
	}

	return &Result{Document: doc, Report: report}, nil
}

// step 执行一步并记录耗时、结果、span 与指标
func (p *Pipeline) step(ctx context.Context, report *Report, step Step, fn func(ctx context.Context) (string, error)) (string, error) {
	start := time.Now()
	ctx, span := tracing.StartStageSpan(ctx, string(step))
	out, err := fn(ctx)
	tracing.EndSpan(span, err)
	report.record(step, start, err)

	label := "ok"
	if err != nil {
		label = "error"
	}
	metrics.IngestStepTotal.WithLabelValues(string(step), label).Inc()
	return out, err
}
