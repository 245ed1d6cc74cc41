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

package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"planet-ai/internal/pipeline/ingest"
	"planet-ai/internal/pipeline/query"
	"planet-ai/internal/storage/metadata"
	"planet-ai/internal/storage/pool"
	pkgerrors "planet-ai/pkg/errors"
	"planet-ai/pkg/log"
	"planet-ai/pkg/metrics"
)

const (
	msgNotPDF         = "File must be a PDF"
	msgTooLarge       = "File size exceeds the 4 MB limit"
	msgDBUnavailable  = "Database unavailable"
	msgNoCompletion   = "No response, try again"
	msgNoFile         = "No file provided"
	msgBadRequest     = "Invalid request body"
	msgDocNotFound    = "Document not found"
	msgInvalidDocID   = "Invalid document id"
	msgWelcome        = "Welcome to the Planet AI Backend"
	prometheusContent = "text/plain; version=0.0.4; charset=utf-8"
)

// Ingester 入库管线
type Ingester interface {
	Ingest(ctx context.Context, up ingest.Upload) (*ingest.Result, error)
}

// Answerer 问答补全
type Answerer interface {
	Answer(ctx context.Context, req query.AskRequest) (string, error)
}

// DocumentService 文档只读查询
type DocumentService interface {
	ListDocuments(ctx context.Context, pagination *metadata.Pagination) (*metadata.Page, error)
	GetDocument(ctx context.Context, id int64) (*metadata.Document, error)
}

// PoolState 连接池状态，供健康检查
type PoolState interface {
	State() pool.State
}

// Handler HTTP 处理器
type Handler struct {
	ingester Ingester
	answerer Answerer
	docs     DocumentService
	pool     PoolState
	logger   *log.Logger
}

// NewHandler 创建新的 HTTP 处理器
func NewHandler(ingester Ingester, answerer Answerer, docs DocumentService, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Handler{
		ingester: ingester,
		answerer: answerer,
		docs:     docs,
		logger:   logger,
	}
}

// SetPool 设置健康检查观察的连接池；未设置时（内存元数据）健康检查只报告进程存活
func (h *Handler) SetPool(p PoolState) {
	h.pool = p
}

// Root 欢迎信息
// GET /
func (h *Handler) Root(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]string{"message": msgWelcome})
}

// HealthCheck 健康检查；连接池未就绪时返回 503
// GET /api/health
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	state := "disabled"
	status := consts.StatusOK
	if h.pool != nil {
		s := h.pool.State()
		state = s.String()
		if s != pool.StateReady {
			status = consts.StatusServiceUnavailable
		}
	}
	body := map[string]interface{}{
		"status":     "ok",
		"pool_state": state,
		"timestamp":  time.Now().Unix(),
	}
	if status != consts.StatusOK {
		body["status"] = "unavailable"
	}
	ctx.JSON(status, body)
}

// Metrics Prometheus 文本格式指标
// GET /metrics
func (h *Handler) Metrics(c context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		h.logger.Error("写出指标失败", "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"detail": "metrics unavailable"})
		return
	}
	ctx.Data(consts.StatusOK, prometheusContent, buf.Bytes())
}

// Upload 上传 PDF 并入库
// POST /upload (multipart: file)
func (h *Handler) Upload(c context.Context, ctx *app.RequestContext) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"detail": msgNoFile})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.logger.Error("打开上传文件失败", "filename", fh.Filename, "error", err)
		ctx.JSON(consts.StatusBadRequest, map[string]string{"detail": msgNoFile})
		return
	}
	defer f.Close()

	// 多读一个字节即可判定超限，无需读完整个超大文件
	data, err := io.ReadAll(io.LimitReader(f, ingest.MaxFileSize+1))
	if err != nil {
		h.logger.Error("读取上传文件失败", "filename", fh.Filename, "error", err)
		ctx.JSON(consts.StatusBadRequest, map[string]string{"detail": msgNoFile})
		return
	}

	res, err := h.ingester.Ingest(c, ingest.Upload{
		Data:        data,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	})
	if err != nil {
		status, detail := uploadErrorResponse(err)
		ctx.JSON(status, map[string]string{"detail": detail})
		return
	}

	objectURL := ""
	if res.Document.ObjectURL != nil {
		objectURL = *res.Document.ObjectURL
	}
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"filename":       res.Document.Filename,
		"extracted_text": res.Document.ExtractedText,
		"object_url":     objectURL,
	})
}

// uploadErrorResponse 入库错误到状态码与对外消息的映射
func uploadErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, ingest.ErrUnsupportedType):
		return consts.StatusBadRequest, msgNotPDF
	case errors.Is(err, ingest.ErrTooLarge):
		return consts.StatusBadRequest, msgTooLarge
	case pkgerrors.ClassOf(err) == pkgerrors.ClassUnavailable:
		return consts.StatusServiceUnavailable, msgDBUnavailable
	}

	var ie *ingest.IngestError
	if errors.As(err, &ie) {
		if ie.Err == nil {
			return consts.StatusInternalServerError, ie.Kind.Error()
		}
		return consts.StatusInternalServerError, fmt.Sprintf("%s: %s", ie.Kind, pkgerrors.SanitizeForClient(ie.Err))
	}
	return consts.StatusInternalServerError, pkgerrors.SanitizeForClient(err)
}

// Ask 基于抽取文本回答问题
// POST /ask
func (h *Handler) Ask(c context.Context, ctx *app.RequestContext) {
	var req query.AskRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"detail": msgBadRequest})
		return
	}

	answer, err := h.answerer.Answer(c, req)
	if err != nil {
		if errors.Is(err, query.ErrNoCompletion) {
			ctx.JSON(consts.StatusInternalServerError, map[string]string{"detail": msgNoCompletion})
			return
		}
		h.logger.Error("生成回答失败", "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"detail": "Error generating response: " + pkgerrors.SanitizeForClient(err),
		})
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"answer": answer})
}

// ListDocuments 分页列出文档（不含抽取文本）
// GET /documents?offset=&limit=
func (h *Handler) ListDocuments(c context.Context, ctx *app.RequestContext) {
	offset, err1 := queryInt(ctx, "offset")
	limit, err2 := queryInt(ctx, "limit")
	if err1 != nil || err2 != nil || offset < 0 || limit < 0 {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"detail": "offset and limit must be non-negative integers"})
		return
	}

	page, err := h.docs.ListDocuments(c, &metadata.Pagination{Offset: offset, Limit: limit})
	if err != nil {
		h.writeStoreError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, page)
}

// GetDocument 获取单个文档（含抽取文本）
// GET /documents/:id
func (h *Handler) GetDocument(c context.Context, ctx *app.RequestContext) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"detail": msgInvalidDocID})
		return
	}

	doc, err := h.docs.GetDocument(c, id)
	if err != nil {
		h.writeStoreError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, doc)
}

// writeStoreError 读侧错误映射
func (h *Handler) writeStoreError(ctx *app.RequestContext, err error) {
	switch pkgerrors.ClassOf(err) {
	case pkgerrors.ClassNotFound:
		ctx.JSON(consts.StatusNotFound, map[string]string{"detail": msgDocNotFound})
	case pkgerrors.ClassUnavailable:
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{"detail": msgDBUnavailable})
	default:
		h.logger.Error("查询文档失败", "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"detail": pkgerrors.SanitizeForClient(err)})
	}
}

func queryInt(ctx *app.RequestContext, key string) (int, error) {
	v := ctx.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
