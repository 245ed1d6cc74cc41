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

package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// errEmptyPDF 零字节输入不是合法 PDF
var errEmptyPDF = errors.New("空 PDF")

// Extractor 将 PDF 原始字节转换为纯文本
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractorFunc 函数适配为 Extractor
type ExtractorFunc func(ctx context.Context, data []byte) (string, error)

// Extract 实现 Extractor
func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// NewExtractor 按名称创建抽取器：unipdf（默认）| ledongthuc
func NewExtractor(name string) (Extractor, error) {
	switch name {
	case "", "unipdf":
		return UniPDFExtractor{}, nil
	case "ledongthuc":
		return LedongthucExtractor{}, nil
	default:
		return nil, fmt.Errorf("不支持的 PDF 抽取器: %s", name)
	}
}

// UniPDFExtractor 基于 unipdf 的抽取器，按页拼接，页间空行分隔
type UniPDFExtractor struct{}

// Extract 实现 Extractor
func (UniPDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errEmptyPDF
	}

	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("打开 PDF 失败: %w", err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("获取页数失败: %w", err)
	}

	var buf strings.Builder
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page, err := reader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("获取第 %d 页失败: %w", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("创建第 %d 页提取器失败: %w", i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("提取第 %d 页文本失败: %w", i, err)
		}
		appendPage(&buf, text)
	}
	return strings.TrimSpace(buf.String()), nil
}

// LedongthucExtractor 基于 github.com/ledongthuc/pdf 的纯文本抽取器
type LedongthucExtractor struct{}

// Extract 实现 Extractor
func (LedongthucExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errEmptyPDF
	}

	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("打开 PDF 失败: %w", err)
	}

	var buf strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("提取第 %d 页文本失败: %w", i, err)
		}
		appendPage(&buf, text)
	}
	return strings.TrimSpace(buf.String()), nil
}

func appendPage(buf *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if buf.Len() > 0 {
		buf.WriteString("\n\n")
	}
	buf.WriteString(text)
}
