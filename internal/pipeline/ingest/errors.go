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
	"errors"
	"fmt"

	pkgerrors "planet-ai/pkg/errors"
)

// 入库错误种类；调用方输入错误与依赖故障在类型上区分
var (
	ErrUnsupportedType  = errors.New("unsupported content type")
	ErrTooLarge         = errors.New("file too large")
	ErrExtractionFailed = errors.New("text extraction failed")
	ErrStorageFailed    = errors.New("object storage failed")
	ErrPersistFailed    = errors.New("metadata persistence failed")
)

// IngestError 一次入库失败：Kind 为上面的哨兵之一，Err 为下游原因（可为空）
type IngestError struct {
	Kind   error
	Stage  Step
	Err    error
	Report *Report
}

func (e *IngestError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap 同时暴露 Kind 与原因，errors.Is 可匹配 ErrPersistFailed 与 pool.ErrTimeout 等
func (e *IngestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ErrorClass 输入错误为 client；依赖不可用（如连接池超时）为 unavailable；其余为 internal
func (e *IngestError) ErrorClass() pkgerrors.Class {
	if e.Kind == ErrUnsupportedType || e.Kind == ErrTooLarge {
		return pkgerrors.ClassClient
	}
	if e.Err != nil && pkgerrors.ClassOf(e.Err) == pkgerrors.ClassUnavailable {
		return pkgerrors.ClassUnavailable
	}
	return pkgerrors.ClassInternal
}

// outcome 指标标签
func (e *IngestError) outcome() string {
	switch e.Kind {
	case ErrUnsupportedType:
		return "unsupported_type"
	case ErrTooLarge:
		return "too_large"
	case ErrExtractionFailed:
		return "extraction_failed"
	case ErrStorageFailed:
		return "storage_failed"
	default:
		return "persist_failed"
	}
}
