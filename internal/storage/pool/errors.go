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

package pool

import (
	pkgerrors "planet-ai/pkg/errors"
)

// Error 连接池错误；类别决定 HTTP 层的状态码
type Error struct {
	msg   string
	class pkgerrors.Class
}

func (e *Error) Error() string { return e.msg }

// ErrorClass 实现 pkg/errors.Classifier
func (e *Error) ErrorClass() pkgerrors.Class { return e.class }

var (
	// ErrConfigInvalid 连接串为空或无法解析，或 min/max 不一致
	ErrConfigInvalid = &Error{msg: "pool: invalid config", class: pkgerrors.ClassInternal}
	// ErrConnectFailed 在 ConnectTimeout 内无法建立首个连接
	ErrConnectFailed = &Error{msg: "pool: connect failed", class: pkgerrors.ClassUnavailable}
	// ErrTimeout Acquire 等待超过 AcquireTimeout
	ErrTimeout = &Error{msg: "pool: acquire timeout", class: pkgerrors.ClassUnavailable}
	// ErrClosed 连接池已关闭
	ErrClosed = &Error{msg: "pool: closed", class: pkgerrors.ClassUnavailable}
	// ErrNotInitialized 尚未调用 Init（或 Init 尚未完成）
	ErrNotInitialized = &Error{msg: "pool: not initialized", class: pkgerrors.ClassUnavailable}
)
