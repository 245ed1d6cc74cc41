// Package errors 提供统一错误辅助，不依赖 internal
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// 常用哨兵错误（可按需扩展错误码）
var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidArg = errors.New("invalid argument")
)

// Class 错误类别，供边界层（HTTP）映射状态码
type Class int

const (
	// ClassInternal 依赖或内部故障（5xx）
	ClassInternal Class = iota
	// ClassClient 调用方输入错误（4xx）
	ClassClient
	// ClassUnavailable 依赖暂不可用（503），如连接池未就绪或超时
	ClassUnavailable
	// ClassNotFound 资源不存在（404）
	ClassNotFound
)

func (c Class) String() string {
	switch c {
	case ClassClient:
		return "client"
	case ClassUnavailable:
		return "unavailable"
	case ClassNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Classifier 由错误类型自行声明类别
type Classifier interface {
	ErrorClass() Class
}

// ClassOf 沿错误链查找第一个 Classifier；ErrNotFound/ErrInvalidArg 有默认类别
func ClassOf(err error) Class {
	if err == nil {
		return ClassInternal
	}
	var c Classifier
	if errors.As(err, &c) {
		return c.ErrorClass()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrInvalidArg):
		return ClassClient
	}
	return ClassInternal
}

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// clientSafePatterns 错误关键字到对外消息的映射
var clientSafePatterns = []struct {
	pattern string
	message string
}{
	{"rate limit", "rate limit exceeded"},
	{"quota", "quota exceeded"},
	{"deadline exceeded", "request timed out"},
	{"timeout", "request timed out"},
	{"context canceled", "request cancelled"},
	{"invalid api", "authentication failed with provider"},
	{"unauthorized", "authentication failed with provider"},
	{"forbidden", "access denied by provider"},
	{"password authentication", "database authentication failed"},
	{"connection refused", "dependency unreachable"},
}

// SanitizeForClient 将内部错误转换为可对外暴露的消息；完整错误只写服务端日志
func SanitizeForClient(err error) string {
	if err == nil {
		return ""
	}
	errLower := strings.ToLower(err.Error())
	for _, p := range clientSafePatterns {
		if strings.Contains(errLower, p.pattern) {
			slog.Debug("sanitizing error for client", "original", err.Error(), "sanitized", p.message)
			return p.message
		}
	}
	slog.Error("internal error (sanitized for client)", "error", err)
	return "internal error"
}
