// Copyright 2026 fanjia1024
// 入库管线与补全调用的 OpenTelemetry span。
// TracerProvider 由 API 进程通过 hertz-contrib obs-opentelemetry 安装，未安装时使用全局 no-op

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "planet-ai"

// StartIngestSpan 开始一次入库的根 span
func StartIngestSpan(ctx context.Context, filename string, size int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ingest",
		trace.WithAttributes(
			attribute.String("document.filename", filename),
			attribute.Int("document.size", size),
		),
	)
}

// StartStageSpan 开始入库管线某一步骤的 span（extract / store_object / persist）
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ingest."+stage,
		trace.WithAttributes(attribute.String("ingest.stage", stage)),
	)
}

// StartAskSpan 开始一次补全调用 span
func StartAskSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "llm.complete",
		trace.WithAttributes(attribute.String("llm.model", model)),
	)
}

// EndSpan 结束 span；err 非空时记录错误状态
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
