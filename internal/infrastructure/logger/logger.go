// Package logger 构建服务根 Logger：基于 gclog 输出结构化 JSON，并从 Context 中补充追踪与调用方字段。
package logger

import (
	"context"

	"github.com/bionicotaku/lingo-services-social/internal/metadata"
	gclog "github.com/bionicotaku/lingo-utils/gclog"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"
)

// Config captures runtime metadata used to annotate logs.
type Config struct {
	Service string
	Version string
	HostID  string
	Env     string
}

// NewLogger builds a Kratos-compatible logger with trace/span and caller enrichment.
func NewLogger(cfg Config) (log.Logger, error) {
	labels := map[string]string{}
	if cfg.HostID != "" {
		labels["service.id"] = cfg.HostID
	}
	baseLogger, err := gclog.NewLogger(
		gclog.WithService(cfg.Service),
		gclog.WithVersion(cfg.Version),
		gclog.WithEnvironment(cfg.Env),
		gclog.WithStaticLabels(labels),
		gclog.EnableSourceLocation(),
	)
	if err != nil {
		return nil, err
	}
	return log.With(
		baseLogger,
		"trace_id", log.Valuer(traceID),
		"span_id", log.Valuer(spanID),
		"user_id", log.Valuer(callerID),
	), nil
}

func traceID(ctx context.Context) interface{} {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

func spanID(ctx context.Context) interface{} {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasSpanID() {
		return sc.SpanID().String()
	}
	return ""
}

// callerID 输出经网关或 JWT 认证的调用方 user_id，未认证请求为空串。
func callerID(ctx context.Context) interface{} {
	if meta, ok := metadata.FromContext(ctx); ok {
		return meta.UserID
	}
	return ""
}
