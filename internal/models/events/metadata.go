// Package events 提供领域事件构造与元数据辅助函数，统一事件命名与属性。
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// SchemaVersionV1 是当前事件载荷的 schema 版本。
const SchemaVersionV1 = "v1"

// BuildAttributes 构造符合 Pub/Sub 约定的 message attributes。
func BuildAttributes(evt *DomainEvent, schemaVersion string, traceID string) map[string]string {
	if schemaVersion == "" {
		schemaVersion = SchemaVersionV1
	}
	attrs := map[string]string{
		"event_id":       evt.EventID.String(),
		"event_type":     evt.Kind.String(),
		"aggregate_id":   evt.AggregateID.String(),
		"aggregate_type": evt.AggregateType,
		"version":        strconv.FormatInt(evt.Version, 10),
		"occurred_at":    evt.OccurredAt.UTC().Format(time.RFC3339),
		"schema_version": schemaVersion,
	}
	if traceID != "" {
		attrs["trace_id"] = traceID
	}
	return attrs
}

// MarshalAttributes 将 attributes 编码为 JSON，供 outbox.headers 字段使用。
func MarshalAttributes(attrs map[string]string) ([]byte, error) {
	return json.Marshal(attrs)
}

// UnmarshalAttributes 解析 outbox.headers，空值返回空 map。
func UnmarshalAttributes(raw []byte) (map[string]string, error) {
	attrs := map[string]string{}
	if len(raw) == 0 {
		return attrs, nil
	}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// TraceIDFromContext 提取 OTel Trace ID，若不存在返回空字符串。
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() || !spanCtx.HasTraceID() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// VersionFromTime 根据时间戳计算聚合版本号，采用 UTC 微秒时间。
func VersionFromTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMicro()
}
