// Package metadata 提供调用方元信息在 Context 中的存取工具，供传输层、服务层与日志共享。
package metadata

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// HandlerMetadata 描述从请求头、JWT 或上游链路解析出的上下文信息。
type HandlerMetadata struct {
	UserID    string
	RequestID string
	// Source 记录身份来源：header（网关注入）或 jwt。
	Source string
}

// IsZero 判断 Metadata 是否为空。
func (m HandlerMetadata) IsZero() bool {
	return m.UserID == "" && m.RequestID == "" && m.Source == ""
}

// UserUUID 尝试解析 user_id 为 UUID。
func (m HandlerMetadata) UserUUID() (uuid.UUID, bool) {
	if strings.TrimSpace(m.UserID) == "" {
		return uuid.Nil, false
	}
	value, err := uuid.Parse(strings.TrimSpace(m.UserID))
	if err != nil {
		return uuid.Nil, false
	}
	return value, true
}

type ctxKey struct{}

// Inject 将 HandlerMetadata 注入 Context。
func Inject(ctx context.Context, meta HandlerMetadata) context.Context {
	if meta.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, meta)
}

// FromContext 读取上游注入的 HandlerMetadata。
func FromContext(ctx context.Context) (HandlerMetadata, bool) {
	if ctx == nil {
		return HandlerMetadata{}, false
	}
	meta, ok := ctx.Value(ctxKey{}).(HandlerMetadata)
	return meta, ok
}

// CallerID 返回已认证调用方的 UUID。
func CallerID(ctx context.Context) (uuid.UUID, bool) {
	meta, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return meta.UserUUID()
}
