package controllers

import (
	"context"
	stdhttp "net/http"
	"time"

	loader "github.com/bionicotaku/lingo-services-social/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-social/internal/metadata"
	"github.com/bionicotaku/lingo-services-social/internal/services"
	"github.com/google/uuid"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// HandlerType 表示 Handler 的语义类别，用于选择超时策略。
type HandlerType int

const (
	// HandlerTypeDefault 表示未显式区分的 Handler。
	HandlerTypeDefault HandlerType = iota
	// HandlerTypeCommand 表示写操作 Handler。
	HandlerTypeCommand
	// HandlerTypeQuery 表示只读查询 Handler。
	HandlerTypeQuery
)

// HandlerTimeouts 聚合不同类型 Handler 的超时策略。
type HandlerTimeouts struct {
	Default time.Duration
	Command time.Duration
	Query   time.Duration
}

const (
	fallbackDefaultTimeout = 5 * time.Second
	fallbackQueryTimeout   = 3 * time.Second
)

// BaseHandler 提供公共的超时、身份解析与响应写回能力，供具体 Handler 内嵌复用。
type BaseHandler struct {
	timeouts HandlerTimeouts
}

// NewBaseHandler 构造基础 Handler，并为缺省值填充合理的回退策略。
func NewBaseHandler(timeouts HandlerTimeouts) *BaseHandler {
	if timeouts.Default <= 0 {
		if timeouts.Command > 0 {
			timeouts.Default = timeouts.Command
		} else if timeouts.Query > 0 {
			timeouts.Default = timeouts.Query
		} else {
			timeouts.Default = fallbackDefaultTimeout
		}
	}
	if timeouts.Command <= 0 {
		timeouts.Command = timeouts.Default
	}
	if timeouts.Query <= 0 {
		if timeouts.Default > 0 {
			timeouts.Query = timeouts.Default
		} else {
			timeouts.Query = fallbackQueryTimeout
		}
	}
	return &BaseHandler{timeouts: timeouts}
}

// ProvideHandlerTimeouts 从业务配置派生 Handler 超时。
func ProvideHandlerTimeouts(cfg *loader.Social) HandlerTimeouts {
	if cfg == nil {
		return HandlerTimeouts{}
	}
	return HandlerTimeouts{
		Default: cfg.Handlers.DefaultTimeout.Std(),
		Command: cfg.Handlers.CommandTimeout.Std(),
		Query:   cfg.Handlers.QueryTimeout.Std(),
	}
}

// WithTimeout 根据 Handler 类型包装上下文，返回绑定超时的新 Context 与取消函数。
func (h *BaseHandler) WithTimeout(ctx context.Context, kind HandlerType) (context.Context, context.CancelFunc) {
	if h == nil {
		return context.WithTimeout(ctx, fallbackDefaultTimeout)
	}
	var timeout time.Duration
	switch kind {
	case HandlerTypeCommand:
		timeout = h.timeouts.Command
	case HandlerTypeQuery:
		timeout = h.timeouts.Query
	default:
		timeout = h.timeouts.Default
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// Timeouts 返回生效的超时配置。
func (h *BaseHandler) Timeouts() HandlerTimeouts {
	if h == nil {
		return HandlerTimeouts{}
	}
	return h.timeouts
}

// serve 设置 operation、经过服务端中间件链执行 call，并以 200 写回 JSON。
func (h *BaseHandler) serve(ctx khttp.Context, operation string, kind HandlerType, req any, call func(context.Context, any) (any, error)) error {
	khttp.SetOperation(ctx, operation)
	handler := ctx.Middleware(func(c context.Context, r any) (any, error) {
		timeoutCtx, cancel := h.WithTimeout(c, kind)
		defer cancel()
		return call(timeoutCtx, r)
	})
	out, err := handler(ctx, req)
	if err != nil {
		return err
	}
	return ctx.Result(stdhttp.StatusOK, out)
}

// requireCaller 返回已认证调用方 ID，缺失时返回 401。
func requireCaller(ctx context.Context) (uuid.UUID, error) {
	id, ok := metadata.CallerID(ctx)
	if !ok {
		return uuid.Nil, services.ErrUnauthenticated
	}
	return id, nil
}
