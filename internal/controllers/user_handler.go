package controllers

import (
	"context"

	"github.com/bionicotaku/lingo-services-social/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-social/internal/controllers/mapper"
	"github.com/bionicotaku/lingo-services-social/internal/services"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// UserHandler 处理用户注册、资料与主页请求。
type UserHandler struct {
	*BaseHandler
	svc *services.UserService
}

// NewUserHandler 构造 UserHandler。
func NewUserHandler(svc *services.UserService, base *BaseHandler) *UserHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &UserHandler{BaseHandler: base, svc: svc}
}

// RegisterRoutes 在 /v1 路由组下注册用户相关路由。
func (h *UserHandler) RegisterRoutes(r *khttp.Router) {
	r.POST("/users", h.Register)
	r.GET("/me", h.Me)
	r.PUT("/me/avatar", h.UpdateAvatar)
	r.GET("/users/{id}", h.GetUser)
	r.GET("/users/{id}/profile", h.GetProfile)
}

// Register 处理 POST /v1/users。
func (h *UserHandler) Register(ctx khttp.Context) error {
	var req dto.RegisterUserRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	return h.serve(ctx, "/social.v1.Users/Register", HandlerTypeCommand, &req, func(c context.Context, _ any) (any, error) {
		return h.svc.Register(c, mapper.ToRegisterInput(&req))
	})
}

// Me 处理 GET /v1/me，返回调用方自己的完整资料。
func (h *UserHandler) Me(ctx khttp.Context) error {
	return h.serve(ctx, "/social.v1.Users/Me", HandlerTypeQuery, nil, func(c context.Context, _ any) (any, error) {
		callerID, err := requireCaller(c)
		if err != nil {
			return nil, err
		}
		return h.svc.GetUser(c, callerID)
	})
}

// UpdateAvatar 处理 PUT /v1/me/avatar。
func (h *UserHandler) UpdateAvatar(ctx khttp.Context) error {
	var req dto.UpdateAvatarRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	return h.serve(ctx, "/social.v1.Users/UpdateAvatar", HandlerTypeCommand, &req, func(c context.Context, _ any) (any, error) {
		callerID, err := requireCaller(c)
		if err != nil {
			return nil, err
		}
		if err := h.svc.UpdateAvatar(c, callerID, req.AvatarURL); err != nil {
			return nil, err
		}
		return h.svc.GetUser(c, callerID)
	})
}

// GetUser 处理 GET /v1/users/{id}。
func (h *UserHandler) GetUser(ctx khttp.Context) error {
	userID, err := dto.ParseID("user_id", ctx.Vars().Get("id"))
	if err != nil {
		return err
	}
	return h.serve(ctx, "/social.v1.Users/GetUser", HandlerTypeQuery, nil, func(c context.Context, _ any) (any, error) {
		user, err := h.svc.GetUser(c, userID)
		if err != nil {
			return nil, err
		}
		// 他人只能看到公开字段。
		callerID, _ := requireCaller(c)
		if callerID != user.ID {
			user.Email = ""
			user.AccountID = ""
		}
		return user, nil
	})
}

// GetProfile 处理 GET /v1/users/{id}/profile。
func (h *UserHandler) GetProfile(ctx khttp.Context) error {
	userID, err := dto.ParseID("user_id", ctx.Vars().Get("id"))
	if err != nil {
		return err
	}
	return h.serve(ctx, "/social.v1.Users/GetProfile", HandlerTypeQuery, nil, func(c context.Context, _ any) (any, error) {
		return h.svc.GetProfile(c, userID)
	})
}
