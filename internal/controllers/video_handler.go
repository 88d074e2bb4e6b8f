package controllers

import (
	"context"

	"github.com/bionicotaku/lingo-services-social/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-social/internal/controllers/mapper"
	"github.com/bionicotaku/lingo-services-social/internal/services"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// VideoHandler 处理视频浏览、搜索、发布与上传签名请求。
type VideoHandler struct {
	*BaseHandler
	svc *services.VideoService
}

// NewVideoHandler 构造 VideoHandler。
func NewVideoHandler(svc *services.VideoService, base *BaseHandler) *VideoHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &VideoHandler{BaseHandler: base, svc: svc}
}

// RegisterRoutes 在 /v1 路由组下注册视频路由。静态路径须先于 {id} 注册。
func (h *VideoHandler) RegisterRoutes(r *khttp.Router) {
	r.GET("/videos", h.ListVideos)
	r.POST("/videos", h.CreateVideo)
	r.GET("/videos/latest", h.LatestVideos)
	r.GET("/videos/search", h.SearchVideos)
	r.POST("/videos/uploads", h.PrepareUpload)
	r.GET("/videos/{id}", h.GetVideo)
	r.GET("/users/{id}/videos", h.ListByCreator)
}

// ListVideos 处理 GET /v1/videos?limit&offset。
func (h *VideoHandler) ListVideos(ctx khttp.Context) error {
	var query dto.ListVideosQuery
	if err := ctx.BindQuery(&query); err != nil {
		return err
	}
	if err := dto.Validate(&query); err != nil {
		return err
	}
	return h.serve(ctx, "/social.v1.Videos/ListVideos", HandlerTypeQuery, &query, func(c context.Context, _ any) (any, error) {
		videos, err := h.svc.ListVideos(c, query.Limit, query.Offset)
		if err != nil {
			return nil, err
		}
		return dto.NewVideoList(videos), nil
	})
}

// LatestVideos 处理 GET /v1/videos/latest?limit。
func (h *VideoHandler) LatestVideos(ctx khttp.Context) error {
	var query dto.ListVideosQuery
	if err := ctx.BindQuery(&query); err != nil {
		return err
	}
	if err := dto.Validate(&query); err != nil {
		return err
	}
	return h.serve(ctx, "/social.v1.Videos/LatestVideos", HandlerTypeQuery, &query, func(c context.Context, _ any) (any, error) {
		videos, err := h.svc.LatestVideos(c, query.Limit)
		if err != nil {
			return nil, err
		}
		return dto.NewVideoList(videos), nil
	})
}

// SearchVideos 处理 GET /v1/videos/search?q=。
func (h *VideoHandler) SearchVideos(ctx khttp.Context) error {
	q := ctx.Query().Get("q")
	return h.serve(ctx, "/social.v1.Videos/SearchVideos", HandlerTypeQuery, nil, func(c context.Context, _ any) (any, error) {
		videos, err := h.svc.SearchVideos(c, q)
		if err != nil {
			return nil, err
		}
		return dto.NewVideoList(videos), nil
	})
}

// GetVideo 处理 GET /v1/videos/{id}。
func (h *VideoHandler) GetVideo(ctx khttp.Context) error {
	videoID, err := dto.ParseID("video_id", ctx.Vars().Get("id"))
	if err != nil {
		return err
	}
	return h.serve(ctx, "/social.v1.Videos/GetVideo", HandlerTypeQuery, nil, func(c context.Context, _ any) (any, error) {
		return h.svc.GetVideo(c, videoID)
	})
}

// ListByCreator 处理 GET /v1/users/{id}/videos。
func (h *VideoHandler) ListByCreator(ctx khttp.Context) error {
	creatorID, err := dto.ParseID("user_id", ctx.Vars().Get("id"))
	if err != nil {
		return err
	}
	return h.serve(ctx, "/social.v1.Videos/ListByCreator", HandlerTypeQuery, nil, func(c context.Context, _ any) (any, error) {
		videos, err := h.svc.ListByCreator(c, creatorID)
		if err != nil {
			return nil, err
		}
		return dto.NewVideoList(videos), nil
	})
}

// CreateVideo 处理 POST /v1/videos，作者为调用方本人。
func (h *VideoHandler) CreateVideo(ctx khttp.Context) error {
	var req dto.CreateVideoRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	return h.serve(ctx, "/social.v1.Videos/CreateVideo", HandlerTypeCommand, &req, func(c context.Context, _ any) (any, error) {
		callerID, err := requireCaller(c)
		if err != nil {
			return nil, err
		}
		return h.svc.CreateVideo(c, mapper.ToCreateVideoInput(&req, callerID))
	})
}

// PrepareUpload 处理 POST /v1/videos/uploads，签发视频与封面的上传地址。
func (h *VideoHandler) PrepareUpload(ctx khttp.Context) error {
	var req dto.PrepareUploadRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	return h.serve(ctx, "/social.v1.Videos/PrepareUpload", HandlerTypeCommand, &req, func(c context.Context, _ any) (any, error) {
		callerID, err := requireCaller(c)
		if err != nil {
			return nil, err
		}
		return h.svc.PrepareUpload(c, mapper.ToPrepareUploadInput(&req, callerID))
	})
}
