package controllers

import (
	"context"

	"github.com/bionicotaku/lingo-services-social/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-social/internal/services"
	"github.com/google/uuid"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// RelationHandler 处理收藏、点赞与关注请求。
type RelationHandler struct {
	*BaseHandler
	svc *services.RelationService
}

// NewRelationHandler 构造 RelationHandler。
func NewRelationHandler(svc *services.RelationService, base *BaseHandler) *RelationHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &RelationHandler{BaseHandler: base, svc: svc}
}

// RegisterRoutes 在 /v1 路由组下注册关系路由。
func (h *RelationHandler) RegisterRoutes(r *khttp.Router) {
	r.GET("/me/saved-videos", h.SavedVideos)
	r.GET("/me/following", h.Following)

	r.PUT("/videos/{id}/bookmark", h.objectCommand("SaveVideo", "video_id", h.svc.SaveVideo, true))
	r.DELETE("/videos/{id}/bookmark", h.objectCommand("UnsaveVideo", "video_id", h.svc.UnsaveVideo, false))
	r.GET("/videos/{id}/bookmark", h.objectQuery("IsSaved", "video_id", h.svc.IsSaved))

	r.PUT("/videos/{id}/like", h.objectCommand("LikeVideo", "video_id", h.svc.LikeVideo, true))
	r.DELETE("/videos/{id}/like", h.objectCommand("UnlikeVideo", "video_id", h.svc.UnlikeVideo, false))
	r.GET("/videos/{id}/like", h.objectQuery("IsLiked", "video_id", h.svc.IsLiked))
	r.GET("/videos/{id}/likes/count", h.countQuery("LikeCount", "video_id", h.svc.LikeCount))

	r.PUT("/users/{id}/follow", h.objectCommand("Follow", "user_id", h.svc.Follow, true))
	r.DELETE("/users/{id}/follow", h.objectCommand("Unfollow", "user_id", h.svc.Unfollow, false))
	r.GET("/users/{id}/follow", h.objectQuery("IsFollowing", "user_id", h.svc.IsFollowing))
	r.POST("/users/{id}/follow/toggle", h.ToggleFollow)
	r.GET("/users/{id}/followers/count", h.countQuery("FollowerCount", "user_id", h.svc.FollowerCount))
}

// SavedVideos 处理 GET /v1/me/saved-videos，返回按收藏顺序排列的视频。
func (h *RelationHandler) SavedVideos(ctx khttp.Context) error {
	return h.serve(ctx, "/social.v1.Relations/ListSavedVideos", HandlerTypeQuery, nil, func(c context.Context, _ any) (any, error) {
		callerID, err := requireCaller(c)
		if err != nil {
			return nil, err
		}
		videos, err := h.svc.ListSavedVideos(c, callerID)
		if err != nil {
			return nil, err
		}
		return dto.NewVideoList(videos), nil
	})
}

// Following 处理 GET /v1/me/following。
func (h *RelationHandler) Following(ctx khttp.Context) error {
	return h.serve(ctx, "/social.v1.Relations/FollowedUsers", HandlerTypeQuery, nil, func(c context.Context, _ any) (any, error) {
		callerID, err := requireCaller(c)
		if err != nil {
			return nil, err
		}
		ids, err := h.svc.FollowedUsers(c, callerID)
		if err != nil {
			return nil, err
		}
		return dto.NewUserIDList(ids), nil
	})
}

// ToggleFollow 处理 POST /v1/users/{id}/follow/toggle。
func (h *RelationHandler) ToggleFollow(ctx khttp.Context) error {
	creatorID, err := dto.ParseID("user_id", ctx.Vars().Get("id"))
	if err != nil {
		return err
	}
	return h.serve(ctx, "/social.v1.Relations/ToggleFollow", HandlerTypeCommand, nil, func(c context.Context, _ any) (any, error) {
		callerID, err := requireCaller(c)
		if err != nil {
			return nil, err
		}
		following, err := h.svc.ToggleFollow(c, callerID, creatorID)
		if err != nil {
			return nil, err
		}
		return &dto.RelationState{Active: following, Changed: true}, nil
	})
}

type relationCommand func(ctx context.Context, subjectID, objectID uuid.UUID) (bool, error)

type relationQuery func(ctx context.Context, subjectID, objectID uuid.UUID) (bool, error)

type relationCount func(ctx context.Context, objectID uuid.UUID) (int64, error)

// objectCommand 生成建立（active=true）或解除关系的 Handler。
func (h *RelationHandler) objectCommand(method, idName string, cmd relationCommand, active bool) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		objectID, err := dto.ParseID(idName, ctx.Vars().Get("id"))
		if err != nil {
			return err
		}
		return h.serve(ctx, "/social.v1.Relations/"+method, HandlerTypeCommand, nil, func(c context.Context, _ any) (any, error) {
			callerID, err := requireCaller(c)
			if err != nil {
				return nil, err
			}
			changed, err := cmd(c, callerID, objectID)
			if err != nil {
				return nil, err
			}
			return &dto.RelationState{Active: active, Changed: changed}, nil
		})
	}
}

func (h *RelationHandler) objectQuery(method, idName string, query relationQuery) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		objectID, err := dto.ParseID(idName, ctx.Vars().Get("id"))
		if err != nil {
			return err
		}
		return h.serve(ctx, "/social.v1.Relations/"+method, HandlerTypeQuery, nil, func(c context.Context, _ any) (any, error) {
			callerID, err := requireCaller(c)
			if err != nil {
				return nil, err
			}
			ok, err := query(c, callerID, objectID)
			if err != nil {
				return nil, err
			}
			return &dto.RelationState{Active: ok}, nil
		})
	}
}

func (h *RelationHandler) countQuery(method, idName string, count relationCount) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		objectID, err := dto.ParseID(idName, ctx.Vars().Get("id"))
		if err != nil {
			return err
		}
		return h.serve(ctx, "/social.v1.Relations/"+method, HandlerTypeQuery, nil, func(c context.Context, _ any) (any, error) {
			n, err := count(c, objectID)
			if err != nil {
				return nil, err
			}
			return &dto.Count{Count: n}, nil
		})
	}
}
