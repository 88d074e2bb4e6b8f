package dto

import (
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/models/vo"
	"github.com/google/uuid"
)

// RegisterUserRequest 是 POST /v1/users 的请求体。
type RegisterUserRequest struct {
	AccountID string `json:"account_id" validate:"required,max=128"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,min=3,max=32"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=2048"`
}

// UpdateAvatarRequest 是 PUT /v1/me/avatar 的请求体。
type UpdateAvatarRequest struct {
	AvatarURL string `json:"avatar_url" validate:"required,url,max=2048"`
}

// CreateVideoRequest 是 POST /v1/videos 的请求体。
type CreateVideoRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	Prompt       string `json:"prompt" validate:"max=2000"`
	VideoRef     string `json:"video_ref" validate:"required,url,max=2048"`
	ThumbnailRef string `json:"thumbnail_ref" validate:"required,url,max=2048"`
}

// PrepareUploadRequest 是 POST /v1/videos/uploads 的请求体。
type PrepareUploadRequest struct {
	VideoContentType     string `json:"video_content_type" validate:"required,max=100"`
	ThumbnailContentType string `json:"thumbnail_content_type" validate:"required,max=100"`
}

// ListVideosQuery 是 GET /v1/videos 的查询参数。
type ListVideosQuery struct {
	Limit  int `json:"limit" validate:"gte=0,lte=500"`
	Offset int `json:"offset" validate:"gte=0"`
}

// VideoList 是视频列表响应。
type VideoList struct {
	Videos []vo.HydratedVideo `json:"videos"`
}

// NewVideoList 构造视频列表响应，nil 切片编码为空数组。
func NewVideoList(videos []vo.HydratedVideo) *VideoList {
	if videos == nil {
		videos = []vo.HydratedVideo{}
	}
	return &VideoList{Videos: videos}
}

// RelationState 是关系写操作与查询的响应。
type RelationState struct {
	Active  bool `json:"active"`
	Changed bool `json:"changed"`
}

// Count 是计数类查询的响应。
type Count struct {
	Count int64 `json:"count"`
}

// UserIDList 是关注列表响应。
type UserIDList struct {
	UserIDs []uuid.UUID `json:"user_ids"`
}

// NewUserIDList 构造关注列表响应。
func NewUserIDList(ids []uuid.UUID) *UserIDList {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return &UserIDList{UserIDs: ids}
}

// Health 是就绪探针的响应。
type Health struct {
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}
