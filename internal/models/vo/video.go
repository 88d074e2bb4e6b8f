// Package vo 定义视图对象（View Objects），用于向上层传递业务数据。
// VO 对象由 Service 层返回，经 Controller 层转换为 API 响应，隔离内部数据结构。
package vo

import (
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/models/po"
	"github.com/google/uuid"
)

// Creator 是视频作者的公开资料。
//
// Resolved=false 表示资料未能加载，此时仅 ID 可信（取自视频自身的 creator_id），
// 其余字段为空；调用方据此展示占位信息，不会出现张冠李戴的作者。
type Creator struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Resolved  bool      `json:"resolved"`
}

// Video 是视频的公开字段，不含作者资料。
type Video struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Prompt       string    `json:"prompt,omitempty"`
	VideoRef     string    `json:"video_ref"`
	ThumbnailRef string    `json:"thumbnail_ref"`
	CreatorID    uuid.UUID `json:"creator_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// HydratedVideo 是附带作者资料的视频，每次查询时即时构造，不落库。
type HydratedVideo struct {
	Video
	Creator Creator `json:"creator"`
}

// NewVideo 从持久化实体构造视频 VO。
func NewVideo(video *po.Video) Video {
	if video == nil {
		return Video{}
	}
	return Video{
		ID:           video.VideoID,
		Title:        video.Title,
		Prompt:       video.Prompt,
		VideoRef:     video.VideoRef,
		ThumbnailRef: video.ThumbnailRef,
		CreatorID:    video.CreatorID,
		CreatedAt:    video.CreatedAt,
	}
}

// NewCreator 从用户实体构造已解析的作者资料。
func NewCreator(user *po.User) Creator {
	if user == nil {
		return Creator{}
	}
	return Creator{
		ID:        user.UserID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		Resolved:  true,
	}
}

// UnresolvedCreator 返回仅携带 ID 的占位作者。
func UnresolvedCreator(id uuid.UUID) Creator {
	return Creator{ID: id}
}

// Hydrate 将作者资料附加到视频上。creator 为 nil 或 ID 不匹配时使用占位作者。
func Hydrate(video *po.Video, creator *po.User) HydratedVideo {
	out := HydratedVideo{Video: NewVideo(video)}
	if creator != nil && video != nil && creator.UserID == video.CreatorID {
		out.Creator = NewCreator(creator)
		return out
	}
	out.Creator = UnresolvedCreator(out.CreatorID)
	return out
}
