package vo

import (
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/models/po"
	"github.com/google/uuid"
)

// User 是用户的完整资料，仅返回给本人或内部调用方。
type User struct {
	ID        uuid.UUID `json:"id"`
	AccountID string    `json:"account_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser 从持久化实体构造用户 VO。
func NewUser(user *po.User) *User {
	if user == nil {
		return nil
	}
	return &User{
		ID:        user.UserID,
		AccountID: user.AccountID,
		Email:     user.Email,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	}
}

// Profile 是用户主页：公开资料、作品列表（新到旧）与粉丝数。
type Profile struct {
	Creator       Creator         `json:"creator"`
	Posts         []HydratedVideo `json:"posts"`
	FollowerCount int64           `json:"follower_count"`
}

// UploadTarget 是单个对象的签名上传地址。
type UploadTarget struct {
	ObjectName  string    `json:"object_name"`
	ObjectRef   string    `json:"object_ref"`
	UploadURL   string    `json:"upload_url"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UploadTicket 同时签发视频与封面的上传地址。
type UploadTicket struct {
	Video     UploadTarget `json:"video"`
	Thumbnail UploadTarget `json:"thumbnail"`
}
