package po

import (
	"time"

	"github.com/google/uuid"
)

// User 表示 social.users 表的数据库实体，同时也是视频的创作者（Creator）。
type User struct {
	UserID    uuid.UUID `db:"user_id"`
	AccountID string    `db:"account_id"` // 身份提供方的账号 ID
	Email     string    `db:"email"`
	Username  string    `db:"username"`
	AvatarURL string    `db:"avatar_url"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
