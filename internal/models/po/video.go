// Package po 定义面向持久化的数据对象（Persistent Objects），由 Repository 层使用。
// PO 对象映射 social schema 的表结构，不直接暴露给传输层。
package po

import (
	"time"

	"github.com/google/uuid"
)

// Video 表示 social.videos 表的数据库实体。
type Video struct {
	VideoID      uuid.UUID `db:"video_id"`
	CreatorID    uuid.UUID `db:"creator_id"`    // 上传者（social.users）
	Title        string    `db:"title"`         // 必填
	Prompt       string    `db:"prompt"`        // 生成视频所用提示词，可为空
	VideoRef     string    `db:"video_ref"`     // 媒体对象引用（GCS URL）
	ThumbnailRef string    `db:"thumbnail_ref"` // 封面对象引用
	CreatedAt    time.Time `db:"created_at"`
}
