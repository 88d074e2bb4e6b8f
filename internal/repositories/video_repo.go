// Package repositories 实现 social schema 的数据访问层，直接基于 pgx 编写 SQL。
package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/bionicotaku/lingo-services-social/internal/models/po"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const videoColumns = `video_id, creator_id, title, prompt, video_ref, thumbnail_ref, created_at`

// VideoRepository 维护 social.videos。
type VideoRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewVideoRepository 构造 VideoRepository。
func NewVideoRepository(db *pgxpool.Pool, logger log.Logger) *VideoRepository {
	return &VideoRepository{db: db, log: log.NewHelper(logger)}
}

// CreateVideoInput 描述新建视频所需字段。
type CreateVideoInput struct {
	VideoID      uuid.UUID
	CreatorID    uuid.UUID
	Title        string
	Prompt       string
	VideoRef     string
	ThumbnailRef string
}

// Create 插入视频记录并返回数据库生成的完整行。
func (r *VideoRepository) Create(ctx context.Context, sess txmanager.Session, in CreateVideoInput) (*po.Video, error) {
	if in.VideoID == uuid.Nil {
		in.VideoID = uuid.New()
	}
	rows, err := conn(r.db, sess).Query(ctx, `
INSERT INTO social.videos (video_id, creator_id, title, prompt, video_ref, thumbnail_ref)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+videoColumns,
		in.VideoID, in.CreatorID, in.Title, in.Prompt, in.VideoRef, in.ThumbnailRef)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}
	video, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[po.Video])
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}
	r.log.WithContext(ctx).Debugf("video created: video_id=%s creator_id=%s", video.VideoID, video.CreatorID)
	return video, nil
}

// FindByID 根据 video_id 查询视频。
//
// 错误处理：
//   - pgx.ErrNoRows → ErrVideoNotFound
//   - 其他数据库错误包装后返回
func (r *VideoRepository) FindByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error) {
	rows, err := conn(r.db, sess).Query(ctx, `SELECT `+videoColumns+` FROM social.videos WHERE video_id = $1`, videoID)
	if err != nil {
		return nil, fmt.Errorf("query video: %w", err)
	}
	video, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[po.Video])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("query video: %w", err)
	}
	return video, nil
}

// List 按创建时间倒序分页列出视频。
func (r *VideoRepository) List(ctx context.Context, sess txmanager.Session, limit, offset int) ([]*po.Video, error) {
	return r.list(ctx, sess, `
SELECT `+videoColumns+` FROM social.videos
ORDER BY created_at DESC, video_id
LIMIT $1 OFFSET $2`, limit, offset)
}

// ListByCreator 按创建时间倒序列出某作者的全部视频。
func (r *VideoRepository) ListByCreator(ctx context.Context, sess txmanager.Session, creatorID uuid.UUID) ([]*po.Video, error) {
	return r.list(ctx, sess, `
SELECT `+videoColumns+` FROM social.videos
WHERE creator_id = $1
ORDER BY created_at DESC, video_id`, creatorID)
}

// Search 按标题做大小写不敏感的包含匹配，结果按创建时间倒序。
func (r *VideoRepository) Search(ctx context.Context, sess txmanager.Session, query string, limit int) ([]*po.Video, error) {
	return r.list(ctx, sess, `
SELECT `+videoColumns+` FROM social.videos
WHERE title ILIKE $1 ESCAPE '\'
ORDER BY created_at DESC, video_id
LIMIT $2`, likePattern(query), limit)
}

func (r *VideoRepository) list(ctx context.Context, sess txmanager.Session, query string, args ...any) ([]*po.Video, error) {
	rows, err := conn(r.db, sess).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	videos, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[po.Video])
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}
