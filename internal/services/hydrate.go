package services

import (
	"context"

	"github.com/bionicotaku/lingo-services-social/internal/models/po"
	"github.com/bionicotaku/lingo-services-social/internal/models/vo"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// VideoFinder 按 ID 读取单个视频，NotFound 时返回 repositories.ErrVideoNotFound。
type VideoFinder interface {
	FindByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
}

// CreatorFinder 按 ID 读取单个用户（作者），NotFound 时返回 repositories.ErrUserNotFound。
type CreatorFinder interface {
	FindByID(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.User, error)
}

// creatorHydrator 为一组视频并发加载去重后的作者资料并完成拼接。
//
// 调用仓储时不传 Session，各请求独立占用连接池连接，可以并发执行。
type creatorHydrator struct {
	creators    CreatorFinder
	concurrency int
	log         *log.Helper
	onFailure   func(ctx context.Context, kind string)
}

// hydrate 保持 videos 的顺序返回结果；作者加载失败的视频保留占位作者（仅含自身 creator_id）。
func (h *creatorHydrator) hydrate(ctx context.Context, videos []*po.Video) []vo.HydratedVideo {
	if len(videos) == 0 {
		return []vo.HydratedVideo{}
	}

	creatorIDs := uniqueIDs(len(videos), func(i int) uuid.UUID { return videos[i].CreatorID })
	creators, errs := fanOut(ctx, creatorIDs, h.concurrency, func(ctx context.Context, id uuid.UUID) (*po.User, error) {
		return h.creators.FindByID(ctx, nil, id)
	})

	resolved := make(map[uuid.UUID]*po.User, len(creatorIDs))
	for i, id := range creatorIDs {
		if errs[i] != nil || creators[i] == nil {
			h.log.WithContext(ctx).Warnf("resolve creator failed, keeping unresolved reference: creator_id=%s err=%v", id, errs[i])
			if h.onFailure != nil {
				h.onFailure(ctx, "creator")
			}
			continue
		}
		resolved[id] = creators[i]
	}

	out := make([]vo.HydratedVideo, 0, len(videos))
	for _, video := range videos {
		out = append(out, vo.Hydrate(video, resolved[video.CreatorID]))
	}
	return out
}

// uniqueIDs 按首次出现顺序收集去重后的 ID。
func uniqueIDs(n int, at func(i int) uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, n)
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		id := at(i)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
