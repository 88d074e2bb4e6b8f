package services

import (
	"context"

	"github.com/bionicotaku/lingo-services-social/internal/models/po"
	"github.com/bionicotaku/lingo-services-social/internal/models/vo"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const defaultSavedVideosConcurrency = 8

// BookmarkLister 按插入顺序列出某用户发起的关系。
type BookmarkLister interface {
	ListBySubject(ctx context.Context, sess txmanager.Session, kind po.RelationKind, subjectID uuid.UUID) ([]po.Relation, error)
}

// SavedVideosConfig 控制收藏聚合行为。
type SavedVideosConfig struct {
	// MaxConcurrency 限制视频与作者两轮扇出各自的并发数，<=0 时使用默认值。
	MaxConcurrency int
	// Meter 为空时使用全局 MeterProvider。
	Meter metric.Meter
}

// SavedVideosAggregator 解析用户收藏的视频并附加作者资料。
//
// 聚合器不持有缓存与可变状态，每次调用都重新读取存储；
// 只有收藏列表读取失败是致命错误，单个视频或作者的读取失败仅使结果降级。
type SavedVideosAggregator struct {
	bookmarks   BookmarkLister
	videos      VideoFinder
	hydrator    *creatorHydrator
	concurrency int
	log         *log.Helper
	metrics     *aggregatorMetrics
}

// NewSavedVideosAggregator 构造收藏聚合器。
func NewSavedVideosAggregator(bookmarks BookmarkLister, videos VideoFinder, creators CreatorFinder, cfg SavedVideosConfig, logger log.Logger) *SavedVideosAggregator {
	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = defaultSavedVideosConcurrency
	}
	meter := cfg.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter("lingo-services-social.saved_videos")
	}
	helper := log.NewHelper(logger)
	metrics := newAggregatorMetrics(meter, helper)
	return &SavedVideosAggregator{
		bookmarks:   bookmarks,
		videos:      videos,
		concurrency: concurrency,
		log:         helper,
		metrics:     metrics,
		hydrator: &creatorHydrator{
			creators:    creators,
			concurrency: concurrency,
			log:         helper,
			onFailure:   metrics.recordItemFailure,
		},
	}
}

// ResolveSavedVideos 返回 userID 收藏的视频，按收藏列表顺序排列并附带作者资料。
//
// 流程：
//  1. 读取收藏列表；为空时直接返回空切片
//  2. 按 video_id 去重（保留首次出现的位置）
//  3. 并发读取视频，失败的视频被剔除
//  4. 并发读取去重后的作者，失败的作者以占位资料代替
//
// 错误：userID 为空返回 ErrUserIDInvalid；收藏列表读取失败或在读取前 ctx 已结束
// 返回 ErrSavedVideosUnavailable。读取列表之后 ctx 结束时，未完成的读取按失败处理。
func (a *SavedVideosAggregator) ResolveSavedVideos(ctx context.Context, userID uuid.UUID) ([]vo.HydratedVideo, error) {
	if userID == uuid.Nil {
		return nil, ErrUserIDInvalid
	}
	if err := ctx.Err(); err != nil {
		a.metrics.recordFatal(ctx)
		return nil, ErrSavedVideosUnavailable.WithCause(err)
	}

	bookmarks, err := a.bookmarks.ListBySubject(ctx, nil, po.RelationBookmark, userID)
	if err != nil {
		a.log.WithContext(ctx).Errorf("list bookmarks failed: user_id=%s err=%v", userID, err)
		a.metrics.recordFatal(ctx)
		return nil, ErrSavedVideosUnavailable.WithCause(err)
	}
	if len(bookmarks) == 0 {
		a.metrics.recordResolved(ctx, 0)
		return []vo.HydratedVideo{}, nil
	}

	videoIDs := uniqueIDs(len(bookmarks), func(i int) uuid.UUID { return bookmarks[i].ObjectID })
	videos, errs := fanOut(ctx, videoIDs, a.concurrency, func(ctx context.Context, id uuid.UUID) (*po.Video, error) {
		return a.videos.FindByID(ctx, nil, id)
	})

	fetched := make([]*po.Video, 0, len(videoIDs))
	for i, id := range videoIDs {
		if errs[i] != nil || videos[i] == nil {
			a.log.WithContext(ctx).Warnf("fetch saved video failed, dropping: user_id=%s video_id=%s err=%v", userID, id, errs[i])
			a.metrics.recordItemFailure(ctx, "video")
			continue
		}
		fetched = append(fetched, videos[i])
	}

	result := a.hydrator.hydrate(ctx, fetched)
	a.metrics.recordResolved(ctx, len(result))
	a.log.WithContext(ctx).Debugf("saved videos resolved: user_id=%s bookmarks=%d videos=%d", userID, len(bookmarks), len(result))
	return result, nil
}

type aggregatorMetrics struct {
	resolved     metric.Int64Counter
	fatal        metric.Int64Counter
	itemFailures metric.Int64Counter
	size         metric.Int64Histogram
	enabled      bool
}

const (
	metricNameSavedVideosResolved     = "saved_videos_resolve_total"
	metricNameSavedVideosFatal        = "saved_videos_resolve_failure_total"
	metricNameSavedVideosItemFailures = "saved_videos_item_failure_total"
	metricNameSavedVideosSize         = "saved_videos_result_size"
)

func newAggregatorMetrics(meter metric.Meter, helper *log.Helper) *aggregatorMetrics {
	m := &aggregatorMetrics{}
	if meter == nil {
		return m
	}

	var err error
	if m.resolved, err = meter.Int64Counter(metricNameSavedVideosResolved,
		metric.WithDescription("Number of saved video aggregations completed")); err != nil {
		helper.Warnf("saved videos metrics: register resolved counter: %v", err)
		return m
	}
	if m.fatal, err = meter.Int64Counter(metricNameSavedVideosFatal,
		metric.WithDescription("Number of saved video aggregations aborted by a bookmark listing failure")); err != nil {
		helper.Warnf("saved videos metrics: register failure counter: %v", err)
	}
	if m.itemFailures, err = meter.Int64Counter(metricNameSavedVideosItemFailures,
		metric.WithDescription("Number of per-item fetch failures that degraded a result")); err != nil {
		helper.Warnf("saved videos metrics: register item failure counter: %v", err)
	}
	if m.size, err = meter.Int64Histogram(metricNameSavedVideosSize,
		metric.WithDescription("Number of hydrated videos returned per aggregation")); err != nil {
		helper.Warnf("saved videos metrics: register size histogram: %v", err)
	}
	m.enabled = true
	return m
}

func (m *aggregatorMetrics) recordResolved(ctx context.Context, size int) {
	if m == nil || !m.enabled {
		return
	}
	m.resolved.Add(ctx, 1)
	if m.size != nil {
		m.size.Record(ctx, int64(size))
	}
}

func (m *aggregatorMetrics) recordFatal(ctx context.Context) {
	if m == nil || !m.enabled || m.fatal == nil {
		return
	}
	m.fatal.Add(ctx, 1)
}

func (m *aggregatorMetrics) recordItemFailure(ctx context.Context, kind string) {
	if m == nil || !m.enabled || m.itemFailures == nil {
		return
	}
	m.itemFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
