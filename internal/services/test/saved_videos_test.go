package services_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/models/vo"
	"github.com/bionicotaku/lingo-services-social/internal/services"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newAggregator(rel *relationStub, videos *videoStore, users *userStore, cfg services.SavedVideosConfig) *services.SavedVideosAggregator {
	return services.NewSavedVideosAggregator(rel, videos, users, cfg, log.NewStdLogger(io.Discard))
}

func videoIDs(items []vo.HydratedVideo) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestResolveSavedVideos_ExampleScenario(t *testing.T) {
	c1, c2 := newUser("c1"), newUser("c2")
	v1, v2, v3 := newVideo(c1.UserID, "v1"), newVideo(c1.UserID, "v2"), newVideo(c2.UserID, "v3")
	userID := uuid.New()

	videos := newVideoStore(v1, v2, v3)
	users := newUserStore(c1, c2)
	agg := newAggregator(bookmarks(userID, v1.VideoID, v2.VideoID, v3.VideoID), videos, users, services.SavedVideosConfig{})

	got, err := agg.ResolveSavedVideos(context.Background(), userID)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, []uuid.UUID{v1.VideoID, v2.VideoID, v3.VideoID}, videoIDs(got))
	assert.Equal(t, vo.NewCreator(c1), got[0].Creator)
	assert.Equal(t, vo.NewCreator(c1), got[1].Creator)
	assert.Equal(t, vo.NewCreator(c2), got[2].Creator)

	assert.Equal(t, 3, videos.counter.total())
	assert.Equal(t, 2, users.counter.total())
	assert.Equal(t, 1, users.counter.count(c1.UserID))
	assert.Equal(t, 1, users.counter.count(c2.UserID))
}

func TestResolveSavedVideos_NoBookmarks(t *testing.T) {
	videos := newVideoStore()
	users := newUserStore()
	agg := newAggregator(&relationStub{}, videos, users, services.SavedVideosConfig{})

	got, err := agg.ResolveSavedVideos(context.Background(), uuid.New())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, videos.counter.total())
	assert.Zero(t, users.counter.total())
}

func TestResolveSavedVideos_InvalidUserID(t *testing.T) {
	rel := &relationStub{}
	agg := newAggregator(rel, newVideoStore(), newUserStore(), services.SavedVideosConfig{})

	_, err := agg.ResolveSavedVideos(context.Background(), uuid.Nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrUserIDInvalid))
	assert.Zero(t, rel.listCalls)
}

func TestResolveSavedVideos_ListingFailureIsFatal(t *testing.T) {
	rel := &relationStub{listErr: errors.New("store unreachable")}
	videos := newVideoStore()
	agg := newAggregator(rel, videos, newUserStore(), services.SavedVideosConfig{})

	got, err := agg.ResolveSavedVideos(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, services.ErrSavedVideosUnavailable))
	assert.Zero(t, videos.counter.total())
}

func TestResolveSavedVideos_DuplicatesKeepFirstOccurrence(t *testing.T) {
	creator := newUser("dup")
	a, b := newVideo(creator.UserID, "a"), newVideo(creator.UserID, "b")
	userID := uuid.New()

	videos := newVideoStore(a, b)
	users := newUserStore(creator)
	agg := newAggregator(bookmarks(userID, a.VideoID, b.VideoID, a.VideoID, b.VideoID, a.VideoID), videos, users, services.SavedVideosConfig{})

	got, err := agg.ResolveSavedVideos(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.VideoID, b.VideoID}, videoIDs(got))
	assert.Equal(t, 1, videos.counter.count(a.VideoID))
	assert.Equal(t, 1, videos.counter.count(b.VideoID))
	assert.Equal(t, 1, users.counter.total())
}

func TestResolveSavedVideos_FailedVideoIsDropped(t *testing.T) {
	creator := newUser("drop")
	v1, v2, v3, v4 := newVideo(creator.UserID, "v1"), newVideo(creator.UserID, "v2"), newVideo(creator.UserID, "v3"), newVideo(creator.UserID, "v4")
	userID := uuid.New()

	videos := newVideoStore(v1, v2, v4)
	videos.errs[v2.VideoID] = errors.New("timeout")
	// v3 未写入 store，读取返回 NotFound。
	users := newUserStore(creator)
	agg := newAggregator(bookmarks(userID, v1.VideoID, v2.VideoID, v3.VideoID, v4.VideoID), videos, users, services.SavedVideosConfig{})

	got, err := agg.ResolveSavedVideos(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{v1.VideoID, v4.VideoID}, videoIDs(got))
	for _, item := range got {
		assert.True(t, item.Creator.Resolved)
	}
}

func TestResolveSavedVideos_FailedCreatorKeepsOwnReference(t *testing.T) {
	good, bad := newUser("good"), newUser("bad")
	v1, v2 := newVideo(bad.UserID, "v1"), newVideo(good.UserID, "v2")
	userID := uuid.New()

	users := newUserStore(good, bad)
	users.errs[bad.UserID] = errors.New("profile store down")
	agg := newAggregator(bookmarks(userID, v1.VideoID, v2.VideoID), newVideoStore(v1, v2), users, services.SavedVideosConfig{})

	got, err := agg.ResolveSavedVideos(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, v1.VideoID, got[0].ID)
	assert.False(t, got[0].Creator.Resolved)
	assert.Equal(t, bad.UserID, got[0].Creator.ID)
	assert.Equal(t, bad.UserID, got[0].CreatorID)
	assert.Empty(t, got[0].Creator.Username)

	assert.Equal(t, vo.NewCreator(good), got[1].Creator)
}

func TestResolveSavedVideos_CreatorFetchesBoundedByDistinctCreators(t *testing.T) {
	creator := newUser("prolific")
	userID := uuid.New()
	store := newVideoStore()
	var ids []uuid.UUID
	for i := 0; i < 12; i++ {
		v := newVideo(creator.UserID, "clip")
		store.videos[v.VideoID] = v
		ids = append(ids, v.VideoID)
	}
	// 一个视频读取失败，它的作者不应被请求。
	orphanCreator := newUser("orphan")
	orphan := newVideo(orphanCreator.UserID, "orphan")
	store.videos[orphan.VideoID] = orphan
	store.errs[orphan.VideoID] = errors.New("boom")
	ids = append(ids, orphan.VideoID)

	users := newUserStore(creator, orphanCreator)
	agg := newAggregator(bookmarks(userID, ids...), store, users, services.SavedVideosConfig{})

	got, err := agg.ResolveSavedVideos(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, got, 12)
	assert.Equal(t, 1, users.counter.total())
	assert.Zero(t, users.counter.count(orphanCreator.UserID))
}

func TestResolveSavedVideos_OrderIndependentOfCompletion(t *testing.T) {
	creator := newUser("order")
	userID := uuid.New()
	store := newVideoStore()
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		v := newVideo(creator.UserID, "v")
		store.videos[v.VideoID] = v
		// 越靠前的收藏越晚完成。
		store.delays[v.VideoID] = time.Duration(5-i) * 10 * time.Millisecond
		ids = append(ids, v.VideoID)
	}
	agg := newAggregator(bookmarks(userID, ids...), store, newUserStore(creator), services.SavedVideosConfig{})

	got, err := agg.ResolveSavedVideos(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, ids, videoIDs(got))
}

func TestResolveSavedVideos_ConcurrencyLimit(t *testing.T) {
	creator := newUser("limit")
	userID := uuid.New()
	store := newVideoStore()
	var ids []uuid.UUID
	for i := 0; i < 10; i++ {
		v := newVideo(creator.UserID, "v")
		store.videos[v.VideoID] = v
		store.delays[v.VideoID] = 10 * time.Millisecond
		ids = append(ids, v.VideoID)
	}
	agg := newAggregator(bookmarks(userID, ids...), store, newUserStore(creator), services.SavedVideosConfig{MaxConcurrency: 2})

	got, err := agg.ResolveSavedVideos(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, got, 10)
	assert.LessOrEqual(t, store.counter.maxSeen.Load(), int32(2))
	assert.GreaterOrEqual(t, store.counter.maxSeen.Load(), int32(1))
}

func TestResolveSavedVideos_Idempotent(t *testing.T) {
	c1, c2 := newUser("c1"), newUser("c2")
	v1, v2 := newVideo(c1.UserID, "v1"), newVideo(c2.UserID, "v2")
	userID := uuid.New()
	agg := newAggregator(bookmarks(userID, v2.VideoID, v1.VideoID), newVideoStore(v1, v2), newUserStore(c1, c2), services.SavedVideosConfig{})

	first, err := agg.ResolveSavedVideos(context.Background(), userID)
	require.NoError(t, err)
	second, err := agg.ResolveSavedVideos(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveSavedVideos_CanceledBeforeListing(t *testing.T) {
	rel := bookmarks(uuid.New())
	agg := newAggregator(rel, newVideoStore(), newUserStore(), services.SavedVideosConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.ResolveSavedVideos(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrSavedVideosUnavailable))
	assert.Zero(t, rel.listCalls)
}

func TestResolveSavedVideos_CancellationStopsWaiting(t *testing.T) {
	creator := newUser("slow")
	stuck, fast := newVideo(creator.UserID, "stuck"), newVideo(creator.UserID, "fast")
	userID := uuid.New()

	store := newVideoStore(stuck, fast)
	release := make(chan struct{})
	store.block[stuck.VideoID] = release
	t.Cleanup(func() { close(release) })

	agg := newAggregator(bookmarks(userID, stuck.VideoID, fast.VideoID), store, newUserStore(creator), services.SavedVideosConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	got, err := agg.ResolveSavedVideos(ctx, userID)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	// 未完成的视频视为失败被剔除；作者读取发生在 ctx 结束之后，保持未解析。
	require.Len(t, got, 1)
	assert.Equal(t, fast.VideoID, got[0].ID)
	assert.False(t, got[0].Creator.Resolved)
	assert.Equal(t, creator.UserID, got[0].Creator.ID)
}

func TestResolveSavedVideos_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	creator := newUser("metrics")
	ok, missing := newVideo(creator.UserID, "ok"), newVideo(creator.UserID, "missing")
	userID := uuid.New()
	agg := newAggregator(bookmarks(userID, ok.VideoID, missing.VideoID), newVideoStore(ok), newUserStore(creator),
		services.SavedVideosConfig{Meter: provider.Meter("test")})

	_, err := agg.ResolveSavedVideos(context.Background(), userID)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.Equal(t, int64(1), sumCounter(t, rm, "saved_videos_resolve_total"))
	assert.Equal(t, int64(1), sumCounter(t, rm, "saved_videos_item_failure_total"))
}

func sumCounter(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
