package services_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/bionicotaku/lingo-services-social/internal/models/events"
	"github.com/bionicotaku/lingo-services-social/internal/models/po"
	"github.com/bionicotaku/lingo-services-social/internal/services"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relationFixture struct {
	svc    *services.RelationService
	rel    *relationStub
	videos *videoStore
	users  *userStore
	outbox *outboxStub
	viewer *po.User
	author *po.User
	video  *po.Video
}

func newRelationFixture(t *testing.T) *relationFixture {
	t.Helper()
	viewer, author := newUser("viewer"), newUser("author")
	video := newVideo(author.UserID, "clip")

	f := &relationFixture{
		rel:    &relationStub{},
		videos: newVideoStore(video),
		users:  newUserStore(viewer, author),
		outbox: &outboxStub{},
		viewer: viewer,
		author: author,
		video:  video,
	}
	logger := log.NewStdLogger(io.Discard)
	agg := services.NewSavedVideosAggregator(f.rel, f.videos, f.users, services.SavedVideosConfig{}, logger)
	f.svc = services.NewRelationService(f.rel, f.videos, f.users, f.outbox, agg, noopTxManager{}, logger)
	return f
}

func TestRelationService_SaveVideoIsIdempotent(t *testing.T) {
	f := newRelationFixture(t)
	ctx := context.Background()

	created, err := f.svc.SaveVideo(ctx, f.viewer.UserID, f.video.VideoID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.SaveVideo(ctx, f.viewer.UserID, f.video.VideoID)
	require.NoError(t, err)
	assert.False(t, created)

	saved, err := f.svc.IsSaved(ctx, f.viewer.UserID, f.video.VideoID)
	require.NoError(t, err)
	assert.True(t, saved)

	assert.Equal(t, []string{events.KindBookmarkAdded.String()}, f.outbox.eventTypes())
}

func TestRelationService_SaveThenListSaved(t *testing.T) {
	f := newRelationFixture(t)
	ctx := context.Background()
	second := newVideo(f.author.UserID, "second")
	f.videos.videos[second.VideoID] = second

	_, err := f.svc.SaveVideo(ctx, f.viewer.UserID, second.VideoID)
	require.NoError(t, err)
	_, err = f.svc.SaveVideo(ctx, f.viewer.UserID, f.video.VideoID)
	require.NoError(t, err)

	got, err := f.svc.ListSavedVideos(ctx, f.viewer.UserID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{second.VideoID, f.video.VideoID}, videoIDs(got))
	assert.True(t, got[0].Creator.Resolved)
	assert.Equal(t, f.author.Username, got[0].Creator.Username)
}

func TestRelationService_UnsaveVideo(t *testing.T) {
	f := newRelationFixture(t)
	ctx := context.Background()

	removed, err := f.svc.UnsaveVideo(ctx, f.viewer.UserID, f.video.VideoID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, f.outbox.eventTypes())

	_, err = f.svc.SaveVideo(ctx, f.viewer.UserID, f.video.VideoID)
	require.NoError(t, err)
	removed, err = f.svc.UnsaveVideo(ctx, f.viewer.UserID, f.video.VideoID)
	require.NoError(t, err)
	assert.True(t, removed)

	assert.Equal(t, []string{events.KindBookmarkAdded.String(), events.KindBookmarkRemoved.String()}, f.outbox.eventTypes())
}

func TestRelationService_SaveMissingVideo(t *testing.T) {
	f := newRelationFixture(t)

	_, err := f.svc.SaveVideo(context.Background(), f.viewer.UserID, uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrVideoNotFound))
	assert.Empty(t, f.rel.relations)
}

func TestRelationService_InvalidIDs(t *testing.T) {
	f := newRelationFixture(t)
	ctx := context.Background()

	_, err := f.svc.SaveVideo(ctx, uuid.Nil, f.video.VideoID)
	assert.True(t, errors.Is(err, services.ErrUserIDInvalid))

	_, err = f.svc.LikeVideo(ctx, f.viewer.UserID, uuid.Nil)
	assert.True(t, errors.Is(err, services.ErrVideoIDInvalid))

	_, err = f.svc.LikeCount(ctx, uuid.Nil)
	assert.True(t, errors.Is(err, services.ErrVideoIDInvalid))

	_, err = f.svc.FollowedUsers(ctx, uuid.Nil)
	assert.True(t, errors.Is(err, services.ErrUserIDInvalid))
}

func TestRelationService_Likes(t *testing.T) {
	f := newRelationFixture(t)
	ctx := context.Background()
	other := newUser("other")
	f.users.users[other.UserID] = other

	_, err := f.svc.LikeVideo(ctx, f.viewer.UserID, f.video.VideoID)
	require.NoError(t, err)
	_, err = f.svc.LikeVideo(ctx, other.UserID, f.video.VideoID)
	require.NoError(t, err)

	count, err := f.svc.LikeCount(ctx, f.video.VideoID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	liked, err := f.svc.IsLiked(ctx, other.UserID, f.video.VideoID)
	require.NoError(t, err)
	assert.True(t, liked)

	removed, err := f.svc.UnlikeVideo(ctx, other.UserID, f.video.VideoID)
	require.NoError(t, err)
	assert.True(t, removed)

	count, err = f.svc.LikeCount(ctx, f.video.VideoID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// 点赞不影响收藏。
	saved, err := f.svc.IsSaved(ctx, f.viewer.UserID, f.video.VideoID)
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestRelationService_FollowRejectsSelf(t *testing.T) {
	f := newRelationFixture(t)

	_, err := f.svc.Follow(context.Background(), f.viewer.UserID, f.viewer.UserID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrSelfFollowForbidden))
	assert.Equal(t, 400, int(kerrors.FromError(err).Code))

	_, err = f.svc.ToggleFollow(context.Background(), f.viewer.UserID, f.viewer.UserID)
	assert.True(t, errors.Is(err, services.ErrSelfFollowForbidden))
	assert.Empty(t, f.outbox.eventTypes())
}

func TestRelationService_FollowLifecycle(t *testing.T) {
	f := newRelationFixture(t)
	ctx := context.Background()
	third := newUser("third")
	f.users.users[third.UserID] = third

	_, err := f.svc.Follow(ctx, f.viewer.UserID, f.author.UserID)
	require.NoError(t, err)
	_, err = f.svc.Follow(ctx, f.viewer.UserID, third.UserID)
	require.NoError(t, err)

	following, err := f.svc.FollowedUsers(ctx, f.viewer.UserID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.author.UserID, third.UserID}, following)

	count, err := f.svc.FollowerCount(ctx, f.author.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ok, err := f.svc.IsFollowing(ctx, f.viewer.UserID, f.author.UserID)
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := f.svc.Unfollow(ctx, f.viewer.UserID, f.author.UserID)
	require.NoError(t, err)
	assert.True(t, removed)

	ok, err = f.svc.IsFollowing(ctx, f.viewer.UserID, f.author.UserID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRelationService_ToggleFollow(t *testing.T) {
	f := newRelationFixture(t)
	ctx := context.Background()

	state, err := f.svc.ToggleFollow(ctx, f.viewer.UserID, f.author.UserID)
	require.NoError(t, err)
	assert.True(t, state)

	state, err = f.svc.ToggleFollow(ctx, f.viewer.UserID, f.author.UserID)
	require.NoError(t, err)
	assert.False(t, state)

	assert.Equal(t, []string{events.KindFollowAdded.String(), events.KindFollowRemoved.String()}, f.outbox.eventTypes())
}

func TestRelationService_FollowMissingUser(t *testing.T) {
	f := newRelationFixture(t)

	_, err := f.svc.ToggleFollow(context.Background(), f.viewer.UserID, uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrUserNotFound))
}

func TestRelationService_OutboxMessageShape(t *testing.T) {
	f := newRelationFixture(t)

	_, err := f.svc.LikeVideo(context.Background(), f.viewer.UserID, f.video.VideoID)
	require.NoError(t, err)

	require.Len(t, f.outbox.messages, 1)
	msg := f.outbox.messages[0]
	assert.Equal(t, events.AggregateRelation, msg.AggregateType)
	assert.Equal(t, f.video.VideoID, msg.AggregateID)
	assert.Equal(t, "social.like.added", msg.EventType)
	assert.Equal(t, msg.EventID.String(), msg.Headers["event_id"])
	assert.Equal(t, events.SchemaVersionV1, msg.Headers["schema_version"])
	assert.JSONEq(t, `{"kind":"like","subject_id":"`+f.viewer.UserID.String()+`","object_id":"`+f.video.VideoID.String()+`","active":true}`, string(msg.Payload))
}

func TestRelationService_WriteFailure(t *testing.T) {
	f := newRelationFixture(t)
	f.outbox.err = errors.New("outbox unavailable")

	_, err := f.svc.SaveVideo(context.Background(), f.viewer.UserID, f.video.VideoID)
	require.Error(t, err)
	e := kerrors.FromError(err)
	assert.Equal(t, 500, int(e.Code))
	assert.Equal(t, services.ReasonCommandFailed, e.Reason)
}
