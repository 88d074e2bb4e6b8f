package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/models/events"
	"github.com/bionicotaku/lingo-services-social/internal/models/po"
	"github.com/bionicotaku/lingo-services-social/internal/models/vo"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// RelationRepo 定义 bookmark / like / follow 关系的持久化行为。
type RelationRepo interface {
	Create(ctx context.Context, sess txmanager.Session, kind po.RelationKind, subjectID, objectID uuid.UUID) (bool, error)
	Delete(ctx context.Context, sess txmanager.Session, kind po.RelationKind, subjectID, objectID uuid.UUID) (bool, error)
	Exists(ctx context.Context, sess txmanager.Session, kind po.RelationKind, subjectID, objectID uuid.UUID) (bool, error)
	ListBySubject(ctx context.Context, sess txmanager.Session, kind po.RelationKind, subjectID uuid.UUID) ([]po.Relation, error)
	CountByObject(ctx context.Context, sess txmanager.Session, kind po.RelationKind, objectID uuid.UUID) (int64, error)
}

// SavedVideosResolver 解析用户收藏的视频。
type SavedVideosResolver interface {
	ResolveSavedVideos(ctx context.Context, userID uuid.UUID) ([]vo.HydratedVideo, error)
}

// RelationService 封装收藏、点赞、关注三类关系的用例。
//
// 建立关系是幂等的：已存在时不再写入事件。每次实际的状态变化都在同一事务内写入 Outbox。
type RelationService struct {
	repo      RelationRepo
	videos    VideoFinder
	users     CreatorFinder
	outbox    OutboxWriter
	saved     SavedVideosResolver
	txManager txmanager.Manager
	log       *log.Helper
	now       func() time.Time
}

// NewRelationService 构造 RelationService。
func NewRelationService(repo RelationRepo, videos VideoFinder, users CreatorFinder, outbox OutboxWriter, saved SavedVideosResolver, tx txmanager.Manager, logger log.Logger) *RelationService {
	return &RelationService{
		repo:      repo,
		videos:    videos,
		users:     users,
		outbox:    outbox,
		saved:     saved,
		txManager: tx,
		log:       log.NewHelper(logger),
		now:       time.Now,
	}
}

// SaveVideo 收藏视频，返回本次是否新建了收藏。
func (s *RelationService) SaveVideo(ctx context.Context, userID, videoID uuid.UUID) (bool, error) {
	return s.add(ctx, po.RelationBookmark, userID, videoID)
}

// UnsaveVideo 取消收藏，返回是否确有记录被删除。
func (s *RelationService) UnsaveVideo(ctx context.Context, userID, videoID uuid.UUID) (bool, error) {
	return s.remove(ctx, po.RelationBookmark, userID, videoID)
}

// IsSaved 判断视频是否已被收藏。
func (s *RelationService) IsSaved(ctx context.Context, userID, videoID uuid.UUID) (bool, error) {
	return s.exists(ctx, po.RelationBookmark, userID, videoID)
}

// ListSavedVideos 返回带作者资料的收藏视频，顺序与收藏顺序一致。
func (s *RelationService) ListSavedVideos(ctx context.Context, userID uuid.UUID) ([]vo.HydratedVideo, error) {
	return s.saved.ResolveSavedVideos(ctx, userID)
}

// LikeVideo 点赞视频。
func (s *RelationService) LikeVideo(ctx context.Context, userID, videoID uuid.UUID) (bool, error) {
	return s.add(ctx, po.RelationLike, userID, videoID)
}

// UnlikeVideo 取消点赞。
func (s *RelationService) UnlikeVideo(ctx context.Context, userID, videoID uuid.UUID) (bool, error) {
	return s.remove(ctx, po.RelationLike, userID, videoID)
}

// IsLiked 判断视频是否已被点赞。
func (s *RelationService) IsLiked(ctx context.Context, userID, videoID uuid.UUID) (bool, error) {
	return s.exists(ctx, po.RelationLike, userID, videoID)
}

// LikeCount 返回视频的点赞数。
func (s *RelationService) LikeCount(ctx context.Context, videoID uuid.UUID) (int64, error) {
	return s.count(ctx, po.RelationLike, videoID)
}

// Follow 关注作者。关注自己返回 ErrSelfFollowForbidden。
func (s *RelationService) Follow(ctx context.Context, userID, creatorID uuid.UUID) (bool, error) {
	return s.add(ctx, po.RelationFollow, userID, creatorID)
}

// Unfollow 取消关注。
func (s *RelationService) Unfollow(ctx context.Context, userID, creatorID uuid.UUID) (bool, error) {
	return s.remove(ctx, po.RelationFollow, userID, creatorID)
}

// IsFollowing 判断 userID 是否关注了 creatorID。
func (s *RelationService) IsFollowing(ctx context.Context, userID, creatorID uuid.UUID) (bool, error) {
	return s.exists(ctx, po.RelationFollow, userID, creatorID)
}

// FollowerCount 返回用户的粉丝数。
func (s *RelationService) FollowerCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.count(ctx, po.RelationFollow, userID)
}

// FollowedUsers 返回 userID 关注的用户 ID，按关注先后排列且不重复。
func (s *RelationService) FollowedUsers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, ErrUserIDInvalid
	}
	relations, err := s.repo.ListBySubject(ctx, nil, po.RelationFollow, userID)
	if err != nil {
		return nil, queryFailure(ctx, s.log, "list followed users", err)
	}
	ids := make([]uuid.UUID, 0, len(relations))
	for _, rel := range relations {
		ids = append(ids, rel.ObjectID)
	}
	return ids, nil
}

// ToggleFollow 在关注与取消关注之间切换，返回切换后的状态（true 表示已关注）。
func (s *RelationService) ToggleFollow(ctx context.Context, userID, creatorID uuid.UUID) (bool, error) {
	if err := s.validatePair(po.RelationFollow, userID, creatorID); err != nil {
		return false, err
	}

	var following bool
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		exists, err := s.repo.Exists(txCtx, sess, po.RelationFollow, userID, creatorID)
		if err != nil {
			return err
		}
		if exists {
			removed, err := s.repo.Delete(txCtx, sess, po.RelationFollow, userID, creatorID)
			if err != nil {
				return err
			}
			following = false
			if !removed {
				return nil
			}
			return s.emit(txCtx, sess, po.RelationFollow, userID, creatorID, false)
		}

		if err := s.ensureObject(txCtx, sess, po.RelationFollow, creatorID); err != nil {
			return err
		}
		created, err := s.repo.Create(txCtx, sess, po.RelationFollow, userID, creatorID)
		if err != nil {
			return err
		}
		following = true
		if !created {
			return nil
		}
		return s.emit(txCtx, sess, po.RelationFollow, userID, creatorID, true)
	})
	if err != nil {
		return false, s.writeFailure(ctx, "toggle follow", err)
	}
	s.log.WithContext(ctx).Infof("ToggleFollow: user_id=%s creator_id=%s following=%t", userID, creatorID, following)
	return following, nil
}

func (s *RelationService) add(ctx context.Context, kind po.RelationKind, subjectID, objectID uuid.UUID) (bool, error) {
	if err := s.validatePair(kind, subjectID, objectID); err != nil {
		return false, err
	}

	var created bool
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		if err := s.ensureObject(txCtx, sess, kind, objectID); err != nil {
			return err
		}
		var err error
		created, err = s.repo.Create(txCtx, sess, kind, subjectID, objectID)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		return s.emit(txCtx, sess, kind, subjectID, objectID, true)
	})
	if err != nil {
		return false, s.writeFailure(ctx, "add "+string(kind), err)
	}
	if created {
		s.log.WithContext(ctx).Infof("relation added: kind=%s subject_id=%s object_id=%s", kind, subjectID, objectID)
	}
	return created, nil
}

func (s *RelationService) remove(ctx context.Context, kind po.RelationKind, subjectID, objectID uuid.UUID) (bool, error) {
	if err := s.validateIDs(kind, subjectID, objectID); err != nil {
		return false, err
	}

	var removed bool
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		var err error
		removed, err = s.repo.Delete(txCtx, sess, kind, subjectID, objectID)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
		return s.emit(txCtx, sess, kind, subjectID, objectID, false)
	})
	if err != nil {
		return false, s.writeFailure(ctx, "remove "+string(kind), err)
	}
	if removed {
		s.log.WithContext(ctx).Infof("relation removed: kind=%s subject_id=%s object_id=%s", kind, subjectID, objectID)
	}
	return removed, nil
}

func (s *RelationService) exists(ctx context.Context, kind po.RelationKind, subjectID, objectID uuid.UUID) (bool, error) {
	if err := s.validateIDs(kind, subjectID, objectID); err != nil {
		return false, err
	}
	ok, err := s.repo.Exists(ctx, nil, kind, subjectID, objectID)
	if err != nil {
		return false, queryFailure(ctx, s.log, "check "+string(kind), err)
	}
	return ok, nil
}

func (s *RelationService) count(ctx context.Context, kind po.RelationKind, objectID uuid.UUID) (int64, error) {
	if objectID == uuid.Nil {
		return 0, objectIDError(kind)
	}
	n, err := s.repo.CountByObject(ctx, nil, kind, objectID)
	if err != nil {
		return 0, queryFailure(ctx, s.log, "count "+string(kind), err)
	}
	return n, nil
}

// ensureObject 确认关系目标存在：收藏与点赞指向视频，关注指向用户。
func (s *RelationService) ensureObject(ctx context.Context, sess txmanager.Session, kind po.RelationKind, objectID uuid.UUID) error {
	var err error
	if kind == po.RelationFollow {
		_, err = s.users.FindByID(ctx, sess, objectID)
	} else {
		_, err = s.videos.FindByID(ctx, sess, objectID)
	}
	if err != nil {
		return mapRepoNotFound(err)
	}
	return nil
}

func (s *RelationService) emit(ctx context.Context, sess txmanager.Session, kind po.RelationKind, subjectID, objectID uuid.UUID, active bool) error {
	event, err := events.NewRelationEvent(kind, subjectID, objectID, active, uuid.New(), s.now().UTC())
	if err != nil {
		return fmt.Errorf("build relation event: %w", err)
	}
	return enqueueEvent(ctx, s.outbox, sess, event)
}

func (s *RelationService) validatePair(kind po.RelationKind, subjectID, objectID uuid.UUID) error {
	if err := s.validateIDs(kind, subjectID, objectID); err != nil {
		return err
	}
	if kind == po.RelationFollow && subjectID == objectID {
		return ErrSelfFollowForbidden
	}
	return nil
}

func (s *RelationService) validateIDs(kind po.RelationKind, subjectID, objectID uuid.UUID) error {
	if subjectID == uuid.Nil {
		return ErrUserIDInvalid
	}
	if objectID == uuid.Nil {
		return objectIDError(kind)
	}
	return nil
}

func (s *RelationService) writeFailure(ctx context.Context, op string, err error) error {
	if isBusinessError(err) {
		return err
	}
	return commandFailure(ctx, s.log, op, err)
}

func objectIDError(kind po.RelationKind) error {
	if kind == po.RelationFollow {
		return ErrUserIDInvalid
	}
	return ErrVideoIDInvalid
}
