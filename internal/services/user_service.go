package services

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/models/events"
	"github.com/bionicotaku/lingo-services-social/internal/models/po"
	"github.com/bionicotaku/lingo-services-social/internal/models/vo"
	"github.com/bionicotaku/lingo-services-social/internal/repositories"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]{3,32}$`)

// UserRepo 定义用户读写所需的持久化行为。
type UserRepo interface {
	Create(ctx context.Context, sess txmanager.Session, in repositories.CreateUserInput) (*po.User, error)
	FindByID(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.User, error)
	FindByAccountID(ctx context.Context, sess txmanager.Session, accountID string) (*po.User, error)
	UpdateAvatar(ctx context.Context, sess txmanager.Session, userID uuid.UUID, avatarURL string) error
}

// CreatorVideoLister 列出作者的视频。
type CreatorVideoLister interface {
	ListByCreator(ctx context.Context, sess txmanager.Session, creatorID uuid.UUID) ([]*po.Video, error)
}

// FollowerCounter 统计关系数量。
type FollowerCounter interface {
	CountByObject(ctx context.Context, sess txmanager.Session, kind po.RelationKind, objectID uuid.UUID) (int64, error)
}

// RegisterInput 描述注册所需字段。AccountID 是认证系统中的账号标识。
type RegisterInput struct {
	AccountID string
	Email     string
	Username  string
	AvatarURL string
}

// UserService 封装用户注册、资料读取与主页聚合。
type UserService struct {
	repo      UserRepo
	videos    CreatorVideoLister
	relations FollowerCounter
	outbox    OutboxWriter
	txManager txmanager.Manager
	log       *log.Helper
	now       func() time.Time
}

// NewUserService 构造 UserService。
func NewUserService(repo UserRepo, videos CreatorVideoLister, relations FollowerCounter, outbox OutboxWriter, tx txmanager.Manager, logger log.Logger) *UserService {
	return &UserService{
		repo:      repo,
		videos:    videos,
		relations: relations,
		outbox:    outbox,
		txManager: tx,
		log:       log.NewHelper(logger),
		now:       time.Now,
	}
}

// Register 创建用户并写入 social.user.registered 事件。用户名与账号均唯一。
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*vo.User, error) {
	if err := validateRegister(&input); err != nil {
		return nil, err
	}

	var created *po.User
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		user, err := s.repo.Create(txCtx, sess, repositories.CreateUserInput{
			UserID:    uuid.New(),
			AccountID: input.AccountID,
			Email:     input.Email,
			Username:  input.Username,
			AvatarURL: input.AvatarURL,
		})
		if err != nil {
			return err
		}
		occurredAt := user.CreatedAt.UTC()
		if occurredAt.IsZero() {
			occurredAt = s.now().UTC()
		}
		event, err := events.NewUserRegisteredEvent(user, uuid.New(), occurredAt)
		if err != nil {
			return fmt.Errorf("build user registered event: %w", err)
		}
		if err := enqueueEvent(txCtx, s.outbox, sess, event); err != nil {
			return err
		}
		created = user
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrUsernameTaken):
		return nil, ErrUsernameTaken.WithCause(err)
	case errors.Is(err, repositories.ErrAccountExists):
		return nil, ErrAccountExists.WithCause(err)
	default:
		return nil, commandFailure(ctx, s.log, "register user", err)
	}

	s.log.WithContext(ctx).Infof("Register: user_id=%s username=%s", created.UserID, created.Username)
	return vo.NewUser(created), nil
}

// GetUser 返回用户完整资料。
func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*vo.User, error) {
	if userID == uuid.Nil {
		return nil, ErrUserIDInvalid
	}
	user, err := s.repo.FindByID(ctx, nil, userID)
	if err != nil {
		return nil, s.readFailure(ctx, "get user", err)
	}
	return vo.NewUser(user), nil
}

// GetByAccount 按认证账号查找用户，对应登录后的“当前用户”。
func (s *UserService) GetByAccount(ctx context.Context, accountID string) (*vo.User, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, errors.BadRequest(ReasonUserInvalid, "account_id is required")
	}
	user, err := s.repo.FindByAccountID(ctx, nil, accountID)
	if err != nil {
		return nil, s.readFailure(ctx, "get user by account", err)
	}
	return vo.NewUser(user), nil
}

// UpdateAvatar 更新头像地址。
func (s *UserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) error {
	if userID == uuid.Nil {
		return ErrUserIDInvalid
	}
	if err := s.repo.UpdateAvatar(ctx, nil, userID, strings.TrimSpace(avatarURL)); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound.WithCause(err)
		}
		return commandFailure(ctx, s.log, "update avatar", err)
	}
	return nil
}

// GetProfile 返回用户主页：公开资料、作品（新到旧）与粉丝数。
// 作品与粉丝数并发读取，任一失败则整体失败。
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*vo.Profile, error) {
	if userID == uuid.Nil {
		return nil, ErrUserIDInvalid
	}
	user, err := s.repo.FindByID(ctx, nil, userID)
	if err != nil {
		return nil, s.readFailure(ctx, "get profile", err)
	}

	var (
		videos    []*po.Video
		followers int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		videos, err = s.videos.ListByCreator(gctx, nil, userID)
		return err
	})
	g.Go(func() error {
		var err error
		followers, err = s.relations.CountByObject(gctx, nil, po.RelationFollow, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, queryFailure(ctx, s.log, "load profile", err)
	}

	posts := make([]vo.HydratedVideo, 0, len(videos))
	for _, video := range videos {
		posts = append(posts, vo.Hydrate(video, user))
	}
	return &vo.Profile{
		Creator:       vo.NewCreator(user),
		Posts:         posts,
		FollowerCount: followers,
	}, nil
}

func (s *UserService) readFailure(ctx context.Context, op string, err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return ErrUserNotFound.WithCause(err)
	}
	return queryFailure(ctx, s.log, op, err)
}

func validateRegister(input *RegisterInput) error {
	input.AccountID = strings.TrimSpace(input.AccountID)
	input.Email = strings.TrimSpace(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	input.AvatarURL = strings.TrimSpace(input.AvatarURL)
	switch {
	case input.AccountID == "":
		return errors.BadRequest(ReasonUserInvalid, "account_id is required")
	case input.Email == "":
		return errors.BadRequest(ReasonUserInvalid, "email is required")
	case !usernamePattern.MatchString(input.Username):
		return errors.BadRequest(ReasonUserInvalid, "username must be 3-32 letters, digits, '_' or '.'")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return errors.BadRequest(ReasonUserInvalid, "email is invalid")
	}
	return nil
}
