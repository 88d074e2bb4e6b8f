package services

import (
	"context"
	"fmt"
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

const (
	defaultLatestLimit = 7
	defaultListLimit   = 50
	maxListLimit       = 500
	maxSearchLength    = 200
	maxTitleLength     = 200
	defaultUploadTTL   = 15 * time.Minute
)

// VideoRepo 定义视频读写所需的持久化行为。
type VideoRepo interface {
	Create(ctx context.Context, sess txmanager.Session, in repositories.CreateVideoInput) (*po.Video, error)
	FindByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
	List(ctx context.Context, sess txmanager.Session, limit, offset int) ([]*po.Video, error)
	ListByCreator(ctx context.Context, sess txmanager.Session, creatorID uuid.UUID) ([]*po.Video, error)
	Search(ctx context.Context, sess txmanager.Session, query string, limit int) ([]*po.Video, error)
}

// UploadSigner 定义签发对象上传地址的能力。
type UploadSigner interface {
	SignedUploadURL(ctx context.Context, bucket, objectName, contentType string, ttl time.Duration) (string, time.Time, error)
	ObjectRef(bucket, objectName string) string
}

// VideoConfig 控制列表默认值与上传参数。
type VideoConfig struct {
	LatestLimit    int
	DefaultLimit   int
	MaxConcurrency int
	Bucket         string
	UploadTTL      time.Duration
}

// CreateVideoInput 表示发布视频的输入，CreatorID 取自调用方身份。
type CreateVideoInput struct {
	CreatorID    uuid.UUID
	Title        string
	Prompt       string
	VideoRef     string
	ThumbnailRef string
}

// PrepareUploadInput 描述一次视频 + 封面上传。
type PrepareUploadInput struct {
	UserID               uuid.UUID
	VideoContentType     string
	ThumbnailContentType string
}

var (
	videoContentTypes = map[string]string{
		"video/mp4":       ".mp4",
		"video/quicktime": ".mov",
		"video/webm":      ".webm",
		"video/x-m4v":     ".m4v",
	}
	imageContentTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
	}
)

// VideoService 封装视频浏览、搜索、发布与上传签名用例。
type VideoService struct {
	repo      VideoRepo
	outbox    OutboxWriter
	txManager txmanager.Manager
	signer    UploadSigner
	hydrator  *creatorHydrator
	cfg       VideoConfig
	log       *log.Helper
	now       func() time.Time
}

// NewVideoService 构造 VideoService。signer 为 nil 时上传相关用例返回 ErrUploadsDisabled。
func NewVideoService(repo VideoRepo, creators CreatorFinder, outbox OutboxWriter, tx txmanager.Manager, signer UploadSigner, cfg VideoConfig, logger log.Logger) *VideoService {
	if cfg.LatestLimit <= 0 {
		cfg.LatestLimit = defaultLatestLimit
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultListLimit
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultSavedVideosConcurrency
	}
	if cfg.UploadTTL <= 0 {
		cfg.UploadTTL = defaultUploadTTL
	}
	helper := log.NewHelper(logger)
	return &VideoService{
		repo:      repo,
		outbox:    outbox,
		txManager: tx,
		signer:    signer,
		cfg:       cfg,
		log:       helper,
		now:       time.Now,
		hydrator: &creatorHydrator{
			creators:    creators,
			concurrency: cfg.MaxConcurrency,
			log:         helper,
		},
	}
}

// ListVideos 按创建时间倒序分页返回视频。limit<=0 时使用默认值。
func (s *VideoService) ListVideos(ctx context.Context, limit, offset int) ([]vo.HydratedVideo, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		return nil, errors.BadRequest(ReasonQueryInvalid, "offset must be non-negative")
	}
	videos, err := s.repo.List(ctx, nil, limit, offset)
	if err != nil {
		return nil, queryFailure(ctx, s.log, "list videos", err)
	}
	return s.hydrator.hydrate(ctx, videos), nil
}

// LatestVideos 返回最新的若干视频，limit<=0 时取配置的默认值（7）。
func (s *VideoService) LatestVideos(ctx context.Context, limit int) ([]vo.HydratedVideo, error) {
	if limit <= 0 {
		limit = s.cfg.LatestLimit
	}
	return s.ListVideos(ctx, limit, 0)
}

// SearchVideos 按标题做大小写不敏感的子串匹配。
func (s *VideoService) SearchVideos(ctx context.Context, query string) ([]vo.HydratedVideo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.BadRequest(ReasonQueryInvalid, "query is required")
	}
	if len(query) > maxSearchLength {
		return nil, errors.BadRequest(ReasonQueryInvalid, fmt.Sprintf("query must be at most %d bytes", maxSearchLength))
	}
	videos, err := s.repo.Search(ctx, nil, query, s.cfg.DefaultLimit)
	if err != nil {
		return nil, queryFailure(ctx, s.log, "search videos", err)
	}
	return s.hydrator.hydrate(ctx, videos), nil
}

// ListByCreator 返回作者发布的视频，新到旧。
func (s *VideoService) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]vo.HydratedVideo, error) {
	if creatorID == uuid.Nil {
		return nil, ErrUserIDInvalid
	}
	videos, err := s.repo.ListByCreator(ctx, nil, creatorID)
	if err != nil {
		return nil, queryFailure(ctx, s.log, "list creator videos", err)
	}
	return s.hydrator.hydrate(ctx, videos), nil
}

// GetVideo 返回单个视频及其作者资料。
func (s *VideoService) GetVideo(ctx context.Context, videoID uuid.UUID) (*vo.HydratedVideo, error) {
	if videoID == uuid.Nil {
		return nil, ErrVideoIDInvalid
	}
	video, err := s.repo.FindByID(ctx, nil, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return nil, ErrVideoNotFound.WithCause(err)
		}
		return nil, queryFailure(ctx, s.log, "get video", err)
	}
	hydrated := s.hydrator.hydrate(ctx, []*po.Video{video})
	return &hydrated[0], nil
}

// CreateVideo 发布视频并在同一事务内写入 social.video.created 事件。
func (s *VideoService) CreateVideo(ctx context.Context, input CreateVideoInput) (*vo.HydratedVideo, error) {
	if err := validateCreateVideo(&input); err != nil {
		return nil, err
	}

	var (
		created *po.Video
		creator *po.User
	)
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		user, err := s.hydrator.creators.FindByID(txCtx, sess, input.CreatorID)
		if err != nil {
			return mapRepoNotFound(err)
		}
		video, err := s.repo.Create(txCtx, sess, repositories.CreateVideoInput{
			VideoID:      uuid.New(),
			CreatorID:    input.CreatorID,
			Title:        input.Title,
			Prompt:       input.Prompt,
			VideoRef:     input.VideoRef,
			ThumbnailRef: input.ThumbnailRef,
		})
		if err != nil {
			return err
		}

		occurredAt := video.CreatedAt.UTC()
		if occurredAt.IsZero() {
			occurredAt = s.now().UTC()
		}
		event, err := events.NewVideoCreatedEvent(video, uuid.New(), occurredAt)
		if err != nil {
			return fmt.Errorf("build video created event: %w", err)
		}
		if err := enqueueEvent(txCtx, s.outbox, sess, event); err != nil {
			return err
		}
		created = video
		creator = user
		return nil
	})
	if err != nil {
		if isBusinessError(err) {
			return nil, err
		}
		return nil, commandFailure(ctx, s.log, "create video", err)
	}

	s.log.WithContext(ctx).Infof("CreateVideo: video_id=%s creator_id=%s title=%s", created.VideoID, created.CreatorID, created.Title)
	hydrated := vo.Hydrate(created, creator)
	return &hydrated, nil
}

// PrepareUpload 并发签发视频与封面的上传地址，任一失败则整体失败。
func (s *VideoService) PrepareUpload(ctx context.Context, input PrepareUploadInput) (*vo.UploadTicket, error) {
	if s.signer == nil || s.cfg.Bucket == "" {
		return nil, ErrUploadsDisabled
	}
	if input.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	videoType := strings.ToLower(strings.TrimSpace(input.VideoContentType))
	videoExt, ok := videoContentTypes[videoType]
	if !ok {
		return nil, errors.BadRequest(ReasonUploadInvalid, fmt.Sprintf("unsupported video content type %q", input.VideoContentType))
	}
	thumbType := strings.ToLower(strings.TrimSpace(input.ThumbnailContentType))
	thumbExt, ok := imageContentTypes[thumbType]
	if !ok {
		return nil, errors.BadRequest(ReasonUploadInvalid, fmt.Sprintf("unsupported thumbnail content type %q", input.ThumbnailContentType))
	}

	var ticket vo.UploadTicket
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		target, err := s.signTarget(gctx, "videos", input.UserID, videoType, videoExt)
		ticket.Video = target
		return err
	})
	g.Go(func() error {
		target, err := s.signTarget(gctx, "thumbnails", input.UserID, thumbType, thumbExt)
		ticket.Thumbnail = target
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, commandFailure(ctx, s.log, "prepare upload", err)
	}
	return &ticket, nil
}

func (s *VideoService) signTarget(ctx context.Context, prefix string, userID uuid.UUID, contentType, ext string) (vo.UploadTarget, error) {
	objectName := fmt.Sprintf("%s/%s/%s%s", prefix, userID, uuid.New(), ext)
	url, expiresAt, err := s.signer.SignedUploadURL(ctx, s.cfg.Bucket, objectName, contentType, s.cfg.UploadTTL)
	if err != nil {
		return vo.UploadTarget{}, fmt.Errorf("sign %s: %w", objectName, err)
	}
	return vo.UploadTarget{
		ObjectName:  objectName,
		ObjectRef:   s.signer.ObjectRef(s.cfg.Bucket, objectName),
		UploadURL:   url,
		ContentType: contentType,
		ExpiresAt:   expiresAt.UTC(),
	}, nil
}

func validateCreateVideo(input *CreateVideoInput) error {
	if input.CreatorID == uuid.Nil {
		return ErrUnauthenticated
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Prompt = strings.TrimSpace(input.Prompt)
	input.VideoRef = strings.TrimSpace(input.VideoRef)
	input.ThumbnailRef = strings.TrimSpace(input.ThumbnailRef)
	switch {
	case input.Title == "":
		return errors.BadRequest(ReasonVideoInvalid, "title is required")
	case len([]rune(input.Title)) > maxTitleLength:
		return errors.BadRequest(ReasonVideoInvalid, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	case input.VideoRef == "":
		return errors.BadRequest(ReasonVideoInvalid, "video_ref is required")
	case input.ThumbnailRef == "":
		return errors.BadRequest(ReasonVideoInvalid, "thumbnail_ref is required")
	}
	return nil
}
