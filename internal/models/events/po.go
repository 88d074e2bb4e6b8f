package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/models/po"
	"github.com/google/uuid"
)

// Kind 标识领域事件类型。
type Kind int

// 领域事件类型常量。
const (
	KindUnknown Kind = iota
	KindUserRegistered
	KindVideoCreated
	KindBookmarkAdded
	KindBookmarkRemoved
	KindLikeAdded
	KindLikeRemoved
	KindFollowAdded
	KindFollowRemoved
)

func (k Kind) String() string {
	switch k {
	case KindUserRegistered:
		return "social.user.registered"
	case KindVideoCreated:
		return "social.video.created"
	case KindBookmarkAdded:
		return "social.bookmark.added"
	case KindBookmarkRemoved:
		return "social.bookmark.removed"
	case KindLikeAdded:
		return "social.like.added"
	case KindLikeRemoved:
		return "social.like.removed"
	case KindFollowAdded:
		return "social.follow.added"
	case KindFollowRemoved:
		return "social.follow.removed"
	default:
		return "social.unknown"
	}
}

// 聚合类型。
const (
	AggregateUser     = "user"
	AggregateVideo    = "video"
	AggregateRelation = "relation"
)

// ErrNilEntity 表示构造事件时缺少实体。
var ErrNilEntity = errors.New("events: entity is nil")

// DomainEvent 表示领域层生成的标准事件。
type DomainEvent struct {
	EventID       uuid.UUID
	Kind          Kind
	AggregateID   uuid.UUID
	AggregateType string
	Version       int64
	OccurredAt    time.Time
	Payload       any
}

// UserRegistered 描述用户注册事件的业务载荷。
type UserRegistered struct {
	UserID    uuid.UUID `json:"user_id"`
	AccountID string    `json:"account_id"`
	Username  string    `json:"username"`
}

// VideoCreated 描述视频创建事件的业务载荷。
type VideoCreated struct {
	VideoID      uuid.UUID `json:"video_id"`
	CreatorID    uuid.UUID `json:"creator_id"`
	Title        string    `json:"title"`
	VideoRef     string    `json:"video_ref"`
	ThumbnailRef string    `json:"thumbnail_ref"`
}

// RelationChanged 描述 bookmark / like / follow 关系的建立或解除。
type RelationChanged struct {
	Kind      po.RelationKind `json:"kind"`
	SubjectID uuid.UUID       `json:"subject_id"`
	ObjectID  uuid.UUID       `json:"object_id"`
	Active    bool            `json:"active"`
}

// NewUserRegisteredEvent 基于新建用户构造事件。
func NewUserRegisteredEvent(user *po.User, eventID uuid.UUID, occurredAt time.Time) (*DomainEvent, error) {
	if user == nil {
		return nil, ErrNilEntity
	}
	return newEvent(eventID, KindUserRegistered, user.UserID, AggregateUser, occurredAt, &UserRegistered{
		UserID:    user.UserID,
		AccountID: user.AccountID,
		Username:  user.Username,
	}), nil
}

// NewVideoCreatedEvent 基于新建视频构造事件。
func NewVideoCreatedEvent(video *po.Video, eventID uuid.UUID, occurredAt time.Time) (*DomainEvent, error) {
	if video == nil {
		return nil, ErrNilEntity
	}
	return newEvent(eventID, KindVideoCreated, video.VideoID, AggregateVideo, occurredAt, &VideoCreated{
		VideoID:      video.VideoID,
		CreatorID:    video.CreatorID,
		Title:        video.Title,
		VideoRef:     video.VideoRef,
		ThumbnailRef: video.ThumbnailRef,
	}), nil
}

// NewRelationEvent 构造关系变更事件；聚合 ID 取关系的 object（视频或被关注用户）。
func NewRelationEvent(kind po.RelationKind, subjectID, objectID uuid.UUID, active bool, eventID uuid.UUID, occurredAt time.Time) (*DomainEvent, error) {
	eventKind := relationKind(kind, active)
	if eventKind == KindUnknown {
		return nil, fmt.Errorf("events: unsupported relation kind %q", kind)
	}
	return newEvent(eventID, eventKind, objectID, AggregateRelation, occurredAt, &RelationChanged{
		Kind:      kind,
		SubjectID: subjectID,
		ObjectID:  objectID,
		Active:    active,
	}), nil
}

// EncodePayload 将事件载荷编码为 JSON，写入 outbox.payload。
func EncodePayload(evt *DomainEvent) ([]byte, error) {
	if evt == nil || evt.Payload == nil {
		return nil, ErrNilEntity
	}
	return json.Marshal(evt.Payload)
}

func relationKind(kind po.RelationKind, active bool) Kind {
	switch {
	case kind == po.RelationBookmark && active:
		return KindBookmarkAdded
	case kind == po.RelationBookmark:
		return KindBookmarkRemoved
	case kind == po.RelationLike && active:
		return KindLikeAdded
	case kind == po.RelationLike:
		return KindLikeRemoved
	case kind == po.RelationFollow && active:
		return KindFollowAdded
	case kind == po.RelationFollow:
		return KindFollowRemoved
	default:
		return KindUnknown
	}
}

func newEvent(eventID uuid.UUID, kind Kind, aggregateID uuid.UUID, aggregateType string, occurredAt time.Time, payload any) *DomainEvent {
	if eventID == uuid.Nil {
		eventID = uuid.New()
	}
	occurred := occurredAt.UTC()
	return &DomainEvent{
		EventID:       eventID,
		Kind:          kind,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       VersionFromTime(occurred),
		OccurredAt:    occurred,
		Payload:       payload,
	}
}
