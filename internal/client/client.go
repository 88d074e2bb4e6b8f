// Package client 是社交服务 /v1 HTTP API 的 Go 客户端，供 CLI 与其他服务调用。
package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-social/internal/models/vo"

	obsTrace "github.com/bionicotaku/lingo-utils/observability/tracing"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/metadata"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/circuitbreaker"
	mmd "github.com/go-kratos/kratos/v2/middleware/metadata"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
)

const (
	defaultTimeout = 10 * time.Second
	// UserIDHeader 与服务端默认的网关身份头一致。
	UserIDHeader = "x-md-global-user-id"
)

// ErrNoIdentity 表示调用需要身份但客户端未配置用户。
var ErrNoIdentity = errors.New("client: caller identity not configured")

// Config 描述服务端地址与调用方身份。Token 非空时以 Bearer 方式发送，否则使用 UserID 头。
type Config struct {
	Endpoint string
	Timeout  time.Duration
	UserID   uuid.UUID
	Token    string
}

// Client 封装 kratos HTTP 客户端。
type Client struct {
	http   *khttp.Client
	userID uuid.UUID
	token  string
	log    *log.Helper
}

// New 连接到 cfg.Endpoint。
func New(ctx context.Context, cfg Config, logger log.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("client: endpoint is required")
	}
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{userID: cfg.UserID, token: cfg.Token, log: log.NewHelper(logger)}
	conn, err := khttp.NewClient(ctx,
		khttp.WithEndpoint(endpoint),
		khttp.WithTimeout(timeout),
		khttp.WithMiddleware(
			recovery.Recovery(),
			obsTrace.Client(),
			c.credentials(),
			mmd.Client(),
			circuitbreaker.Client(),
		),
	)
	if err != nil {
		return nil, err
	}
	c.http = conn
	return c, nil
}

// Close 释放底层连接。
func (c *Client) Close() error {
	if c == nil || c.http == nil {
		return nil
	}
	return c.http.Close()
}

// UserID 返回客户端配置的调用方。
func (c *Client) UserID() uuid.UUID { return c.userID }

// credentials 为每个请求附加调用方身份，须位于 metadata.Client 之前。
func (c *Client) credentials() middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			if tr, ok := transport.FromClientContext(ctx); ok {
				switch {
				case c.token != "":
					tr.RequestHeader().Set("Authorization", "Bearer "+c.token)
				case c.userID != uuid.Nil:
					ctx = metadata.AppendToClientContext(ctx, UserIDHeader, c.userID.String())
				}
			}
			return next(ctx, req)
		}
	}
}

func (c *Client) requireIdentity() error {
	if c.token == "" && c.userID == uuid.Nil {
		return ErrNoIdentity
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method, path string, args, reply any) error {
	if err := c.http.Invoke(ctx, method, path, args, reply); err != nil {
		c.log.WithContext(ctx).Debugf("%s %s failed: %v", method, path, err)
		return err
	}
	return nil
}

// Register 注册用户。
func (c *Client) Register(ctx context.Context, req *dto.RegisterUserRequest) (*vo.User, error) {
	var out vo.User
	if err := c.invoke(ctx, http.MethodPost, "/v1/users", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me 返回调用方的完整资料。
func (c *Client) Me(ctx context.Context) (*vo.User, error) {
	if err := c.requireIdentity(); err != nil {
		return nil, err
	}
	var out vo.User
	if err := c.invoke(ctx, http.MethodGet, "/v1/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser 返回用户公开资料。
func (c *Client) GetUser(ctx context.Context, userID uuid.UUID) (*vo.User, error) {
	var out vo.User
	if err := c.invoke(ctx, http.MethodGet, "/v1/users/"+userID.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SavedVideos 返回调用方收藏的视频（已附带作者资料）。
func (c *Client) SavedVideos(ctx context.Context) ([]vo.HydratedVideo, error) {
	if err := c.requireIdentity(); err != nil {
		return nil, err
	}
	var out dto.VideoList
	if err := c.invoke(ctx, http.MethodGet, "/v1/me/saved-videos", nil, &out); err != nil {
		return nil, err
	}
	return out.Videos, nil
}

// LatestVideos 返回最新视频。
func (c *Client) LatestVideos(ctx context.Context) ([]vo.HydratedVideo, error) {
	var out dto.VideoList
	if err := c.invoke(ctx, http.MethodGet, "/v1/videos/latest", nil, &out); err != nil {
		return nil, err
	}
	return out.Videos, nil
}

// SaveVideo 收藏视频。
func (c *Client) SaveVideo(ctx context.Context, videoID uuid.UUID) (*dto.RelationState, error) {
	return c.relation(ctx, http.MethodPut, "/v1/videos/"+videoID.String()+"/bookmark")
}

// UnsaveVideo 取消收藏。
func (c *Client) UnsaveVideo(ctx context.Context, videoID uuid.UUID) (*dto.RelationState, error) {
	return c.relation(ctx, http.MethodDelete, "/v1/videos/"+videoID.String()+"/bookmark")
}

// ToggleFollow 切换对 userID 的关注状态，返回切换后的状态。
func (c *Client) ToggleFollow(ctx context.Context, userID uuid.UUID) (*dto.RelationState, error) {
	return c.relation(ctx, http.MethodPost, "/v1/users/"+userID.String()+"/follow/toggle")
}

// Following 返回调用方关注的用户 ID。
func (c *Client) Following(ctx context.Context) ([]uuid.UUID, error) {
	if err := c.requireIdentity(); err != nil {
		return nil, err
	}
	var out dto.UserIDList
	if err := c.invoke(ctx, http.MethodGet, "/v1/me/following", nil, &out); err != nil {
		return nil, err
	}
	return out.UserIDs, nil
}

func (c *Client) relation(ctx context.Context, method, path string) (*dto.RelationState, error) {
	if err := c.requireIdentity(); err != nil {
		return nil, err
	}
	var out dto.RelationState
	if err := c.invoke(ctx, method, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
