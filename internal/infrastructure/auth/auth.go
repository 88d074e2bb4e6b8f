// Package auth 解析调用方身份并写入 Context。
//
// 支持两种模式：
//   - 网关模式（未配置 jwt_secret）：信任网关注入的 user id 请求头。
//   - Token 模式：校验 Authorization: Bearer <HS256 JWT>，subject 即 user id。
//
// 缺少身份信息的请求不会被拦截，由需要身份的用例返回 401；
// 携带了但无法校验的身份一律返回 401。
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	loader "github.com/bionicotaku/lingo-services-social/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-social/internal/metadata"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultHeaderKey 是网关注入已认证用户 ID 的请求头。
	DefaultHeaderKey    = "x-md-global-user-id"
	headerAuthorization = "Authorization"
	headerRequestID     = "x-request-id"

	sourceHeader = "header"
	sourceJWT    = "jwt"
)

// ErrInvalidCredentials 表示身份信息存在但无法通过校验。
var ErrInvalidCredentials = errors.Unauthorized("UNAUTHENTICATED", "invalid caller credentials")

// Config 描述身份解析方式。
type Config struct {
	HeaderKey string
	Secret    string
	Issuer    string
	Audience  string
}

// Authenticator 提供身份解析中间件。
type Authenticator struct {
	cfg    Config
	parser *jwt.Parser
	log    *log.Helper
}

// New 构造 Authenticator。
func New(cfg Config, logger log.Logger) *Authenticator {
	if strings.TrimSpace(cfg.HeaderKey) == "" {
		cfg.HeaderKey = DefaultHeaderKey
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Authenticator{cfg: cfg, parser: jwt.NewParser(opts...), log: log.NewHelper(logger)}
}

// ProvideAuthenticator 供 Wire 注入使用。
func ProvideAuthenticator(cfg *loader.Server, logger log.Logger) *Authenticator {
	if cfg == nil {
		return New(Config{}, logger)
	}
	return New(Config{
		HeaderKey: cfg.Auth.HeaderKey,
		Secret:    cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
	}, logger)
}

// TokenMode 返回是否要求 Bearer Token。
func (a *Authenticator) TokenMode() bool { return a.cfg.Secret != "" }

// Middleware 返回 kratos 服务端中间件。
func (a *Authenticator) Middleware() middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return handler(ctx, req)
			}
			meta, err := a.resolve(tr.RequestHeader())
			if err != nil {
				a.log.WithContext(ctx).Warnf("reject caller credentials: operation=%s err=%v", tr.Operation(), err)
				return nil, ErrInvalidCredentials.WithCause(err)
			}
			return handler(metadata.Inject(ctx, meta), req)
		}
	}
}

func (a *Authenticator) resolve(header transport.Header) (metadata.HandlerMetadata, error) {
	meta := metadata.HandlerMetadata{RequestID: strings.TrimSpace(header.Get(headerRequestID))}

	if a.TokenMode() {
		raw := strings.TrimSpace(header.Get(headerAuthorization))
		if raw == "" {
			return meta, nil
		}
		token, found := strings.CutPrefix(raw, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			return meta, fmt.Errorf("authorization header is not a bearer token")
		}
		subject, err := a.verify(strings.TrimSpace(token))
		if err != nil {
			return meta, err
		}
		meta.UserID = subject
		meta.Source = sourceJWT
		return meta, nil
	}

	userID := strings.TrimSpace(header.Get(a.cfg.HeaderKey))
	if userID == "" {
		return meta, nil
	}
	if _, err := uuid.Parse(userID); err != nil {
		return meta, fmt.Errorf("header %s: %w", a.cfg.HeaderKey, err)
	}
	meta.UserID = userID
	meta.Source = sourceHeader
	return meta, nil
}

func (a *Authenticator) verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.Secret), nil
	}); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("token subject is not a user id: %w", err)
	}
	return claims.Subject, nil
}

// SignToken 为 userID 签发 HS256 Token，供 CLI 与测试使用。
func SignToken(cfg Config, userID uuid.UUID, ttl time.Duration, now time.Time) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("secret is required")
	}
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}
