// Package gcs 提供与 Google Cloud Storage 交互的基础设施封装。
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/oauth2/google"

	loader "github.com/bionicotaku/lingo-services-social/internal/infrastructure/config_loader"
)

// UploadSigner 生成客户端直传对象所用的 V4 Signed PUT URL。
type UploadSigner struct {
	googleAccessID string
	privateKey     []byte
	now            func() time.Time
	log            *log.Helper
}

// Option 定义可选配置。
type Option func(*UploadSigner)

// WithClock 覆盖时间获取函数，便于测试。
func WithClock(clock func() time.Time) Option {
	return func(s *UploadSigner) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithServiceAccountKey 允许直接注入访问 ID 与私钥（测试友好）。
func WithServiceAccountKey(accessID string, privateKey []byte) Option {
	return func(s *UploadSigner) {
		if accessID != "" {
			s.googleAccessID = accessID
		}
		if len(privateKey) > 0 {
			s.privateKey = append([]byte(nil), privateKey...)
		}
	}
}

// NewUploadSigner 创建 UploadSigner；未注入私钥时从默认凭据中读取 service account。
func NewUploadSigner(ctx context.Context, accessID string, logger log.Logger, opts ...Option) (*UploadSigner, error) {
	signer := &UploadSigner{
		googleAccessID: accessID,
		now:            time.Now,
		log:            log.NewHelper(logger),
	}
	for _, opt := range opts {
		opt(signer)
	}

	if len(signer.privateKey) == 0 {
		privKey, detectedAccessID, err := loadServiceAccountKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs signer: %w", err)
		}
		signer.privateKey = privKey
		if signer.googleAccessID == "" {
			signer.googleAccessID = detectedAccessID
		} else if detectedAccessID != "" && detectedAccessID != signer.googleAccessID {
			signer.log.WithContext(ctx).Warnf("gcs signer access id mismatch: config=%s credentials=%s", signer.googleAccessID, detectedAccessID)
		}
	}

	if signer.googleAccessID == "" {
		return nil, errors.New("gcs signer: google access id is required")
	}
	if len(signer.privateKey) == 0 {
		return nil, errors.New("gcs signer: private key is required")
	}
	return signer, nil
}

// SignedUploadURL 生成单个对象的 PUT 上传地址。
//
// 签名包含 Content-Type 与 x-goog-if-generation-match:0，客户端必须携带相同请求头，
// 且只能创建新对象，无法覆盖已有对象。
func (s *UploadSigner) SignedUploadURL(ctx context.Context, bucket, objectName, contentType string, ttl time.Duration) (signedURL string, expires time.Time, err error) {
	if bucket == "" {
		return "", time.Time{}, errors.New("bucket is required")
	}
	if objectName == "" {
		return "", time.Time{}, errors.New("object name is required")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("ttl must be positive")
	}

	expires = s.now().Add(ttl)
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         http.MethodPut,
		Expires:        expires,
		ContentType:    contentType,
		Headers:        []string{"x-goog-if-generation-match:0"},
		GoogleAccessID: s.googleAccessID,
		PrivateKey:     s.privateKey,
	}

	url, signErr := storage.SignedURL(bucket, objectName, opts)
	if signErr != nil {
		s.log.WithContext(ctx).Errorf("generate upload signed url failed: bucket=%s object=%s err=%v", bucket, objectName, signErr)
		return "", time.Time{}, fmt.Errorf("signed url: %w", signErr)
	}
	return url, expires, nil
}

// ObjectRef 返回对象的公开引用地址，写入 videos.video_ref / thumbnail_ref。
func ObjectRef(bucket, objectName string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectName)
}

// ObjectRef 返回对象的公开引用地址，与包级 ObjectRef 相同。
func (s *UploadSigner) ObjectRef(bucket, objectName string) string {
	return ObjectRef(bucket, objectName)
}

type serviceAccountKey struct {
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
}

func loadServiceAccountKey(ctx context.Context) ([]byte, string, error) {
	creds, err := google.FindDefaultCredentials(ctx, storage.ScopeReadWrite)
	if err != nil {
		return nil, "", fmt.Errorf("find default credentials: %w", err)
	}
	if len(creds.JSON) == 0 {
		return nil, "", errors.New("service account JSON not found in default credentials")
	}

	var key serviceAccountKey
	if err := json.Unmarshal(creds.JSON, &key); err != nil {
		return nil, "", fmt.Errorf("parse service account json: %w", err)
	}
	if key.PrivateKey == "" {
		return nil, "", errors.New("service account private key is empty; use a service account JSON credential")
	}
	return []byte(key.PrivateKey), key.ClientEmail, nil
}

// ProvideUploadSigner 供 Wire 注入使用。未配置 bucket 时返回 nil，上传能力随之关闭。
func ProvideUploadSigner(ctx context.Context, cfg *loader.Storage, logger log.Logger) (*UploadSigner, error) {
	if cfg == nil || cfg.GCS.Bucket == "" {
		log.NewHelper(logger).Warn("gcs bucket not configured; upload urls disabled")
		return nil, nil
	}
	return NewUploadSigner(ctx, cfg.GCS.SignerServiceAccount, logger)
}
