package auth_test

import (
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/infrastructure/auth"
	"github.com/bionicotaku/lingo-services-social/internal/metadata"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type headerCarrier nethttp.Header

func (hc headerCarrier) Get(key string) string      { return nethttp.Header(hc).Get(key) }
func (hc headerCarrier) Set(key, value string)      { nethttp.Header(hc).Set(key, value) }
func (hc headerCarrier) Add(key, value string)      { nethttp.Header(hc).Add(key, value) }
func (hc headerCarrier) Values(key string) []string { return nethttp.Header(hc).Values(key) }
func (hc headerCarrier) Keys() []string {
	keys := make([]string, 0, len(hc))
	for k := range hc {
		keys = append(keys, k)
	}
	return keys
}

type fakeTransport struct {
	header headerCarrier
}

func (f *fakeTransport) Kind() transport.Kind            { return transport.KindHTTP }
func (f *fakeTransport) Endpoint() string                { return "http://127.0.0.1" }
func (f *fakeTransport) Operation() string               { return "/v1/me" }
func (f *fakeTransport) RequestHeader() transport.Header { return f.header }
func (f *fakeTransport) ReplyHeader() transport.Header   { return headerCarrier{} }

// run 执行中间件并返回下游看到的元信息。
func run(t *testing.T, a *auth.Authenticator, headers map[string]string) (metadata.HandlerMetadata, bool, error) {
	t.Helper()
	tr := &fakeTransport{header: headerCarrier{}}
	for k, v := range headers {
		tr.header.Set(k, v)
	}
	var (
		seen  metadata.HandlerMetadata
		found bool
	)
	handler := a.Middleware()(func(ctx context.Context, _ any) (any, error) {
		seen, found = metadata.FromContext(ctx)
		return "ok", nil
	})
	_, err := handler(transport.NewServerContext(context.Background(), tr), nil)
	return seen, found, err
}

func discard() log.Logger { return log.NewStdLogger(io.Discard) }

func TestHeaderMode(t *testing.T) {
	a := auth.New(auth.Config{}, discard())
	userID := uuid.New()

	meta, ok, err := run(t, a, map[string]string{auth.DefaultHeaderKey: userID.String(), "x-request-id": "req-1"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, userID.String(), meta.UserID)
	assert.Equal(t, "req-1", meta.RequestID)
	assert.Equal(t, "header", meta.Source)
}

func TestHeaderModeAnonymous(t *testing.T) {
	a := auth.New(auth.Config{}, discard())

	_, ok, err := run(t, a, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHeaderModeRejectsMalformedID(t *testing.T) {
	a := auth.New(auth.Config{HeaderKey: "x-user"}, discard())

	_, _, err := run(t, a, map[string]string{"x-user": "not-a-uuid"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrInvalidCredentials))
	assert.Equal(t, 401, int(kerrors.FromError(err).Code))
}

func TestTokenMode(t *testing.T) {
	cfg := auth.Config{Secret: "s3cret", Issuer: "lingo", Audience: "social"}
	a := auth.New(cfg, discard())
	userID := uuid.New()

	token, err := auth.SignToken(cfg, userID, time.Hour, time.Now())
	require.NoError(t, err)

	meta, ok, err := run(t, a, map[string]string{"Authorization": "Bearer " + token})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, userID.String(), meta.UserID)
	assert.Equal(t, "jwt", meta.Source)

	// Token 模式下忽略网关请求头。
	_, ok, err = run(t, a, map[string]string{auth.DefaultHeaderKey: uuid.NewString()})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenModeRejections(t *testing.T) {
	cfg := auth.Config{Secret: "s3cret", Issuer: "lingo"}
	a := auth.New(cfg, discard())
	userID := uuid.New()

	expired, err := auth.SignToken(cfg, userID, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	wrongKey, err := auth.SignToken(auth.Config{Secret: "other", Issuer: "lingo"}, userID, time.Hour, time.Now())
	require.NoError(t, err)
	wrongIssuer, err := auth.SignToken(auth.Config{Secret: "s3cret", Issuer: "someone-else"}, userID, time.Hour, time.Now())
	require.NoError(t, err)

	cases := map[string]string{
		"expired":      "Bearer " + expired,
		"wrong key":    "Bearer " + wrongKey,
		"wrong issuer": "Bearer " + wrongIssuer,
		"not bearer":   "Basic abc",
		"garbage":      "Bearer abc.def.ghi",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := run(t, a, map[string]string{"Authorization": header})
			require.Error(t, err)
			assert.True(t, errors.Is(err, auth.ErrInvalidCredentials))
		})
	}
}

func TestSignTokenRequiresSecret(t *testing.T) {
	_, err := auth.SignToken(auth.Config{}, uuid.New(), time.Hour, time.Now())
	require.Error(t, err)
}
