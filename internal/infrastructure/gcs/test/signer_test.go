package gcs_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	loader "github.com/bionicotaku/lingo-services-social/internal/infrastructure/config_loader"
	gcs "github.com/bionicotaku/lingo-services-social/internal/infrastructure/gcs"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedUploadURL(t *testing.T) {
	ctx := context.Background()
	keyPEM, accessID := generateTestKey(t)
	fixed := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	signer, err := gcs.NewUploadSigner(ctx, accessID, log.NewStdLogger(io.Discard),
		gcs.WithServiceAccountKey(accessID, keyPEM),
		gcs.WithClock(func() time.Time { return fixed }),
	)
	require.NoError(t, err)

	ttl := 10 * time.Minute
	signedURL, expires, err := signer.SignedUploadURL(ctx, "media-bucket", "videos/user/clip.mp4", "video/mp4", ttl)
	require.NoError(t, err)
	assert.True(t, expires.Equal(fixed.Add(ttl)))

	parsed, err := url.Parse(signedURL)
	require.NoError(t, err)
	assert.NotEmpty(t, parsed.Host)
	assert.Contains(t, parsed.Path, "videos/user/clip.mp4")

	query := parsed.Query()
	assert.Equal(t, "600", query.Get("X-Goog-Expires"))
	headers := strings.ToLower(query.Get("X-Goog-SignedHeaders"))
	assert.Contains(t, headers, "content-type")
	assert.Contains(t, headers, "x-goog-if-generation-match")
}

func TestSignedUploadURL_InvalidInput(t *testing.T) {
	ctx := context.Background()
	keyPEM, accessID := generateTestKey(t)
	signer, err := gcs.NewUploadSigner(ctx, accessID, log.NewStdLogger(io.Discard), gcs.WithServiceAccountKey(accessID, keyPEM))
	require.NoError(t, err)

	_, _, err = signer.SignedUploadURL(ctx, "", "obj", "video/mp4", time.Minute)
	assert.Error(t, err)
	_, _, err = signer.SignedUploadURL(ctx, "bucket", "", "video/mp4", time.Minute)
	assert.Error(t, err)
	_, _, err = signer.SignedUploadURL(ctx, "bucket", "obj", "video/mp4", 0)
	assert.Error(t, err)
}

func TestProvideUploadSigner_NoBucket(t *testing.T) {
	signer, err := gcs.ProvideUploadSigner(context.Background(), &loader.Storage{}, log.NewStdLogger(io.Discard))
	require.NoError(t, err)
	assert.Nil(t, signer)
}

func TestObjectRef(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/media/videos/a.mp4", gcs.ObjectRef("media", "videos/a.mp4"))
}

func generateTestKey(t *testing.T) ([]byte, string) {
	t.Helper()
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pkcs8, err := x509.MarshalPKCS8PrivateKey(rsaKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})
	return pemBytes, "test-signer@unit-test.iam.gserviceaccount.com"
}
