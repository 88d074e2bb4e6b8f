package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bionicotaku/lingo-services-social/internal/client"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	header http.Header
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recorded
}

func (f *fakeAPI) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, code int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
	record := func(r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests = append(f.requests, recorded{method: r.Method, path: r.URL.Path, header: r.Header.Clone()})
	}

	mux.HandleFunc("/v1/me/saved-videos", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, map[string]any{"videos": []map[string]any{
			{"id": "8a0a3c3e-8c1d-4c3a-9d7e-1f3b2a9d0c11", "title": "first", "creator": map[string]any{"id": "3f0c1d5e-2b8a-4d1c-8e7f-6a5b4c3d2e1f", "username": "maker", "resolved": true}},
		}})
	})
	mux.HandleFunc("/v1/me/following", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, map[string]any{"user_ids": []string{"3f0c1d5e-2b8a-4d1c-8e7f-6a5b4c3d2e1f"}})
	})
	mux.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "reason": "UNAUTHENTICATED", "message": "caller identity is required"})
	})
	mux.HandleFunc("/v1/videos/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, map[string]any{"active": r.Method == http.MethodPut, "changed": true})
	})
	mux.HandleFunc("/v1/users/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, map[string]any{"active": true, "changed": true})
	})
	return mux
}

func newClient(t *testing.T, cfg client.Config) (*client.Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	cfg.Endpoint = srv.URL
	c, err := client.New(context.Background(), cfg, log.NewStdLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, api
}

func TestClient_SavedVideosSendsUserHeader(t *testing.T) {
	userID := uuid.New()
	c, api := newClient(t, client.Config{UserID: userID})

	videos, err := c.SavedVideos(context.Background())
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "first", videos[0].Title)
	assert.Equal(t, "maker", videos[0].Creator.Username)
	assert.True(t, videos[0].Creator.Resolved)

	req := api.last()
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, userID.String(), req.header.Get(client.UserIDHeader))
	assert.Empty(t, req.header.Get("Authorization"))
}

func TestClient_TokenTakesPrecedence(t *testing.T) {
	c, api := newClient(t, client.Config{UserID: uuid.New(), Token: "signed"})

	ids, err := c.Following(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{uuid.MustParse("3f0c1d5e-2b8a-4d1c-8e7f-6a5b4c3d2e1f")}, ids)

	req := api.last()
	assert.Equal(t, "Bearer signed", req.header.Get("Authorization"))
	assert.Empty(t, req.header.Get(client.UserIDHeader))
}

func TestClient_RelationCommands(t *testing.T) {
	c, api := newClient(t, client.Config{UserID: uuid.New()})
	videoID, userID := uuid.New(), uuid.New()

	state, err := c.SaveVideo(context.Background(), videoID)
	require.NoError(t, err)
	assert.True(t, state.Active)
	assert.Equal(t, http.MethodPut, api.last().method)
	assert.Equal(t, "/v1/videos/"+videoID.String()+"/bookmark", api.last().path)

	state, err = c.UnsaveVideo(context.Background(), videoID)
	require.NoError(t, err)
	assert.False(t, state.Active)
	assert.Equal(t, http.MethodDelete, api.last().method)

	_, err = c.ToggleFollow(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, api.last().method)
	assert.Equal(t, "/v1/users/"+userID.String()+"/follow/toggle", api.last().path)
}

func TestClient_DecodesServerErrors(t *testing.T) {
	c, _ := newClient(t, client.Config{UserID: uuid.New()})

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, "UNAUTHENTICATED", errors.Reason(err))
	assert.EqualValues(t, http.StatusUnauthorized, errors.Code(err))
}

func TestClient_RequiresIdentity(t *testing.T) {
	c, api := newClient(t, client.Config{})

	_, err := c.SavedVideos(context.Background())
	assert.ErrorIs(t, err, client.ErrNoIdentity)
	assert.Empty(t, api.requests)
}

func TestClient_RequiresEndpoint(t *testing.T) {
	_, err := client.New(context.Background(), client.Config{}, log.NewStdLogger(io.Discard))
	assert.Error(t, err)
}
