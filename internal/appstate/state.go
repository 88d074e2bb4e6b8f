// Package appstate 维护客户端侧的会话状态：当前用户、已水合的收藏列表与关注集合。
//
// 生命周期为 New（启动）→ Populate（登录）→ Clear（登出）。聚合逻辑不读取这里的状态，
// 始终以显式的 userID 调用服务端。
package appstate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bionicotaku/lingo-services-social/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-social/internal/models/vo"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// ErrNotLoggedIn 表示操作需要已登录的会话。
var ErrNotLoggedIn = errors.New("appstate: not logged in")

// Backend 是状态同步所需的服务端能力，由 client.Client 实现。
type Backend interface {
	Me(ctx context.Context) (*vo.User, error)
	SavedVideos(ctx context.Context) ([]vo.HydratedVideo, error)
	Following(ctx context.Context) ([]uuid.UUID, error)
	SaveVideo(ctx context.Context, videoID uuid.UUID) (*dto.RelationState, error)
	UnsaveVideo(ctx context.Context, videoID uuid.UUID) (*dto.RelationState, error)
	ToggleFollow(ctx context.Context, userID uuid.UUID) (*dto.RelationState, error)
}

// State 是并发安全的会话状态。
type State struct {
	mu        sync.RWMutex
	user      *vo.User
	saved     []vo.HydratedVideo
	following map[uuid.UUID]struct{}
}

// New 返回未登录的空状态。
func New() *State {
	return &State{following: map[uuid.UUID]struct{}{}}
}

// Populate 登录后从服务端拉取用户、收藏与关注，全部成功才替换当前状态。
func (s *State) Populate(ctx context.Context, backend Backend) error {
	var (
		user      *vo.User
		saved     []vo.HydratedVideo
		following []uuid.UUID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = backend.Me(gctx)
		return err
	})
	g.Go(func() (err error) {
		saved, err = backend.SavedVideos(gctx)
		return err
	})
	g.Go(func() (err error) {
		following, err = backend.Following(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("populate app state: %w", err)
	}

	followSet := make(map[uuid.UUID]struct{}, len(following))
	for _, id := range following {
		followSet[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.saved = append([]vo.HydratedVideo(nil), saved...)
	s.following = followSet
	return nil
}

// Clear 登出时清空全部状态。
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.saved = nil
	s.following = map[uuid.UUID]struct{}{}
}

// User 返回当前用户副本，未登录时返回 nil。
func (s *State) User() *vo.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// LoggedIn 判断是否存在会话。
func (s *State) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// IsSaved 判断视频是否在本地收藏列表中。
func (s *State) IsSaved(videoID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.saved, videoID) >= 0
}

// IsFollowing 判断是否关注了 userID。
func (s *State) IsFollowing(userID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.following[userID]
	return ok
}

// SavedVideos 返回收藏列表副本，顺序与服务端一致（最近收藏在前）。
func (s *State) SavedVideos() []vo.HydratedVideo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]vo.HydratedVideo(nil), s.saved...)
}

// SavedIDs 按收藏顺序返回视频 ID。
func (s *State) SavedIDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(s.saved))
	for _, v := range s.saved {
		out = append(out, v.ID)
	}
	return out
}

// FollowingIDs 返回排序后的关注用户 ID。
func (s *State) FollowingIDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.following)
}

// SaveVideo 调用服务端收藏，成功后重新拉取已水合的收藏列表。
// 重新拉取失败时在列表头部放入只含 ID 的条目，IsSaved 仍与服务端一致。
func (s *State) SaveVideo(ctx context.Context, backend Backend, videoID uuid.UUID) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	if _, err := backend.SaveVideo(ctx, videoID); err != nil {
		return err
	}
	refreshed, err := backend.SavedVideos(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.saved = append([]vo.HydratedVideo(nil), refreshed...)
		return nil
	}
	if indexOf(s.saved, videoID) < 0 {
		s.saved = append([]vo.HydratedVideo{{Video: vo.Video{ID: videoID}}}, s.saved...)
	}
	return nil
}

// UnsaveVideo 调用服务端取消收藏并在成功后从本地列表移除。
func (s *State) UnsaveVideo(ctx context.Context, backend Backend, videoID uuid.UUID) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	if _, err := backend.UnsaveVideo(ctx, videoID); err != nil {
		return err
	}
	s.mu.Lock()
	if i := indexOf(s.saved, videoID); i >= 0 {
		s.saved = append(s.saved[:i:i], s.saved[i+1:]...)
	}
	s.mu.Unlock()
	return nil
}

// ToggleFollow 切换关注状态，本地集合以服务端返回的最终状态为准。
func (s *State) ToggleFollow(ctx context.Context, backend Backend, userID uuid.UUID) (bool, error) {
	if !s.LoggedIn() {
		return false, ErrNotLoggedIn
	}
	state, err := backend.ToggleFollow(ctx, userID)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.Active {
		s.following[userID] = struct{}{}
	} else {
		delete(s.following, userID)
	}
	return state.Active, nil
}

func indexOf(videos []vo.HydratedVideo, id uuid.UUID) int {
	for i, v := range videos {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func sortedKeys(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Session 是持久化到磁盘的登录信息，只保存重建状态所需的凭据。
type Session struct {
	Endpoint string    `yaml:"endpoint"`
	UserID   uuid.UUID `yaml:"user_id"`
	Username string    `yaml:"username,omitempty"`
	Token    string    `yaml:"token,omitempty"`
}

// LoadSession 读取会话文件。文件不存在时返回 (nil, nil)。
func LoadSession(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := yaml.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	if sess.UserID == uuid.Nil {
		return nil, fmt.Errorf("decode session %s: user_id is missing", path)
	}
	return &sess, nil
}

// SaveSession 以 0600 权限写入会话文件。
func SaveSession(path string, sess *Session) error {
	if sess == nil {
		return errors.New("appstate: session is nil")
	}
	raw, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// RemoveSession 删除会话文件，文件不存在不视为错误。
func RemoveSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
