package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/models/po"
	"github.com/bionicotaku/lingo-services-social/internal/repositories"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type noopTxManager struct{}

type noopSession struct{}

func (noopSession) Tx() pgx.Tx               { return nil }
func (noopSession) Context() context.Context { return context.Background() }

func (noopTxManager) WithinTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

func (noopTxManager) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

// callCounter 统计每个 ID 的调用次数并记录最大并发。
type callCounter struct {
	mu       sync.Mutex
	calls    map[uuid.UUID]int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (c *callCounter) enter(id uuid.UUID) func() {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = map[uuid.UUID]int{}
	}
	c.calls[id]++
	c.mu.Unlock()

	n := c.inFlight.Add(1)
	for {
		prev := c.maxSeen.Load()
		if n <= prev || c.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	return func() { c.inFlight.Add(-1) }
}

func (c *callCounter) count(id uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

func (c *callCounter) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

type relationStub struct {
	mu        sync.Mutex
	relations []po.Relation
	listErr   error
	listCalls int
	writeErr  error
}

func (s *relationStub) key(kind po.RelationKind, subjectID, objectID uuid.UUID) int {
	for i, rel := range s.relations {
		if rel.Kind == kind && rel.SubjectID == subjectID && rel.ObjectID == objectID {
			return i
		}
	}
	return -1
}

func (s *relationStub) Create(_ context.Context, _ txmanager.Session, kind po.RelationKind, subjectID, objectID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return false, s.writeErr
	}
	if s.key(kind, subjectID, objectID) >= 0 {
		return false, nil
	}
	s.relations = append(s.relations, po.Relation{Kind: kind, SubjectID: subjectID, ObjectID: objectID, CreatedAt: time.Now()})
	return true, nil
}

func (s *relationStub) Delete(_ context.Context, _ txmanager.Session, kind po.RelationKind, subjectID, objectID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return false, s.writeErr
	}
	i := s.key(kind, subjectID, objectID)
	if i < 0 {
		return false, nil
	}
	s.relations = append(s.relations[:i], s.relations[i+1:]...)
	return true, nil
}

func (s *relationStub) Exists(_ context.Context, _ txmanager.Session, kind po.RelationKind, subjectID, objectID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key(kind, subjectID, objectID) >= 0, nil
}

func (s *relationStub) ListBySubject(_ context.Context, _ txmanager.Session, kind po.RelationKind, subjectID uuid.UUID) ([]po.Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []po.Relation
	for _, rel := range s.relations {
		if rel.Kind == kind && rel.SubjectID == subjectID {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (s *relationStub) CountByObject(_ context.Context, _ txmanager.Session, kind po.RelationKind, objectID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, rel := range s.relations {
		if rel.Kind == kind && rel.ObjectID == objectID {
			n++
		}
	}
	return n, nil
}

// bookmarks 构造按给定顺序排列的收藏记录，可包含重复视频。
func bookmarks(userID uuid.UUID, videoIDs ...uuid.UUID) *relationStub {
	stub := &relationStub{}
	for _, id := range videoIDs {
		stub.relations = append(stub.relations, po.Relation{Kind: po.RelationBookmark, SubjectID: userID, ObjectID: id})
	}
	return stub
}

type videoStore struct {
	counter callCounter
	videos  map[uuid.UUID]*po.Video
	errs    map[uuid.UUID]error
	delays  map[uuid.UUID]time.Duration
	// block 中的 ID 会一直阻塞到通道关闭，且不观察 ctx。
	block map[uuid.UUID]chan struct{}

	mu      sync.Mutex
	created []repositories.CreateVideoInput
	list    []*po.Video
	listErr error
}

func newVideoStore(videos ...*po.Video) *videoStore {
	s := &videoStore{
		videos: map[uuid.UUID]*po.Video{},
		errs:   map[uuid.UUID]error{},
		delays: map[uuid.UUID]time.Duration{},
		block:  map[uuid.UUID]chan struct{}{},
	}
	for _, v := range videos {
		s.videos[v.VideoID] = v
		s.list = append(s.list, v)
	}
	return s
}

func (s *videoStore) FindByID(ctx context.Context, _ txmanager.Session, videoID uuid.UUID) (*po.Video, error) {
	done := s.counter.enter(videoID)
	defer done()

	if ch, ok := s.block[videoID]; ok {
		<-ch
	}
	if d := s.delays[videoID]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := s.errs[videoID]; err != nil {
		return nil, err
	}
	v, ok := s.videos[videoID]
	if !ok {
		return nil, repositories.ErrVideoNotFound
	}
	return v, nil
}

func (s *videoStore) Create(_ context.Context, _ txmanager.Session, in repositories.CreateVideoInput) (*po.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, in)
	return &po.Video{
		VideoID:      in.VideoID,
		CreatorID:    in.CreatorID,
		Title:        in.Title,
		Prompt:       in.Prompt,
		VideoRef:     in.VideoRef,
		ThumbnailRef: in.ThumbnailRef,
		CreatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func (s *videoStore) List(_ context.Context, _ txmanager.Session, limit, offset int) ([]*po.Video, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if offset >= len(s.list) {
		return nil, nil
	}
	end := min(offset+limit, len(s.list))
	return s.list[offset:end], nil
}

func (s *videoStore) ListByCreator(_ context.Context, _ txmanager.Session, creatorID uuid.UUID) ([]*po.Video, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*po.Video
	for _, v := range s.list {
		if v.CreatorID == creatorID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *videoStore) Search(_ context.Context, _ txmanager.Session, _ string, limit int) ([]*po.Video, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.list[:min(limit, len(s.list))], nil
}

type userStore struct {
	counter   callCounter
	users     map[uuid.UUID]*po.User
	errs      map[uuid.UUID]error
	createErr error
	created   []repositories.CreateUserInput
}

func newUserStore(users ...*po.User) *userStore {
	s := &userStore{users: map[uuid.UUID]*po.User{}, errs: map[uuid.UUID]error{}}
	for _, u := range users {
		s.users[u.UserID] = u
	}
	return s
}

func (s *userStore) FindByID(_ context.Context, _ txmanager.Session, userID uuid.UUID) (*po.User, error) {
	done := s.counter.enter(userID)
	defer done()
	if err := s.errs[userID]; err != nil {
		return nil, err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}

func (s *userStore) FindByAccountID(_ context.Context, _ txmanager.Session, accountID string) (*po.User, error) {
	for _, u := range s.users {
		if u.AccountID == accountID {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (s *userStore) Create(_ context.Context, _ txmanager.Session, in repositories.CreateUserInput) (*po.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, in)
	u := &po.User{UserID: in.UserID, AccountID: in.AccountID, Email: in.Email, Username: in.Username, AvatarURL: in.AvatarURL}
	s.users[u.UserID] = u
	return u, nil
}

func (s *userStore) UpdateAvatar(_ context.Context, _ txmanager.Session, userID uuid.UUID, avatarURL string) error {
	u, ok := s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AvatarURL = avatarURL
	return nil
}

type outboxStub struct {
	mu       sync.Mutex
	messages []repositories.OutboxMessage
	err      error
}

func (o *outboxStub) Enqueue(_ context.Context, _ txmanager.Session, msg repositories.OutboxMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.messages = append(o.messages, msg)
	return nil
}

func (o *outboxStub) eventTypes() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.messages))
	for _, m := range o.messages {
		out = append(out, m.EventType)
	}
	return out
}

func newVideo(creatorID uuid.UUID, title string) *po.Video {
	return &po.Video{
		VideoID:      uuid.New(),
		CreatorID:    creatorID,
		Title:        title,
		VideoRef:     "https://cdn.example.com/" + title + ".mp4",
		ThumbnailRef: "https://cdn.example.com/" + title + ".jpg",
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newUser(username string) *po.User {
	return &po.User{
		UserID:    uuid.New(),
		AccountID: "acct-" + username,
		Email:     username + "@example.com",
		Username:  username,
		AvatarURL: "https://cdn.example.com/" + username + ".png",
	}
}
