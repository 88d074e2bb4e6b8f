package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-social/internal/models/po"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `user_id, account_id, email, username, avatar_url, created_at, updated_at`

// UserRepository 维护 social.users，用户同时充当视频作者（Creator）。
type UserRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewUserRepository 构造 UserRepository。
func NewUserRepository(db *pgxpool.Pool, logger log.Logger) *UserRepository {
	return &UserRepository{db: db, log: log.NewHelper(logger)}
}

// CreateUserInput 描述注册用户所需字段。
type CreateUserInput struct {
	UserID    uuid.UUID
	AccountID string
	Email     string
	Username  string
	AvatarURL string
}

// Create 插入用户。账号或用户名重复时返回 ErrAccountExists / ErrUsernameTaken。
func (r *UserRepository) Create(ctx context.Context, sess txmanager.Session, in CreateUserInput) (*po.User, error) {
	if in.UserID == uuid.Nil {
		in.UserID = uuid.New()
	}
	var user *po.User
	rows, err := conn(r.db, sess).Query(ctx, `
INSERT INTO social.users (user_id, account_id, email, username, avatar_url)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+userColumns,
		in.UserID, in.AccountID, in.Email, in.Username, in.AvatarURL)
	if err == nil {
		user, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[po.User])
	}
	if err != nil {
		switch uniqueViolation(err) {
		case "users_username_key":
			return nil, ErrUsernameTaken
		case "users_account_id_key", "users_pkey":
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	r.log.WithContext(ctx).Debugf("user created: user_id=%s username=%s", user.UserID, user.Username)
	return user, nil
}

// FindByID 根据 user_id 查询用户。
//
// 错误处理：
//   - pgx.ErrNoRows → ErrUserNotFound
//   - 其他数据库错误包装后返回
func (r *UserRepository) FindByID(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.User, error) {
	return r.findOne(ctx, sess, `SELECT `+userColumns+` FROM social.users WHERE user_id = $1`, userID)
}

// FindByAccountID 根据身份提供方账号查询用户。
func (r *UserRepository) FindByAccountID(ctx context.Context, sess txmanager.Session, accountID string) (*po.User, error) {
	return r.findOne(ctx, sess, `SELECT `+userColumns+` FROM social.users WHERE account_id = $1`, accountID)
}

// UpdateAvatar 更新头像地址。
func (r *UserRepository) UpdateAvatar(ctx context.Context, sess txmanager.Session, userID uuid.UUID, avatarURL string) error {
	tag, err := conn(r.db, sess).Exec(ctx,
		`UPDATE social.users SET avatar_url = $2, updated_at = $3 WHERE user_id = $1`,
		userID, avatarURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, sess txmanager.Session, query string, arg any) (*po.User, error) {
	rows, err := conn(r.db, sess).Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[po.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}
