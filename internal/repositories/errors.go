package repositories

import "errors"

// 仓储层哨兵错误，由 Service 层翻译为 kratos 错误。
var (
	ErrVideoNotFound   = errors.New("repositories: video not found")
	ErrUserNotFound    = errors.New("repositories: user not found")
	ErrUsernameTaken   = errors.New("repositories: username already taken")
	ErrAccountExists   = errors.New("repositories: account already registered")
	ErrInvalidRelation = errors.New("repositories: invalid relation kind")
)
