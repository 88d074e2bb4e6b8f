package services

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-social/internal/repositories"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// 对外暴露的错误 reason，客户端依赖其做分支处理，需保持稳定。
const (
	ReasonUserIDInvalid          = "USER_ID_INVALID"
	ReasonUnauthenticated        = "UNAUTHENTICATED"
	ReasonUserNotFound           = "USER_NOT_FOUND"
	ReasonUserInvalid            = "USER_INVALID"
	ReasonUsernameTaken          = "USERNAME_TAKEN"
	ReasonAccountExists          = "ACCOUNT_ALREADY_REGISTERED"
	ReasonVideoNotFound          = "VIDEO_NOT_FOUND"
	ReasonVideoInvalid           = "VIDEO_INVALID"
	ReasonSavedVideosUnavailable = "SAVED_VIDEOS_UNAVAILABLE"
	ReasonSelfFollowForbidden    = "SELF_FOLLOW_FORBIDDEN"
	ReasonUploadsDisabled        = "UPLOADS_DISABLED"
	ReasonUploadInvalid          = "UPLOAD_INVALID"
	ReasonQueryInvalid           = "QUERY_INVALID"
	ReasonQueryTimeout           = "QUERY_TIMEOUT"
	ReasonQueryFailed            = "QUERY_FAILED"
	ReasonCommandFailed          = "COMMAND_FAILED"
)

// 预定义的业务错误，可配合 errors.Is 比较（kratos 以 code + reason 判等）。
var (
	ErrUserIDInvalid          = errors.BadRequest(ReasonUserIDInvalid, "user id is invalid")
	ErrUnauthenticated        = errors.Unauthorized(ReasonUnauthenticated, "caller identity is required")
	ErrUserNotFound           = errors.NotFound(ReasonUserNotFound, "user not found")
	ErrUsernameTaken          = errors.Conflict(ReasonUsernameTaken, "username already taken")
	ErrAccountExists          = errors.Conflict(ReasonAccountExists, "account already registered")
	ErrVideoNotFound          = errors.NotFound(ReasonVideoNotFound, "video not found")
	ErrSavedVideosUnavailable = errors.ServiceUnavailable(ReasonSavedVideosUnavailable, "saved videos are temporarily unavailable")
	ErrSelfFollowForbidden    = errors.BadRequest(ReasonSelfFollowForbidden, "users cannot follow themselves")
	ErrUploadsDisabled        = errors.ServiceUnavailable(ReasonUploadsDisabled, "uploads are not configured")
	ErrVideoIDInvalid         = errors.BadRequest(ReasonVideoInvalid, "video id is invalid")
)

// queryFailure 将只读用例的底层错误统一翻译为超时或内部错误。
func queryFailure(ctx context.Context, helper *log.Helper, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		helper.WithContext(ctx).Warnf("%s timeout: %v", op, err)
		return errors.GatewayTimeout(ReasonQueryTimeout, "query timeout").WithCause(err)
	}
	helper.WithContext(ctx).Errorf("%s failed: %v", op, err)
	return errors.InternalServer(ReasonQueryFailed, "failed to "+op).WithCause(fmt.Errorf("%s: %w", op, err))
}

// commandFailure 将写用例的底层错误翻译为内部错误。
func commandFailure(ctx context.Context, helper *log.Helper, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		helper.WithContext(ctx).Warnf("%s timeout: %v", op, err)
		return errors.GatewayTimeout(ReasonQueryTimeout, "command timeout").WithCause(err)
	}
	helper.WithContext(ctx).Errorf("%s failed: %v", op, err)
	return errors.InternalServer(ReasonCommandFailed, "failed to "+op).WithCause(fmt.Errorf("%s: %w", op, err))
}

// mapRepoNotFound 将仓储层 NotFound 哨兵翻译为对外错误，其余错误原样返回。
func mapRepoNotFound(err error) error {
	switch {
	case errors.Is(err, repositories.ErrVideoNotFound):
		return ErrVideoNotFound.WithCause(err)
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound.WithCause(err)
	default:
		return err
	}
}

// isBusinessError 判断 err 是否已经是 kratos 业务错误，无需再包装。
func isBusinessError(err error) bool {
	var kerr *errors.Error
	return errors.As(err, &kerr)
}
