// Package mapper 将 HTTP 请求 DTO 映射为服务层输入。
package mapper

import (
	"strings"

	"github.com/bionicotaku/lingo-services-social/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-social/internal/services"
	"github.com/google/uuid"
)

// ToRegisterInput 将注册请求映射为服务层输入。
func ToRegisterInput(req *dto.RegisterUserRequest) services.RegisterInput {
	if req == nil {
		return services.RegisterInput{}
	}
	return services.RegisterInput{
		AccountID: strings.TrimSpace(req.AccountID),
		Email:     strings.TrimSpace(req.Email),
		Username:  strings.TrimSpace(req.Username),
		AvatarURL: strings.TrimSpace(req.AvatarURL),
	}
}

// ToCreateVideoInput 将发布请求映射为服务层输入，作者取自调用方身份。
func ToCreateVideoInput(req *dto.CreateVideoRequest, creatorID uuid.UUID) services.CreateVideoInput {
	if req == nil {
		return services.CreateVideoInput{CreatorID: creatorID}
	}
	return services.CreateVideoInput{
		CreatorID:    creatorID,
		Title:        strings.TrimSpace(req.Title),
		Prompt:       strings.TrimSpace(req.Prompt),
		VideoRef:     strings.TrimSpace(req.VideoRef),
		ThumbnailRef: strings.TrimSpace(req.ThumbnailRef),
	}
}

// ToPrepareUploadInput 将上传签名请求映射为服务层输入。
func ToPrepareUploadInput(req *dto.PrepareUploadRequest, userID uuid.UUID) services.PrepareUploadInput {
	if req == nil {
		return services.PrepareUploadInput{UserID: userID}
	}
	return services.PrepareUploadInput{
		UserID:               userID,
		VideoContentType:     strings.ToLower(strings.TrimSpace(req.VideoContentType)),
		ThumbnailContentType: strings.ToLower(strings.TrimSpace(req.ThumbnailContentType)),
	}
}
