package services

import (
	loader "github.com/bionicotaku/lingo-services-social/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-social/internal/repositories"
	"github.com/google/wire"
)

// ProviderSet 暴露业务服务构造器，仓储以接口形式注入。
var ProviderSet = wire.NewSet(
	ProvideSavedVideosConfig,
	ProvideVideoConfig,
	NewSavedVideosAggregator,
	NewRelationService,
	NewVideoService,
	NewUserService,
	wire.Bind(new(BookmarkLister), new(*repositories.RelationRepository)),
	wire.Bind(new(RelationRepo), new(*repositories.RelationRepository)),
	wire.Bind(new(FollowerCounter), new(*repositories.RelationRepository)),
	wire.Bind(new(VideoFinder), new(*repositories.VideoRepository)),
	wire.Bind(new(VideoRepo), new(*repositories.VideoRepository)),
	wire.Bind(new(CreatorVideoLister), new(*repositories.VideoRepository)),
	wire.Bind(new(CreatorFinder), new(*repositories.UserRepository)),
	wire.Bind(new(UserRepo), new(*repositories.UserRepository)),
	wire.Bind(new(OutboxWriter), new(*repositories.OutboxRepository)),
	wire.Bind(new(SavedVideosResolver), new(*SavedVideosAggregator)),
)

// ProvideSavedVideosConfig 从业务配置派生聚合器参数，Meter 使用全局 MeterProvider。
func ProvideSavedVideosConfig(cfg *loader.Social) SavedVideosConfig {
	if cfg == nil {
		return SavedVideosConfig{}
	}
	return SavedVideosConfig{MaxConcurrency: cfg.SavedVideos.MaxConcurrency}
}

// ProvideVideoConfig 组合视频列表与上传参数。
func ProvideVideoConfig(social *loader.Social, storage *loader.Storage) VideoConfig {
	var cfg VideoConfig
	if social != nil {
		cfg.LatestLimit = social.Videos.LatestLimit
		cfg.DefaultLimit = social.Videos.DefaultLimit
		cfg.MaxConcurrency = social.SavedVideos.MaxConcurrency
	}
	if storage != nil {
		cfg.Bucket = storage.GCS.Bucket
		cfg.UploadTTL = storage.GCS.UploadURLTTL.Std()
	}
	return cfg
}
