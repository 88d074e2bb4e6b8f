package main

import (
	"context"

	loader "github.com/bionicotaku/lingo-services-social/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-social/internal/infrastructure/gcs"
	"github.com/bionicotaku/lingo-services-social/internal/services"

	"github.com/bionicotaku/lingo-utils/gcpubsub"
	"github.com/go-kratos/kratos/v2/log"
)

// provideUploadSigner 把可能为 nil 的 *gcs.UploadSigner 转为接口，避免 typed-nil。
func provideUploadSigner(signer *gcs.UploadSigner) services.UploadSigner {
	if signer == nil {
		return nil
	}
	return signer
}

// providePublisher 在配置了 Topic 时创建 Pub/Sub 发布器。
func providePublisher(ctx context.Context, cfg *loader.Messaging, meta loader.ServiceMetadata, logger log.Logger) (gcpubsub.Publisher, func(), error) {
	if cfg == nil || cfg.PubSub.TopicID == "" {
		log.NewHelper(logger).Warn("pubsub topic not configured; outbox publisher disabled")
		return nil, func() {}, nil
	}
	component, cleanup, err := gcpubsub.NewComponent(ctx, gcpubsub.Config{
		ProjectID:        cfg.PubSub.ProjectID,
		TopicID:          cfg.PubSub.TopicID,
		EnableLogging:    cfg.PubSub.LoggingEnabled,
		EnableMetrics:    cfg.PubSub.MetricsEnabled,
		MeterName:        meta.Name + ".gcpubsub",
		EmulatorEndpoint: cfg.PubSub.EmulatorEndpoint,
	}, gcpubsub.Dependencies{Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	return gcpubsub.ProvidePublisher(component), cleanup, nil
}
