package outbox

import (
	loader "github.com/bionicotaku/lingo-services-social/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-social/internal/repositories"
	"github.com/bionicotaku/lingo-utils/gcpubsub"
	outboxcfg "github.com/bionicotaku/lingo-utils/outbox/config"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet 暴露 Outbox 发布任务。
var ProviderSet = wire.NewSet(ProvidePublisherTask)

// ProvidePublisherTask 将 Outbox 仓储与 Pub/Sub 发布器包装为发布任务。
// 未配置 Topic 或 Runner 初始化失败时返回 nil，事件保留在 outbox_events 中。
func ProvidePublisherTask(
	repo *repositories.OutboxRepository,
	publisher gcpubsub.Publisher,
	cfg outboxcfg.Config,
	messaging *loader.Messaging,
	logger log.Logger,
) *PublisherTask {
	if repo == nil || publisher == nil || messaging == nil || messaging.PubSub.TopicID == "" {
		return nil
	}
	runner, err := NewRunner(repo, publisher, cfg.Publisher, logger, nil)
	if err != nil {
		log.NewHelper(logger).Errorw("msg", "init outbox runner failed", "error", err)
		return nil
	}
	return NewPublisherTask(runner, logger)
}
