// Package outbox 将共享的 Outbox 发布 Runner 挂到 kratos.App 上。
//
// 认领、投递、指数退避与最大投递次数均由 lingo-utils/outbox/publisher 完成，
// 本包只负责基于 social schema 的仓储构造 Runner，并以 transport.Server 管理其生命周期。
package outbox

import (
	"context"
	"errors"
	"sync"

	"github.com/bionicotaku/lingo-services-social/internal/repositories"
	"github.com/bionicotaku/lingo-utils/gcpubsub"
	outboxcfg "github.com/bionicotaku/lingo-utils/outbox/config"
	outboxpublisher "github.com/bionicotaku/lingo-utils/outbox/publisher"
	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "lingo-services-social.outbox"

// Config 直接复用共享发布器配置。
type Config = outboxcfg.PublisherConfig

// ErrNotConfigured 表示缺少仓储或发布器。
var ErrNotConfigured = errors.New("outbox: publisher not configured")

// Runner 是阻塞运行的发布循环，*outboxpublisher.Runner 满足该接口。
type Runner interface {
	Run(ctx context.Context) error
}

// NewRunner 基于仓储的共享 store 构造发布 Runner。meter 为空时使用全局 MeterProvider。
func NewRunner(repo *repositories.OutboxRepository, pub gcpubsub.Publisher, cfg Config, logger log.Logger, meter metric.Meter) (*outboxpublisher.Runner, error) {
	if repo == nil || pub == nil {
		return nil, ErrNotConfigured
	}
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	return outboxpublisher.NewRunner(outboxpublisher.RunnerParams{
		Store:     repo.Shared(),
		Publisher: pub,
		Config:    cfg,
		Logger:    logger,
		Meter:     meter,
	})
}

// PublisherTask 以 kratos transport.Server 的形式运行 Runner。
type PublisherTask struct {
	runner Runner
	log    *log.Helper

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewPublisherTask 包装 Runner。
func NewPublisherTask(runner Runner, logger log.Logger) *PublisherTask {
	return &PublisherTask{
		runner: runner,
		log:    log.NewHelper(log.With(logger, "module", "task.outbox")),
	}
}

// Run 阻塞执行发布循环直到 ctx 结束。因 ctx 结束而退出时返回 nil。
func (t *PublisherTask) Run(ctx context.Context) error {
	if t == nil || t.runner == nil {
		return ErrNotConfigured
	}
	t.log.WithContext(ctx).Info("outbox publisher started")
	err := t.runner.Run(ctx)
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		t.log.Info("outbox publisher stopped")
		return nil
	}
	if err != nil {
		t.log.WithContext(ctx).Errorf("outbox publisher exited: %v", err)
	}
	return err
}

// Start 实现 transport.Server，阻塞直到 Stop 或 ctx 结束。
func (t *PublisherTask) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	t.mu.Lock()
	t.cancel = cancel
	t.stopped = stopped
	t.mu.Unlock()

	defer close(stopped)
	return t.Run(runCtx)
}

// Stop 实现 transport.Server，等待当前批次结束或 ctx 超时。Start 之前调用为空操作。
func (t *PublisherTask) Stop(ctx context.Context) error {
	t.mu.Lock()
	cancel, stopped := t.cancel, t.stopped
	t.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
