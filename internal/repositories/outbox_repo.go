package repositories

import (
	"context"
	"fmt"
	"time"

	outboxpkg "github.com/bionicotaku/lingo-utils/outbox"
	outboxcfg "github.com/bionicotaku/lingo-utils/outbox/config"
	"github.com/bionicotaku/lingo-utils/outbox/store"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultOutboxSchema = "social"

// OutboxMessage 描述需要写入 outbox_events 的事件数据。
type OutboxMessage = store.Message

// OutboxRepository 在业务 schema 的 outbox_events 上写入事件，认领与回写交给共享的 store.Repository。
type OutboxRepository struct {
	db       *pgxpool.Pool
	delegate *store.Repository
	table    string
	log      *log.Helper
}

// NewOutboxRepository 构造 Repository。cfg.Schema 为空时使用 social。
func NewOutboxRepository(db *pgxpool.Pool, logger log.Logger, cfg outboxcfg.Config) *OutboxRepository {
	schema := cfg.Schema
	if schema == "" {
		schema = defaultOutboxSchema
	}
	helper := log.NewHelper(logger)
	storeRepo, err := outboxpkg.NewRepository(db, logger, outboxpkg.RepositoryOptions{Schema: schema})
	if err != nil {
		helper.Errorw("msg", "init outbox repository failed", "schema", schema, "error", err)
		storeRepo = store.NewRepository(db, logger)
	}
	return &OutboxRepository{
		db:       db,
		delegate: storeRepo,
		table:    pgx.Identifier{schema, "outbox_events"}.Sanitize(),
		log:      helper,
	}
}

// Enqueue 在指定事务内插入 Outbox 事件。
func (r *OutboxRepository) Enqueue(ctx context.Context, sess txmanager.Session, msg OutboxMessage) error {
	// AvailableAt 统一为 UTC，缺省时取当前时间。
	if msg.AvailableAt.IsZero() {
		msg.AvailableAt = time.Now()
	}
	msg.AvailableAt = msg.AvailableAt.UTC()
	if msg.Headers == nil {
		msg.Headers = map[string]string{}
	}

	if err := r.delegate.Enqueue(ctx, sess, msg); err != nil {
		r.log.WithContext(ctx).Errorf("insert outbox event failed: event_id=%s err=%v", msg.EventID, err)
		return fmt.Errorf("insert outbox event: %w", err)
	}
	r.log.WithContext(ctx).Debugf("outbox event enqueued: type=%s aggregate=%s id=%s", msg.EventType, msg.AggregateType, msg.AggregateID)
	return nil
}

// CountPending 统计尚未发布的事件数量。
func (r *OutboxRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM `+r.table+` WHERE published_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending outbox events: %w", err)
	}
	return count, nil
}

// Shared 暴露底层 store.Repository，供发布任务认领与回写事件。
func (r *OutboxRepository) Shared() *store.Repository {
	return r.delegate
}
