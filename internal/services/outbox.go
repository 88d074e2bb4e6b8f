package services

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-social/internal/models/events"
	"github.com/bionicotaku/lingo-services-social/internal/repositories"
	"github.com/bionicotaku/lingo-utils/txmanager"
)

// OutboxWriter 定义 Outbox 写入行为，必须与业务写操作共享同一 Session。
type OutboxWriter interface {
	Enqueue(ctx context.Context, sess txmanager.Session, msg repositories.OutboxMessage) error
}

// enqueueEvent 编码事件并写入 Outbox，可用时间即事件发生时间。
func enqueueEvent(ctx context.Context, outbox OutboxWriter, sess txmanager.Session, event *events.DomainEvent) error {
	payload, err := events.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event.Kind, err)
	}
	attributes := events.BuildAttributes(event, events.SchemaVersionV1, events.TraceIDFromContext(ctx))

	msg := repositories.OutboxMessage{
		EventID:       event.EventID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.Kind.String(),
		Payload:       payload,
		Headers:       attributes,
		AvailableAt:   event.OccurredAt,
	}
	if err := outbox.Enqueue(ctx, sess, msg); err != nil {
		return fmt.Errorf("enqueue outbox: %w", err)
	}
	return nil
}
