// Package worker consumes the change journal. For every event it
// refreshes the list's cached snapshot, and for item_added events it
// re-checks that the list still exists, soft-deleting the item when it
// does not. That check is the reconcile half of the accept-and-
// reconcile policy for the add-item existence race: the hot path never
// takes a cross-document lock, and any item orphaned by a concurrent
// list deletion is cleaned up here within one consumer round-trip.
package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"simplist/internal/cache"
	"simplist/internal/engine"
	"simplist/internal/models"
	"simplist/internal/queue"
	"simplist/pkg/logger"
)

// Run starts the journal consumer. One consumer per process; replicas
// share partitions through the consumer group.
func Run(ctx context.Context, eng *engine.Engine, snapshots *cache.Snapshots) {
	brokers := queue.Brokers()
	if len(brokers) == 0 {
		logger.Info(ctx, "Worker disabled (no Kafka brokers)")
		return
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    queue.Topic(),
		GroupID:  "simplist-workers",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	logger.Info(ctx, "Journal consumer started", "topic", queue.Topic())
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := handleEvent(ctx, eng, snapshots, msg.Value); err != nil {
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
			// Commit anyway to avoid a poison pill blocking the partition
			_ = reader.CommitMessages(ctx, msg)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
	}
}

func handleEvent(ctx context.Context, eng *engine.Engine, snapshots *cache.Snapshots, payload []byte) error {
	var ev models.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	if ev.Action == models.ActionItemAdded && ev.ItemID != "" {
		if err := eng.ReconcileItem(ctx, ev.ListID, ev.ItemID); err != nil {
			return err
		}
	}
	ml, err := eng.GetList(ctx, ev.ListID)
	if err != nil {
		var nf *engine.NotFoundError
		if errors.As(err, &nf) {
			if snapshots != nil {
				snapshots.Invalidate(ctx, ev.ListID)
			}
			return nil
		}
		return err
	}
	if snapshots != nil {
		raw, err := json.Marshal(ml)
		if err != nil {
			return err
		}
		snapshots.Set(ctx, ev.ListID, raw)
	}
	return nil
}
