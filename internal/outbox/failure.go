package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// routeToDLQ copies a failed batch into outbox_dlq and marks the source rows
// published in one transaction, so a crash cannot both replay and dead-letter
// the same event.
func routeToDLQ(ctx context.Context, pool *pgxpool.Pool, messages []Message, reason string) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, msg := range messages {
			batch.Queue(`INSERT INTO outbox_dlq (owner_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, next_retry_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, NOW())`,
				msg.OwnerID, msg.EventID, msg.EventType, msg.Topic, msg.Payload,
				fmt.Sprintf("%s (subject=%s)", reason, msg.SchemaSubject),
				msg.AggregateType, msg.AggregateID, msg.SchemaSubject, msg.PartitionKey)
		}
		batch.Queue(`UPDATE outbox SET published_at = NOW() WHERE event_id = ANY($1)`, eventIDs(messages))

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("route %d events to dlq: %w", len(messages), err)
		}
		return nil
	})
}
