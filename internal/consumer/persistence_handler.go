package consumer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PersistenceHandler appends every published tracking event to
// tracking_event_log, the audit trail of what the bot changed.
type PersistenceHandler struct {
	pool *pgxpool.Pool
}

// NewPersistenceHandler constructs a handler over pool.
func NewPersistenceHandler(pool *pgxpool.Pool) *PersistenceHandler {
	return &PersistenceHandler{pool: pool}
}

// Handle stores one record. Redelivery of a record already stored at the
// same (topic, partition, offset) is a no-op.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	const stmt = `INSERT INTO tracking_event_log
	        (event_type, owner_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
	    VALUES ($1, NULLIF($2::bigint, 0), $3, $4, $5, $6, $7, $8, $9)
	    ON CONFLICT (topic, partition, record_offset) DO NOTHING`

	if _, err := h.pool.Exec(ctx, stmt,
		msg.EventType, msg.OwnerID, msg.SchemaID, msg.SchemaSubject,
		msg.Topic, msg.Partition, msg.Offset, msg.Payload, msg.Timestamp,
	); err != nil {
		return fmt.Errorf("audit %s at %s/%d/%d: %w", msg.EventType, msg.Topic, msg.Partition, msg.Offset, err)
	}
	return nil
}
