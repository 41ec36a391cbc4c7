package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/events"
)

// TrackingTopic is the Kafka topic every tracking event is routed to.
const TrackingTopic = "tracking_events"

// outboxRecord is one event staged for the outbox inside a store transaction.
type outboxRecord struct {
	OwnerID       int64
	AggregateType string
	AggregateID   string
	EventType     string
	EventID       string
	Payload       interface{}
}

func insertOutbox(ctx context.Context, tx pgx.Tx, record outboxRecord) error {
	body, err := json.Marshal(record.Payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[record.EventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", record.EventType)
	}

	partitionKey := meta.PartitionKeyFn(record)
	dedupeKey := fmt.Sprintf("%s:%s:%s", record.AggregateID, record.EventType, record.EventID)

	const stmt = `INSERT INTO outbox (owner_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		record.OwnerID,
		record.AggregateType,
		record.AggregateID,
		record.EventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

func activityCreatedRecord(activity domain.Activity) outboxRecord {
	eventID := uuid.NewString()
	return outboxRecord{
		OwnerID:       activity.OwnerID,
		AggregateType: "activity",
		AggregateID:   strconv.FormatInt(activity.ID, 10),
		EventType:     events.TypeActivityCreated,
		EventID:       eventID,
		Payload: events.ActivityCreated{
			EventID:      eventID,
			ActivityID:   activity.ID,
			OwnerID:      activity.OwnerID,
			Name:         activity.Name,
			ActivityType: string(activity.Type),
			CreatedAt:    activity.CreatedAt,
		},
	}
}

func activityDeletedRecord(ownerID, activityID int64, at time.Time) outboxRecord {
	eventID := uuid.NewString()
	return outboxRecord{
		OwnerID:       ownerID,
		AggregateType: "activity",
		AggregateID:   strconv.FormatInt(activityID, 10),
		EventType:     events.TypeActivityDeleted,
		EventID:       eventID,
		Payload: events.ActivityDeleted{
			EventID:    eventID,
			ActivityID: activityID,
			OwnerID:    ownerID,
			DeletedAt:  at,
		},
	}
}

func logUpdatedRecord(activity domain.Activity, log domain.ActivityLog) outboxRecord {
	eventID := uuid.NewString()
	return outboxRecord{
		OwnerID:       activity.OwnerID,
		AggregateType: "activity_log",
		AggregateID:   strconv.FormatInt(log.ID, 10),
		EventType:     events.TypeLogUpdated,
		EventID:       eventID,
		Payload: events.LogUpdated{
			EventID:      eventID,
			LogID:        log.ID,
			ActivityID:   activity.ID,
			OwnerID:      activity.OwnerID,
			ActivityType: string(activity.Type),
			Date:         log.Date.Format(domain.DayLayout),
			ValueBool:    log.ValueBool,
			ValueMinutes: log.ValueMinutes,
			OccurredAt:   log.UpdatedAt,
		},
	}
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(outboxRecord) string
}

func byOwner(r outboxRecord) string {
	return strconv.FormatInt(r.OwnerID, 10)
}

var eventCatalog = map[string]EventMetadata{
	events.TypeActivityCreated: {
		Topic:          TrackingTopic,
		SchemaSubject:  TrackingTopic + "-" + events.TypeActivityCreated,
		PartitionKeyFn: byOwner,
	},
	events.TypeActivityDeleted: {
		Topic:          TrackingTopic,
		SchemaSubject:  TrackingTopic + "-" + events.TypeActivityDeleted,
		PartitionKeyFn: byOwner,
	},
	events.TypeLogUpdated: {
		Topic:          TrackingTopic,
		SchemaSubject:  TrackingTopic + "-" + events.TypeLogUpdated,
		PartitionKeyFn: byOwner,
	},
}
