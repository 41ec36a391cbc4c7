// Package events defines the tracking event payloads published through the outbox.
package events

import "time"

// Event type identifiers carried in the outbox and Kafka headers.
const (
	TypeActivityCreated = "activity.created"
	TypeActivityDeleted = "activity.deleted"
	TypeLogUpdated      = "activity_log.updated"
)

// ActivityCreated is emitted when the add-activity wizard confirms a new activity.
type ActivityCreated struct {
	EventID      string    `json:"event_id"`
	ActivityID   int64     `json:"activity_id"`
	OwnerID      int64     `json:"owner_id"`
	Name         string    `json:"name"`
	ActivityType string    `json:"activity_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// ActivityDeleted is emitted when an activity and its logs are removed.
type ActivityDeleted struct {
	EventID    string    `json:"event_id"`
	ActivityID int64     `json:"activity_id"`
	OwnerID    int64     `json:"owner_id"`
	DeletedAt  time.Time `json:"deleted_at"`
}

// LogUpdated carries the value of an activity's day log after a tracking event.
type LogUpdated struct {
	EventID      string    `json:"event_id"`
	LogID        int64     `json:"log_id"`
	ActivityID   int64     `json:"activity_id"`
	OwnerID      int64     `json:"owner_id"`
	ActivityType string    `json:"activity_type"`
	Date         string    `json:"date"`
	ValueBool    *bool     `json:"value_bool,omitempty"`
	ValueMinutes *int      `json:"value_minutes,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
