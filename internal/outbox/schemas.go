package outbox

import "github.com/IvanSitnikov1/tracker-bot/internal/events"

const activityCreatedSchema = `{
  "type": "object",
  "title": "ActivityCreated",
  "properties": {
    "event_id": {"type": "string"},
    "activity_id": {"type": "integer"},
    "owner_id": {"type": "integer"},
    "name": {"type": "string", "maxLength": 100},
    "activity_type": {"type": "string", "enum": ["checkbox", "time"]},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "activity_id", "owner_id", "name", "activity_type", "created_at"],
  "additionalProperties": false
}`

const activityDeletedSchema = `{
  "type": "object",
  "title": "ActivityDeleted",
  "properties": {
    "event_id": {"type": "string"},
    "activity_id": {"type": "integer"},
    "owner_id": {"type": "integer"},
    "deleted_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "activity_id", "owner_id", "deleted_at"],
  "additionalProperties": false
}`

const logUpdatedSchema = `{
  "type": "object",
  "title": "ActivityLogUpdated",
  "properties": {
    "event_id": {"type": "string"},
    "log_id": {"type": "integer"},
    "activity_id": {"type": "integer"},
    "owner_id": {"type": "integer"},
    "activity_type": {"type": "string", "enum": ["checkbox", "time"]},
    "date": {"type": "string", "format": "date"},
    "value_bool": {"type": "boolean"},
    "value_minutes": {"type": "integer", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "log_id", "activity_id", "owner_id", "activity_type", "date", "occurred_at"],
  "additionalProperties": false
}`

// schemaCatalog maps event type to its JSON schema.
var schemaCatalog = map[string]string{
	events.TypeActivityCreated: activityCreatedSchema,
	events.TypeActivityDeleted: activityDeletedSchema,
	events.TypeLogUpdated:      logUpdatedSchema,
}
