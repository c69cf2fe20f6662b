package outbox

const workoutRecordedSchema = `{
  "type": "object",
  "title": "WorkoutRecorded",
  "properties": {
    "workout_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "source": {"type": "string"},
    "completed_at": {"type": "string", "format": "date-time"},
    "distance_meters": {"type": "number"},
    "duration_seconds": {"type": "number"},
    "canonical_name": {"type": "string"}
  },
  "required": ["workout_id", "tenant_id", "user_id", "source", "completed_at", "distance_meters", "duration_seconds"],
  "additionalProperties": false
}`

const workoutReconciledSchema = `{
  "type": "object",
  "title": "WorkoutReconciled",
  "properties": {
    "workout_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "previous_source": {"type": "string"},
    "new_source": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["workout_id", "tenant_id", "user_id", "previous_source", "new_source", "occurred_at"],
  "additionalProperties": false
}`
