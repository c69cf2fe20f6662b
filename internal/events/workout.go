// Package events defines the event payloads emitted through the outbox.
package events

import "time"

// WorkoutRecorded is emitted when a new workout record is accepted.
type WorkoutRecorded struct {
	WorkoutID       string    `json:"workout_id"`
	TenantID        string    `json:"tenant_id"`
	UserID          string    `json:"user_id"`
	Source          string    `json:"source"`
	CompletedAt     time.Time `json:"completed_at"`
	DistanceMeters  float64   `json:"distance_meters"`
	DurationSeconds float64   `json:"duration_seconds"`
	CanonicalName   string    `json:"canonical_name,omitempty"`
}

// WorkoutReconciled is emitted when an existing record is superseded by data
// from an equal or better source.
type WorkoutReconciled struct {
	WorkoutID      string    `json:"workout_id"`
	TenantID       string    `json:"tenant_id"`
	UserID         string    `json:"user_id"`
	PreviousSource string    `json:"previous_source"`
	NewSource      string    `json:"new_source"`
	OccurredAt     time.Time `json:"occurred_at"`
}
