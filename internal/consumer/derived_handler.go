package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/rowlog/internal/domain"
	"example.com/rowlog/internal/events"
	"example.com/rowlog/internal/observability"
)

// DerivedHandler refreshes derived data (personal records, power histograms)
// whenever a workout is recorded or reconciled.
type DerivedHandler struct {
	svc *domain.Service
}

// NewDerivedHandler constructs a handler backed by the domain service.
func NewDerivedHandler(svc *domain.Service) *DerivedHandler {
	return &DerivedHandler{svc: svc}
}

// Handle recomputes the user's derived artifacts for the affected workout.
// Unknown event types are ignored so new producers can roll out first.
func (h *DerivedHandler) Handle(ctx context.Context, msg Message) error {
	var tenantID, userID, workoutID string

	switch msg.EventType {
	case "workout.recorded":
		var evt events.WorkoutRecorded
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode workout.recorded: %w", err)
		}
		tenantID, userID, workoutID = evt.TenantID, evt.UserID, evt.WorkoutID
	case "workout.reconciled":
		var evt events.WorkoutReconciled
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode workout.reconciled: %w", err)
		}
		tenantID, userID, workoutID = evt.TenantID, evt.UserID, evt.WorkoutID
	default:
		return nil
	}

	if tenantID == "" || userID == "" || workoutID == "" {
		return fmt.Errorf("event %s missing identity fields", msg.EventType)
	}

	start := time.Now()
	if err := h.svc.RecomputeDerived(ctx, tenantID, userID, workoutID); err != nil {
		return err
	}
	observability.ObservePRRecompute(time.Since(start))
	return nil
}
