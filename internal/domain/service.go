package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkoutRepository captures the persistence operations the engine needs.
type WorkoutRepository interface {
	Create(ctx context.Context, workout WorkoutRecord) error
	// Supersede replaces the payload of an existing record with data from a
	// better (or equal) source, keeping the record's identity.
	Supersede(ctx context.Context, existingID string, workout WorkoutRecord) error
	Get(ctx context.Context, tenantID, workoutID string) (*WorkoutRecord, error)
	ListByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]WorkoutRecord, *Cursor, error)
	// ListHistory returns the user's complete workout history, oldest first.
	ListHistory(ctx context.Context, tenantID, userID string) ([]WorkoutRecord, error)
	// ListCompletedBetween returns records inside a reconciliation window.
	ListCompletedBetween(ctx context.Context, tenantID, userID string, from, to time.Time) ([]WorkoutRecord, error)
	SavePersonalRecords(ctx context.Context, tenantID, userID string, prs []PRRecord, tracked map[string]float64) error
	SavePowerBuckets(ctx context.Context, tenantID, workoutID string, buckets PowerBuckets) error
	BenchmarkPreferences(ctx context.Context, tenantID, userID string) (BenchmarkPreferences, error)
}

// Service orchestrates ingestion, reconciliation, and derived-data
// computation over the repository.
type Service struct {
	repo WorkoutRepository
	tol  Tolerances
}

// NewService constructs a Service with default tolerances.
func NewService(repo WorkoutRepository) *Service {
	return &Service{repo: repo, tol: DefaultTolerances()}
}

// IngestOutcome describes what reconciliation decided for a new record.
type IngestOutcome string

const (
	// OutcomeCreated means no existing record matched; a new one was stored.
	OutcomeCreated IngestOutcome = "created"
	// OutcomeSuperseded means an existing record was replaced in place.
	OutcomeSuperseded IngestOutcome = "superseded"
	// OutcomeKept means the existing record came from a better source and
	// the new data was discarded.
	OutcomeKept IngestOutcome = "kept"
)

// IngestWorkoutInput is the payload accepted from the ingestion paths.
type IngestWorkoutInput struct {
	TenantID        string
	UserID          string
	Source          Source
	CompletedAt     time.Time
	DistanceM       float64
	DurationSeconds float64
	AvgSplit        float64
	RawTelemetry    []byte
	Tolerance       MatchTolerance
}

// IngestWorkout normalizes the payload, reconciles it against stored records
// for the same session, and persists the winner. Malformed telemetry
// degrades to a summary-only record instead of failing the ingestion.
func (s *Service) IngestWorkout(ctx context.Context, input IngestWorkoutInput) (*WorkoutRecord, IngestOutcome, error) {
	telemetry, err := ParseTelemetry(input.RawTelemetry)
	if err != nil {
		telemetry = Telemetry{Kind: TelemetryNone}
	}
	telemetry = tagStrokeUnits(telemetry, input.Source)

	now := time.Now().UTC()
	record := WorkoutRecord{
		ID:              uuid.NewString(),
		TenantID:        input.TenantID,
		UserID:          input.UserID,
		Source:          input.Source,
		CompletedAt:     input.CompletedAt.UTC(),
		DistanceM:       input.DistanceM,
		DurationSeconds: input.DurationSeconds,
		AvgSplit:        input.AvgSplit,
		Telemetry:       telemetry,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if intervals := record.WorkIntervals(); len(intervals) > 0 {
		record.CanonicalName = CanonicalName(intervals, s.tol)
	}

	match, err := s.FindMatchingWorkout(ctx, MatchCriteria{
		TenantID:        input.TenantID,
		UserID:          input.UserID,
		Date:            record.CompletedAt,
		DistanceM:       input.DistanceM,
		DurationSeconds: input.DurationSeconds,
		Tolerance:       input.Tolerance,
	})
	if err != nil {
		return nil, "", err
	}

	if match == nil {
		if err := s.repo.Create(ctx, record); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return &record, OutcomeCreated, nil
	}

	if !ShouldUpgrade(match.Source, record.Source) {
		existing, err := s.repo.Get(ctx, input.TenantID, match.WorkoutID)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if existing == nil {
			return nil, "", ErrWorkoutNotFound
		}
		return existing, OutcomeKept, nil
	}

	record.ID = match.WorkoutID
	if err := s.repo.Supersede(ctx, match.WorkoutID, record); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &record, OutcomeSuperseded, nil
}

// FindMatchingWorkout looks for a stored record representing the same
// real-world session: same user, completed within the time window, and
// within tolerance on every criterion both sides carry. Among several
// candidates the one closest in time wins. A nil result with nil error
// means no match, which is a normal outcome.
func (s *Service) FindMatchingWorkout(ctx context.Context, criteria MatchCriteria) (*ReconciliationMatch, error) {
	window := criteria.Tolerance.Window()
	candidates, err := s.repo.ListCompletedBetween(ctx,
		criteria.TenantID, criteria.UserID,
		criteria.Date.Add(-window), criteria.Date.Add(window))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	best := selectMatch(candidates, criteria)
	if best == nil {
		return nil, nil
	}
	return &ReconciliationMatch{
		WorkoutID:     best.ID,
		Source:        best.Source,
		CanonicalName: best.CanonicalName,
	}, nil
}

// PersonalRecords recomputes the user's full PR set from history. The pass
// is pure and idempotent; nothing is persisted here.
func (s *Service) PersonalRecords(ctx context.Context, tenantID, userID string) ([]PRRecord, error) {
	history, err := s.repo.ListHistory(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return CalculatePRs(history, s.tol), nil
}

// TrackedBenchmarks computes the preference-gated {label: best seconds}
// mapping persisted for dashboard display.
func (s *Service) TrackedBenchmarks(ctx context.Context, tenantID, userID string) (map[string]float64, error) {
	prefs, err := s.repo.BenchmarkPreferences(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	prs, err := s.PersonalRecords(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	return FilterTracked(prs, prefs), nil
}

// PowerBucketsFor builds the watt histogram for one workout's stroke series.
// Workouts without stroke telemetry yield an empty histogram, which the UI
// treats as "not enough data yet".
func (s *Service) PowerBucketsFor(ctx context.Context, tenantID, workoutID string) (PowerBuckets, error) {
	workout, err := s.repo.Get(ctx, tenantID, workoutID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if workout == nil {
		return nil, ErrWorkoutNotFound
	}
	if workout.Telemetry.Kind != TelemetryStrokes {
		return PowerBuckets{}, nil
	}
	return CalculatePowerBuckets(workout.Telemetry.Strokes), nil
}

// RecomputeDerived refreshes the persisted derived artifacts after a workout
// is recorded or reconciled: the user's PR set (gated by preferences) and
// the workout's power histogram.
func (s *Service) RecomputeDerived(ctx context.Context, tenantID, userID, workoutID string) error {
	prefs, err := s.repo.BenchmarkPreferences(ctx, tenantID, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	prs, err := s.PersonalRecords(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if err := s.repo.SavePersonalRecords(ctx, tenantID, userID, prs, FilterTracked(prs, prefs)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	buckets, err := s.PowerBucketsFor(ctx, tenantID, workoutID)
	if err != nil {
		return err
	}
	if len(buckets) == 0 {
		return nil
	}
	if err := s.repo.SavePowerBuckets(ctx, tenantID, workoutID, buckets); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetWorkout fetches one record by id.
func (s *Service) GetWorkout(ctx context.Context, tenantID, workoutID string) (*WorkoutRecord, error) {
	workout, err := s.repo.Get(ctx, tenantID, workoutID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if workout == nil {
		return nil, ErrWorkoutNotFound
	}
	return workout, nil
}

// ListWorkouts fetches workouts with cursor pagination.
func (s *Service) ListWorkouts(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]WorkoutRecord, *Cursor, error) {
	return s.repo.ListByUser(ctx, tenantID, userID, cursor, limit)
}

// tagStrokeUnits stamps the power unit onto untagged stroke samples based on
// what each source is known to emit: the vendor API reports pace in
// deciseconds, the erg link reports direct watts. Samples from other sources
// stay untagged and are excluded from power computation rather than guessed
// at by magnitude.
func tagStrokeUnits(t Telemetry, source Source) Telemetry {
	if t.Kind != TelemetryStrokes {
		return t
	}
	var unit PowerUnit
	switch source {
	case SourceConcept2:
		unit = PowerPaceDeci
	case SourceErgLink:
		unit = PowerWatts
	default:
		return t
	}
	for i := range t.Strokes {
		if t.Strokes[i].PowerUnit == PowerUnitUndefined {
			t.Strokes[i].PowerUnit = unit
		}
	}
	return t
}
