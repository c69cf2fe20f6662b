package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	records     map[string]WorkoutRecord
	history     []WorkoutRecord
	prefs       BenchmarkPreferences
	savedPRs    []PRRecord
	savedTrack  map[string]float64
	savedPower  map[string]PowerBuckets
	supersedeID string
	listErr     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records:    make(map[string]WorkoutRecord),
		prefs:      make(BenchmarkPreferences),
		savedPower: make(map[string]PowerBuckets),
	}
}

func (f *fakeRepo) Create(_ context.Context, workout WorkoutRecord) error {
	f.records[workout.ID] = workout
	return nil
}

func (f *fakeRepo) Supersede(_ context.Context, existingID string, workout WorkoutRecord) error {
	f.supersedeID = existingID
	f.records[existingID] = workout
	return nil
}

func (f *fakeRepo) Get(_ context.Context, _, workoutID string) (*WorkoutRecord, error) {
	if record, ok := f.records[workoutID]; ok {
		return &record, nil
	}
	return nil, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, _, _ string, _ *Cursor, _ int) ([]WorkoutRecord, *Cursor, error) {
	return f.history, nil, nil
}

func (f *fakeRepo) ListHistory(_ context.Context, _, _ string) ([]WorkoutRecord, error) {
	return f.history, nil
}

func (f *fakeRepo) ListCompletedBetween(_ context.Context, _, _ string, from, to time.Time) ([]WorkoutRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []WorkoutRecord
	for _, record := range f.records {
		if !record.CompletedAt.Before(from) && !record.CompletedAt.After(to) {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeRepo) SavePersonalRecords(_ context.Context, _, _ string, prs []PRRecord, tracked map[string]float64) error {
	f.savedPRs = prs
	f.savedTrack = tracked
	return nil
}

func (f *fakeRepo) SavePowerBuckets(_ context.Context, _, workoutID string, buckets PowerBuckets) error {
	f.savedPower[workoutID] = buckets
	return nil
}

func (f *fakeRepo) BenchmarkPreferences(_ context.Context, _, _ string) (BenchmarkPreferences, error) {
	return f.prefs, nil
}

func TestIngestWorkoutCreatesWithCanonicalName(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	record, outcome, err := svc.IngestWorkout(context.Background(), IngestWorkoutInput{
		TenantID:        "t1",
		UserID:          "u1",
		Source:          SourceConcept2,
		CompletedAt:     time.Date(2026, time.May, 2, 7, 0, 0, 0, time.UTC),
		DistanceM:       2000,
		DurationSeconds: 420,
		RawTelemetry:    []byte(`{"intervals":[{"type":"distance","distance":500,"time":1050},{"type":"distance","distance":500,"time":1050},{"type":"distance","distance":500,"time":1050},{"type":"distance","distance":500,"time":1050}]}`),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)
	require.Equal(t, "4x500m", record.CanonicalName)
	require.NotEmpty(t, record.ID)
	require.Contains(t, repo.records, record.ID)
}

func TestIngestWorkoutSupersedesWeakerSource(t *testing.T) {
	completedAt := time.Date(2026, time.May, 2, 7, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.records["existing"] = WorkoutRecord{
		ID:              "existing",
		TenantID:        "t1",
		UserID:          "u1",
		Source:          SourceManual,
		CompletedAt:     completedAt.Add(3 * time.Minute),
		DistanceM:       2000,
		DurationSeconds: 421,
	}
	svc := NewService(repo)

	record, outcome, err := svc.IngestWorkout(context.Background(), IngestWorkoutInput{
		TenantID:        "t1",
		UserID:          "u1",
		Source:          SourceConcept2,
		CompletedAt:     completedAt,
		DistanceM:       2000,
		DurationSeconds: 420,
		Tolerance:       MatchTolerance{DistanceMeters: 100, DurationSeconds: 30},
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuperseded, outcome)
	require.Equal(t, "existing", record.ID)
	require.Equal(t, "existing", repo.supersedeID)
	require.Equal(t, SourceConcept2, repo.records["existing"].Source)
}

func TestIngestWorkoutKeepsStrongerSource(t *testing.T) {
	completedAt := time.Date(2026, time.May, 2, 7, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.records["existing"] = WorkoutRecord{
		ID:              "existing",
		TenantID:        "t1",
		UserID:          "u1",
		Source:          SourceConcept2,
		CompletedAt:     completedAt,
		DistanceM:       2000,
		DurationSeconds: 420,
	}
	svc := NewService(repo)

	record, outcome, err := svc.IngestWorkout(context.Background(), IngestWorkoutInput{
		TenantID:        "t1",
		UserID:          "u1",
		Source:          SourceManual,
		CompletedAt:     completedAt,
		DistanceM:       2000,
		DurationSeconds: 420,
		Tolerance:       MatchTolerance{DistanceMeters: 100, DurationSeconds: 30},
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeKept, outcome)
	require.Equal(t, "existing", record.ID)
	require.Equal(t, SourceConcept2, record.Source)
	require.Empty(t, repo.supersedeID)
	require.Len(t, repo.records, 1)
}

func TestIngestWorkoutDegradesMalformedTelemetry(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	record, outcome, err := svc.IngestWorkout(context.Background(), IngestWorkoutInput{
		TenantID:        "t1",
		UserID:          "u1",
		Source:          SourceManual,
		CompletedAt:     time.Date(2026, time.May, 2, 7, 0, 0, 0, time.UTC),
		DistanceM:       2000,
		DurationSeconds: 430,
		RawTelemetry:    []byte(`{broken`),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)
	require.Equal(t, TelemetryNone, record.Telemetry.Kind)
	require.Empty(t, record.CanonicalName)
}

func TestIngestWorkoutTagsStrokeUnitsBySource(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	raw := []byte(`{"strokes":[{"d":10,"t":25,"p":1050},{"d":20,"t":50,"p":1060}]}`)

	record, _, err := svc.IngestWorkout(context.Background(), IngestWorkoutInput{
		TenantID:     "t1",
		UserID:       "u1",
		Source:       SourceConcept2,
		CompletedAt:  time.Date(2026, time.May, 2, 7, 0, 0, 0, time.UTC),
		DistanceM:    20,
		RawTelemetry: raw,
	})
	require.NoError(t, err)
	for _, s := range record.Telemetry.Strokes {
		require.Equal(t, PowerPaceDeci, s.PowerUnit)
	}

	record, _, err = svc.IngestWorkout(context.Background(), IngestWorkoutInput{
		TenantID:     "t1",
		UserID:       "u2",
		Source:       SourceErgLink,
		CompletedAt:  time.Date(2026, time.May, 3, 7, 0, 0, 0, time.UTC),
		DistanceM:    20,
		RawTelemetry: raw,
	})
	require.NoError(t, err)
	for _, s := range record.Telemetry.Strokes {
		require.Equal(t, PowerWatts, s.PowerUnit)
	}

	record, _, err = svc.IngestWorkout(context.Background(), IngestWorkoutInput{
		TenantID:     "t1",
		UserID:       "u3",
		Source:       SourceManual,
		CompletedAt:  time.Date(2026, time.May, 4, 7, 0, 0, 0, time.UTC),
		DistanceM:    20,
		RawTelemetry: raw,
	})
	require.NoError(t, err)
	for _, s := range record.Telemetry.Strokes {
		require.Equal(t, PowerUnitUndefined, s.PowerUnit)
	}
}

func TestFindMatchingWorkoutWrapsStoreErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("connection refused")
	svc := NewService(repo)

	_, err := svc.FindMatchingWorkout(context.Background(), MatchCriteria{
		TenantID: "t1",
		UserID:   "u1",
		Date:     time.Now().UTC(),
	})
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestPowerBucketsForNonStrokeTelemetry(t *testing.T) {
	repo := newFakeRepo()
	repo.records["wk"] = WorkoutRecord{
		ID: "wk",
		Telemetry: Telemetry{
			Kind:      TelemetryIntervals,
			Intervals: []Interval{{Kind: IntervalWork, DistanceM: 2000, TimeDeci: 4200}},
		},
	}
	svc := NewService(repo)

	buckets, err := svc.PowerBucketsFor(context.Background(), "t1", "wk")
	require.NoError(t, err)
	require.Empty(t, buckets)
}

func TestPowerBucketsForMissingWorkout(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.PowerBucketsFor(context.Background(), "t1", "nope")
	require.ErrorIs(t, err, ErrWorkoutNotFound)
}

func TestRecomputeDerivedPersistsArtifacts(t *testing.T) {
	repo := newFakeRepo()
	repo.history = []WorkoutRecord{
		{ID: "wk", TenantID: "t1", UserID: "u1", CompletedAt: time.Date(2026, time.May, 2, 7, 0, 0, 0, time.UTC), DistanceM: 2000, DurationSeconds: 420},
	}
	repo.records["wk"] = WorkoutRecord{
		ID: "wk",
		Telemetry: Telemetry{Kind: TelemetryStrokes, Strokes: []Stroke{
			{DistanceCum: 10, TimeDeciCum: 25, Power: 200, PowerUnit: PowerWatts},
			{DistanceCum: 20, TimeDeciCum: 50, Power: 205, PowerUnit: PowerWatts},
		}},
	}
	repo.prefs = BenchmarkPreferences{"2k": {IsTracked: true}}
	svc := NewService(repo)

	require.NoError(t, svc.RecomputeDerived(context.Background(), "t1", "u1", "wk"))

	require.Len(t, repo.savedPRs, 1)
	require.Equal(t, "2k", repo.savedPRs[0].Label)
	require.Equal(t, map[string]float64{"2k": 420}, repo.savedTrack)
	require.NotEmpty(t, repo.savedPower["wk"])
}
