package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/rowlog/internal/domain"
	"example.com/rowlog/internal/events"
	"example.com/rowlog/internal/observability"
)

// Repository provides Postgres-backed persistence for workout logs, derived
// records, and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const workoutColumns = `workout_id, tenant_id, user_id, source, completed_at, distance_meters, duration_seconds, avg_split, canonical_name, raw_telemetry, created_at, updated_at`

// Create persists the workout and records a workout.recorded outbox event
// inside a single transaction.
func (r *Repository) Create(ctx context.Context, workout domain.WorkoutRecord) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", workout.TenantID); err != nil {
		return err
	}

	telemetry, err := marshalTelemetry(workout.Telemetry)
	if err != nil {
		return err
	}

	const insertWorkout = `INSERT INTO workout_logs (` + workoutColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	_, err = tx.Exec(ctx, insertWorkout,
		workout.ID,
		workout.TenantID,
		workout.UserID,
		workout.Source.String(),
		workout.CompletedAt,
		workout.DistanceM,
		workout.DurationSeconds,
		nullIfZero(workout.AvgSplit),
		nullIfEmpty(workout.CanonicalName),
		telemetry,
		workout.CreatedAt,
		workout.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, workout, "workout.recorded", events.WorkoutRecorded{
		WorkoutID:       workout.ID,
		TenantID:        workout.TenantID,
		UserID:          workout.UserID,
		Source:          workout.Source.String(),
		CompletedAt:     workout.CompletedAt,
		DistanceMeters:  workout.DistanceM,
		DurationSeconds: workout.DurationSeconds,
		CanonicalName:   workout.CanonicalName,
	}); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordWorkoutPersisted(workout.UpdatedAt)
	return nil
}

// Supersede replaces an existing record's payload in place, keeping its
// identity, and records a workout.reconciled outbox event.
func (r *Repository) Supersede(ctx context.Context, existingID string, workout domain.WorkoutRecord) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", workout.TenantID); err != nil {
		return err
	}

	var previousSource string
	if err = tx.QueryRow(ctx, `SELECT source FROM workout_logs WHERE tenant_id=$1 AND workout_id=$2`,
		workout.TenantID, existingID).Scan(&previousSource); err != nil {
		return err
	}

	telemetry, err := marshalTelemetry(workout.Telemetry)
	if err != nil {
		return err
	}

	const update = `UPDATE workout_logs
        SET source=$3, completed_at=$4, distance_meters=$5, duration_seconds=$6,
            avg_split=$7, canonical_name=$8, raw_telemetry=$9, updated_at=$10
        WHERE tenant_id=$1 AND workout_id=$2`

	_, err = tx.Exec(ctx, update,
		workout.TenantID,
		existingID,
		workout.Source.String(),
		workout.CompletedAt,
		workout.DistanceM,
		workout.DurationSeconds,
		nullIfZero(workout.AvgSplit),
		nullIfEmpty(workout.CanonicalName),
		telemetry,
		workout.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, workout, "workout.reconciled", events.WorkoutReconciled{
		WorkoutID:      existingID,
		TenantID:       workout.TenantID,
		UserID:         workout.UserID,
		PreviousSource: previousSource,
		NewSource:      workout.Source.String(),
		OccurredAt:     workout.UpdatedAt,
	}); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordWorkoutPersisted(workout.UpdatedAt)
	return nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, workout domain.WorkoutRecord, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[eventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	partitionKey := meta.PartitionKeyFn(workout)
	dedupeKey := fmt.Sprintf("%s:%s:%d", workout.ID, eventType, workout.UpdatedAt.UnixNano())

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		workout.TenantID,
		"workout",
		workout.ID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

// Get retrieves a workout by ID.
func (r *Repository) Get(ctx context.Context, tenantID, workoutID string) (*domain.WorkoutRecord, error) {
	const query = `SELECT ` + workoutColumns + ` FROM workout_logs WHERE tenant_id=$1 AND workout_id=$2`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	workout, err := scanWorkout(tx.QueryRow(ctx, query, tenantID, workoutID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if err := tx.Commit(ctx); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return workout, nil
}

// ListByUser returns workouts for a user ordered by completion time.
func (r *Repository) ListByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.WorkoutRecord, *domain.Cursor, error) {
	args := []interface{}{tenantID, userID, limit}
	query := `SELECT ` + workoutColumns + ` FROM workout_logs WHERE tenant_id=$1 AND user_id=$2`

	if cursor != nil {
		query += ` AND (completed_at, workout_id) < ($4, $5)`
		args = append(args, cursor.CompletedAt, cursor.ID)
	}

	query += ` ORDER BY completed_at DESC, workout_id DESC LIMIT $3`

	results, err := r.queryWorkouts(ctx, tenantID, query, args...)
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{CompletedAt: last.CompletedAt, ID: last.ID}
	}
	return results, nextCursor, nil
}

// ListHistory returns the user's complete workout history, oldest first.
func (r *Repository) ListHistory(ctx context.Context, tenantID, userID string) ([]domain.WorkoutRecord, error) {
	const query = `SELECT ` + workoutColumns + ` FROM workout_logs
        WHERE tenant_id=$1 AND user_id=$2
        ORDER BY completed_at ASC, workout_id ASC`
	return r.queryWorkouts(ctx, tenantID, query, tenantID, userID)
}

// ListCompletedBetween returns records inside a reconciliation window.
func (r *Repository) ListCompletedBetween(ctx context.Context, tenantID, userID string, from, to time.Time) ([]domain.WorkoutRecord, error) {
	const query = `SELECT ` + workoutColumns + ` FROM workout_logs
        WHERE tenant_id=$1 AND user_id=$2 AND completed_at >= $3 AND completed_at <= $4
        ORDER BY completed_at ASC, workout_id ASC`
	return r.queryWorkouts(ctx, tenantID, query, tenantID, userID, from, to)
}

func (r *Repository) queryWorkouts(ctx context.Context, tenantID, query string, args ...interface{}) ([]domain.WorkoutRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.WorkoutRecord
	for rows.Next() {
		workout, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *workout)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// SavePersonalRecords replaces the user's derived PR rows and tracked
// benchmark mapping in one transaction. PRs are always a full refresh, never
// an incremental update.
func (r *Repository) SavePersonalRecords(ctx context.Context, tenantID, userID string, prs []domain.PRRecord, tracked map[string]float64) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `DELETE FROM personal_records WHERE tenant_id=$1 AND user_id=$2`, tenantID, userID); err != nil {
		return err
	}
	const insertPR = `INSERT INTO personal_records
        (tenant_id, user_id, label, short_label, distance_meters, time_seconds, pace_seconds, achieved_at, workout_id, is_interval, interval_pattern, provenance)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	for _, pr := range prs {
		if _, err = tx.Exec(ctx, insertPR,
			tenantID, userID, pr.Label, pr.ShortLabel, pr.DistanceM, pr.TimeSeconds, pr.PaceSeconds,
			pr.Date, pr.WorkoutID, pr.IsInterval, nullIfEmpty(pr.IntervalPattern), string(pr.Provenance),
		); err != nil {
			return err
		}
	}

	if _, err = tx.Exec(ctx, `DELETE FROM tracked_benchmarks WHERE tenant_id=$1 AND user_id=$2`, tenantID, userID); err != nil {
		return err
	}
	for label, seconds := range tracked {
		if _, err = tx.Exec(ctx,
			`INSERT INTO tracked_benchmarks (tenant_id, user_id, label, best_seconds) VALUES ($1,$2,$3,$4)`,
			tenantID, userID, label, seconds,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SavePowerBuckets replaces the workout's watt histogram rows.
func (r *Repository) SavePowerBuckets(ctx context.Context, tenantID, workoutID string, buckets domain.PowerBuckets) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `DELETE FROM power_buckets WHERE tenant_id=$1 AND workout_id=$2`, tenantID, workoutID); err != nil {
		return err
	}
	for floor, seconds := range buckets {
		if _, err = tx.Exec(ctx,
			`INSERT INTO power_buckets (tenant_id, workout_id, watt_floor, seconds) VALUES ($1,$2,$3,$4)`,
			tenantID, workoutID, floor, seconds,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// BenchmarkPreferences loads the user's tracked-benchmark settings.
func (r *Repository) BenchmarkPreferences(ctx context.Context, tenantID, userID string) (domain.BenchmarkPreferences, error) {
	const query = `SELECT label, is_tracked, COALESCE(working_baseline, '')
        FROM benchmark_preferences WHERE tenant_id=$1 AND user_id=$2`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := make(domain.BenchmarkPreferences)
	for rows.Next() {
		var label, baseline string
		var isTracked bool
		if err := rows.Scan(&label, &isTracked, &baseline); err != nil {
			return nil, err
		}
		prefs[label] = domain.BenchmarkPreference{IsTracked: isTracked, WorkingBaseline: baseline}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return prefs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkout(row rowScanner) (*domain.WorkoutRecord, error) {
	var workout domain.WorkoutRecord
	var source string
	var avgSplit *float64
	var canonicalName *string
	var telemetry []byte

	if err := row.Scan(
		&workout.ID, &workout.TenantID, &workout.UserID, &source, &workout.CompletedAt,
		&workout.DistanceM, &workout.DurationSeconds, &avgSplit, &canonicalName, &telemetry,
		&workout.CreatedAt, &workout.UpdatedAt,
	); err != nil {
		return nil, err
	}

	workout.Source = domain.ParseSource(source)
	if avgSplit != nil {
		workout.AvgSplit = *avgSplit
	}
	if canonicalName != nil {
		workout.CanonicalName = *canonicalName
	}
	parsed, err := domain.ParseTelemetry(telemetry)
	if err == nil {
		workout.Telemetry = parsed
	}
	return &workout, nil
}

// marshalTelemetry serialises the normalized telemetry back to its storage
// shape. None becomes NULL.
func marshalTelemetry(t domain.Telemetry) ([]byte, error) {
	switch t.Kind {
	case domain.TelemetryIntervals:
		return json.Marshal(map[string]interface{}{"intervals": t.Intervals})
	case domain.TelemetryStrokes:
		return json.Marshal(map[string]interface{}{"strokes": t.Strokes})
	default:
		return nil, nil
	}
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullIfZero(value float64) interface{} {
	if value == 0 {
		return nil
	}
	return value
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.WorkoutRecord) string
}

var eventCatalog = map[string]EventMetadata{
	"workout.recorded": {
		Topic:         "workout_events",
		SchemaSubject: "workout_events-value",
		PartitionKeyFn: func(w domain.WorkoutRecord) string {
			return fmt.Sprintf("%s:%s", w.TenantID, w.UserID)
		},
	},
	"workout.reconciled": {
		Topic:         "workout_reconciled",
		SchemaSubject: "workout_reconciled-value",
		PartitionKeyFn: func(w domain.WorkoutRecord) string {
			return w.ID
		},
	},
}
