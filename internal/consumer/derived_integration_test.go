//go:build integration
// +build integration

package consumer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/rowlog/internal/domain"
	pgrepo "example.com/rowlog/internal/persistence/postgres"
)

func TestDerivedHandlerRecomputesPersonalRecords(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	repo := pgrepo.NewRepository(pool)
	svc := domain.NewService(repo)
	handler := NewDerivedHandler(svc)

	tenantID := "tenant-123"
	userID := "user-1"
	telemetry := `{"intervals":[{"type":"distance","distance":2000,"time":4200}]}`

	record, outcome, err := svc.IngestWorkout(ctx, domain.IngestWorkoutInput{
		TenantID:        tenantID,
		UserID:          userID,
		Source:          domain.SourceConcept2,
		CompletedAt:     time.Now().UTC().Add(-time.Hour),
		DistanceM:       2000,
		DurationSeconds: 420,
		RawTelemetry:    []byte(telemetry),
	})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeCreated, outcome)

	payload, err := json.Marshal(map[string]string{
		"workout_id": record.ID,
		"tenant_id":  tenantID,
		"user_id":    userID,
	})
	require.NoError(t, err)

	msg := Message{
		EventType: "workout.recorded",
		TenantID:  tenantID,
		Topic:     "workout_events",
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, handler.Handle(ctx, msg))

	count := countPersonalRecords(t, ctx, pool, tenantID, userID)
	require.Greater(t, count, 0)
}

func countPersonalRecords(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID, userID string) int {
	t.Helper()

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID)
	require.NoError(t, err)

	var count int
	require.NoError(t, tx.QueryRow(ctx, `SELECT COUNT(*) FROM personal_records WHERE user_id = $1`, userID).Scan(&count))
	require.NoError(t, tx.Commit(ctx))
	return count
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("rowlog"),
		postgrescontainer.WithUsername("rowlog"),
		postgrescontainer.WithPassword("rowlog"),
	)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pg.Terminate(ctx)
	}
	return pool, cleanup
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	migrationsPath := resolvePath(t, "../../db/postgres/migrations")
	files, err := filepath.Glob(filepath.Join(migrationsPath, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, file := range files {
		content, readErr := os.ReadFile(file)
		require.NoErrorf(t, readErr, "read migration %s", file)
		_, execErr := pool.Exec(ctx, string(content))
		require.NoErrorf(t, execErr, "execute migration %s", file)
	}
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}
