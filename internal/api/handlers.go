// Package api exposes HTTP handlers for the workout service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/rowlog/internal/auth"
	"example.com/rowlog/internal/domain"
	"example.com/rowlog/internal/observability"
	"example.com/rowlog/internal/persistence"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service   *domain.Service
	tolerance domain.MatchTolerance
}

// NewHandler builds a Handler. The tolerance applies to every ingestion's
// reconciliation pass.
func NewHandler(service *domain.Service, tolerance domain.MatchTolerance) *Handler {
	return &Handler{service: service, tolerance: tolerance}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/workouts/", h.workoutSubresource)
	mux.HandleFunc("/v1/prs", h.personalRecords)
	mux.HandleFunc("/v1/prs/tracked", h.trackedBenchmarks)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.ingestWorkout(w, r)
	case http.MethodGet:
		h.listWorkouts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// workoutSubresource routes /v1/workouts/{id} and /v1/workouts/{id}/power-buckets.
func (h *Handler) workoutSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/workouts/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	id, sub, _ := strings.Cut(rest, "/")
	switch sub {
	case "":
		h.getWorkout(w, r, id)
	case "power-buckets":
		h.powerBuckets(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (h *Handler) ingestWorkout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeWorkoutsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:write required")
		return
	}

	var req IngestWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	record, outcome, err := h.service.IngestWorkout(r.Context(), domain.IngestWorkoutInput{
		TenantID:        claims.TenantID,
		UserID:          req.UserID,
		Source:          domain.ParseSource(req.Source),
		CompletedAt:     req.CompletedAt,
		DistanceM:       req.DistanceMeters,
		DurationSeconds: req.DurationSeconds,
		AvgSplit:        req.AvgSplit,
		RawTelemetry:    req.Telemetry,
		Tolerance:       h.tolerance,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	observability.RecordReconciliationOutcome(string(outcome))

	resp := IngestWorkoutResponse{
		Workout: toWorkoutView(*record),
		Outcome: string(outcome),
	}

	status := http.StatusOK
	if outcome == domain.OutcomeCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireRead(w, r)
	if !ok {
		return
	}

	record, err := h.service.GetWorkout(r.Context(), claims.TenantID, id)
	if err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toWorkoutView(*record))
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireRead(w, r)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.service.ListWorkouts(r.Context(), claims.TenantID, userID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]WorkoutView, 0, len(records))
	for _, record := range records {
		items = append(items, toWorkoutView(record))
	}

	writeJSON(w, http.StatusOK, ListWorkoutsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) powerBuckets(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireRead(w, r)
	if !ok {
		return
	}

	buckets, err := h.service.PowerBucketsFor(r.Context(), claims.TenantID, id)
	if err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PowerBucketsResponse{
		WorkoutID: id,
		Buckets:   buckets,
	})
}

func (h *Handler) personalRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := requireRead(w, r)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	prs, err := h.service.PersonalRecords(r.Context(), claims.TenantID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]PRView, 0, len(prs))
	for _, pr := range prs {
		items = append(items, toPRView(pr))
	}
	writeJSON(w, http.StatusOK, PersonalRecordsResponse{Items: items})
}

func (h *Handler) trackedBenchmarks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := requireRead(w, r)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	tracked, err := h.service.TrackedBenchmarks(r.Context(), claims.TenantID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, TrackedBenchmarksResponse{Benchmarks: tracked})
}

// requireRead authenticates the request and enforces read access. Writers may
// read as well.
func requireRead(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(auth.ScopeWorkoutsRead) && !claims.HasScope(auth.ScopeWorkoutsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:read required")
		return nil, false
	}
	return claims, true
}

// IngestWorkoutRequest is the payload for POST /v1/workouts.
type IngestWorkoutRequest struct {
	UserID          string          `json:"user_id"`
	Source          string          `json:"source"`
	CompletedAt     time.Time       `json:"completed_at"`
	DistanceMeters  float64         `json:"distance_meters"`
	DurationSeconds float64         `json:"duration_seconds"`
	AvgSplit        float64         `json:"avg_split,omitempty"`
	Telemetry       json.RawMessage `json:"telemetry,omitempty"`
}

// Validate ensures request correctness.
func (r IngestWorkoutRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if strings.TrimSpace(r.Source) == "" {
		return errors.New("source is required")
	}
	if r.CompletedAt.IsZero() {
		return errors.New("completed_at is required")
	}
	if r.DistanceMeters < 0 {
		return errors.New("distance_meters must be >= 0")
	}
	if r.DurationSeconds < 0 {
		return errors.New("duration_seconds must be >= 0")
	}
	return nil
}

// IngestWorkoutResponse reports the stored record and the reconciliation
// outcome (created, superseded, or kept).
type IngestWorkoutResponse struct {
	Workout WorkoutView `json:"workout"`
	Outcome string      `json:"outcome"`
}

// WorkoutView exposes full details about a stored workout.
type WorkoutView struct {
	WorkoutID       string    `json:"workout_id"`
	TenantID        string    `json:"tenant_id"`
	UserID          string    `json:"user_id"`
	Source          string    `json:"source"`
	CompletedAt     time.Time `json:"completed_at"`
	DistanceMeters  float64   `json:"distance_meters"`
	DurationSeconds float64   `json:"duration_seconds"`
	AvgSplit        float64   `json:"avg_split,omitempty"`
	CanonicalName   string    `json:"canonical_name,omitempty"`
	HasTelemetry    bool      `json:"has_telemetry"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListWorkoutsResponse packages list results.
type ListWorkoutsResponse struct {
	Items      []WorkoutView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// PowerBucketsResponse holds the per-workout watt histogram. Bucket keys are
// the floor of each 5W band; values are seconds spent in the band.
type PowerBucketsResponse struct {
	WorkoutID string              `json:"workout_id"`
	Buckets   domain.PowerBuckets `json:"buckets"`
}

// PRView exposes one personal record with display-ready formatting.
type PRView struct {
	DistanceMeters  float64   `json:"distance_meters"`
	Label           string    `json:"label"`
	ShortLabel      string    `json:"short_label"`
	TimeSeconds     float64   `json:"time_seconds"`
	TimeDisplay     string    `json:"time_display"`
	PaceSeconds     float64   `json:"pace_seconds"`
	PaceDisplay     string    `json:"pace_display"`
	Watts           int       `json:"watts"`
	Date            time.Time `json:"date"`
	WorkoutID       string    `json:"workout_id"`
	IsInterval      bool      `json:"is_interval"`
	IntervalPattern string    `json:"interval_pattern,omitempty"`
	Provenance      string    `json:"provenance"`
}

// PersonalRecordsResponse packages the full PR set for a user.
type PersonalRecordsResponse struct {
	Items []PRView `json:"items"`
}

// TrackedBenchmarksResponse maps benchmark labels to best times in seconds,
// filtered by the user's tracking preferences.
type TrackedBenchmarksResponse struct {
	Benchmarks map[string]float64 `json:"benchmarks"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toWorkoutView(record domain.WorkoutRecord) WorkoutView {
	return WorkoutView{
		WorkoutID:       record.ID,
		TenantID:        record.TenantID,
		UserID:          record.UserID,
		Source:          record.Source.String(),
		CompletedAt:     record.CompletedAt,
		DistanceMeters:  record.DistanceM,
		DurationSeconds: record.DurationSeconds,
		AvgSplit:        record.AvgSplit,
		CanonicalName:   record.CanonicalName,
		HasTelemetry:    record.Telemetry.Kind != domain.TelemetryNone,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

func toPRView(pr domain.PRRecord) PRView {
	return PRView{
		DistanceMeters:  pr.DistanceM,
		Label:           pr.Label,
		ShortLabel:      pr.ShortLabel,
		TimeSeconds:     pr.TimeSeconds,
		TimeDisplay:     domain.FormatTime(pr.TimeSeconds),
		PaceSeconds:     pr.PaceSeconds,
		PaceDisplay:     domain.FormatPace(pr.PaceSeconds),
		Watts:           domain.CalculateWatts(pr.PaceSeconds),
		Date:            pr.Date,
		WorkoutID:       pr.WorkoutID,
		IsInterval:      pr.IsInterval,
		IntervalPattern: pr.IntervalPattern,
		Provenance:      string(pr.Provenance),
	}
}
