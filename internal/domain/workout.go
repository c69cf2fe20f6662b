// Package domain implements the rowing workout inference engine: canonical
// structure naming, personal-record aggregation, power histograms, and
// multi-source reconciliation.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrWorkoutNotFound is returned when a workout cannot be located.
	ErrWorkoutNotFound = errors.New("workout not found")
	// ErrStoreUnavailable wraps repository failures surfaced to callers.
	ErrStoreUnavailable = errors.New("workout store unavailable")
)

// Source identifies where a workout record was ingested from. Sources form a
// quality lattice used during reconciliation; higher values are more trusted.
type Source int

const (
	SourceUnknown Source = iota
	SourceManual
	SourceErgLink
	SourceConcept2
)

// ParseSource maps a stored source tag to its enum value. Unrecognised tags
// rank as unknown rather than failing, since legacy rows carry free-form tags.
func ParseSource(tag string) Source {
	switch tag {
	case "manual":
		return SourceManual
	case "erg_link":
		return SourceErgLink
	case "concept2":
		return SourceConcept2
	default:
		return SourceUnknown
	}
}

func (s Source) String() string {
	switch s {
	case SourceManual:
		return "manual"
	case SourceErgLink:
		return "erg_link"
	case SourceConcept2:
		return "concept2"
	default:
		return "unknown"
	}
}

// Rank returns the position of the source in the quality lattice.
func (s Source) Rank() int { return int(s) }

// IntervalKind discriminates work segments from rest segments.
type IntervalKind string

const (
	IntervalWork IntervalKind = "distance"
	IntervalRest IntervalKind = "rest"
)

// Interval is one labeled segment of a structured workout. Times are in
// deciseconds as delivered by the erg head unit.
type Interval struct {
	Kind          IntervalKind `json:"type"`
	DistanceM     float64      `json:"distance"`
	TimeDeci      float64      `json:"time"`
	RestTimeDeci  float64      `json:"rest_time,omitempty"`
	StrokeRate    int          `json:"stroke_rate,omitempty"`
	Watts         float64      `json:"watts,omitempty"`
	CaloriesTotal int          `json:"calories_total,omitempty"`
}

// IsRest reports whether the segment is recovery rather than work.
func (i Interval) IsRest() bool { return i.Kind == IntervalRest }

// PowerUnit declares how a stroke's power sample is encoded. The erg link
// emits direct watts; the vendor API emits pace in deciseconds per 500m.
type PowerUnit string

const (
	PowerWatts         PowerUnit = "watts"
	PowerPaceDeci      PowerUnit = "pace_deciseconds"
	PowerUnitUndefined PowerUnit = ""
)

// Stroke is one oar stroke sample. Distance and time are cumulative within a
// continuous effort; a decrease signals an interval or session reset.
type Stroke struct {
	DistanceCum float64   `json:"d"`
	TimeDeciCum float64   `json:"t"`
	Power       float64   `json:"p"`
	PowerUnit   PowerUnit `json:"unit,omitempty"`
	StrokeRate  int       `json:"spm,omitempty"`
	HeartRate   int       `json:"hr,omitempty"`
}

// TelemetryKind tags the variant held by a Telemetry value.
type TelemetryKind int

const (
	TelemetryNone TelemetryKind = iota
	TelemetryIntervals
	TelemetryStrokes
)

// Telemetry is the normalized raw payload attached to a workout: either an
// explicit interval structure, a per-stroke series, or nothing. All shape
// sniffing happens once, in ParseTelemetry, at the ingestion boundary.
type Telemetry struct {
	Kind      TelemetryKind
	Intervals []Interval
	Strokes   []Stroke
}

type rawTelemetry struct {
	Workout *struct {
		Intervals []Interval `json:"intervals"`
	} `json:"workout"`
	Intervals []Interval `json:"intervals"`
	Strokes   []Stroke   `json:"strokes"`
}

// ParseTelemetry decodes a raw telemetry document. Vendor payloads are
// sometimes double-encoded (a JSON string containing JSON); one unwrap pass
// is applied before decoding. Unrecognised shapes yield TelemetryNone rather
// than an error so one malformed row never aborts a batch.
func ParseTelemetry(raw []byte) (Telemetry, error) {
	if len(raw) == 0 {
		return Telemetry{Kind: TelemetryNone}, nil
	}

	var doc []byte = raw
	var wrapped string
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		doc = []byte(wrapped)
	}

	var parsed rawTelemetry
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return Telemetry{Kind: TelemetryNone}, fmt.Errorf("decode telemetry: %w", err)
	}

	switch {
	case parsed.Workout != nil && len(parsed.Workout.Intervals) > 0:
		return Telemetry{Kind: TelemetryIntervals, Intervals: parsed.Workout.Intervals}, nil
	case len(parsed.Intervals) > 0:
		return Telemetry{Kind: TelemetryIntervals, Intervals: parsed.Intervals}, nil
	case len(parsed.Strokes) > 0:
		return Telemetry{Kind: TelemetryStrokes, Strokes: parsed.Strokes}, nil
	default:
		return Telemetry{Kind: TelemetryNone}, nil
	}
}

// WorkoutRecord is one completed rowing session as stored. The engine never
// mutates a WorkoutRecord; all results are derived values.
type WorkoutRecord struct {
	ID              string
	TenantID        string
	UserID          string
	Source          Source
	CompletedAt     time.Time
	DistanceM       float64
	DurationSeconds float64
	AvgSplit        float64 // seconds per 500m, 0 if unknown
	CanonicalName   string
	Telemetry       Telemetry
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WorkIntervals resolves the workout's interval structure: explicit intervals
// when present, otherwise a best-effort reconstruction from strokes.
func (w WorkoutRecord) WorkIntervals() []Interval {
	switch w.Telemetry.Kind {
	case TelemetryIntervals:
		return w.Telemetry.Intervals
	case TelemetryStrokes:
		return ReconstructIntervals(w.Telemetry.Strokes)
	default:
		return nil
	}
}

// Cursor models the pagination token for workout listings.
type Cursor struct {
	CompletedAt time.Time
	ID          string
}
