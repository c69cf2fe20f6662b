package domain

import (
	"sort"
	"strings"
	"time"
)

// Provenance records which scan produced a PR.
type Provenance string

const (
	ProvenanceDistance        Provenance = "distance"
	ProvenanceIntervalSplit   Provenance = "interval_split"
	ProvenanceIntervalSession Provenance = "interval_session"
)

// StandardDistance is a benchmark distance tracked for every athlete.
type StandardDistance struct {
	Meters     float64
	Label      string
	ShortLabel string
}

// StandardDistances lists the distances PRs are kept for, shortest first.
var StandardDistances = []StandardDistance{
	{500, "500m", "500"},
	{1000, "1k", "1k"},
	{2000, "2k", "2k"},
	{5000, "5k", "5k"},
	{6000, "6k", "6k"},
	{10000, "10k", "10k"},
	{21097, "Half Marathon", "HM"},
	{42195, "Marathon", "FM"},
}

// PRRecord is one derived best-ever result. Records are recomputed from
// scratch on every aggregation pass and never updated incrementally.
type PRRecord struct {
	DistanceM       float64
	Label           string
	ShortLabel      string
	TimeSeconds     float64
	PaceSeconds     float64 // seconds per 500m
	Date            time.Time
	WorkoutID       string
	IsInterval      bool
	IntervalPattern string
	Provenance      Provenance
}

type distanceBest struct {
	workout WorkoutRecord
	time    float64
	split   bool
}

type intervalBest struct {
	workout  WorkoutRecord
	avgSplit float64
}

// CalculatePRs scans a user's full workout history and returns their best
// result at each standard distance and each recurring interval pattern.
// It is a pure function of its input: two passes over identical history
// produce identical output, including ordering.
func CalculatePRs(workouts []WorkoutRecord, tol Tolerances) []PRRecord {
	distanceBests := make(map[float64]distanceBest)
	intervalBests := make(map[string]intervalBest)

	for _, workout := range workouts {
		totalDistance := workout.DistanceM
		totalTime := workout.DurationSeconds

		// Implausible pace means corrupt data; drop the whole record.
		if totalDistance > 100 && totalTime > 0 {
			if (totalTime/totalDistance)*500 < tol.MinPlausibleSplit {
				continue
			}
		}

		if totalDistance > 0 && totalTime > 0 {
			for _, std := range StandardDistances {
				if absFloat(totalDistance-std.Meters)/std.Meters < tol.StandardDistanceFraction {
					existing, ok := distanceBests[std.Meters]
					if !ok || totalTime < existing.time {
						distanceBests[std.Meters] = distanceBest{workout: workout, time: totalTime}
					}
					break
				}
			}
		}

		intervals := workout.WorkIntervals()
		if len(intervals) == 0 {
			continue
		}

		if label, avgSplit, ok := sessionPattern(intervals, tol); ok {
			existing, found := intervalBests[label]
			if !found || avgSplit < existing.avgSplit {
				intervalBests[label] = intervalBest{workout: workout, avgSplit: avgSplit}
			}
		}

		for _, iv := range intervals {
			if iv.IsRest() || iv.DistanceM <= 0 || iv.TimeDeci <= 0 {
				continue
			}
			timeSeconds := iv.TimeDeci / 10
			if (timeSeconds/iv.DistanceM)*500 < tol.MinPlausibleSplit {
				continue
			}
			for _, std := range StandardDistances {
				if absFloat(iv.DistanceM-std.Meters) < tol.DistanceMeters {
					existing, ok := distanceBests[std.Meters]
					if !ok || timeSeconds < existing.time {
						distanceBests[std.Meters] = distanceBest{workout: workout, time: timeSeconds, split: true}
					}
					break
				}
			}
		}
	}

	prs := make([]PRRecord, 0, len(distanceBests)+len(intervalBests))

	for _, std := range StandardDistances {
		best, ok := distanceBests[std.Meters]
		if !ok {
			continue
		}
		provenance := ProvenanceDistance
		if best.split {
			provenance = ProvenanceIntervalSplit
		}
		prs = append(prs, PRRecord{
			DistanceM:   std.Meters,
			Label:       std.Label,
			ShortLabel:  std.ShortLabel,
			TimeSeconds: best.time,
			PaceSeconds: (best.time / std.Meters) * 500,
			Date:        best.workout.CompletedAt,
			WorkoutID:   best.workout.ID,
			Provenance:  provenance,
		})
	}

	labels := make([]string, 0, len(intervalBests))
	for label := range intervalBests {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		best := intervalBests[label]
		prs = append(prs, PRRecord{
			DistanceM:       best.workout.DistanceM,
			Label:           label,
			ShortLabel:      label,
			TimeSeconds:     best.workout.DurationSeconds,
			PaceSeconds:     best.avgSplit,
			Date:            best.workout.CompletedAt,
			WorkoutID:       best.workout.ID,
			IsInterval:      true,
			IntervalPattern: label,
			Provenance:      ProvenanceIntervalSession,
		})
	}

	sort.SliceStable(prs, func(i, j int) bool {
		if prs[i].IsInterval != prs[j].IsInterval {
			return !prs[i].IsInterval
		}
		return prs[i].DistanceM < prs[j].DistanceM
	})

	return prs
}

// sessionPattern names a workout's interval structure and computes its
// session-average split. A name only counts as a recurring pattern when it
// carries a multiplier marker and is not a trivial single piece.
func sessionPattern(intervals []Interval, tol Tolerances) (string, float64, bool) {
	name := CanonicalName(intervals, tol)
	if name == NameUnknown || name == NameRestOnly || name == NameUnstructured {
		return "", 0, false
	}
	if !strings.Contains(name, "x") && !strings.Contains(name, "v") && !strings.Contains(name, "Pyramid") {
		return "", 0, false
	}
	if strings.HasPrefix(name, "1x") {
		return "", 0, false
	}

	var workTimeDeci, workDist float64
	for _, iv := range intervals {
		if iv.IsRest() {
			continue
		}
		workTimeDeci += iv.TimeDeci
		workDist += iv.DistanceM
	}
	if workDist <= 0 {
		return "", 0, false
	}

	avgSplit := (workTimeDeci / 10 / workDist) * 500
	if avgSplit <= tol.MinPlausibleSplit {
		return "", 0, false
	}
	return name, avgSplit, true
}

// BenchmarkPreference is one entry of a user's tracked-benchmark settings.
type BenchmarkPreference struct {
	IsTracked       bool
	WorkingBaseline string
}

// BenchmarkPreferences is a read-only snapshot of the user's preference map,
// supplied by the profile store and passed into filtering explicitly.
type BenchmarkPreferences map[string]BenchmarkPreference

// FilterTracked reduces a PR set to the {label: best time} mapping that gets
// persisted for display. Labels absent from the preference map are tracked
// by default.
func FilterTracked(prs []PRRecord, prefs BenchmarkPreferences) map[string]float64 {
	out := make(map[string]float64, len(prs))
	for _, pr := range prs {
		if pref, ok := prefs[pr.Label]; ok && !pref.IsTracked {
			continue
		}
		out[pr.Label] = pr.TimeSeconds
	}
	return out
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
