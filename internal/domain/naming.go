package domain

import (
	"fmt"
	"math"
	"strings"
)

// Canonical names returned when no structure can be inferred.
const (
	NameUnknown      = "Unknown"
	NameRestOnly     = "Rest Only"
	NameUnstructured = "Unstructured"
)

// CanonicalName classifies an interval sequence into a canonical structural
// name such as "4x500m/3:00r", "v750/500/250m", or "Unstructured". The
// cascade runs cheap exact checks (uniform distance, time, calories, watts,
// repeating chunks) before lossy heuristics (pyramid, bounded variable list)
// so that genuinely irregular efforts land on "Unstructured" instead of
// polluting benchmark displays. It never fails.
func CanonicalName(intervals []Interval, tol Tolerances) string {
	if len(intervals) == 0 {
		return NameUnknown
	}

	work := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.IsRest() {
			work = append(work, iv)
		}
	}
	if len(work) == 0 {
		return NameRestOnly
	}

	count := len(work)
	first := work[0]
	rest := restSuffix(first.RestTimeDeci)

	if first.DistanceM > 0 && uniformWithin(work, tol.DistanceMeters, func(iv Interval) float64 { return iv.DistanceM }) {
		var sum float64
		for _, iv := range work {
			sum += iv.DistanceM
		}
		return fmt.Sprintf("%dx%.0fm%s", count, sum/float64(count), rest)
	}

	if first.TimeDeci > 0 && uniformWithin(work, tol.TimeDeciseconds, func(iv Interval) float64 { return iv.TimeDeci }) {
		return fmt.Sprintf("%dx%s%s", count, formatDuration(first.TimeDeci/10), rest)
	}

	if first.CaloriesTotal > 0 {
		uniformCal := true
		for _, iv := range work {
			if iv.CaloriesTotal == 0 || abs(iv.CaloriesTotal-first.CaloriesTotal) > tol.Calories {
				uniformCal = false
				break
			}
		}
		if uniformCal {
			return fmt.Sprintf("%dx%dcal%s", count, first.CaloriesTotal, rest)
		}
	}

	if first.Watts > 0 {
		uniformWatts := true
		for _, iv := range work {
			if iv.Watts == 0 || math.Abs(iv.Watts-first.Watts) > tol.Watts {
				uniformWatts = false
				break
			}
		}
		if uniformWatts {
			return fmt.Sprintf("%dx%.0fW%s", count, first.Watts, rest)
		}
	}

	dists := make([]int, count)
	for i, iv := range work {
		dists[i] = int(math.Round(iv.DistanceM))
	}

	// Repeating sub-pattern, e.g. 750/500/250 x 3.
	for k := 2; k <= count/2; k++ {
		if count%k != 0 {
			continue
		}
		matches := true
		for i := k; i < count && matches; i++ {
			if dists[i] != dists[i%k] {
				matches = false
			}
		}
		if matches {
			parts := make([]string, k)
			for j := 0; j < k; j++ {
				parts[j] = fmt.Sprintf("%d", dists[j])
			}
			return fmt.Sprintf("%dx %sm%s", count/k, strings.Join(parts, "/"), rest)
		}
	}

	if count >= 3 && dists[0] == dists[count-1] && dists[count/2] > dists[0] {
		return fmt.Sprintf("v%dm... Pyramid", dists[0])
	}

	if count > 0 && count < 8 {
		allTens := true
		for _, d := range dists {
			if d == 0 || d%10 != 0 {
				allTens = false
				break
			}
		}
		if allTens {
			parts := make([]string, count)
			for i, d := range dists {
				parts[i] = fmt.Sprintf("%d", d)
			}
			return fmt.Sprintf("v%sm", strings.Join(parts, "/"))
		}

		allWholeSeconds := true
		for _, iv := range work {
			if iv.TimeDeci <= 0 || math.Mod(iv.TimeDeci, 10) != 0 {
				allWholeSeconds = false
				break
			}
		}
		if allWholeSeconds {
			parts := make([]string, count)
			for i, iv := range work {
				parts[i] = formatDuration(iv.TimeDeci / 10)
			}
			return fmt.Sprintf("v%s", strings.Join(parts, "/"))
		}
	}

	return NameUnstructured
}

// FormatRest renders a rest duration in seconds the way programmed pieces
// display it: whole minutes as "5:00", sub-minute as "30s", mixed as "3:30".
func FormatRest(sec float64) string {
	m := int(sec) / 60
	s := int(sec) % 60
	if m > 0 && s == 0 {
		return fmt.Sprintf("%d:00", m)
	}
	if m == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func restSuffix(restDeci float64) string {
	sec := restDeci / 10
	if sec <= 0 {
		return ""
	}
	return fmt.Sprintf("/%sr", FormatRest(sec))
}

// formatDuration renders seconds as M:SS, dropping fractional seconds only
// when the value is whole.
func formatDuration(sec float64) string {
	m := math.Floor(sec / 60)
	s := sec - m*60
	if s == 0 {
		return fmt.Sprintf("%.0f:00", m)
	}
	if s == math.Trunc(s) {
		return fmt.Sprintf("%.0f:%02.0f", m, s)
	}
	return fmt.Sprintf("%.0f:%04.1f", m, s)
}

func uniformWithin(work []Interval, window float64, value func(Interval) float64) bool {
	first := value(work[0])
	for _, iv := range work {
		if math.Abs(value(iv)-first) >= window {
			return false
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
