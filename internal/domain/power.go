package domain

import "math"

// PowerBuckets maps a watt-bucket floor (multiple of 5) to seconds spent in
// that bucket for one workout.
type PowerBuckets map[int]float64

const powerBucketWidth = 5

// wattsSample resolves a stroke's power reading to watts using its declared
// unit. Samples without a unit tag cannot be interpreted safely (the raw
// field is ambiguous between watts and pace) and are excluded.
func (s Stroke) wattsSample() (int, bool) {
	switch s.PowerUnit {
	case PowerWatts:
		return int(math.Round(s.Power)), true
	case PowerPaceDeci:
		return PaceToWatts(s.Power), true
	default:
		return 0, false
	}
}

// CalculatePowerBuckets builds a time-weighted watt histogram from a stroke
// series. Each stroke's pace sample is attributed the wall-clock time since
// the previous stroke (the first stroke counts from session start at t=0).
// Non-positive time deltas, which appear at interval resets, are skipped so
// nothing is double counted. Bucket seconds are rounded to one decimal for
// display stability.
func CalculatePowerBuckets(strokes []Stroke) PowerBuckets {
	buckets := make(PowerBuckets)
	if len(strokes) == 0 {
		return buckets
	}

	prevDeci := 0.0
	for _, s := range strokes {
		deltaDeci := s.TimeDeciCum - prevDeci
		prevDeci = s.TimeDeciCum
		if deltaDeci <= 0 {
			continue
		}

		watts, ok := s.wattsSample()
		if !ok || watts <= 0 {
			continue
		}

		floor := watts / powerBucketWidth * powerBucketWidth
		buckets[floor] += deltaDeci / 10
	}

	for k, v := range buckets {
		buckets[k] = math.Round(v*10) / 10
	}
	return buckets
}
