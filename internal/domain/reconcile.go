package domain

import "time"

// MatchTolerance bounds how far apart two records may be while still being
// treated as the same real-world session.
type MatchTolerance struct {
	// TimeSeconds is the half-width of the search window around the
	// reference timestamp.
	TimeSeconds float64
	// DistanceMeters bounds the distance delta when both sides carry one.
	DistanceMeters float64
	// DurationSeconds bounds the duration delta when both sides carry one.
	DurationSeconds float64
}

// defaultMatchWindowSeconds applies when the caller leaves the time window
// unset.
const defaultMatchWindowSeconds = 600

// Window returns the effective search half-width.
func (t MatchTolerance) Window() time.Duration {
	seconds := t.TimeSeconds
	if seconds <= 0 {
		seconds = defaultMatchWindowSeconds
	}
	return time.Duration(seconds * float64(time.Second))
}

// MatchCriteria describes a newly ingested workout being reconciled against
// stored records. Distance and duration are optional; zero means absent.
type MatchCriteria struct {
	TenantID        string
	UserID          string
	Date            time.Time
	DistanceM       float64
	DurationSeconds float64
	Tolerance       MatchTolerance
}

// ReconciliationMatch is a transient handle on the stored record a new
// ingestion should reconcile against. It is never persisted.
type ReconciliationMatch struct {
	WorkoutID     string
	Source        Source
	CanonicalName string
}

// ShouldUpgrade reports whether data from newSource should replace a record
// held from existingSource. Equal rank counts as an upgrade so a repeated
// sync from the same source refreshes the record in place.
func ShouldUpgrade(existingSource, newSource Source) bool {
	return newSource.Rank() >= existingSource.Rank()
}

// selectMatch filters window candidates against the supplied criteria and
// picks the survivor closest in time to the reference date. A criterion
// absent on either side is not evaluated and never blocks a match.
func selectMatch(candidates []WorkoutRecord, criteria MatchCriteria) *WorkoutRecord {
	var best *WorkoutRecord
	var bestDelta time.Duration

	for i := range candidates {
		candidate := &candidates[i]

		if criteria.DistanceM > 0 && candidate.DistanceM > 0 {
			if absFloat(candidate.DistanceM-criteria.DistanceM) > criteria.Tolerance.DistanceMeters {
				continue
			}
		}
		if criteria.DurationSeconds > 0 && candidate.DurationSeconds > 0 {
			if absFloat(candidate.DurationSeconds-criteria.DurationSeconds) > criteria.Tolerance.DurationSeconds {
				continue
			}
		}

		delta := candidate.CompletedAt.Sub(criteria.Date)
		if delta < 0 {
			delta = -delta
		}
		if best == nil || delta < bestDelta {
			best = candidate
			bestDelta = delta
		}
	}

	return best
}
