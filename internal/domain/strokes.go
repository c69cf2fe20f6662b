package domain

// ReconstructIntervals derives an approximate interval structure from a raw
// stroke series when the workout carries no explicit intervals. Cumulative
// distance and time are monotonic within one continuous effort, so a drop in
// either marks the start of a new interval. Chunks of fewer than two strokes
// cannot be measured and are dropped. Reconstructed intervals are always
// tagged as work; rest periods between efforts are not recoverable from the
// stroke stream and are left absent rather than guessed.
func ReconstructIntervals(strokes []Stroke) []Interval {
	if len(strokes) == 0 {
		return nil
	}

	var out []Interval
	closeChunk := func(chunk []Stroke) {
		if len(chunk) < 2 {
			return
		}
		last := chunk[len(chunk)-1]
		out = append(out, Interval{
			Kind:      IntervalWork,
			DistanceM: last.DistanceCum,
			TimeDeci:  last.TimeDeciCum,
		})
	}

	chunk := []Stroke{strokes[0]}
	prev := strokes[0]
	for _, s := range strokes[1:] {
		if s.DistanceCum < prev.DistanceCum || s.TimeDeciCum < prev.TimeDeciCum {
			closeChunk(chunk)
			chunk = chunk[:0]
		}
		chunk = append(chunk, s)
		prev = s
	}
	closeChunk(chunk)

	return out
}
