package domain

import "testing"

func TestCanonicalNameUniformDistance(t *testing.T) {
	tol := DefaultTolerances()

	intervals := make([]Interval, 10)
	for i := range intervals {
		intervals[i] = Interval{Kind: IntervalWork, DistanceM: 500, TimeDeci: 1050}
	}

	if got := CanonicalName(intervals, tol); got != "10x500m" {
		t.Fatalf("expected 10x500m got %q", got)
	}
}

func TestCanonicalNameUniformDistanceWithRest(t *testing.T) {
	tol := DefaultTolerances()

	intervals := []Interval{
		{Kind: IntervalWork, DistanceM: 500, TimeDeci: 1050, RestTimeDeci: 1800},
		{Kind: IntervalWork, DistanceM: 500, TimeDeci: 1060, RestTimeDeci: 1800},
		{Kind: IntervalWork, DistanceM: 500, TimeDeci: 1045, RestTimeDeci: 1800},
		{Kind: IntervalWork, DistanceM: 500, TimeDeci: 1052, RestTimeDeci: 1800},
	}

	if got := CanonicalName(intervals, tol); got != "4x500m/3:00r" {
		t.Fatalf("expected 4x500m/3:00r got %q", got)
	}
}

func TestCanonicalNameAveragesNearUniformDistances(t *testing.T) {
	tol := DefaultTolerances()

	intervals := []Interval{
		{Kind: IntervalWork, DistanceM: 500, TimeDeci: 1050},
		{Kind: IntervalWork, DistanceM: 504, TimeDeci: 1060},
	}

	if got := CanonicalName(intervals, tol); got != "2x502m" {
		t.Fatalf("expected 2x502m got %q", got)
	}
}

func TestCanonicalNameUniformTime(t *testing.T) {
	tol := DefaultTolerances()

	intervals := []Interval{
		{Kind: IntervalWork, TimeDeci: 3000, RestTimeDeci: 600},
		{Kind: IntervalWork, TimeDeci: 3000, RestTimeDeci: 600},
		{Kind: IntervalWork, TimeDeci: 3000, RestTimeDeci: 600},
	}

	if got := CanonicalName(intervals, tol); got != "3x5:00/1:00r" {
		t.Fatalf("expected 3x5:00/1:00r got %q", got)
	}
}

func TestCanonicalNameUniformCalories(t *testing.T) {
	tol := DefaultTolerances()

	intervals := []Interval{
		{Kind: IntervalWork, CaloriesTotal: 15},
		{Kind: IntervalWork, CaloriesTotal: 16},
		{Kind: IntervalWork, CaloriesTotal: 14},
		{Kind: IntervalWork, CaloriesTotal: 15},
	}

	if got := CanonicalName(intervals, tol); got != "4x15cal" {
		t.Fatalf("expected 4x15cal got %q", got)
	}
}

func TestCanonicalNameUniformWatts(t *testing.T) {
	tol := DefaultTolerances()

	intervals := []Interval{
		{Kind: IntervalWork, Watts: 200},
		{Kind: IntervalWork, Watts: 203},
		{Kind: IntervalWork, Watts: 198},
	}

	if got := CanonicalName(intervals, tol); got != "3x200W" {
		t.Fatalf("expected 3x200W got %q", got)
	}
}

func TestCanonicalNameRepeatingChunks(t *testing.T) {
	tol := DefaultTolerances()

	var intervals []Interval
	for i := 0; i < 3; i++ {
		intervals = append(intervals,
			Interval{Kind: IntervalWork, DistanceM: 750, TimeDeci: 1600},
			Interval{Kind: IntervalWork, DistanceM: 500, TimeDeci: 1050},
			Interval{Kind: IntervalWork, DistanceM: 250, TimeDeci: 500},
		)
	}

	if got := CanonicalName(intervals, tol); got != "3x 750/500/250m" {
		t.Fatalf("expected 3x 750/500/250m got %q", got)
	}
}

func TestCanonicalNamePyramid(t *testing.T) {
	tol := DefaultTolerances()

	intervals := []Interval{
		{Kind: IntervalWork, DistanceM: 500, TimeDeci: 1100},
		{Kind: IntervalWork, DistanceM: 1000, TimeDeci: 2300},
		{Kind: IntervalWork, DistanceM: 500, TimeDeci: 1080},
	}

	if got := CanonicalName(intervals, tol); got != "v500m... Pyramid" {
		t.Fatalf("expected v500m... Pyramid got %q", got)
	}
}

func TestCanonicalNameVariableDistances(t *testing.T) {
	tol := DefaultTolerances()

	intervals := []Interval{
		{Kind: IntervalWork, DistanceM: 400, TimeDeci: 900},
		{Kind: IntervalWork, DistanceM: 600, TimeDeci: 1400},
		{Kind: IntervalWork, DistanceM: 800, TimeDeci: 1900},
	}

	if got := CanonicalName(intervals, tol); got != "v400/600/800m" {
		t.Fatalf("expected v400/600/800m got %q", got)
	}
}

func TestCanonicalNameVariableTimes(t *testing.T) {
	tol := DefaultTolerances()

	intervals := []Interval{
		{Kind: IntervalWork, TimeDeci: 600},
		{Kind: IntervalWork, TimeDeci: 1200},
	}

	if got := CanonicalName(intervals, tol); got != "v1:00/2:00" {
		t.Fatalf("expected v1:00/2:00 got %q", got)
	}
}

func TestCanonicalNameUnstructured(t *testing.T) {
	tol := DefaultTolerances()

	dists := []float64{416, 899, 1355, 1019, 9}
	intervals := make([]Interval, len(dists))
	for i, d := range dists {
		intervals[i] = Interval{Kind: IntervalWork, DistanceM: d}
	}

	if got := CanonicalName(intervals, tol); got != NameUnstructured {
		t.Fatalf("expected Unstructured got %q", got)
	}
}

func TestCanonicalNameEdges(t *testing.T) {
	tol := DefaultTolerances()

	if got := CanonicalName(nil, tol); got != NameUnknown {
		t.Fatalf("expected Unknown got %q", got)
	}

	restOnly := []Interval{{Kind: IntervalRest, TimeDeci: 600}}
	if got := CanonicalName(restOnly, tol); got != NameRestOnly {
		t.Fatalf("expected Rest Only got %q", got)
	}
}

func TestCanonicalNameIgnoresRestSegments(t *testing.T) {
	tol := DefaultTolerances()

	intervals := []Interval{
		{Kind: IntervalWork, DistanceM: 500, TimeDeci: 1050},
		{Kind: IntervalRest, TimeDeci: 1800},
		{Kind: IntervalWork, DistanceM: 500, TimeDeci: 1060},
		{Kind: IntervalRest, TimeDeci: 1800},
	}

	if got := CanonicalName(intervals, tol); got != "2x500m" {
		t.Fatalf("expected 2x500m got %q", got)
	}
}

func TestFormatRest(t *testing.T) {
	cases := []struct {
		sec  float64
		want string
	}{
		{300, "5:00"},
		{30, "30s"},
		{210, "3:30"},
	}
	for _, tc := range cases {
		if got := FormatRest(tc.sec); got != tc.want {
			t.Fatalf("FormatRest(%v) = %q, want %q", tc.sec, got, tc.want)
		}
	}
}
