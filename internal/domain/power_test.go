package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculatePowerBucketsWatts(t *testing.T) {
	strokes := []Stroke{
		{TimeDeciCum: 10, Power: 200, PowerUnit: PowerWatts},
		{TimeDeciCum: 20, Power: 203, PowerUnit: PowerWatts},
		{TimeDeciCum: 30, Power: 207, PowerUnit: PowerWatts},
	}

	buckets := CalculatePowerBuckets(strokes)
	require.Equal(t, PowerBuckets{200: 2, 205: 1}, buckets)
}

func TestCalculatePowerBucketsPace(t *testing.T) {
	// 1:45.0 pace converts to 302W, landing in the 300 bucket.
	strokes := []Stroke{
		{TimeDeciCum: 25, Power: 1050, PowerUnit: PowerPaceDeci},
	}

	buckets := CalculatePowerBuckets(strokes)
	require.Equal(t, PowerBuckets{300: 2.5}, buckets)
}

func TestCalculatePowerBucketsSkipsResets(t *testing.T) {
	strokes := []Stroke{
		{TimeDeciCum: 10, Power: 200, PowerUnit: PowerWatts},
		{TimeDeciCum: 20, Power: 200, PowerUnit: PowerWatts},
		// Interval reset: cumulative time drops, so no delta is attributed.
		{TimeDeciCum: 5, Power: 200, PowerUnit: PowerWatts},
		{TimeDeciCum: 15, Power: 200, PowerUnit: PowerWatts},
	}

	buckets := CalculatePowerBuckets(strokes)
	require.Equal(t, PowerBuckets{200: 3}, buckets)
}

func TestCalculatePowerBucketsSkipsUntaggedSamples(t *testing.T) {
	strokes := []Stroke{
		{TimeDeciCum: 10, Power: 200},
		{TimeDeciCum: 20, Power: 200, PowerUnit: PowerWatts},
	}

	buckets := CalculatePowerBuckets(strokes)
	require.Equal(t, PowerBuckets{200: 1}, buckets)
}

func TestCalculatePowerBucketsEmpty(t *testing.T) {
	require.Empty(t, CalculatePowerBuckets(nil))
}
