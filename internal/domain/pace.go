package domain

import (
	"fmt"
	"math"
)

// Concept2's published pace/power relation: watts = 2.80 / (sec per meter)^3.
const wattsConstant = 2.80

// WattsFromSplit converts a 500m split (seconds) to watts, unrounded.
func WattsFromSplit(splitSeconds float64) float64 {
	if splitSeconds <= 0 {
		return 0
	}
	perMeter := splitSeconds / 500
	return wattsConstant / (perMeter * perMeter * perMeter)
}

// CalculateWatts converts a 500m split (seconds) to integer watts.
func CalculateWatts(splitSeconds float64) int {
	if splitSeconds <= 0 {
		return 0
	}
	return int(math.Round(WattsFromSplit(splitSeconds)))
}

// SplitFromWatts is the inverse conversion: split = 500 * (2.80/watts)^(1/3).
func SplitFromWatts(watts float64) float64 {
	if watts <= 0 {
		return 0
	}
	return 500 * math.Cbrt(wattsConstant/watts)
}

// PaceToWatts converts a stroke pace sample in deciseconds per 500m (the
// vendor API encoding, e.g. 1179 = 1:57.9) to integer watts. Inputs at or
// below zero yield 0.
func PaceToWatts(paceDeci float64) int {
	if paceDeci <= 0 {
		return 0
	}
	return CalculateWatts(paceDeci / 10)
}

// FormatTime renders elapsed seconds as M:SS.t (e.g. 420 -> "7:00.0").
func FormatTime(seconds float64) string {
	m := math.Floor(seconds / 60)
	return fmt.Sprintf("%.0f:%04.1f", m, seconds-m*60)
}

// FormatPace renders a 500m split the same way as FormatTime.
func FormatPace(paceSeconds float64) string {
	return FormatTime(paceSeconds)
}

// FormatWatts renders a watt value for display.
func FormatWatts(watts float64) string {
	return fmt.Sprintf("%.0fw", watts)
}
