package domain

// Tolerances gathers the numeric windows used by structural classification
// and PR matching. Callers normally use DefaultTolerances; tests can tighten
// or loosen individual windows per call.
type Tolerances struct {
	// DistanceMeters is the window for treating two interval distances as
	// equal, and for matching an interval split against a standard distance.
	DistanceMeters float64
	// TimeDeciseconds is the window for treating two interval times as equal.
	TimeDeciseconds float64
	// Calories is the window for the uniform-calories classification.
	Calories int
	// Watts is the window for the uniform-watts classification.
	Watts float64
	// MinPlausibleSplit is the fastest believable pace in seconds per 500m.
	// Anything faster is sensor noise and excluded from PR consideration.
	MinPlausibleSplit float64
	// StandardDistanceFraction is the relative window for matching a whole
	// session against a standard distance (0.01 = within 1%).
	StandardDistanceFraction float64
}

// DefaultTolerances mirrors the windows the erg head units themselves use
// when rounding programmed pieces.
func DefaultTolerances() Tolerances {
	return Tolerances{
		DistanceMeters:           5,
		TimeDeciseconds:          10,
		Calories:                 2,
		Watts:                    5,
		MinPlausibleSplit:        50,
		StandardDistanceFraction: 0.01,
	}
}
