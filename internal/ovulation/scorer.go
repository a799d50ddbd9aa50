package ovulation

import "math"

// Score weights; they add up to 100.
const (
	completenessWeight = 30.0
	magnitudeFactor    = 80.0
	magnitudeCap       = 25.0
	consistencyWeight  = 25.0
	personalFitWeight  = 20.0

	expectedRiseBase        = 0.2
	expectedRiseVariability = 0.5
)

// Score breaks a detection's confidence score into its components.
type Score struct {
	Total        float64 `json:"total"`
	Completeness float64 `json:"completeness"`
	Magnitude    float64 `json:"magnitude"`
	Consistency  float64 `json:"consistency"`
	PersonalFit  float64 `json:"personal_fit"`
}

// ScoreDetection grades a detection from its window's data completeness, the
// size and steadiness of the rise, and how well the rise matches what this
// tracker's noise level predicts.
func ScoreDetection(w Window, d Detection, p Params) Score {
	var s Score
	s.Completeness = float64(w.BaselineDays) / float64(p.BaselineDays) * completenessWeight
	s.Magnitude = clamp(d.MeanRise*magnitudeFactor, 0, magnitudeCap)

	pairs := len(d.Rise) - 1
	steady := 0
	for i := 1; i < len(d.Rise); i++ {
		drop := d.Rise[i-1].Temperature - d.Rise[i].Temperature
		if round6(drop) <= round6(p.RegressionTolerance) {
			steady++
		}
	}
	fraction := 1.0
	if pairs > 0 {
		fraction = float64(steady) / float64(pairs)
	}
	s.Consistency = fraction * consistencyWeight

	expected := expectedRiseBase + expectedRiseVariability*w.Variability
	fit := 0.0
	if expected > 0 {
		fit = clamp(1-math.Abs(d.MeanRise-expected)/expected, 0, 1)
	}
	s.PersonalFit = fit * personalFitWeight

	s.Total = s.Completeness + s.Magnitude + s.Consistency + s.PersonalFit
	return s
}

// ConfidenceFor maps a score to a level, then caps it by baseline completeness.
func ConfidenceFor(score, completeness float64, p Params) Confidence {
	level := ConfidenceLow
	switch {
	case score >= p.HighScore:
		level = ConfidenceHigh
	case score >= p.MediumScore:
		level = ConfidenceMedium
	}

	switch {
	case round6(completeness) < round6(p.LowCompleteness):
		level = ConfidenceLow
	case round6(completeness) < round6(p.HighCompleteness) && level == ConfidenceHigh:
		level = ConfidenceMedium
	}
	return level
}
