package ovulation

import (
	"fmt"
	"time"
)

// Params holds every tunable constant used by the detectors and the scorer.
type Params struct {
	LookbackDays int
	MinReadings  int

	BaselineDays     int
	MinBaselineDays  int
	RiseDays         int
	SustainedMinDays int
	SustainedMaxDays int
	MaxRiseGapDays   int

	BaseThreshold            float64
	VariabilityWeight        float64
	VariabilityCap           float64
	LowQualityCutoff         float64
	LowQualityRelief         float64
	RelaxedThresholdFactor   float64
	SustainedThresholdFactor float64
	SustainedFraction        float64
	RiseThreshold            float64
	BiphasicMin              float64
	BiphasicMax              float64
	RegressionTolerance      float64

	VariabilityWindow     int
	VariabilityPercentile float64
	DefaultVariability    float64

	HighScore        float64
	MediumScore      float64
	LowCompleteness  float64
	HighCompleteness float64

	SevenDayEnabled bool
	SevenDayRise    float64

	Location *time.Location
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{
		LookbackDays: 30,
		MinReadings:  6,

		BaselineDays:     6,
		MinBaselineDays:  4,
		RiseDays:         3,
		SustainedMinDays: 4,
		SustainedMaxDays: 5,
		MaxRiseGapDays:   2,

		BaseThreshold:            0.25,
		VariabilityWeight:        0.3,
		VariabilityCap:           0.1,
		LowQualityCutoff:         0.8,
		LowQualityRelief:         0.03,
		RelaxedThresholdFactor:   0.8,
		SustainedThresholdFactor: 0.9,
		SustainedFraction:        0.8,
		RiseThreshold:            0.2,
		BiphasicMin:              0.20,
		BiphasicMax:              0.35,
		RegressionTolerance:      0.1,

		VariabilityWindow:     12,
		VariabilityPercentile: 0.75,
		DefaultVariability:    0.15,

		HighScore:        85,
		MediumScore:      65,
		LowCompleteness:  0.67,
		HighCompleteness: 0.85,

		SevenDayEnabled: false,
		SevenDayRise:    0.2,

		Location: time.Local,
	}
}

// Validate rejects window shapes the detectors cannot work with.
func (p Params) Validate() error {
	switch {
	case p.LookbackDays <= 0:
		return fmt.Errorf("%w: lookback days must be positive, got %d", ErrContract, p.LookbackDays)
	case p.MinReadings <= 0:
		return fmt.Errorf("%w: min readings must be positive, got %d", ErrContract, p.MinReadings)
	case p.BaselineDays <= 0:
		return fmt.Errorf("%w: baseline days must be positive, got %d", ErrContract, p.BaselineDays)
	case p.MinBaselineDays <= 0 || p.MinBaselineDays > p.BaselineDays:
		return fmt.Errorf("%w: min baseline days must be in [1, %d], got %d", ErrContract, p.BaselineDays, p.MinBaselineDays)
	case p.RiseDays <= 0:
		return fmt.Errorf("%w: rise days must be positive, got %d", ErrContract, p.RiseDays)
	case p.SustainedMinDays <= 0 || p.SustainedMinDays > p.SustainedMaxDays:
		return fmt.Errorf("%w: sustained rise days must satisfy 0 < min <= max, got %d..%d", ErrContract, p.SustainedMinDays, p.SustainedMaxDays)
	case p.MaxRiseGapDays < 1:
		return fmt.Errorf("%w: max rise gap must be at least one day, got %d", ErrContract, p.MaxRiseGapDays)
	case p.VariabilityWindow < 2:
		return fmt.Errorf("%w: variability window must hold at least two readings, got %d", ErrContract, p.VariabilityWindow)
	case p.VariabilityPercentile < 0 || p.VariabilityPercentile > 1:
		return fmt.Errorf("%w: variability percentile must be in [0, 1], got %g", ErrContract, p.VariabilityPercentile)
	case p.BiphasicMin >= p.BiphasicMax:
		return fmt.Errorf("%w: biphasic band is empty: [%g, %g)", ErrContract, p.BiphasicMin, p.BiphasicMax)
	case p.MediumScore > p.HighScore:
		return fmt.Errorf("%w: medium score %g exceeds high score %g", ErrContract, p.MediumScore, p.HighScore)
	case p.Location == nil:
		return fmt.Errorf("%w: location is required", ErrContract)
	}
	return nil
}
