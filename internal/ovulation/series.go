package ovulation

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Series is the analysis working set.
type Series struct {
	// Readings holds the non-fever readings of the lookback window, oldest first.
	Readings []Reading
	// History holds every non-fever reading, oldest first. Personal
	// variability is estimated over it.
	History       []Reading
	FeverExcluded int
	Latest        time.Time
}

// Len returns the number of readings available for pattern detection.
func (s Series) Len() int {
	return len(s.Readings)
}

// Preprocess validates readings, drops fever days, sorts by calendar date and
// keeps the lookback window ending at the latest reading.
func Preprocess(readings []Reading, p Params) (Series, error) {
	if err := p.Validate(); err != nil {
		return Series{}, err
	}

	var series Series
	seen := make(map[string]struct{}, len(readings))
	history := make([]Reading, 0, len(readings))

	for _, r := range readings {
		if r.Date.IsZero() {
			return Series{}, fmt.Errorf("%w: reading without a date", ErrContract)
		}
		if math.IsNaN(r.Temperature) || math.IsInf(r.Temperature, 0) {
			return Series{}, fmt.Errorf("%w: non-finite temperature on %s", ErrContract, FormatDate(r.Date))
		}
		r.Date = DateOnly(r.Date, p.Location)
		key := FormatDate(r.Date)
		if _, dup := seen[key]; dup {
			return Series{}, fmt.Errorf("%w: more than one reading for %s", ErrContract, key)
		}
		seen[key] = struct{}{}

		if r.Fever {
			series.FeverExcluded++
			continue
		}
		history = append(history, r)
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date.Before(history[j].Date)
	})
	series.History = history
	if len(history) == 0 {
		return series, nil
	}

	series.Latest = history[len(history)-1].Date
	start := sort.Search(len(history), func(i int) bool {
		return DaysBetween(history[i].Date, series.Latest) <= p.LookbackDays
	})
	series.Readings = history[start:]
	return series, nil
}

// Window is the baseline/rise view around candidate index Index.
type Window struct {
	Index          int
	RiseStart      time.Time
	Baseline       []Reading
	BaselineMedian float64
	BaselineMean   float64
	BaselineDays   int
	Completeness   float64
	// Rise holds up to SustainedMaxDays readings from Index whose gaps stay
	// within MaxRiseGapDays.
	Rise []Reading
	// Prior holds up to BaselineDays readings right before Index, regardless
	// of calendar gaps.
	Prior       []Reading
	Variability float64
}

// buildWindow assembles the window for candidate index i. It returns false
// when the baseline has too few calendar days present.
func buildWindow(readings []Reading, i int, variability float64, p Params) (Window, bool) {
	if i <= 0 || i >= len(readings) {
		return Window{}, false
	}
	start := readings[i].Date

	var baseline []Reading
	for j := i - 1; j >= 0; j-- {
		if DaysBetween(readings[j].Date, start) > p.BaselineDays {
			break
		}
		baseline = append(baseline, readings[j])
	}
	if len(baseline) < p.MinBaselineDays {
		return Window{}, false
	}
	for l, r := 0, len(baseline)-1; l < r; l, r = l+1, r-1 {
		baseline[l], baseline[r] = baseline[r], baseline[l]
	}

	riseCap := p.SustainedMaxDays
	if p.RiseDays > riseCap {
		riseCap = p.RiseDays
	}
	rise := []Reading{readings[i]}
	for k := i + 1; k < len(readings) && len(rise) < riseCap; k++ {
		if DaysBetween(readings[k-1].Date, readings[k].Date) > p.MaxRiseGapDays {
			break
		}
		rise = append(rise, readings[k])
	}

	priorStart := i - p.BaselineDays
	if priorStart < 0 {
		priorStart = 0
	}

	temps := temperatures(baseline)
	return Window{
		Index:          i,
		RiseStart:      start,
		Baseline:       baseline,
		BaselineMedian: median(temps),
		BaselineMean:   mean(temps),
		BaselineDays:   len(baseline),
		Completeness:   float64(len(baseline)) / float64(p.BaselineDays),
		Rise:           rise,
		Prior:          readings[priorStart:i],
		Variability:    variability,
	}, true
}

// adaptiveThreshold is the rise above the baseline median a reading needs to
// count as elevated.
func adaptiveThreshold(w Window, p Params) float64 {
	t := p.BaseThreshold + math.Min(w.Variability*p.VariabilityWeight, p.VariabilityCap)
	if w.Completeness < p.LowQualityCutoff {
		t -= p.LowQualityRelief
	}
	return t
}

// PersonalVariability estimates baseline noise as the configured percentile
// of rolling median-absolute-deviation windows over history.
func PersonalVariability(history []Reading, p Params) float64 {
	if len(history) < p.VariabilityWindow {
		return p.DefaultVariability
	}
	temps := temperatures(history)
	mads := make([]float64, 0, len(temps)-p.VariabilityWindow+1)
	for i := 0; i+p.VariabilityWindow <= len(temps); i++ {
		mads = append(mads, medianAbsoluteDeviation(temps[i:i+p.VariabilityWindow]))
	}
	return percentile(mads, p.VariabilityPercentile)
}
