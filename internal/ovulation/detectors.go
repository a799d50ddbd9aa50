package ovulation

import (
	"math"
	"time"
)

// Detection is a single detector match on a window.
type Detection struct {
	Pattern       PatternType
	RiseStart     time.Time
	OvulationDate time.Time
	Rise          []Reading
	MeanRise      float64
}

// Detector tests one biological signature of ovulation on a window.
type Detector interface {
	Pattern() PatternType
	Detect(w Window, p Params) (Detection, bool)
}

// Detectors returns the enabled detectors in priority order.
func Detectors(p Params) []Detector {
	ds := []Detector{ThreeOverSix{}, SustainedRise{}, BiphasicShift{}}
	if p.SevenDayEnabled {
		ds = append(ds, SevenDayRule{})
	}
	return ds
}

func newDetection(pattern PatternType, w Window, rise []Reading) Detection {
	return Detection{
		Pattern:       pattern,
		RiseStart:     w.RiseStart,
		OvulationDate: AddDays(w.RiseStart, -1),
		Rise:          rise,
		MeanRise:      mean(temperatures(rise)) - w.BaselineMedian,
	}
}

// round6 drops floating point noise below a micro-degree so that values such
// as 36.3-36.1 compare equal to 0.2.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func above(temp, base, margin float64) bool {
	return round6(temp-base) > round6(margin)
}

func ceilCount(fraction float64, n int) int {
	return int(math.Ceil(round6(fraction * float64(n))))
}

// ThreeOverSix looks for rise readings clearly above the median of the
// preceding six calendar days.
type ThreeOverSix struct{}

func (ThreeOverSix) Pattern() PatternType { return PatternThreeOverSix }

func (ThreeOverSix) Detect(w Window, p Params) (Detection, bool) {
	if len(w.Rise) < p.RiseDays {
		return Detection{}, false
	}
	rise := w.Rise[:p.RiseDays]
	threshold := adaptiveThreshold(w, p)
	relaxed := threshold * p.RelaxedThresholdFactor

	var overThreshold, overRelaxed, overMedian int
	for _, r := range rise {
		if above(r.Temperature, w.BaselineMedian, threshold) {
			overThreshold++
		}
		if above(r.Temperature, w.BaselineMedian, relaxed) {
			overRelaxed++
		}
		if above(r.Temperature, w.BaselineMedian, 0) {
			overMedian++
		}
	}

	required := ceilCount(2.0/3.0, p.RiseDays)
	if overThreshold >= required || (overMedian == len(rise) && overRelaxed >= required) {
		return newDetection(PatternThreeOverSix, w, rise), true
	}
	return Detection{}, false
}

// SustainedRise catches slower shifts spread over four or five consecutive days.
type SustainedRise struct{}

func (SustainedRise) Pattern() PatternType { return PatternSustainedRise }

func (SustainedRise) Detect(w Window, p Params) (Detection, bool) {
	margin := adaptiveThreshold(w, p) * p.SustainedThresholdFactor
	for days := p.SustainedMaxDays; days >= p.SustainedMinDays; days-- {
		if len(w.Rise) < days {
			continue
		}
		rise := w.Rise[:days]
		if !consecutiveRun(rise) {
			continue
		}
		elevated := 0
		for _, r := range rise {
			if above(r.Temperature, w.BaselineMedian, margin) {
				elevated++
			}
		}
		meanRise := mean(temperatures(rise)) - w.BaselineMedian
		if elevated >= ceilCount(p.SustainedFraction, days) && round6(meanRise) >= round6(p.RiseThreshold) {
			return newDetection(PatternSustainedRise, w, rise), true
		}
	}
	return Detection{}, false
}

func consecutiveRun(readings []Reading) bool {
	for i := 1; i < len(readings); i++ {
		if !consecutiveDays(readings[i-1].Date, readings[i].Date) {
			return false
		}
	}
	return true
}

// BiphasicShift matches a clean two-level curve: the rise median sits in a
// narrow band above the baseline median.
type BiphasicShift struct{}

func (BiphasicShift) Pattern() PatternType { return PatternBiphasic }

func (BiphasicShift) Detect(w Window, p Params) (Detection, bool) {
	if len(w.Rise) < p.RiseDays {
		return Detection{}, false
	}
	rise := w.Rise[:p.RiseDays]
	shift := round6(median(temperatures(rise)) - w.BaselineMedian)
	if shift >= round6(p.BiphasicMin) && shift < round6(p.BiphasicMax) {
		return newDetection(PatternBiphasic, w, rise), true
	}
	return Detection{}, false
}

// SevenDayRule is the simple legacy heuristic: a reading at least
// SevenDayRise above the mean of the six readings before it, with the next
// two readings (when present) staying above that mean.
type SevenDayRule struct{}

func (SevenDayRule) Pattern() PatternType { return PatternSevenDay }

func (SevenDayRule) Detect(w Window, p Params) (Detection, bool) {
	if len(w.Prior) < p.BaselineDays || len(w.Rise) == 0 {
		return Detection{}, false
	}
	avg := mean(temperatures(w.Prior))
	if round6(w.Rise[0].Temperature-avg) < round6(p.SevenDayRise) {
		return Detection{}, false
	}
	n := len(w.Rise)
	if n > 3 {
		n = 3
	}
	rise := w.Rise[:n]
	for _, r := range rise[1:] {
		if !above(r.Temperature, avg, 0) {
			return Detection{}, false
		}
	}
	return newDetection(PatternSevenDay, w, rise), true
}
