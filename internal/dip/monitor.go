package dip

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/daverage/bbtrack/internal/ovulation"
)

// Monitor evaluates the dip state machine. It holds no state of its own; the
// previous warning is passed in and the next one returned.
type Monitor struct {
	params Params
	logger *zap.Logger
}

// NewMonitor validates params and returns a monitor.
func NewMonitor(p Params, logger *zap.Logger) (*Monitor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{params: p, logger: logger}, nil
}

// Params returns the monitor's configuration.
func (m *Monitor) Params() Params {
	return m.params
}

// Evaluate advances the warning. history must hold non-fever readings with
// normalized dates in ascending order, as produced by ovulation.Preprocess.
// An active warning is checked for confirmation, refutation and expiry in
// that order; once no warning is active a new dip on the latest reading may
// raise one.
func (m *Monitor) Evaluate(history []ovulation.Reading, prev Warning, result ovulation.Result, now time.Time) Outcome {
	today := ovulation.DateOnly(now, m.params.Location)
	out := Outcome{Warning: prev}

	var cleared Warning
	if prev.Active {
		if t, done := m.resolve(history, prev, result, today); done {
			m.logger.Debug("Dip warning cleared",
				zap.String("transition", string(t)),
				zap.String("dip_date", ovulation.FormatDate(prev.DipDate)),
			)
			out.Ended = t
			out.Warning = Warning{}
			cleared = prev
		}
	}

	if !out.Warning.Active {
		if w, ok := m.detect(history, result, today, now, cleared); ok {
			m.logger.Debug("Dip warning created",
				zap.String("dip_date", ovulation.FormatDate(w.DipDate)),
				zap.Float64("dip_temperature", w.DipTemperature),
				zap.Float64("baseline_mean", w.BaselineMean),
			)
			out.Warning = w
			out.Created = true
		}
	}
	return out
}

func (m *Monitor) resolve(history []ovulation.Reading, w Warning, result ovulation.Result, today time.Time) (Transition, bool) {
	if confirms(result, w.DipDate) {
		return TransitionConfirmed, true
	}
	if m.refuted(history, w) {
		return TransitionRefuted, true
	}
	if ovulation.DaysBetween(w.DipDate, today) >= m.params.ExpiryDays {
		return TransitionExpired, true
	}
	return "", false
}

func confirms(result ovulation.Result, dipDate time.Time) bool {
	return result.Date != nil && !result.Date.Before(dipDate)
}

// refuted reports whether enough readings followed the dip without the rise
// that should come after it.
func (m *Monitor) refuted(history []ovulation.Reading, w Warning) bool {
	var following []ovulation.Reading
	for _, r := range history {
		if r.Date.After(w.DipDate) {
			following = append(following, r)
		}
	}
	if len(following) < m.params.RefuteAfter {
		return false
	}
	rises := 0
	for _, r := range following[:m.params.RefuteAfter] {
		if exceeds(r.Temperature, w.DipTemperature, m.params.RiseMargin) {
			rises++
		}
	}
	return rises < m.params.MinRises
}

func (m *Monitor) detect(history []ovulation.Reading, result ovulation.Result, today, now time.Time, cleared Warning) (Warning, bool) {
	if len(history) == 0 {
		return Warning{}, false
	}
	latest := history[len(history)-1]

	var baseline []float64
	for j := len(history) - 2; j >= 0 && len(baseline) < m.params.MaxBaseline; j-- {
		if ovulation.DaysBetween(history[j].Date, latest.Date) > m.params.LookbackDays {
			break
		}
		baseline = append(baseline, history[j].Temperature)
	}
	if len(baseline) < m.params.MinBaseline {
		return Warning{}, false
	}

	var sum float64
	for _, t := range baseline {
		sum += t
	}
	mean := sum / float64(len(baseline))
	if !exceeds(mean, latest.Temperature, m.params.Threshold) {
		return Warning{}, false
	}

	switch {
	case ovulation.DaysBetween(latest.Date, today) >= m.params.ExpiryDays:
		return Warning{}, false
	case confirms(result, latest.Date):
		return Warning{}, false
	case cleared.Active && cleared.DipDate.Equal(latest.Date):
		return Warning{}, false
	}

	return Warning{
		Active:         true,
		DipDate:        latest.Date,
		DipTemperature: latest.Temperature,
		BaselineMean:   mean,
		WindowStart:    latest.Date,
		WindowEnd:      ovulation.AddDays(latest.Date, m.params.WindowDays-1),
		CreatedAt:      now,
	}, true
}

// exceeds reports a-b > margin, ignoring float noise below a micro-degree.
func exceeds(a, b, margin float64) bool {
	return math.Round((a-b)*1e6) > math.Round(margin*1e6)
}
