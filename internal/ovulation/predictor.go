package ovulation

import (
	"fmt"

	"go.uber.org/zap"
)

// Match is the winning detection of one candidate window.
type Match struct {
	Detection
	Window     Window
	Score      Score
	Confidence Confidence
}

// Analysis is the full output of one prediction pass.
type Analysis struct {
	Series      Series
	Variability float64
	Match       *Match
	Result      Result
}

// Predictor runs every detector over every candidate window.
type Predictor struct {
	params    Params
	detectors []Detector
	logger    *zap.Logger
}

// NewPredictor validates params and wires the enabled detectors.
func NewPredictor(p Params, logger *zap.Logger) (*Predictor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Predictor{
		params:    p,
		detectors: Detectors(p),
		logger:    logger,
	}, nil
}

// Params returns the predictor's configuration.
func (pr *Predictor) Params() Params {
	return pr.params
}

// Predict returns only the result of Analyze.
func (pr *Predictor) Predict(readings []Reading) (Result, error) {
	a, err := pr.Analyze(readings)
	if err != nil {
		return Result{}, err
	}
	return a.Result, nil
}

// Analyze preprocesses readings and returns the onset of the most recent
// detected temperature shift. Detections whose rises start within RiseDays of
// each other belong to one shift, and that shift is reported at its first
// window whose opening rise reading already clears the relaxed threshold, so
// the date holds steady as more elevated days arrive. Expected "no answer"
// cases are reported in the result, only contract violations return an error.
func (pr *Predictor) Analyze(readings []Reading) (Analysis, error) {
	series, err := Preprocess(readings, pr.params)
	if err != nil {
		return Analysis{}, err
	}

	a := Analysis{
		Series:      series,
		Variability: PersonalVariability(series.History, pr.params),
	}

	n := series.Len()
	if n < pr.params.MinReadings {
		a.Result = insufficientData(n, a.Variability, pr.params)
		pr.logger.Debug("Not enough readings for ovulation detection",
			zap.Int("readings", n),
			zap.Int("required", pr.params.MinReadings),
		)
		return a, nil
	}

	windows := 0
	var episode []Match
	for i := 1; i < n; i++ {
		w, ok := buildWindow(series.Readings, i, a.Variability, pr.params)
		if !ok {
			continue
		}
		windows++
		m, ok := pr.bestMatch(w)
		if !ok {
			continue
		}
		if len(episode) > 0 && DaysBetween(episode[len(episode)-1].RiseStart, m.RiseStart) > pr.params.RiseDays {
			episode = episode[:0]
		}
		episode = append(episode, m)
		onset := episodeOnset(episode, pr.params)
		a.Match = &onset
	}

	if a.Match == nil {
		a.Result = Result{
			Confidence:   ConfidenceLow,
			Message:      MessageNoPattern,
			Detail:       "No sustained temperature shift found yet. Keep recording every morning.",
			Variability:  a.Variability,
			ReadingsUsed: n,
		}
		pr.logger.Debug("No ovulation pattern found",
			zap.Int("readings", n),
			zap.Int("windows", windows),
			zap.Float64("variability", a.Variability),
		)
		return a, nil
	}

	a.Result = resultFor(*a.Match, n)
	pr.logger.Debug("Ovulation pattern found",
		zap.String("pattern", string(a.Match.Pattern)),
		zap.String("ovulation_date", FormatDate(a.Match.OvulationDate)),
		zap.Float64("score", a.Match.Score.Total),
		zap.String("confidence", string(a.Match.Confidence)),
		zap.Int("windows", windows),
	)
	return a, nil
}

// bestMatch keeps the highest scoring detection of w. Ties go to the detector
// listed first.
func (pr *Predictor) bestMatch(w Window) (Match, bool) {
	var best Match
	found := false
	for _, d := range pr.detectors {
		det, ok := d.Detect(w, pr.params)
		if !ok {
			continue
		}
		score := ScoreDetection(w, det, pr.params)
		m := Match{
			Detection:  det,
			Window:     w,
			Score:      score,
			Confidence: ConfidenceFor(score.Total, w.Completeness, pr.params),
		}
		if !found || beats(m, best) {
			best = m
			found = true
		}
	}
	return best, found
}

// episodeOnset picks the window where a run of overlapping detections
// actually starts: the first one whose opening rise reading is already
// elevated. Later windows of the same shift still see a mostly low baseline
// and would otherwise push the date forward.
func episodeOnset(episode []Match, p Params) Match {
	for _, m := range episode {
		margin := adaptiveThreshold(m.Window, p) * p.RelaxedThresholdFactor
		if above(m.Rise[0].Temperature, m.Window.BaselineMedian, margin) {
			return m
		}
	}
	return episode[len(episode)-1]
}

func beats(a, b Match) bool {
	as, bs := round6(a.Score.Total), round6(b.Score.Total)
	if as != bs {
		return as > bs
	}
	return a.Pattern.priority() < b.Pattern.priority()
}

func insufficientData(have int, variability float64, p Params) Result {
	needed := p.MinReadings - have
	noun := "readings"
	if needed == 1 {
		noun = "reading"
	}
	return Result{
		Confidence:     ConfidenceLow,
		Message:        MessageInsufficientData,
		Detail:         fmt.Sprintf("Log %d more non-fever %s within the last %d days to enable detection.", needed, noun, p.LookbackDays),
		Variability:    variability,
		ReadingsUsed:   have,
		ReadingsNeeded: needed,
	}
}

func resultFor(m Match, used int) Result {
	date := m.OvulationDate
	riseStart := m.RiseStart
	return Result{
		Date:       &date,
		Confidence: m.Confidence,
		Message:    fmt.Sprintf("Ovulation likely on %s", FormatDate(date)),
		Detail: fmt.Sprintf("%s: +%.2f°C over %d days from %s (baseline %d days)",
			m.Pattern.Label(), m.MeanRise, len(m.Rise), FormatDate(riseStart), m.Window.BaselineDays),
		Pattern:      m.Pattern,
		Score:        m.Score.Total,
		RiseStart:    &riseStart,
		BaselineDays: m.Window.BaselineDays,
		DataQuality:  m.Window.Completeness,
		Variability:  m.Window.Variability,
		ReadingsUsed: used,
	}
}
