// Package inference runs the ovulation predictor and the dip monitor as one
// engine invocation.
package inference

import (
	"time"

	"go.uber.org/zap"

	"github.com/daverage/bbtrack/internal/dip"
	"github.com/daverage/bbtrack/internal/ovulation"
)

// Outcome is everything one invocation produces. Warning is the state the
// caller must persist for the next call.
type Outcome struct {
	Result     ovulation.Result
	Warning    dip.Warning
	Transition dip.Transition
	// Ended is set when the previous warning was cleared, even if a new one
	// was raised in the same call.
	Ended         dip.Transition
	FeverExcluded int
}

// Engine is pure: no I/O, no clock. The same inputs give the same Outcome.
type Engine struct {
	predictor *ovulation.Predictor
	monitor   *dip.Monitor
	logger    *zap.Logger
}

// NewEngine builds the predictor and monitor.
func NewEngine(op ovulation.Params, dp dip.Params, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	predictor, err := ovulation.NewPredictor(op, logger.Named("ovulation"))
	if err != nil {
		return nil, err
	}
	monitor, err := dip.NewMonitor(dp, logger.Named("dip"))
	if err != nil {
		return nil, err
	}
	return &Engine{predictor: predictor, monitor: monitor, logger: logger}, nil
}

// Run predicts ovulation from readings, then advances prev against the result.
func (e *Engine) Run(readings []ovulation.Reading, prev dip.Warning, now time.Time) (Outcome, error) {
	a, err := e.predictor.Analyze(readings)
	if err != nil {
		return Outcome{}, err
	}
	d := e.monitor.Evaluate(a.Series.Readings, prev, a.Result, now)
	return Outcome{
		Result:        a.Result,
		Warning:       d.Warning,
		Transition:    d.Transition(),
		Ended:         d.Ended,
		FeverExcluded: a.Series.FeverExcluded,
	}, nil
}
