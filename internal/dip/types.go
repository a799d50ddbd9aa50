// Package dip watches for the short temperature drop that can precede
// ovulation and tracks the resulting warning across engine runs.
package dip

import (
	"fmt"
	"time"

	"github.com/daverage/bbtrack/internal/ovulation"
)

// State is the monitor's persisted state.
type State string

const (
	StateNoWarning     State = "no_warning"
	StateWarningActive State = "warning_active"
)

// Transition names what happened to the warning during one evaluation.
type Transition string

const (
	TransitionNone      Transition = "none"
	TransitionCreated   Transition = "created"
	TransitionConfirmed Transition = "confirmed"
	TransitionRefuted   Transition = "refuted"
	TransitionExpired   Transition = "expired"
)

// Warning is the advisory raised by a dip. The zero value means no warning.
type Warning struct {
	Active         bool      `json:"active"`
	DipDate        time.Time `json:"dip_date"`
	DipTemperature float64   `json:"dip_temperature"`
	BaselineMean   float64   `json:"baseline_mean"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	CreatedAt      time.Time `json:"created_at"`
}

// State reports which monitor state the warning represents.
func (w Warning) State() State {
	if w.Active {
		return StateWarningActive
	}
	return StateNoWarning
}

// Show reports whether the warning should be displayed.
func (w Warning) Show() bool {
	return w.Active
}

// Outcome is the result of one evaluation. Ended is the terminal transition of
// the previous warning, if any; Created is set when a new warning replaced it.
type Outcome struct {
	Warning Warning
	Ended   Transition
	Created bool
}

// Transition returns the most significant change of the evaluation.
func (o Outcome) Transition() Transition {
	switch {
	case o.Created:
		return TransitionCreated
	case o.Ended != "":
		return o.Ended
	default:
		return TransitionNone
	}
}

// Params tunes the dip monitor.
type Params struct {
	// Threshold is how far below the baseline mean a reading must fall.
	Threshold float64
	// LookbackDays bounds the calendar span searched for baseline readings.
	LookbackDays int
	MaxBaseline  int
	MinBaseline  int
	// RefuteAfter readings following the dip are inspected for a rise; fewer
	// than MinRises of them above DipTemperature+RiseMargin refutes it.
	RefuteAfter int
	MinRises    int
	RiseMargin  float64
	// ExpiryDays is the age in calendar days at which a warning lapses.
	ExpiryDays int
	WindowDays int
	Location   *time.Location
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{
		Threshold:    0.15,
		LookbackDays: 6,
		MaxBaseline:  5,
		MinBaseline:  3,
		RefuteAfter:  4,
		MinRises:     3,
		RiseMargin:   0.2,
		ExpiryDays:   3,
		WindowDays:   3,
		Location:     time.Local,
	}
}

// Validate rejects configurations the monitor cannot evaluate.
func (p Params) Validate() error {
	switch {
	case p.Threshold < 0:
		return fmt.Errorf("%w: dip threshold must not be negative, got %g", ovulation.ErrContract, p.Threshold)
	case p.LookbackDays <= 0:
		return fmt.Errorf("%w: dip lookback days must be positive, got %d", ovulation.ErrContract, p.LookbackDays)
	case p.MinBaseline <= 0 || p.MinBaseline > p.MaxBaseline:
		return fmt.Errorf("%w: dip baseline must satisfy 0 < min <= max, got %d..%d", ovulation.ErrContract, p.MinBaseline, p.MaxBaseline)
	case p.MinRises <= 0 || p.MinRises > p.RefuteAfter:
		return fmt.Errorf("%w: dip rises must satisfy 0 < min rises <= refute after, got %d/%d", ovulation.ErrContract, p.MinRises, p.RefuteAfter)
	case p.ExpiryDays <= 0:
		return fmt.Errorf("%w: dip expiry days must be positive, got %d", ovulation.ErrContract, p.ExpiryDays)
	case p.WindowDays <= 0:
		return fmt.Errorf("%w: dip window days must be positive, got %d", ovulation.ErrContract, p.WindowDays)
	case p.Location == nil:
		return fmt.Errorf("%w: location is required", ovulation.ErrContract)
	}
	return nil
}
