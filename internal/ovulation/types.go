// Package ovulation infers a likely ovulation date from daily basal body
// temperature readings.
package ovulation

import (
	"errors"
	"time"
)

// ErrContract marks input that violates the engine's preconditions. It is a
// programming error on the caller's side, never an expected outcome.
var ErrContract = errors.New("ovulation engine contract violation")

// Reading is one daily temperature record in Celsius.
type Reading struct {
	ID          string    `json:"id,omitempty"`
	Date        time.Time `json:"date"`
	Temperature float64   `json:"temperature"`
	Fever       bool      `json:"fever"`
	Notes       string    `json:"notes,omitempty"`
}

// Confidence grades a prediction.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// rank orders confidence levels so they can be compared.
func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether c is the same level as other or higher.
func (c Confidence) AtLeast(other Confidence) bool {
	return c.rank() >= other.rank()
}

// PatternType identifies the detector that produced a match.
type PatternType string

const (
	PatternNone          PatternType = ""
	PatternThreeOverSix  PatternType = "three_over_six"
	PatternSustainedRise PatternType = "sustained_rise"
	PatternBiphasic      PatternType = "biphasic_shift"
	PatternSevenDay      PatternType = "seven_day_rule"
)

// priority breaks score ties between detectors; lower wins.
func (p PatternType) priority() int {
	switch p {
	case PatternThreeOverSix:
		return 0
	case PatternSustainedRise:
		return 1
	case PatternBiphasic:
		return 2
	case PatternSevenDay:
		return 3
	default:
		return 99
	}
}

// Label returns a short human readable name.
func (p PatternType) Label() string {
	switch p {
	case PatternThreeOverSix:
		return "3-over-6"
	case PatternSustainedRise:
		return "sustained rise"
	case PatternBiphasic:
		return "biphasic shift"
	case PatternSevenDay:
		return "7-day rule"
	default:
		return "none"
	}
}

const (
	MessageInsufficientData = "Insufficient data"
	MessageNoPattern        = "No clear ovulation pattern"
)

// Result is the engine's prediction. Date is nil when no ovulation could be
// inferred; in that case Message says why.
type Result struct {
	Date           *time.Time  `json:"date"`
	Confidence     Confidence  `json:"confidence"`
	Message        string      `json:"message"`
	Detail         string      `json:"detail,omitempty"`
	Pattern        PatternType `json:"pattern,omitempty"`
	Score          float64     `json:"score"`
	RiseStart      *time.Time  `json:"rise_start,omitempty"`
	BaselineDays   int         `json:"baseline_days"`
	DataQuality    float64     `json:"data_quality"`
	Variability    float64     `json:"variability"`
	ReadingsUsed   int         `json:"readings_used"`
	ReadingsNeeded int         `json:"readings_needed,omitempty"`
}

// Found reports whether the result carries an ovulation date.
func (r Result) Found() bool {
	return r.Date != nil
}
