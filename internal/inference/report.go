package inference

import (
	"math"

	"github.com/daverage/bbtrack/internal/ovulation"
)

// Report is the rendering of an Outcome for json and yaml output. Dates are
// calendar strings; OvulationDate is null when nothing was inferred.
type Report struct {
	OvulationDate  *string    `json:"ovulation_date" yaml:"ovulation_date"`
	Confidence     string     `json:"confidence" yaml:"confidence"`
	Message        string     `json:"message" yaml:"message"`
	Detail         string     `json:"detail,omitempty" yaml:"detail,omitempty"`
	Pattern        string     `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Score          float64    `json:"score" yaml:"score"`
	RiseStart      string     `json:"rise_start,omitempty" yaml:"rise_start,omitempty"`
	BaselineDays   int        `json:"baseline_days" yaml:"baseline_days"`
	DataQuality    float64    `json:"data_quality" yaml:"data_quality"`
	Variability    float64    `json:"variability" yaml:"variability"`
	ReadingsUsed   int        `json:"readings_used" yaml:"readings_used"`
	ReadingsNeeded int        `json:"readings_needed,omitempty" yaml:"readings_needed,omitempty"`
	FeverExcluded  int        `json:"fever_excluded" yaml:"fever_excluded"`
	DipTransition  string     `json:"dip_transition" yaml:"dip_transition"`
	Dip            *DipReport `json:"dip_warning,omitempty" yaml:"dip_warning,omitempty"`
}

// DipReport describes an active dip warning.
type DipReport struct {
	DipDate        string  `json:"dip_date" yaml:"dip_date"`
	DipTemperature float64 `json:"dip_temperature" yaml:"dip_temperature"`
	BaselineMean   float64 `json:"baseline_mean" yaml:"baseline_mean"`
	WindowStart    string  `json:"window_start" yaml:"window_start"`
	WindowEnd      string  `json:"window_end" yaml:"window_end"`
}

// Report renders o.
func (o Outcome) Report() Report {
	r := o.Result
	rep := Report{
		Confidence:     string(r.Confidence),
		Message:        r.Message,
		Detail:         r.Detail,
		Pattern:        string(r.Pattern),
		Score:          round2(r.Score),
		BaselineDays:   r.BaselineDays,
		DataQuality:    round2(r.DataQuality),
		Variability:    round2(r.Variability),
		ReadingsUsed:   r.ReadingsUsed,
		ReadingsNeeded: r.ReadingsNeeded,
		FeverExcluded:  o.FeverExcluded,
		DipTransition:  string(o.Transition),
	}
	if r.Date != nil {
		date := ovulation.FormatDate(*r.Date)
		rep.OvulationDate = &date
	}
	if r.RiseStart != nil {
		rep.RiseStart = ovulation.FormatDate(*r.RiseStart)
	}
	if w := o.Warning; w.Show() {
		rep.Dip = &DipReport{
			DipDate:        ovulation.FormatDate(w.DipDate),
			DipTemperature: w.DipTemperature,
			BaselineMean:   round2(w.BaselineMean),
			WindowStart:    ovulation.FormatDate(w.WindowStart),
			WindowEnd:      ovulation.FormatDate(w.WindowEnd),
		}
	}
	return rep
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
