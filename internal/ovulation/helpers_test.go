package ovulation

import (
	"time"

	"go.uber.org/zap"
)

var testStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func testParams() Params {
	p := DefaultParams()
	p.Location = time.UTC
	return p
}

func day(n int) time.Time {
	return AddDays(testStart, n)
}

// daily builds one reading per day starting at testStart.
func daily(temps ...float64) []Reading {
	out := make([]Reading, len(temps))
	for i, t := range temps {
		out[i] = Reading{Date: day(i), Temperature: t}
	}
	return out
}

// without drops the readings recorded on the given day offsets.
func without(readings []Reading, days ...int) []Reading {
	skip := make(map[string]bool, len(days))
	for _, d := range days {
		skip[FormatDate(day(d))] = true
	}
	out := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if !skip[FormatDate(r.Date)] {
			out = append(out, r)
		}
	}
	return out
}

func newTestPredictor(p Params) *Predictor {
	pr, err := NewPredictor(p, zap.NewNop())
	if err != nil {
		panic(err)
	}
	return pr
}
