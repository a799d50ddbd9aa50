package inference

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daverage/bbtrack/internal/dip"
	"github.com/daverage/bbtrack/internal/ovulation"
)

var start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return ovulation.AddDays(start, n)
}

func noon(n int) time.Time {
	return day(n).Add(12 * time.Hour)
}

func daily(temps ...float64) []ovulation.Reading {
	out := make([]ovulation.Reading, len(temps))
	for i, t := range temps {
		out[i] = ovulation.Reading{Date: day(i), Temperature: t}
	}
	return out
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	op := ovulation.DefaultParams()
	op.Location = time.UTC
	dp := dip.DefaultParams()
	dp.Location = time.UTC
	e, err := NewEngine(op, dp, zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestRunClearShift(t *testing.T) {
	e := newTestEngine(t)

	out, err := e.Run(daily(36.1, 36.2, 36.0, 36.1, 36.2, 36.0, 36.5, 36.6, 36.5), dip.Warning{}, noon(8))
	require.NoError(t, err)
	require.True(t, out.Result.Found())
	assert.Equal(t, "2024-03-06", ovulation.FormatDate(*out.Result.Date))
	assert.Equal(t, ovulation.ConfidenceHigh, out.Result.Confidence)
	assert.Equal(t, dip.TransitionNone, out.Transition)
	assert.False(t, out.Warning.Show())
}

func TestRunDipCreatedThenRefuted(t *testing.T) {
	e := newTestEngine(t)
	baseline := daily(36.2, 36.2, 36.2, 36.2, 36.2, 36.2, 36.0)

	first, err := e.Run(baseline, dip.Warning{}, noon(6))
	require.NoError(t, err)
	assert.Equal(t, dip.TransitionCreated, first.Transition)
	require.True(t, first.Warning.Show())
	assert.False(t, first.Result.Found())

	later := daily(36.2, 36.2, 36.2, 36.2, 36.2, 36.2, 36.0, 36.1, 36.3, 36.1, 36.15)
	second, err := e.Run(later, first.Warning, noon(10))
	require.NoError(t, err)
	assert.Equal(t, dip.TransitionRefuted, second.Transition)
	assert.Equal(t, dip.TransitionRefuted, second.Ended)
	assert.False(t, second.Warning.Show())
}

func TestRunIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	readings := daily(36.2, 36.2, 36.2, 36.2, 36.2, 36.2, 36.0)

	first, err := e.Run(readings, dip.Warning{}, noon(6))
	require.NoError(t, err)
	second, err := e.Run(readings, dip.Warning{}, noon(6))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Feeding the new state back in changes nothing further.
	third, err := e.Run(readings, first.Warning, noon(6))
	require.NoError(t, err)
	assert.Equal(t, dip.TransitionNone, third.Transition)
	assert.Equal(t, first.Warning, third.Warning)
}

func TestRunCountsFeverDays(t *testing.T) {
	e := newTestEngine(t)
	readings := daily(36.2, 36.3, 38.4, 36.2)
	readings[2].Fever = true

	out, err := e.Run(readings, dip.Warning{}, noon(3))
	require.NoError(t, err)
	assert.Equal(t, 1, out.FeverExcluded)
	assert.Equal(t, ovulation.MessageInsufficientData, out.Result.Message)
	assert.Equal(t, 3, out.Result.ReadingsNeeded)
}

func TestRunRejectsContractViolations(t *testing.T) {
	e := newTestEngine(t)
	readings := []ovulation.Reading{
		{Date: day(0), Temperature: 36.2},
		{Date: day(0).Add(6 * time.Hour), Temperature: 36.3},
	}

	_, err := e.Run(readings, dip.Warning{}, noon(0))
	assert.ErrorIs(t, err, ovulation.ErrContract)
}

func TestNewEngineRejectsInvalidParams(t *testing.T) {
	op := ovulation.DefaultParams()
	op.LookbackDays = 0
	_, err := NewEngine(op, dip.DefaultParams(), nil)
	assert.ErrorIs(t, err, ovulation.ErrContract)

	dp := dip.DefaultParams()
	dp.ExpiryDays = 0
	_, err = NewEngine(ovulation.DefaultParams(), dp, nil)
	assert.ErrorIs(t, err, ovulation.ErrContract)
}
