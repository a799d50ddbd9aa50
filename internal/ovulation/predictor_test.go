package ovulation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cycle is a textbook curve: six follicular days, then a clear shift.
func cycle() []Reading {
	return daily(36.1, 36.2, 36.0, 36.1, 36.2, 36.0, 36.5, 36.6, 36.5)
}

func repeat(temp float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = temp
	}
	return out
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestPredictClearShift(t *testing.T) {
	pr := newTestPredictor(testParams())

	result, err := pr.Predict(cycle())
	require.NoError(t, err)
	require.True(t, result.Found())
	assert.Equal(t, "2024-03-06", FormatDate(*result.Date))
	assert.Equal(t, "2024-03-07", FormatDate(*result.RiseStart))
	assert.Equal(t, ConfidenceHigh, result.Confidence)
	assert.Equal(t, PatternThreeOverSix, result.Pattern)
	assert.Equal(t, 6, result.BaselineDays)
	assert.InDelta(t, 1.0, result.DataQuality, 1e-9)
	assert.InDelta(t, 88.48, result.Score, 0.01)
	assert.Equal(t, "Ovulation likely on 2024-03-06", result.Message)
	assert.Contains(t, result.Detail, "3-over-6")
}

func TestPredictInsufficientData(t *testing.T) {
	pr := newTestPredictor(testParams())

	result, err := pr.Predict(daily(36.2, 36.3, 36.2))
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.Nil(t, result.Date)
	assert.Equal(t, ConfidenceLow, result.Confidence)
	assert.Equal(t, MessageInsufficientData, result.Message)
	assert.Equal(t, 3, result.ReadingsNeeded)
	assert.Equal(t, "Log 3 more non-fever readings within the last 30 days to enable detection.", result.Detail)
}

func TestPredictNeverAnswersBelowMinimumReadings(t *testing.T) {
	pr := newTestPredictor(testParams())
	temps := []float64{36.1, 36.2, 36.7, 36.8, 36.8}

	for n := 0; n <= len(temps); n++ {
		result, err := pr.Predict(daily(temps[:n]...))
		require.NoError(t, err)
		assert.Nil(t, result.Date, "n=%d", n)
		assert.Equal(t, ConfidenceLow, result.Confidence, "n=%d", n)
		assert.Equal(t, MessageInsufficientData, result.Message, "n=%d", n)
	}
}

func TestPredictFeverDaysDoNotCount(t *testing.T) {
	pr := newTestPredictor(testParams())
	readings := daily(36.2, 36.3, 36.2, 36.3, 36.2, 37.9)
	readings[5].Fever = true

	result, err := pr.Predict(readings)
	require.NoError(t, err)
	assert.Equal(t, MessageInsufficientData, result.Message)
	assert.Equal(t, 1, result.ReadingsNeeded)
	assert.Equal(t, "Log 1 more non-fever reading within the last 30 days to enable detection.", result.Detail)
}

func TestPredictMissingBaselineDayCapsConfidence(t *testing.T) {
	pr := newTestPredictor(testParams())
	temps := []float64{36.1, 36.2, 36.0, 36.1, 36.2, 36.0, 36.5, 36.5, 36.5}

	full, err := pr.Predict(daily(temps...))
	require.NoError(t, err)
	require.True(t, full.Found())
	assert.Equal(t, ConfidenceHigh, full.Confidence)

	gappy, err := pr.Predict(without(daily(temps...), 3))
	require.NoError(t, err)
	require.True(t, gappy.Found())
	assert.Equal(t, "2024-03-06", FormatDate(*gappy.Date))
	assert.Equal(t, 5, gappy.BaselineDays)
	assert.Greater(t, gappy.Score, 85.0, "the score alone would be high")
	assert.Equal(t, ConfidenceMedium, gappy.Confidence)
}

func TestPredictConfidenceNeverDropsWithMoreBaseline(t *testing.T) {
	pr := newTestPredictor(testParams())
	readings := flatBaseline(36.6, 36.6, 36.6)

	tests := []struct {
		name     string
		missing  []int
		expected Confidence
	}{
		{"four of six", []int{2, 3}, ConfidenceLow},
		{"five of six", []int{2}, ConfidenceMedium},
		{"six of six", nil, ConfidenceHigh},
	}

	prev := ConfidenceLow
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := pr.Predict(without(readings, tt.missing...))
			require.NoError(t, err)
			require.True(t, result.Found())
			assert.Equal(t, "2024-03-06", FormatDate(*result.Date))
			assert.Equal(t, tt.expected, result.Confidence)
			assert.True(t, result.Confidence.AtLeast(prev))
			prev = result.Confidence
		})
	}
}

func TestPredictDateIsDayBeforeRise(t *testing.T) {
	pr := newTestPredictor(testParams())

	tests := []struct {
		name     string
		readings []Reading
	}{
		{"clear shift", cycle()},
		{"gappy baseline", without(cycle(), 3)},
		{"slow rise", flatBaseline(36.2, 36.47, 36.47, 36.47, 36.47)},
		{"long luteal phase", daily(concat(repeat(36.2, 8), repeat(36.6, 12))...)},
		{"two cycles", daily(concat(repeat(36.2, 6), repeat(36.6, 8), repeat(36.2, 8), repeat(36.6, 6))...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := pr.Predict(tt.readings)
			require.NoError(t, err)
			require.True(t, result.Found())
			assert.Equal(t, 1, DaysBetween(*result.Date, *result.RiseStart))
		})
	}
}

func TestPredictKeepsShiftOnsetAsDataAccumulates(t *testing.T) {
	pr := newTestPredictor(testParams())
	temps := concat(repeat(36.2, 8), repeat(36.6, 12))

	for n := 11; n <= len(temps); n++ {
		result, err := pr.Predict(daily(temps[:n]...))
		require.NoError(t, err)
		require.True(t, result.Found(), "n=%d", n)
		assert.Equal(t, "2024-03-08", FormatDate(*result.Date), "n=%d", n)
	}
}

func TestPredictReturnsMostRecentShift(t *testing.T) {
	pr := newTestPredictor(testParams())
	temps := concat(repeat(36.2, 6), repeat(36.6, 8), repeat(36.2, 8), repeat(36.6, 6))

	result, err := pr.Predict(daily(temps...))
	require.NoError(t, err)
	require.True(t, result.Found())
	assert.Equal(t, FormatDate(day(21)), FormatDate(*result.Date))
}

func TestPredictSlowRiseStartsAtFirstElevatedDay(t *testing.T) {
	pr := newTestPredictor(testParams())

	result, err := pr.Predict(flatBaseline(36.2, 36.47, 36.47, 36.47, 36.47))
	require.NoError(t, err)
	require.True(t, result.Found())
	assert.Equal(t, FormatDate(day(6)), FormatDate(*result.Date))
}

func TestPredictNoPattern(t *testing.T) {
	pr := newTestPredictor(testParams())

	result, err := pr.Predict(daily(repeat(36.3, 10)...))
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.Equal(t, MessageNoPattern, result.Message)
	assert.Equal(t, ConfidenceLow, result.Confidence)
	assert.Equal(t, 10, result.ReadingsUsed)
}

func TestPredictUsesLookbackWindow(t *testing.T) {
	pr := newTestPredictor(testParams())

	a, err := pr.Analyze(daily(repeat(36.3, 40)...))
	require.NoError(t, err)
	assert.Equal(t, 31, a.Result.ReadingsUsed)
	assert.Len(t, a.Series.History, 40)
	assert.True(t, a.Series.Readings[0].Date.Equal(day(9)))
}

func TestPredictIsIdempotent(t *testing.T) {
	pr := newTestPredictor(testParams())
	readings := without(cycle(), 2)
	snapshot := append([]Reading(nil), readings...)

	first, err := pr.Predict(readings)
	require.NoError(t, err)
	second, err := pr.Predict(readings)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, readings, "input must not be modified")
}

func TestPredictIgnoresInputOrder(t *testing.T) {
	pr := newTestPredictor(testParams())
	readings := cycle()
	reversed := make([]Reading, len(readings))
	for i, r := range readings {
		reversed[len(readings)-1-i] = r
	}

	sorted, err := pr.Predict(readings)
	require.NoError(t, err)
	shuffled, err := pr.Predict(reversed)
	require.NoError(t, err)
	assert.Equal(t, sorted, shuffled)
}

func TestPredictFeverReadingMatchesMissingDay(t *testing.T) {
	pr := newTestPredictor(testParams())
	feverish := cycle()
	feverish[3].Temperature = 37.9
	feverish[3].Fever = true

	a, err := pr.Analyze(feverish)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Series.FeverExcluded)

	missing, err := pr.Predict(without(cycle(), 3))
	require.NoError(t, err)
	assert.Equal(t, missing, a.Result)
}

func TestPredictContractViolations(t *testing.T) {
	pr := newTestPredictor(testParams())

	morning := time.Date(2024, 3, 1, 7, 30, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		readings []Reading
	}{
		{"two readings on one calendar day", []Reading{
			{Date: morning, Temperature: 36.2},
			{Date: evening, Temperature: 36.3},
		}},
		{"missing date", []Reading{{Temperature: 36.2}}},
		{"NaN temperature", []Reading{{Date: day(0), Temperature: math.NaN()}}},
		{"infinite temperature", []Reading{{Date: day(0), Temperature: math.Inf(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pr.Predict(tt.readings)
			assert.ErrorIs(t, err, ErrContract)
		})
	}
}

func TestNewPredictorRejectsInvalidParams(t *testing.T) {
	p := testParams()
	p.MinBaselineDays = p.BaselineDays + 1
	_, err := NewPredictor(p, nil)
	assert.ErrorIs(t, err, ErrContract)

	p = testParams()
	p.Location = nil
	_, err = NewPredictor(p, nil)
	assert.ErrorIs(t, err, ErrContract)
}

func TestBestMatchPrefersHigherScore(t *testing.T) {
	p := testParams()
	pr := newTestPredictor(p)
	readings := flatBaseline(36.2, 36.47, 36.47, 36.47, 36.47)

	m, ok := pr.bestMatch(windowOn(t, readings, 6, p))
	require.True(t, ok)
	assert.Equal(t, PatternSustainedRise, m.Pattern, "sustained rise outscores the biphasic match")
}

func TestBestMatchBreaksTiesByPriority(t *testing.T) {
	p := testParams()
	pr := newTestPredictor(p)
	readings := flatBaseline(36.2, 36.47, 36.47, 36.47, 36.47)

	// Every detector sees a flat 0.27 rise from day 7.
	m, ok := pr.bestMatch(windowOn(t, readings, 7, p))
	require.True(t, ok)
	assert.Equal(t, PatternThreeOverSix, m.Pattern)

	low := Match{Detection: Detection{Pattern: PatternBiphasic}, Score: Score{Total: 80}}
	high := Match{Detection: Detection{Pattern: PatternSevenDay}, Score: Score{Total: 80.0000001}}
	assert.True(t, beats(low, high), "scores equal after rounding fall back to priority")
	assert.False(t, beats(high, low))
}

func TestPredictSevenDayRuleIsOptIn(t *testing.T) {
	readings := flatBaseline(36.4, 36.3, 36.3)

	off, err := newTestPredictor(testParams()).Predict(readings)
	require.NoError(t, err)
	assert.False(t, off.Found())

	p := testParams()
	p.SevenDayEnabled = true
	on, err := newTestPredictor(p).Predict(readings)
	require.NoError(t, err)
	require.True(t, on.Found())
	assert.Equal(t, PatternSevenDay, on.Pattern)
	assert.Equal(t, FormatDate(day(5)), FormatDate(*on.Date))
}
