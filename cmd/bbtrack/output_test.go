package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/daverage/bbtrack/internal/analytics"
	"github.com/daverage/bbtrack/internal/dip"
	"github.com/daverage/bbtrack/internal/inference"
	"github.com/daverage/bbtrack/internal/ovulation"
	"github.com/daverage/bbtrack/internal/readings"
)

func TestParseNow(t *testing.T) {
	loc := time.FixedZone("UTC+13", 13*3600)

	got, err := parseNow("2024-03-05", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 3, 5, 12, 0, 0, 0, loc)))

	got, err = parseNow("2024-03-05T07:30:00Z", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 3, 5, 7, 30, 0, 0, time.UTC)))

	_, err = parseNow("yesterday", loc)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	v := map[string]int{"readings": 3}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "json", v, func() { t.Fatal("text called") }))
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, v, decoded)

	buf.Reset()
	require.NoError(t, render(&buf, "YAML", v, func() { t.Fatal("text called") }))
	decoded = nil
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, v, decoded)

	called := false
	require.NoError(t, render(&buf, "text", v, func() { called = true }))
	assert.True(t, called)

	assert.Error(t, render(&buf, "xml", v, func() {}))
}

func TestPrintPrediction(t *testing.T) {
	date := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	rise := date.AddDate(0, 0, 1)
	out := inference.Outcome{
		Result: ovulation.Result{
			Date:         &date,
			Confidence:   ovulation.ConfidenceHigh,
			Pattern:      ovulation.PatternThreeOverSix,
			Score:        88.48,
			RiseStart:    &rise,
			BaselineDays: 6,
			DataQuality:  1,
			ReadingsUsed: 9,
		},
		FeverExcluded: 1,
	}

	var buf bytes.Buffer
	printPrediction(&buf, out)
	text := buf.String()
	assert.Contains(t, text, "Estimated ovulation: 2024-03-06 (high confidence)")
	assert.Contains(t, text, "Pattern: 3-over-6, score 88.5")
	assert.Contains(t, text, "Temperature rise from 2024-03-07")
	assert.Contains(t, text, "(1 fever readings excluded)")
	assert.NotContains(t, text, "dip")
}

func TestPrintPredictionWithDip(t *testing.T) {
	dipDate := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	out := inference.Outcome{
		Result: ovulation.Result{
			Confidence:   ovulation.ConfidenceLow,
			Message:      ovulation.MessageNoPattern,
			Detail:       "Keep tracking.",
			ReadingsUsed: 7,
		},
		Warning: dip.Warning{
			Active:         true,
			DipDate:        dipDate,
			DipTemperature: 36.0,
			BaselineMean:   36.2,
			WindowStart:    dipDate,
			WindowEnd:      dipDate.AddDate(0, 0, 2),
		},
		Transition: dip.TransitionCreated,
	}

	var buf bytes.Buffer
	printPrediction(&buf, out)
	text := buf.String()
	assert.Contains(t, text, ovulation.MessageNoPattern)
	assert.Contains(t, text, "Keep tracking.")
	assert.Contains(t, text, "Temperature dip on 2024-03-07: 36.00°C against a baseline of 36.20°C.")
	assert.Contains(t, text, "between 2024-03-07 and 2024-03-09")
}

func TestPrintReadings(t *testing.T) {
	var buf bytes.Buffer
	printReadings(&buf, nil)
	assert.Equal(t, "No readings logged yet.\n", buf.String())

	buf.Reset()
	printReadings(&buf, []*readings.Entry{
		{Date: "2024-03-06", Temperature: 37.9, Fever: true, Notes: "cold"},
		{Date: "2024-03-05", Temperature: 36.45},
	})
	text := buf.String()
	assert.Contains(t, text, "DATE")
	assert.Contains(t, text, "37.90")
	assert.Contains(t, text, "yes")
	assert.Contains(t, text, "36.45")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, historyDoc{Summary: &analytics.RunSummary{}}, false)
	assert.Contains(t, buf.String(), "Metrics are disabled")
	assert.Contains(t, buf.String(), "No inference runs recorded.")

	buf.Reset()
	printHistory(&buf, historyDoc{
		Summary: &analytics.RunSummary{
			TotalRuns:         2,
			ByConfidence:      map[string]int{"high": 1, "low": 1},
			DetectionRate:     50,
			LastOvulationDate: "2024-03-06",
		},
		Runs: []analytics.Run{
			{RanAt: time.Now(), OvulationDate: "2024-03-06", Confidence: "high", Score: 88.48, DipTransition: "none"},
			{RanAt: time.Now(), Confidence: "low", DipTransition: "created"},
		},
	}, true)
	text := buf.String()
	assert.Contains(t, text, "Total runs: 2")
	assert.Contains(t, text, "Detection rate: 50.0%")
	assert.Contains(t, text, "Last estimated ovulation: 2024-03-06")
	assert.Contains(t, text, "created")
}
