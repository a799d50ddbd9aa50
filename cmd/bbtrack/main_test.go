package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/daverage/bbtrack/internal/analytics"
	"github.com/daverage/bbtrack/internal/app"
	"github.com/daverage/bbtrack/internal/config"
	"github.com/daverage/bbtrack/internal/logging"
	"github.com/daverage/bbtrack/internal/readings"
	"github.com/daverage/bbtrack/internal/storage"
)

func newTestApp(t *testing.T) (*app.App, *config.Config) {
	t.Helper()
	t.Setenv("BBTRACK_TIMEZONE", "UTC")
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	logger, output, err := logging.NewLogger("warn", "")
	require.NoError(t, err)
	a, err := app.New(cfg, logger)
	require.NoError(t, err)
	a.Core.LogOutput = output

	temps := []float64{36.1, 36.2, 36.0, 36.1, 36.2, 36.0, 36.5, 36.6, 36.5}
	for i, temp := range temps {
		date := time.Date(2024, 3, 1+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		_, _, err := a.Readings.Upsert(context.Background(), readings.Input{Date: date, Temperature: temp})
		require.NoError(t, err)
	}
	return a, cfg
}

func newTestCommand(a *app.App) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(a.Ctx)
	return cmd, &out
}

func setPredictFlags(t *testing.T, output, now string) {
	t.Helper()
	prevOutput, prevNow := predictOutput, predictNow
	predictOutput, predictNow = output, now
	t.Cleanup(func() { predictOutput, predictNow = prevOutput, prevNow })
}

func recordedRuns(t *testing.T, cfg *config.Config) []analytics.Run {
	t.Helper()
	db, err := storage.NewDB(cfg)
	require.NoError(t, err)
	defer db.Close()

	runs, err := analytics.NewRunAnalytics(db.GetConnection()).Recent(context.Background(), 5)
	require.NoError(t, err)
	return runs
}

func TestPredictJSONQuietsConsole(t *testing.T) {
	a, _ := newTestApp(t)
	defer a.Close()
	setPredictFlags(t, "json", "2024-03-09")

	cmd, out := newTestCommand(a)
	require.NoError(t, runPredictCmd(a, cmd, nil))

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "2024-03-06", report["ovulation_date"])
	assert.Equal(t, zapcore.FatalLevel, a.Core.LogOutput.ConsoleLevel())
}

func TestPredictTextKeepsConsole(t *testing.T) {
	a, _ := newTestApp(t)
	defer a.Close()
	setPredictFlags(t, "text", "2024-03-09")

	cmd, out := newTestCommand(a)
	require.NoError(t, runPredictCmd(a, cmd, nil))

	assert.Contains(t, out.String(), "Estimated ovulation: 2024-03-06")
	assert.Equal(t, zapcore.WarnLevel, a.Core.LogOutput.ConsoleLevel())
}

func TestRunnerErrorLeavesRunToFlush(t *testing.T) {
	a, cfg := newTestApp(t)
	setPredictFlags(t, "xml", "2024-03-09")

	cmd, _ := newTestCommand(a)
	err := runPredictCmd(a, cmd, nil)
	assert.ErrorContains(t, err, "unknown output format")

	// main closes the app before exiting on a runner error.
	a.Close()
	runs := recordedRuns(t, cfg)
	require.Len(t, runs, 1)
	assert.Equal(t, "2024-03-06", runs[0].OvulationDate)
}

func TestDeleteMissingReadingReturnsNotFound(t *testing.T) {
	a, _ := newTestApp(t)
	defer a.Close()

	cmd, out := newTestCommand(a)
	err := runDeleteCmd(a, cmd, []string{"2024-04-01"})
	assert.ErrorIs(t, err, readings.ErrNotFound)
	assert.Empty(t, out.String())

	require.NoError(t, runDeleteCmd(a, cmd, []string{"2024-03-01"}))
	assert.Contains(t, out.String(), "Deleted reading for 2024-03-01")
}

func TestCommandContextFallsBackToApp(t *testing.T) {
	a, _ := newTestApp(t)
	defer a.Close()

	assert.Equal(t, a.Ctx, commandContext(a, &cobra.Command{}))
	assert.Same(t, a.Core.Logger, a.LoggerFromContext(commandContext(a, &cobra.Command{})))

	cmd, _ := newTestCommand(a)
	assert.Equal(t, a.Ctx, commandContext(a, cmd))
}

func TestIsMachineFormat(t *testing.T) {
	assert.True(t, isMachineFormat("json"))
	assert.True(t, isMachineFormat("YAML"))
	assert.False(t, isMachineFormat("text"))
	assert.False(t, isMachineFormat(""))
}
