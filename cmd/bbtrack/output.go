package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/daverage/bbtrack/internal/analytics"
	"github.com/daverage/bbtrack/internal/dip"
	"github.com/daverage/bbtrack/internal/inference"
	"github.com/daverage/bbtrack/internal/ovulation"
	"github.com/daverage/bbtrack/internal/readings"
)

type historyDoc struct {
	Summary *analytics.RunSummary `json:"summary" yaml:"summary"`
	Runs    []analytics.Run       `json:"runs" yaml:"runs"`
}

func isMachineFormat(format string) bool {
	switch strings.ToLower(format) {
	case "json", "yaml":
		return true
	}
	return false
}

// render writes v as json or yaml, or calls text for the text format.
func render(w io.Writer, format string, v interface{}, text func()) error {
	switch strings.ToLower(format) {
	case "", "text":
		text()
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// parseNow accepts a calendar date, taken as noon in loc, or an RFC3339 time.
// An empty value means the current time.
func parseNow(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := ovulation.ParseDate(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now %q: want YYYY-MM-DD or RFC3339", s)
	}
	return d.Add(12 * time.Hour), nil
}

func printPrediction(w io.Writer, out inference.Outcome) {
	r := out.Result
	if r.Found() {
		fmt.Fprintf(w, "Estimated ovulation: %s (%s confidence)\n", ovulation.FormatDate(*r.Date), r.Confidence)
		fmt.Fprintf(w, "  Pattern: %s, score %.1f\n", r.Pattern.Label(), r.Score)
		if r.RiseStart != nil {
			fmt.Fprintf(w, "  Temperature rise from %s\n", ovulation.FormatDate(*r.RiseStart))
		}
		fmt.Fprintf(w, "  Baseline days: %d, data quality %.0f%%\n", r.BaselineDays, r.DataQuality*100)
	} else {
		fmt.Fprintf(w, "%s\n", r.Message)
		if r.Detail != "" {
			fmt.Fprintf(w, "  %s\n", r.Detail)
		}
	}
	fmt.Fprintf(w, "  Readings used: %d", r.ReadingsUsed)
	if out.FeverExcluded > 0 {
		fmt.Fprintf(w, " (%d fever readings excluded)", out.FeverExcluded)
	}
	fmt.Fprintln(w)

	switch out.Ended {
	case dip.TransitionConfirmed:
		fmt.Fprintln(w, "\nThe earlier temperature dip was followed by the detected shift.")
	case dip.TransitionRefuted:
		fmt.Fprintln(w, "\nThe earlier temperature dip was not followed by a rise; warning cleared.")
	case dip.TransitionExpired:
		fmt.Fprintln(w, "\nThe earlier temperature dip warning has expired.")
	}
	if ww := out.Warning; ww.Show() {
		fmt.Fprintf(w, "\n! Temperature dip on %s: %.2f°C against a baseline of %.2f°C.\n",
			ovulation.FormatDate(ww.DipDate), ww.DipTemperature, ww.BaselineMean)
		fmt.Fprintf(w, "  Ovulation may occur between %s and %s.\n",
			ovulation.FormatDate(ww.WindowStart), ovulation.FormatDate(ww.WindowEnd))
	}
}

func printReadings(w io.Writer, entries []*readings.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No readings logged yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTEMP\tFEVER\tNOTES")
	for _, e := range entries {
		fever := ""
		if e.Fever {
			fever = "yes"
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\n", e.Date, e.Temperature, fever, e.Notes)
	}
	tw.Flush()
}

func printHistory(w io.Writer, doc historyDoc, metricsEnabled bool) {
	if !metricsEnabled {
		fmt.Fprintln(w, "Metrics are disabled; new runs are not recorded.")
	}
	s := doc.Summary
	if s == nil || s.TotalRuns == 0 {
		fmt.Fprintln(w, "No inference runs recorded.")
		return
	}

	fmt.Fprintf(w, "Total runs: %d\n", s.TotalRuns)
	fmt.Fprintf(w, "Detection rate: %.1f%%\n", s.DetectionRate)
	for _, level := range []ovulation.Confidence{ovulation.ConfidenceHigh, ovulation.ConfidenceMedium, ovulation.ConfidenceLow} {
		fmt.Fprintf(w, "  %s: %d\n", level, s.ByConfidence[string(level)])
	}
	if s.LastOvulationDate != "" {
		fmt.Fprintf(w, "Last estimated ovulation: %s\n", s.LastOvulationDate)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RAN AT\tDATE\tCONFIDENCE\tSCORE\tDIP")
	for _, run := range doc.Runs {
		date := run.OvulationDate
		if date == "" {
			date = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%s\n",
			run.RanAt.Local().Format("2006-01-02 15:04"), date, run.Confidence, run.Score, run.DipTransition)
	}
	tw.Flush()
}
