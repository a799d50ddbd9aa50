package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/daverage/bbtrack/internal/app"
	"github.com/daverage/bbtrack/internal/doctor"
	"github.com/daverage/bbtrack/internal/ovulation"
	"github.com/daverage/bbtrack/internal/readings"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "bbtrack",
	Short: "bbtrack - Basal body temperature tracker",
	Long:  `bbtrack logs daily basal body temperature readings and infers the likely ovulation date from the temperature shift.`,
	// Runner errors are reported once by main.
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(completionCmd)
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate the autocompletion script for the specified shell",
	Long: `Generate the autocompletion script for bbtrack for the specified shell.
See each command's help for details on how to use the generated script.
	`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.ExactValidArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var err error
		switch args[0] {
		case "bash":
			err = cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			err = cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			err = cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			err = cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating completion script: %v\n", err)
			os.Exit(1)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
}

func runVersionCmd(a *app.App, cmd *cobra.Command, args []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "bbtrack v%s\n", version)
	return nil
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Log a temperature reading",
	Long: `Log the basal body temperature for a day. A second reading for the same day
replaces the first.

Examples:
  bbtrack add --temp 36.45
  bbtrack add --date 2024-03-05 --temp 37.9 --fever --notes "cold"`,
}

var (
	addDate  string
	addTemp  float64
	addFever bool
	addNotes string
)

func init() {
	addCmd.Flags().StringVarP(&addDate, "date", "d", "", "Reading date as YYYY-MM-DD (default today)")
	addCmd.Flags().Float64VarP(&addTemp, "temp", "t", 0, "Temperature in Celsius (required)")
	addCmd.Flags().BoolVar(&addFever, "fever", false, "Mark the reading as taken during a fever")
	addCmd.Flags().StringVarP(&addNotes, "notes", "n", "", "Free-form notes")
	_ = addCmd.MarkFlagRequired("temp")
}

func runAddCmd(a *app.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(a, cmd)
	logger := a.LoggerFromContext(ctx)
	w := cmd.OutOrStdout()

	date := addDate
	if date == "" {
		date = ovulation.FormatDate(time.Now().In(a.Core.Config.Location))
	}

	entry, created, err := a.Readings.Upsert(ctx, readings.Input{
		Date:        date,
		Temperature: addTemp,
		Fever:       addFever,
		Notes:       addNotes,
	})
	if err != nil {
		logger.Error("Failed to save reading", zap.Error(err), zap.String("date", date))
		return fmt.Errorf("failed to save reading: %w", err)
	}

	verb := "Updated"
	if created {
		verb = "Logged"
	}
	fmt.Fprintf(w, "✅ %s %.2f°C for %s", verb, entry.Temperature, entry.Date)
	if entry.Fever {
		fmt.Fprint(w, " (fever, excluded from analysis)")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	out, err := a.Inference.Predict(ctx, time.Now())
	if err != nil {
		logger.Error("Inference failed", zap.Error(err))
		return fmt.Errorf("inference failed: %w", err)
	}
	printPrediction(w, out)
	return nil
}

var deleteCmd = &cobra.Command{
	Use:   "delete <date>",
	Short: "Delete the reading for a day",
	Args:  cobra.ExactArgs(1),
}

func runDeleteCmd(a *app.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(a, cmd)
	if err := a.Readings.Delete(ctx, args[0]); err != nil {
		if errors.Is(err, readings.ErrNotFound) {
			return fmt.Errorf("no reading for %s: %w", args[0], err)
		}
		a.LoggerFromContext(ctx).Error("Failed to delete reading", zap.Error(err), zap.String("date", args[0]))
		return fmt.Errorf("failed to delete reading: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Deleted reading for %s\n", args[0])
	return nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent readings",
}

var (
	listLimit  int
	listOutput string
)

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 30, "Maximum number of readings to show")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "text", "Output format: text, json, yaml")
}

func runListCmd(a *app.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(a, cmd)
	quietForOutput(a, listOutput)

	entries, err := a.Readings.List(ctx, listLimit)
	if err != nil {
		a.LoggerFromContext(ctx).Error("Failed to list readings", zap.Error(err))
		return fmt.Errorf("failed to retrieve readings: %w", err)
	}
	w := cmd.OutOrStdout()
	return render(w, listOutput, entries, func() { printReadings(w, entries) })
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Infer the ovulation date from logged readings",
}

var (
	predictOutput string
	predictNow    string
)

func init() {
	predictCmd.Flags().StringVarP(&predictOutput, "output", "o", "text", "Output format: text, json, yaml")
	predictCmd.Flags().StringVar(&predictNow, "now", "", "Evaluate as of this date (YYYY-MM-DD) or RFC3339 time")
}

func runPredictCmd(a *app.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(a, cmd)
	quietForOutput(a, predictOutput)

	now, err := parseNow(predictNow, a.Core.Config.Location)
	if err != nil {
		return err
	}

	out, err := a.Inference.Predict(ctx, now)
	if err != nil {
		a.LoggerFromContext(ctx).Error("Inference failed", zap.Error(err))
		return fmt.Errorf("inference failed: %w", err)
	}
	w := cmd.OutOrStdout()
	return render(w, predictOutput, out.Report(), func() { printPrediction(w, out) })
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent inference runs",
}

var (
	historyLimit  int
	historyOutput string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 10, "Maximum number of runs to show")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "text", "Output format: text, json, yaml")
}

func runHistoryCmd(a *app.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(a, cmd)
	logger := a.LoggerFromContext(ctx)
	quietForOutput(a, historyOutput)

	runs, err := a.Analytics.History.Recent(ctx, historyLimit)
	if err != nil {
		logger.Error("Failed to load inference history", zap.Error(err))
		return fmt.Errorf("failed to retrieve history: %w", err)
	}
	summary, err := a.Analytics.History.Summary(ctx)
	if err != nil {
		logger.Error("Failed to summarize inference history", zap.Error(err))
		return fmt.Errorf("failed to summarize history: %w", err)
	}

	w := cmd.OutOrStdout()
	doc := historyDoc{Summary: summary, Runs: runs}
	return render(w, historyOutput, doc, func() { printHistory(w, doc, a.Core.Config.MetricsEnabled) })
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostics on the bbtrack installation",
}

var errUnhealthy = errors.New("diagnostics found issues")

func runDoctorCmd(a *app.App, cmd *cobra.Command, args []string) error {
	diagnostics := doctor.NewRunner(a.Core.Config, a.Core.DB).RunAll(commandContext(a, cmd))
	diagnostics.WriteReport(cmd.OutOrStdout())
	if diagnostics.Status != "healthy" {
		return errUnhealthy
	}
	return nil
}

// commandContext returns the context handed to ExecuteContext, or the app's
// own when the command was run without one.
func commandContext(a *app.App, cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return a.Ctx
}

// quietForOutput keeps logs off the terminal when stdout carries json or yaml.
func quietForOutput(a *app.App, format string) {
	if isMachineFormat(format) {
		a.QuietConsole()
	}
}

// newAppRunner creates a Cobra RunE function closure with the app.App instance.
func newAppRunner(a *app.App, runFunc func(*app.App, *cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return runFunc(a, cmd, args)
	}
}

func main() {
	appInstance, err := app.NewApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer appInstance.Close()

	// Wrap the Run functions with newAppRunner to pass the app instance
	versionCmd.RunE = newAppRunner(appInstance, runVersionCmd)
	addCmd.RunE = newAppRunner(appInstance, runAddCmd)
	deleteCmd.RunE = newAppRunner(appInstance, runDeleteCmd)
	listCmd.RunE = newAppRunner(appInstance, runListCmd)
	predictCmd.RunE = newAppRunner(appInstance, runPredictCmd)
	historyCmd.RunE = newAppRunner(appInstance, runHistoryCmd)
	doctorCmd.RunE = newAppRunner(appInstance, runDoctorCmd)

	if err := rootCmd.ExecuteContext(appInstance.Ctx); err != nil {
		if !errors.Is(err, errUnhealthy) {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}
		appInstance.LoggerFromContext(appInstance.Ctx).Debug("Command failed", zap.Error(err))
		// os.Exit skips deferred calls; flush queued runs and logs first.
		appInstance.Close()
		os.Exit(1)
	}
}
