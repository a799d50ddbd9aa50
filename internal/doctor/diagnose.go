package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/daverage/bbtrack/internal/config"
	"github.com/daverage/bbtrack/internal/ovulation"
	"github.com/daverage/bbtrack/internal/readings"
	"github.com/daverage/bbtrack/internal/state"
	"github.com/daverage/bbtrack/internal/storage"
)

// Readings older than this many days leave the dip monitor without a current
// reading to evaluate.
const staleReadingDays = 2

// Diagnostics holds diagnostic information
type Diagnostics struct {
	Checks []CheckResult `json:"checks"`
	Issues []string      `json:"issues"`
	Status string        `json:"status"`
}

// CheckResult represents the result of a single check
type CheckResult struct {
	Name     string `json:"name"`
	Status   string `json:"status"` // "pass", "fail", "warn"
	Message  string `json:"message"`
	Severity string `json:"severity"` // "info", "warning", "error"
}

func pass(name, msg string) CheckResult {
	return CheckResult{Name: name, Status: "pass", Message: msg, Severity: "info"}
}

func warn(name, msg string) CheckResult {
	return CheckResult{Name: name, Status: "warn", Message: msg, Severity: "warning"}
}

func fail(name, msg string) CheckResult {
	return CheckResult{Name: name, Status: "fail", Message: msg, Severity: "error"}
}

// Runner runs diagnostic checks
type Runner struct {
	config *config.Config
	db     *storage.DB
	now    func() time.Time
}

// NewRunner creates a new diagnostic runner
func NewRunner(cfg *config.Config, db *storage.DB) *Runner {
	return &Runner{
		config: cfg,
		db:     db,
		now:    time.Now,
	}
}

// RunAll runs all diagnostic checks
func (d *Runner) RunAll(ctx context.Context) *Diagnostics {
	var results []CheckResult
	var issues []string

	results = append(results, d.checkDatabaseConnectivity(ctx)...)
	results = append(results, d.checkFileSystemPermissions()...)
	results = append(results, d.checkConfiguration()...)
	results = append(results, d.checkStorageHealth(ctx)...)
	results = append(results, d.checkReadings(ctx)...)
	results = append(results, d.checkEngineState(ctx)...)

	for _, result := range results {
		if result.Status == "fail" {
			issues = append(issues, result.Message)
		}
	}

	status := "healthy"
	if len(issues) > 0 {
		status = "issues_found"
	}

	return &Diagnostics{
		Checks: results,
		Issues: issues,
		Status: status,
	}
}

func (d *Runner) checkDatabaseConnectivity(ctx context.Context) []CheckResult {
	var results []CheckResult

	if err := d.db.GetConnection().PingContext(ctx); err != nil {
		results = append(results, fail("database_connectivity", fmt.Sprintf("Cannot connect to database: %v", err)))
	} else {
		results = append(results, pass("database_connectivity", "Database connection successful"))
	}

	version, err := d.db.Version()
	switch {
	case err != nil:
		results = append(results, fail("schema_version", fmt.Sprintf("Cannot read schema version: %v", err)))
	case version != storage.SchemaVersion:
		results = append(results, fail("schema_version", fmt.Sprintf("Schema version %d, expected %d", version, storage.SchemaVersion)))
	default:
		results = append(results, pass("schema_version", fmt.Sprintf("Schema is at version %d", version)))
	}

	return results
}

// checkFileSystemPermissions checks filesystem permissions for the data directory
func (d *Runner) checkFileSystemPermissions() []CheckResult {
	var results []CheckResult

	dataDir := d.config.DataDir

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return append(results, fail("data_directory_exists", fmt.Sprintf("%s directory does not exist: %s", config.DirName, dataDir)))
	} else if err != nil {
		return append(results, fail("data_directory_access", fmt.Sprintf("Cannot access %s directory: %v", config.DirName, err)))
	}

	if err := testDirectoryPermissions(dataDir); err != nil {
		results = append(results, fail("data_directory_permissions", fmt.Sprintf("Insufficient permissions for %s directory: %v", config.DirName, err)))
	} else {
		results = append(results, pass("data_directory_permissions", fmt.Sprintf("Sufficient permissions for %s directory", config.DirName)))
	}

	for _, subdir := range config.Subdirs(dataDir) {
		name := filepath.Base(subdir)
		if _, err := os.Stat(subdir); os.IsNotExist(err) {
			results = append(results, warn(name+"_exists", fmt.Sprintf("Subdirectory does not exist: %s", subdir)))
		} else if err != nil {
			results = append(results, fail(name+"_access", fmt.Sprintf("Cannot access subdirectory: %v", err)))
		} else {
			results = append(results, pass(name+"_access", fmt.Sprintf("Accessible subdirectory: %s", subdir)))
		}
	}

	return results
}

// testDirectoryPermissions tests if we can read and write to a directory
func testDirectoryPermissions(dir string) error {
	testFile := filepath.Join(dir, ".permission_test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return err
	}
	os.Remove(testFile)
	return nil
}

func (d *Runner) checkConfiguration() []CheckResult {
	if err := d.config.Validate(); err != nil {
		return []CheckResult{fail("configuration_validation", fmt.Sprintf("Configuration validation failed: %v", err))}
	}
	return []CheckResult{pass("configuration_validation", fmt.Sprintf("Configuration is valid (project %s, timezone %s)", d.config.ProjectRoot, d.config.Location))}
}

func (d *Runner) checkStorageHealth(ctx context.Context) []CheckResult {
	var results []CheckResult

	if _, err := os.Stat(d.db.Path()); os.IsNotExist(err) {
		results = append(results, fail("database_file_exists", fmt.Sprintf("Database file does not exist: %s", d.db.Path())))
	} else if err != nil {
		results = append(results, fail("database_file_access", fmt.Sprintf("Cannot access database file: %v", err)))
	} else {
		results = append(results, pass("database_file_access", "Database file is accessible"))
	}

	var integrity string
	if err := d.db.GetConnection().QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		results = append(results, fail("database_integrity", fmt.Sprintf("Database integrity check failed: %v", err)))
	} else if integrity != "ok" {
		results = append(results, fail("database_integrity", fmt.Sprintf("Database integrity check reported: %s", integrity)))
	} else {
		results = append(results, pass("database_integrity", "Database integrity check passed"))
	}

	return results
}

func (d *Runner) checkReadings(ctx context.Context) []CheckResult {
	svc := readings.NewService(d.db, d.config.Location)

	count, err := svc.Count(ctx)
	if err != nil {
		return []CheckResult{fail("readings", fmt.Sprintf("Cannot count readings: %v", err))}
	}
	if count == 0 {
		return []CheckResult{warn("readings", "No readings logged yet")}
	}

	results := []CheckResult{pass("readings", fmt.Sprintf("%d readings logged", count))}

	latest, err := svc.List(ctx, 1)
	if err != nil || len(latest) == 0 {
		return append(results, fail("latest_reading", fmt.Sprintf("Cannot load latest reading: %v", err)))
	}
	date, err := ovulation.ParseDate(latest[0].Date, d.config.Location)
	if err != nil {
		return append(results, fail("latest_reading", fmt.Sprintf("Latest reading has an invalid date: %v", err)))
	}
	age := ovulation.DaysBetween(date, ovulation.DateOnly(d.now(), d.config.Location))
	if age > staleReadingDays {
		results = append(results, warn("latest_reading", fmt.Sprintf("Last reading was %d days ago (%s)", age, latest[0].Date)))
	} else {
		results = append(results, pass("latest_reading", fmt.Sprintf("Last reading on %s", latest[0].Date)))
	}
	return results
}

func (d *Runner) checkEngineState(ctx context.Context) []CheckResult {
	w, err := state.NewStore(d.db.GetConnection()).LoadDipWarning(ctx)
	if err != nil {
		return []CheckResult{fail("dip_state", fmt.Sprintf("Cannot load dip warning state: %v", err))}
	}
	if w.Active {
		return []CheckResult{pass("dip_state", fmt.Sprintf("Dip warning active for %s", ovulation.FormatDate(w.DipDate)))}
	}
	return []CheckResult{pass("dip_state", "No dip warning active")}
}

// PrintReport prints a formatted diagnostic report to stdout
func (d *Diagnostics) PrintReport() {
	d.WriteReport(os.Stdout)
}

// WriteReport writes the formatted diagnostic report to w
func (d *Diagnostics) WriteReport(w io.Writer) {
	fmt.Fprintf(w, "=== bbtrack Diagnostic Report ===\n")
	fmt.Fprintf(w, "Status: %s\n\n", d.Status)

	if len(d.Issues) > 0 {
		fmt.Fprintf(w, "Issues Found:\n")
		for i, issue := range d.Issues {
			fmt.Fprintf(w, "  %d. %s\n", i+1, issue)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Detailed Checks:\n")
	for _, check := range d.Checks {
		statusSymbol := "✓"
		if check.Status == "fail" {
			statusSymbol = "✗"
		} else if check.Status == "warn" {
			statusSymbol = "!"
		}

		fmt.Fprintf(w, "  %s %s: %s\n", statusSymbol, check.Name, check.Message)
	}

	fmt.Fprintln(w, "\nRecommendations:")
	if len(d.Issues) == 0 {
		fmt.Fprintln(w, "  ✓ System is operating normally")
	} else {
		fmt.Fprintf(w, "  • Check the %s directory permissions\n", config.DirName)
		fmt.Fprintln(w, "  • Verify database file is not corrupted")
		fmt.Fprintln(w, "  • Review configuration settings")
	}
}
