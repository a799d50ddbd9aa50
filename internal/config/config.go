package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/daverage/bbtrack/internal/dip"
	"github.com/daverage/bbtrack/internal/ovulation"
)

const (
	DefaultLogLevel      = "info"
	DefaultLookbackDays  = 30
	DefaultMinReadings   = 6
	DefaultBaseThreshold = 0.25
	DefaultRiseThreshold = 0.2
	DefaultDipThreshold  = 0.15
	DefaultDipExpiryDays = 3
	DefaultDipRiseMargin = 0.2
)

// Config holds the application configuration
type Config struct {
	LogLevel    string
	LogFile     string
	DBPath      string
	ConfigPath  string
	DataDir     string
	ProjectRoot string
	// Timezone names the location calendar dates are read in; empty means
	// the system zone.
	Timezone string
	Location *time.Location
	// Metrics configuration
	MetricsEnabled bool
	Engine         EngineConfig
}

// EngineConfig holds the tunable detection constants.
type EngineConfig struct {
	LookbackDays    int
	MinReadings     int
	BaseThreshold   float64
	RiseThreshold   float64
	SevenDayEnabled bool
	DipThreshold    float64
	DipExpiryDays   int
	DipRiseMargin   float64
}

type fileConfig struct {
	Logging struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"logging"`
	Database struct {
		Path string `toml:"path"`
	} `toml:"database"`
	Engine struct {
		Timezone      string  `toml:"timezone"`
		LookbackDays  int     `toml:"lookback_days"`
		MinReadings   int     `toml:"min_readings"`
		BaseThreshold float64 `toml:"base_threshold"`
		RiseThreshold float64 `toml:"rise_threshold"`
		SevenDayRule  bool    `toml:"seven_day_rule"`
		DipThreshold  float64 `toml:"dip_threshold"`
		DipExpiryDays int     `toml:"dip_expiry_days"`
		DipRiseMargin float64 `toml:"dip_rise_margin"`
	} `toml:"engine"`
	Metrics struct {
		Enabled bool `toml:"enabled"`
	} `toml:"metrics"`
}

// LoadConfig loads configuration for the project containing the working
// directory.
func LoadConfig() (*Config, error) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		return nil, err
	}
	return Load(projectRoot)
}

// Load loads configuration from file, environment variables, and defaults
func Load(projectRoot string) (*Config, error) {
	dataDir := GetDataDir(projectRoot)
	configPath := filepath.Join(dataDir, "config.toml")

	if err := EnsureDataDirs(dataDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:       DefaultLogLevel,
		LogFile:        filepath.Join(dataDir, "logs", "bbtrack.log"),
		DBPath:         filepath.Join(dataDir, "store", "bbtrack.sqlite3"),
		ConfigPath:     configPath,
		DataDir:        dataDir,
		ProjectRoot:    projectRoot,
		MetricsEnabled: true,
		Engine: EngineConfig{
			LookbackDays:  DefaultLookbackDays,
			MinReadings:   DefaultMinReadings,
			BaseThreshold: DefaultBaseThreshold,
			RiseThreshold: DefaultRiseThreshold,
			DipThreshold:  DefaultDipThreshold,
			DipExpiryDays: DefaultDipExpiryDays,
			DipRiseMargin: DefaultDipRiseMargin,
		},
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := cfg.applyFile(configPath); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	if !filepath.IsAbs(cfg.DBPath) {
		cfg.DBPath = filepath.Join(dataDir, cfg.DBPath)
	}
	if cfg.LogFile != "" && !filepath.IsAbs(cfg.LogFile) {
		cfg.LogFile = filepath.Join(dataDir, cfg.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	fileData, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var parsed fileConfig
	if err := toml.Unmarshal(fileData, &parsed); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	var raw map[string]interface{}
	if err := toml.Unmarshal(fileData, &raw); err != nil {
		return err
	}
	_, metricsSectionPresent := raw["metrics"]

	if parsed.Logging.Level != "" {
		c.LogLevel = parsed.Logging.Level
	}
	if parsed.Logging.File != "" {
		c.LogFile = parsed.Logging.File
	}
	if parsed.Database.Path != "" {
		c.DBPath = parsed.Database.Path
	}
	if parsed.Engine.Timezone != "" {
		c.Timezone = parsed.Engine.Timezone
	}
	if parsed.Engine.LookbackDays != 0 {
		c.Engine.LookbackDays = parsed.Engine.LookbackDays
	}
	if parsed.Engine.MinReadings != 0 {
		c.Engine.MinReadings = parsed.Engine.MinReadings
	}
	if parsed.Engine.BaseThreshold != 0 {
		c.Engine.BaseThreshold = parsed.Engine.BaseThreshold
	}
	if parsed.Engine.RiseThreshold != 0 {
		c.Engine.RiseThreshold = parsed.Engine.RiseThreshold
	}
	c.Engine.SevenDayEnabled = parsed.Engine.SevenDayRule
	if parsed.Engine.DipThreshold != 0 {
		c.Engine.DipThreshold = parsed.Engine.DipThreshold
	}
	if parsed.Engine.DipExpiryDays != 0 {
		c.Engine.DipExpiryDays = parsed.Engine.DipExpiryDays
	}
	if parsed.Engine.DipRiseMargin != 0 {
		c.Engine.DipRiseMargin = parsed.Engine.DipRiseMargin
	}
	// Only override the default if [metrics] is present
	if metricsSectionPresent {
		c.MetricsEnabled = parsed.Metrics.Enabled
	}
	return nil
}

func (c *Config) applyEnv() {
	if level := os.Getenv("BBTRACK_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if logFile := os.Getenv("BBTRACK_LOG_FILE"); logFile != "" {
		c.LogFile = logFile
	}
	if dbPath := os.Getenv("BBTRACK_DB_PATH"); dbPath != "" {
		c.DBPath = dbPath
	}
	if tz := os.Getenv("BBTRACK_TIMEZONE"); tz != "" {
		c.Timezone = tz
	}
	if lookback := os.Getenv("BBTRACK_LOOKBACK_DAYS"); lookback != "" {
		if days, err := strconv.Atoi(lookback); err == nil {
			c.Engine.LookbackDays = days
		}
	}
	if minReadings := os.Getenv("BBTRACK_MIN_READINGS"); minReadings != "" {
		if n, err := strconv.Atoi(minReadings); err == nil {
			c.Engine.MinReadings = n
		}
	}
	if rise := os.Getenv("BBTRACK_RISE_THRESHOLD"); rise != "" {
		if v, err := strconv.ParseFloat(rise, 64); err == nil {
			c.Engine.RiseThreshold = v
		}
	}
	if dipThreshold := os.Getenv("BBTRACK_DIP_THRESHOLD"); dipThreshold != "" {
		if v, err := strconv.ParseFloat(dipThreshold, 64); err == nil {
			c.Engine.DipThreshold = v
		}
	}
	if sevenDay := os.Getenv("BBTRACK_SEVEN_DAY_RULE"); sevenDay != "" {
		c.Engine.SevenDayEnabled = sevenDay == "true" || sevenDay == "1"
	}
	if metricsEnabled := os.Getenv("BBTRACK_METRICS_ENABLED"); metricsEnabled != "" {
		c.MetricsEnabled = metricsEnabled == "true" || metricsEnabled == "1"
	}
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// OvulationParams returns the predictor parameters with the configured
// overrides applied.
func (c *Config) OvulationParams() ovulation.Params {
	p := ovulation.DefaultParams()
	p.LookbackDays = c.Engine.LookbackDays
	p.MinReadings = c.Engine.MinReadings
	p.BaseThreshold = c.Engine.BaseThreshold
	p.RiseThreshold = c.Engine.RiseThreshold
	p.SevenDayEnabled = c.Engine.SevenDayEnabled
	p.Location = c.Location
	return p
}

// DipParams returns the dip monitor parameters with the configured overrides
// applied.
func (c *Config) DipParams() dip.Params {
	p := dip.DefaultParams()
	p.Threshold = c.Engine.DipThreshold
	p.ExpiryDays = c.Engine.DipExpiryDays
	p.RiseMargin = c.Engine.DipRiseMargin
	p.Location = c.Location
	return p
}

// Validate verifies the configuration is usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "off":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("database path is empty")
	}
	if c.Location == nil {
		return fmt.Errorf("timezone not resolved")
	}
	if c.Engine.BaseThreshold <= 0 {
		return fmt.Errorf("base threshold must be positive")
	}
	if c.Engine.RiseThreshold <= 0 {
		return fmt.Errorf("rise threshold must be positive")
	}
	if c.Engine.DipThreshold <= 0 {
		return fmt.Errorf("dip threshold must be positive")
	}
	if err := c.OvulationParams().Validate(); err != nil {
		return err
	}
	return c.DipParams().Validate()
}
