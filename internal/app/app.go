package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/daverage/bbtrack/internal/analytics"
	"github.com/daverage/bbtrack/internal/config"
	"github.com/daverage/bbtrack/internal/inference"
	"github.com/daverage/bbtrack/internal/logging"
	"github.com/daverage/bbtrack/internal/readings"
	"github.com/daverage/bbtrack/internal/state"
	"github.com/daverage/bbtrack/internal/storage"
	"go.uber.org/zap"
)

// NewApp loads configuration for the working directory and initializes the
// application.
func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, output, err := logging.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a, err := New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		output.Close()
		return nil, err
	}
	a.Core.LogOutput = output
	return a, nil
}

// New initializes an App from an already loaded configuration.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// storage.NewDB already handles migrations and uses cfg.DBPath
	db, err := storage.NewDB(cfg)
	if err != nil {
		logger.Error("Failed to initialize database", zap.Error(err), zap.String("path", cfg.DBPath))
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	engine, err := inference.NewEngine(cfg.OvulationParams(), cfg.DipParams(), logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	readingService := readings.NewService(db, cfg.Location)
	stateStore := state.NewStore(db.GetConnection())

	var metrics *analytics.MetricsWriter
	var recorder inference.RunRecorder
	if cfg.MetricsEnabled {
		metrics = analytics.NewMetricsWriter(db.GetConnection(), logger.Named("metrics"))
		recorder = metrics
	}

	inferenceService := inference.NewService(engine, readingService, stateStore, recorder, logger.Named("inference"))

	a := &App{
		Core: CoreModule{
			Config: cfg,
			Logger: logger,
			DB:     db,
		},
		Analytics: AnalyticsModule{
			Metrics: metrics,
			History: analytics.NewRunAnalytics(db.GetConnection()),
		},
		Readings:  readingService,
		State:     stateStore,
		Inference: inferenceService,
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.Ctx = a.ContextWithLogger(ctx)
	a.Cancel = cancel
	return a, nil
}

// QuietConsole keeps log output off the terminal for the rest of the run.
func (a *App) QuietConsole() {
	a.Core.LogOutput.QuietConsole()
}

// Close gracefully shuts down the application resources.
func (a *App) Close() {
	if a.Cancel != nil {
		a.Cancel()
	}

	// Flush queued runs before the connection goes away.
	a.Analytics.Metrics.Close()

	if a.Core.DB != nil {
		if err := a.Core.DB.Close(); err != nil {
			a.Core.Logger.Error("Failed to close database connection", zap.Error(err))
		} else {
			a.Core.Logger.Debug("Database connection closed.")
		}
	}
	if a.Core.Logger != nil {
		if err := a.Core.Logger.Sync(); err != nil {
			// Syncing a terminal stderr fails on some platforms; that is harmless.
			if !strings.Contains(err.Error(), "sync /dev/stderr: invalid argument") &&
				!strings.Contains(err.Error(), "sync <file descriptor>: bad file descriptor") &&
				!strings.Contains(err.Error(), "sync /dev/stderr: inappropriate ioctl for device") {
				fmt.Fprintf(os.Stderr, "Error syncing logger: %v\n", err)
			}
		}
	}
	if err := a.Core.LogOutput.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing log file: %v\n", err)
	}
}

// ContextWithLogger returns a new context with the application's logger.
func (a *App) ContextWithLogger(ctx context.Context) context.Context {
	return logging.ContextWithLogger(ctx, a.Core.Logger)
}

// LoggerFromContext retrieves the logger from the given context, or returns the default app logger.
func (a *App) LoggerFromContext(ctx context.Context) *zap.Logger {
	if logger, ok := logging.LoggerFromContext(ctx); ok {
		return logger
	}
	return a.Core.Logger
}
