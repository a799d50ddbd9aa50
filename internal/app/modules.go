package app

import (
	"context"

	"github.com/daverage/bbtrack/internal/analytics"
	"github.com/daverage/bbtrack/internal/config"
	"github.com/daverage/bbtrack/internal/inference"
	"github.com/daverage/bbtrack/internal/logging"
	"github.com/daverage/bbtrack/internal/readings"
	"github.com/daverage/bbtrack/internal/state"
	"github.com/daverage/bbtrack/internal/storage"
	"go.uber.org/zap"
)

// CoreModule holds the core application components
type CoreModule struct {
	Config *config.Config
	Logger *zap.Logger
	// LogOutput is nil for loggers not built by NewApp.
	LogOutput *logging.Output
	DB        *storage.DB
}

// AnalyticsModule holds the inference run history components
type AnalyticsModule struct {
	// Metrics is nil when metrics are disabled.
	Metrics *analytics.MetricsWriter
	History *analytics.RunAnalytics
}

// App holds the core components of the application with better separation of concerns.
type App struct {
	Core      CoreModule
	Analytics AnalyticsModule
	Readings  *readings.Service
	State     *state.Store
	Inference *inference.Service
	Ctx       context.Context
	Cancel    context.CancelFunc
}
