// Package logging builds the zap loggers used across bbtrack.
package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel converts a configured level name. "off" disables logging.
func ParseLevel(levelStr string) (zapcore.Level, bool) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel, true
	case "warn":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	case "off":
		return zapcore.InfoLevel, false
	default:
		return zapcore.InfoLevel, true
	}
}

// Output controls the sinks behind a logger built by NewLogger.
type Output struct {
	file    *os.File
	console zap.AtomicLevel
}

// QuietConsole stops everything below fatal from reaching stderr. Commands
// printing json or yaml call it so the terminal only carries their output.
func (o *Output) QuietConsole() {
	if o == nil {
		return
	}
	o.console.SetLevel(zapcore.FatalLevel)
}

// ConsoleLevel reports the current stderr threshold.
func (o *Output) ConsoleLevel() zapcore.Level {
	return o.console.Level()
}

// Close closes the log file. Sync the logger first.
func (o *Output) Close() error {
	if o == nil || o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file = nil
	return err
}

// NewLogger creates a logger writing JSON to logFile and console output to
// stderr. Only warnings and above reach stderr.
func NewLogger(level, logFile string) (*zap.Logger, *Output, error) {
	lvl, enabled := ParseLevel(level)
	out := &Output{console: zap.NewAtomicLevelAt(zapcore.WarnLevel)}
	if !enabled {
		return zap.NewNop(), out, nil
	}
	if lvl > zapcore.WarnLevel {
		out.console.SetLevel(lvl)
	}

	var cores []zapcore.Core
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out.file = file
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), lvl))
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), out.console))

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), out, nil
}

type loggerContextKey struct{}

// ContextWithLogger returns a copy of ctx carrying logger.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// LoggerFromContext retrieves the logger stored by ContextWithLogger.
func LoggerFromContext(ctx context.Context) (*zap.Logger, bool) {
	logger, ok := ctx.Value(loggerContextKey{}).(*zap.Logger)
	return logger, ok && logger != nil
}
