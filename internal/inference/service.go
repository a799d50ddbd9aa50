package inference

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/daverage/bbtrack/internal/analytics"
	"github.com/daverage/bbtrack/internal/dip"
	"github.com/daverage/bbtrack/internal/ovulation"
)

// ReadingSource supplies every stored reading.
type ReadingSource interface {
	Readings(ctx context.Context) ([]ovulation.Reading, error)
}

// WarningStore persists the dip warning between runs.
type WarningStore interface {
	LoadDipWarning(ctx context.Context) (dip.Warning, error)
	SaveDipWarning(ctx context.Context, w dip.Warning) error
}

// RunRecorder receives one record per run. Implementations must not block.
type RunRecorder interface {
	Record(run analytics.Run)
}

// Service loads state, runs the engine and stores the new state. It is not
// safe for concurrent use on the same store.
type Service struct {
	engine   *Engine
	readings ReadingSource
	warnings WarningStore
	recorder RunRecorder
	logger   *zap.Logger
}

// NewService wires the engine to its collaborators. recorder may be nil.
func NewService(engine *Engine, readings ReadingSource, warnings WarningStore, recorder RunRecorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:   engine,
		readings: readings,
		warnings: warnings,
		recorder: recorder,
		logger:   logger,
	}
}

// Predict runs the engine as of now and persists the resulting dip state.
func (s *Service) Predict(ctx context.Context, now time.Time) (Outcome, error) {
	start := time.Now()

	readings, err := s.readings.Readings(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load readings: %w", err)
	}
	prev, err := s.warnings.LoadDipWarning(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load dip state: %w", err)
	}

	out, err := s.engine.Run(readings, prev, now)
	if err != nil {
		return Outcome{}, err
	}

	if out.Transition != dip.TransitionNone {
		if err := s.warnings.SaveDipWarning(ctx, out.Warning); err != nil {
			return Outcome{}, fmt.Errorf("failed to save dip state: %w", err)
		}
	}

	elapsed := time.Since(start)
	if s.recorder != nil {
		s.recorder.Record(out.run(now, elapsed))
	}

	fields := []zap.Field{
		zap.Int("readings", len(readings)),
		zap.Int("readings_used", out.Result.ReadingsUsed),
		zap.String("confidence", string(out.Result.Confidence)),
		zap.String("message", out.Result.Message),
		zap.String("dip_transition", string(out.Transition)),
		zap.Duration("duration", elapsed),
	}
	if out.Result.Found() {
		fields = append(fields, zap.String("ovulation_date", ovulation.FormatDate(*out.Result.Date)))
	}
	s.logger.Info("Inference complete", fields...)

	return out, nil
}

func (o Outcome) run(now time.Time, elapsed time.Duration) analytics.Run {
	run := analytics.Run{
		RanAt:         now,
		ReadingsUsed:  o.Result.ReadingsUsed,
		FeverExcluded: o.FeverExcluded,
		Confidence:    string(o.Result.Confidence),
		Pattern:       string(o.Result.Pattern),
		Score:         o.Result.Score,
		Message:       o.Result.Message,
		DipTransition: string(o.Transition),
		DipActive:     o.Warning.Active,
		DurationMs:    elapsed.Milliseconds(),
	}
	if o.Result.Found() {
		run.OvulationDate = ovulation.FormatDate(*o.Result.Date)
	}
	return run
}
