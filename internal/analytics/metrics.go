package analytics

import (
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	metricsBufferSize = 100
	// ranAtLayout is fixed width so that stored timestamps sort as text.
	ranAtLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Run records one inference invocation.
type Run struct {
	ID            string    `json:"id" yaml:"id"`
	RanAt         time.Time `json:"ran_at" yaml:"ran_at"`
	ReadingsUsed  int       `json:"readings_used" yaml:"readings_used"`
	FeverExcluded int       `json:"fever_excluded" yaml:"fever_excluded"`
	// OvulationDate is empty when no date was inferred.
	OvulationDate string  `json:"ovulation_date,omitempty" yaml:"ovulation_date,omitempty"`
	Confidence    string  `json:"confidence" yaml:"confidence"`
	Pattern       string  `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Score         float64 `json:"score" yaml:"score"`
	Message       string  `json:"message" yaml:"message"`
	DipTransition string  `json:"dip_transition" yaml:"dip_transition"`
	DipActive     bool    `json:"dip_active" yaml:"dip_active"`
	DurationMs    int64   `json:"duration_ms" yaml:"duration_ms"`
}

// MetricsWriter handles async writing of inference runs to the database.
type MetricsWriter struct {
	db        *sql.DB
	logger    *zap.Logger
	runs      chan Run
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewMetricsWriter creates a new async metrics writer.
// Pass nil for db to disable metrics writing.
func NewMetricsWriter(db *sql.DB, logger *zap.Logger) *MetricsWriter {
	if db == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mw := &MetricsWriter{
		db:     db,
		logger: logger,
		runs:   make(chan Run, metricsBufferSize),
		done:   make(chan struct{}),
	}

	mw.wg.Add(1)
	go mw.writeLoop()

	return mw
}

// Record queues a run for async writing. Non-blocking; drops if buffer full.
func (mw *MetricsWriter) Record(run Run) {
	if mw == nil || mw.closed.Load() {
		return
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	select {
	case mw.runs <- run:
	default:
		mw.logger.Debug("Metrics buffer full, dropping run",
			zap.String("run_id", run.ID),
			zap.String("confidence", run.Confidence),
		)
	}
}

// Close gracefully shuts down the metrics writer, flushing pending writes.
func (mw *MetricsWriter) Close() {
	if mw == nil {
		return
	}

	mw.closeOnce.Do(func() {
		mw.closed.Store(true)
		close(mw.done)
	})
	mw.wg.Wait()
}

func (mw *MetricsWriter) writeLoop() {
	defer mw.wg.Done()

	for {
		select {
		case run := <-mw.runs:
			mw.writeRun(run)
		case <-mw.done:
			// Drain any remaining runs
			for {
				select {
				case run := <-mw.runs:
					mw.writeRun(run)
				default:
					return
				}
			}
		}
	}
}

func (mw *MetricsWriter) writeRun(run Run) {
	_, err := mw.db.Exec(`
		INSERT INTO inference_runs (
			id, ran_at, readings_used, fever_excluded, ovulation_date, confidence,
			pattern, score, message, dip_transition, dip_active, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.RanAt.UTC().Format(ranAtLayout),
		run.ReadingsUsed,
		run.FeverExcluded,
		run.OvulationDate,
		run.Confidence,
		run.Pattern,
		run.Score,
		run.Message,
		run.DipTransition,
		run.DipActive,
		run.DurationMs,
	)
	if err != nil {
		mw.logger.Error("Failed to write inference run",
			zap.Error(err),
			zap.String("run_id", run.ID),
		)
	}
}
