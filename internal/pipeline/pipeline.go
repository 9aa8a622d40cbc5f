// Package pipeline sequences extractors into named runs. Steps execute in
// order with a settling delay between them; a failing step is recorded and
// the run continues, so one broken source never blocks the rest.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/metrics"
)

// DefaultStepDelay separates consecutive steps. The upstream services sit
// behind shared gateways, so runs breathe between sources.
const DefaultStepDelay = 10 * time.Second

// Step is one unit of pipeline work, typically an extractor.
type Step interface {
	Name() string
	Run(ctx context.Context) error
}

// Pauser inserts the inter-step delay. Swapped for a no-op in tests.
type Pauser interface {
	Pause(ctx context.Context, d time.Duration)
}

// StepResult records one step's outcome within a run.
type StepResult struct {
	Name    string
	Err     error
	Elapsed time.Duration
}

// Summary describes one finished run.
type Summary struct {
	RunID     uuid.UUID
	Pipeline  string
	Steps     []StepResult
	Completed int
	Failed    int
	Elapsed   time.Duration
}

// Runner executes a fixed sequence of steps.
type Runner struct {
	Name      string
	Steps     []Step
	Pauser    Pauser
	Logger    *zap.Logger
	StepDelay time.Duration
}

// Run executes every step in order and returns the run summary. Step
// errors are captured in the summary, not returned; the error return
// covers only context cancellation between steps.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	delay := r.StepDelay
	if delay == 0 {
		delay = DefaultStepDelay
	}

	summary := Summary{
		RunID:    uuid.New(),
		Pipeline: r.Name,
		Steps:    make([]StepResult, 0, len(r.Steps)),
	}
	started := time.Now()

	r.Logger.Info("pipeline starting",
		zap.String("pipeline", r.Name),
		zap.String("run_id", summary.RunID.String()),
		zap.Int("steps", len(r.Steps)))

	for i, step := range r.Steps {
		if err := ctx.Err(); err != nil {
			summary.Elapsed = time.Since(started)
			return summary, err
		}

		stepStart := time.Now()
		err := step.Run(ctx)
		elapsed := time.Since(stepStart)

		result := StepResult{Name: step.Name(), Err: err, Elapsed: elapsed}
		summary.Steps = append(summary.Steps, result)

		if err != nil {
			summary.Failed++
			metrics.ObserveStep(step.Name(), "error", elapsed)
			r.Logger.Error("pipeline step failed",
				zap.String("pipeline", r.Name),
				zap.String("step", step.Name()),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
		} else {
			summary.Completed++
			metrics.ObserveStep(step.Name(), "ok", elapsed)
			r.Logger.Info("pipeline step finished",
				zap.String("pipeline", r.Name),
				zap.String("step", step.Name()),
				zap.Duration("elapsed", elapsed))
		}

		if i < len(r.Steps)-1 {
			r.Pauser.Pause(ctx, delay)
		}
	}

	summary.Elapsed = time.Since(started)
	r.Logger.Info("pipeline finished",
		zap.String("pipeline", r.Name),
		zap.String("run_id", summary.RunID.String()),
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed))
	return summary, nil
}
