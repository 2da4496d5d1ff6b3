// Package runner executes a scenario against a counter.
package runner

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"

	counter "github.com/reglet-dev/native-counter"
	"github.com/reglet-dev/native-counter/domain/entities"
	"github.com/reglet-dev/native-counter/domain/errors"
	"github.com/reglet-dev/native-counter/domain/ports"
)

// StepResult records the outcome of one step. Exactly one of Value,
// Snapshot or Positions is set.
type StepResult struct {
	Value     *uint32                   `json:"value,omitempty"`
	Snapshot  *entities.CounterSnapshot `json:"snapshot,omitempty"`
	Op        string                    `json:"op"`
	Positions []entities.Position       `json:"positions,omitempty"`
}

// Report is the outcome of a scenario run.
type Report struct {
	// Error describes the step that aborted the run, if any.
	Error *entities.ErrorDetail `json:"error,omitempty"`
	Args  entities.CounterArgs  `json:"args"`
	Steps []StepResult          `json:"steps"`
	Final uint32                `json:"final"`
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger      *slog.Logger
	counterOpts []counter.Option
}

// WithLogger sets the logger for step progress and the counter itself.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCounterOptions passes options to counter.New.
func WithCounterOptions(opts ...counter.Option) Option {
	return func(c *runConfig) {
		c.counterOpts = append(c.counterOpts, opts...)
	}
}

// Run creates a counter on bindings, executes every step of scenario in
// order and closes the counter. The first failing step aborts the run; the
// partial report is returned with the error.
func Run(ctx context.Context, bindings ports.CounterBindings, scenario *entities.Scenario, opts ...Option) (report *Report, err error) {
	cfg := runConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	c, err := counter.New(ctx, bindings, scenario.Args, append([]counter.Option{counter.WithLogger(cfg.logger)}, cfg.counterOpts...)...)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = stdErrors.Join(err, c.Close())
	}()

	report = &Report{Args: scenario.Args, Steps: make([]StepResult, 0, len(scenario.Steps))}
	for i, step := range scenario.Steps {
		result, stepErr := execute(ctx, c, step)
		if stepErr != nil {
			report.Error = errors.ToErrorDetail(stepErr)
			return report, fmt.Errorf("step %d (%s): %w", i, step.Op, stepErr)
		}
		cfg.logger.DebugContext(ctx, "runner: step done", "index", i, "op", step.Op)
		report.Steps = append(report.Steps, result)
	}

	final, err := c.Value(ctx)
	if err != nil {
		return report, fmt.Errorf("final value: %w", err)
	}
	report.Final = final
	return report, nil
}

func execute(ctx context.Context, c *counter.Counter, step entities.Step) (StepResult, error) {
	result := StepResult{Op: step.Op}

	var (
		v   uint32
		err error
	)
	switch step.Op {
	case entities.StepIncrement:
		v, err = c.Increment(ctx)
	case entities.StepDecrement:
		v, err = c.Decrement(ctx)
	case entities.StepIncrementBy:
		v, err = c.IncrementBy(ctx, step.By)
	case entities.StepDecrementBy:
		v, err = c.DecrementBy(ctx, step.By)
	case entities.StepIncrementByMany:
		v, err = c.IncrementByMany(ctx, step.Values)
	case entities.StepDecrementByMany:
		v, err = c.DecrementByMany(ctx, step.Values)
	case entities.StepValue:
		v, err = c.Value(ctx)
	case entities.StepSnapshot:
		snap, err := c.Snapshot(ctx)
		if err != nil {
			return result, err
		}
		result.Snapshot = &snap
		return result, nil
	case entities.StepPositions:
		positions, err := c.Positions(ctx)
		if err != nil {
			return result, err
		}
		result.Positions = positions
		return result, nil
	default:
		return result, fmt.Errorf("unknown op %q", step.Op)
	}
	if err != nil {
		return result, err
	}
	result.Value = &v
	return result, nil
}
