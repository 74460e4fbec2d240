package provisioning

import (
	"time"
)

// Step is one unit of an operation plan.
type Step interface {
	// Label is the human-readable description, e.g. "Creating security group".
	Label() string
	// Run performs the step. It must be safe to re-run after a partial failure.
	Run(ctx *Context) error
}

// RunSteps executes steps strictly in order. It stops at the first failing
// step and returns a *StepError naming it; already completed steps are not
// rolled back.
func RunSteps(ctx *Context, steps []Step) error {
	start := time.Now()
	progress := NewStepProgress(len(steps))

	for _, step := range steps {
		progress = progress.Next()
		stepStart := time.Now()

		LogStepStart(ctx.Observer, progress, step.Label())

		if err := step.Run(ctx); err != nil {
			LogStepFailed(ctx.Observer, progress, step.Label(), err)
			ctx.Metrics.ObserveStep(ctx.Operation, step.Label(), ResultFailure, time.Since(stepStart))
			ctx.Metrics.ObserveOperation(ctx.Operation, ResultFailure, time.Since(start))
			return &StepError{
				Operation: ctx.Operation,
				Workspace: ctx.Config.WorkspaceName,
				Step:      progress.Current,
				Total:     progress.Total,
				Label:     step.Label(),
				Err:       err,
			}
		}

		LogStepComplete(ctx.Observer, progress, step.Label(), time.Since(stepStart))
		ctx.Metrics.ObserveStep(ctx.Operation, step.Label(), ResultSuccess, time.Since(stepStart))
	}

	ctx.Metrics.ObserveOperation(ctx.Operation, ResultSuccess, time.Since(start))
	return nil
}

// StepFunc adapts a function to the Step interface.
type StepFunc struct {
	Name string
	Fn   func(ctx *Context) error
}

func (s StepFunc) Label() string { return s.Name }

func (s StepFunc) Run(ctx *Context) error { return s.Fn(ctx) }
