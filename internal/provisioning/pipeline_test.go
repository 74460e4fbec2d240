package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/wsctl/internal/cloud/fakes"
	"github.com/imamik/wsctl/internal/config"
)

func newTestContext(t *testing.T, observer Observer) *Context {
	t.Helper()
	cfg := &config.Config{WorkspaceName: "dev", Backend: config.BackendFake}
	return NewContext(context.Background(), OperationCreate, cfg, fakes.New(),
		WithObserver(observer),
		WithTimeouts(config.TestTimeouts()),
		WithMetrics(NewMetrics()),
	)
}

func recordingStep(label string, executed *[]string, err error) Step {
	return StepFunc{Name: label, Fn: func(_ *Context) error {
		*executed = append(*executed, label)
		return err
	}}
}

func TestRunSteps_Success(t *testing.T) {
	t.Parallel()
	observer := NewMockObserver()
	ctx := newTestContext(t, observer)
	var executed []string

	err := RunSteps(ctx, []Step{
		recordingStep("one", &executed, nil),
		recordingStep("two", &executed, nil),
		recordingStep("three", &executed, nil),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, executed)

	var progress []StepProgress
	for _, e := range observer.Events() {
		if e.Type == EventStepStarted {
			progress = append(progress, e.Progress)
		}
	}
	assert.Equal(t, []StepProgress{{1, 3}, {2, 3}, {3, 3}}, progress)
	assert.Equal(t, 1.0, testutil.ToFloat64(ctx.Metrics.operationsTotal.WithLabelValues(OperationCreate, ResultSuccess)))
}

func TestRunSteps_AbortsOnFirstFailure(t *testing.T) {
	t.Parallel()
	observer := NewMockObserver()
	ctx := newTestContext(t, observer)
	var executed []string
	cause := errors.New("quota exceeded")

	err := RunSteps(ctx, []Step{
		recordingStep("Creating network", &executed, nil),
		recordingStep("Creating subnets", &executed, nil),
		recordingStep("Creating security group", &executed, cause),
		recordingStep("Creating peering", &executed, nil),
		recordingStep("Creating identity profiles", &executed, nil),
		recordingStep("Creating storage bucket", &executed, nil),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, FailedStep(err))
	assert.Equal(t, `create workspace "dev" failed at step 3/6 (Creating security group): quota exceeded`, err.Error())
	assert.Equal(t, []string{"Creating network", "Creating subnets", "Creating security group"}, executed)

	types := observer.Types()
	assert.Equal(t, EventStepFailed, types[len(types)-1])
	assert.Equal(t, 1.0, testutil.ToFloat64(ctx.Metrics.stepsTotal.WithLabelValues(OperationCreate, "Creating security group", ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ctx.Metrics.operationsTotal.WithLabelValues(OperationCreate, ResultFailure)))
}

func TestRunSteps_Empty(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t, NewMockObserver())
	require.NoError(t, RunSteps(ctx, nil))
}

func TestRunSteps_EventsCarryOperationFields(t *testing.T) {
	t.Parallel()
	observer := NewMockObserver()
	ctx := newTestContext(t, observer)

	require.NoError(t, RunSteps(ctx, []Step{StepFunc{Name: "x", Fn: func(*Context) error { return nil }}}))

	for _, e := range observer.Events() {
		assert.Equal(t, "dev", e.Fields["workspace"])
		assert.Equal(t, OperationCreate, e.Fields["operation"])
		assert.Equal(t, ctx.OperationID, e.Fields["operation_id"])
	}
}

func TestRunSteps_NilMetrics(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t, NopObserver{})
	ctx.Metrics = nil
	require.NoError(t, RunSteps(ctx, []Step{StepFunc{Name: "x", Fn: func(*Context) error { return nil }}}))
}

func TestStepProgress(t *testing.T) {
	t.Parallel()
	p := NewStepProgress(2)
	assert.Equal(t, "0/2", p.String())
	assert.False(t, p.Done())

	p = p.Next()
	assert.Equal(t, "1/2", p.String())
	p = p.Next()
	assert.True(t, p.Done())
}

func TestFailedStep_NotStepError(t *testing.T) {
	t.Parallel()
	assert.Zero(t, FailedStep(errors.New("x")))
	assert.Zero(t, FailedStep(nil))
}

func TestDependencyError(t *testing.T) {
	t.Parallel()
	err := DependencyError("Creating subnets", "network")
	assert.ErrorIs(t, err, ErrDependencyMissing)
	assert.Equal(t, "Creating subnets requires network: required dependency missing", err.Error())
}
