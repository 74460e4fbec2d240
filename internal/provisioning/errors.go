package provisioning

import (
	"errors"
	"fmt"
)

var (
	// ErrDependencyMissing means a step's predecessor resource is absent.
	ErrDependencyMissing = errors.New("required dependency missing")
	// ErrIntegrityViolation means the workspace is not complete although the
	// requested operation requires it.
	ErrIntegrityViolation = errors.New("workspace integrity check failed")
)

// DependencyError reports which dependency a step was missing.
func DependencyError(step, dependency string) error {
	return fmt.Errorf("%s requires %s: %w", step, dependency, ErrDependencyMissing)
}

// StepError is returned when a step fails. Steps after it were not run and
// resources created by earlier steps are left in place.
type StepError struct {
	Operation string
	Workspace string
	Step      int
	Total     int
	Label     string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s workspace %q failed at step %d/%d (%s): %v",
		e.Operation, e.Workspace, e.Step, e.Total, e.Label, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the 1-based index of the step that failed, or 0 if err
// did not come from RunSteps.
func FailedStep(err error) int {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return 0
}
