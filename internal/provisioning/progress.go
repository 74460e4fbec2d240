package provisioning

import "fmt"

// StepProgress tracks the position within one operation's plan. It is owned
// by RunSteps and handed to observers by value.
type StepProgress struct {
	Current int
	Total   int
}

// NewStepProgress starts a progress counter before the first step.
func NewStepProgress(total int) StepProgress {
	return StepProgress{Total: total}
}

// Next returns the progress for the following step.
func (p StepProgress) Next() StepProgress {
	return StepProgress{Current: p.Current + 1, Total: p.Total}
}

// Done reports whether every step has been started.
func (p StepProgress) Done() bool {
	return p.Current >= p.Total
}

func (p StepProgress) String() string {
	return fmt.Sprintf("%d/%d", p.Current, p.Total)
}
