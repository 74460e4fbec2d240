// Package provisioning is the orchestration kernel shared by workspace
// operations.
//
// # Core Types
//
// Context bundles every dependency an operation needs: configuration, the
// cloud backend, the observer, timeouts and metrics. Nothing is looked up
// globally.
// Step is one unit of a plan. RunSteps executes steps strictly in order,
// threading a single StepProgress value, and stops at the first failure with
// a StepError naming the failed step.
// State accumulates the resources resolved or created by each step and is
// summarized as a WorkspaceHandle.
//
// The workspace/ subpackage builds plans from configuration and implements the
// individual steps.
package provisioning
