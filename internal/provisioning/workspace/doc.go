// Package workspace implements the workspace lifecycle on top of the
// provisioning kernel.
//
// BuildPlan turns a configuration into an ordered Plan. Create walks the plan
// with provisioning.RunSteps, skipping every resource that already exists so
// a failed run can simply be repeated. Delete walks the same plan in reverse,
// draining child resources (egress rules, bucket objects) in bounded loops
// before deleting their parents. Status classifies how much of a workspace
// exists by counting present resources.
//
// All durable state lives in the backend; resources are located solely by
// their deterministic names.
package workspace
