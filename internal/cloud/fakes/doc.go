// Package fakes provides an in-memory [cloud.Backend].
//
// The fake records every call, can inject failures per operation and kind,
// and simulates the asynchronous behavior real providers show: gateways that
// take several refreshes to become active, deletes that only take effect in
// batches, and parents that refuse deletion while children still exist.
// It backs the orchestrator tests and the --backend fake dry-run mode.
package fakes
