// Package retry provides bounded retry and polling helpers.
//
// [Backoff.Do] retries a cloud API call with increasing delays while the
// error is one the caller considers retryable (locked resources, rate
// limits). [Poll] runs a fixed number of attempts at a fixed interval and is
// used by the orchestrator for its wait loops (gateway activation, draining
// child resources before deleting a parent).
package retry
