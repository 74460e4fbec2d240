// Package cloud defines the backend-neutral capability interface the workspace
// orchestrator is written against.
//
// Each resource kind has a manager interface with find, create and delete
// operations (plus status refresh or child listing where the kind has
// asynchronous state). A [Backend] bundles all managers; adapters under
// internal/platform implement it once per cloud provider, and
// internal/cloud/fakes provides an in-memory implementation.
//
// Contract shared by every manager:
//   - Find methods return (nil, nil) when nothing matches.
//   - Create methods fail with an error wrapping [ErrConflict] when a
//     resource with the same name already exists.
//   - Delete methods return an error wrapping [ErrNotFound] when the resource
//     is already gone; callers treat that as success.
package cloud
